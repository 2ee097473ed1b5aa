package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/kazz187/labtrack/internal/checklist"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	// Calendar dates (CompletedOn, provider schedule) are taken in this zone.
	Timezone string `envconfig:"TIMEZONE" default:"America/New_York"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".labtrack/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"labtrack/"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
	// Upper bound for a single uploaded file.
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"33554432"`
}

type AuthEnv struct {
	JWTSecret              string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL               time.Duration `envconfig:"TOKEN_TTL" default:"12h"`
	BootstrapAdminUsername string        `envconfig:"BOOTSTRAP_ADMIN_USERNAME" default:"admin"`
	BootstrapAdminPassword string        `envconfig:"BOOTSTRAP_ADMIN_PASSWORD"`
}

type CatalogEnv struct {
	Path       string `envconfig:"CATALOG_PATH"`
	PruneStale bool   `envconfig:"CATALOG_PRUNE_STALE" default:"false"`
	// Reload Path when it changes on disk.
	Watch      bool   `envconfig:"CATALOG_WATCH" default:"false"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:eeg-lab@example.org"`
}

type Env struct {
	BaseEnv
	StorageEnv
	AuthEnv
	CatalogEnv
	VAPIDEnv
}

const namespace = "LABTRACK"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

// CLIEnv is the part of Env the offline commands need. It carries no
// secrets so `user add` works without JWT_SECRET.
type CLIEnv struct {
	BaseEnv
	StorageEnv
	CatalogEnv
}

func LoadCLIEnv() (*CLIEnv, error) {
	var env CLIEnv
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (e *BaseEnv) Location() *time.Location {
	if e == nil || e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using UTC", "timezone", e.Timezone, "error", err)
		return time.UTC
	}
	return loc
}

func (e *CatalogEnv) PrunePolicy() checklist.PrunePolicy {
	if e != nil && e.PruneStale {
		return checklist.PruneStale
	}
	return checklist.PruneNone
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func AuthEnvFromEnv(env *Env) *AuthEnv {
	return &env.AuthEnv
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}
