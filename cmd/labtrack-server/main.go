package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	server "github.com/kazz187/labtrack/internal"
	"github.com/kazz187/labtrack/internal/activity"
	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/config"
	"github.com/kazz187/labtrack/internal/dashboard"
	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/internal/eventstream"
	"github.com/kazz187/labtrack/internal/file"
	filerepo "github.com/kazz187/labtrack/internal/file/repositoryimpl"
	"github.com/kazz187/labtrack/internal/metrics"
	"github.com/kazz187/labtrack/internal/provider"
	providerrepo "github.com/kazz187/labtrack/internal/provider/repositoryimpl"
	"github.com/kazz187/labtrack/internal/pushnotification"
	pushsubrepo "github.com/kazz187/labtrack/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/labtrack/internal/report"
	"github.com/kazz187/labtrack/internal/staff"
	staffrepo "github.com/kazz187/labtrack/internal/staff/repositoryimpl"
	"github.com/kazz187/labtrack/internal/station"
	stationrepo "github.com/kazz187/labtrack/internal/station/repositoryimpl"
	"github.com/kazz187/labtrack/internal/task"
	taskrepo "github.com/kazz187/labtrack/internal/task/repositoryimpl"
	"github.com/kazz187/labtrack/internal/user"
	userrepo "github.com/kazz187/labtrack/internal/user/repositoryimpl"
	"github.com/kazz187/labtrack/internal/whiteboard"
	whiteboardrepo "github.com/kazz187/labtrack/internal/whiteboard/repositoryimpl"
	"github.com/kazz187/labtrack/pkg/clog"
	"github.com/kazz187/labtrack/pkg/storage"
)

var (
	app = kingpin.New("labtrack-server", "EEG lab task tracker")

	serveCmd = app.Command("serve", "Run the HTTP server").Default()

	userCmd         = app.Command("user", "User management")
	userAddCmd      = userCmd.Command("add", "Create a user")
	userAddName     = userAddCmd.Arg("username", "Login name").Required().String()
	userAddDisplay  = userAddCmd.Flag("display-name", "Display name").String()
	userAddRole     = userAddCmd.Flag("role", "admin or user").Default(string(auth.RoleUser)).Enum(string(auth.RoleAdmin), string(auth.RoleUser))
	userAddPassword = userAddCmd.Flag("password", "Initial password").Envar("LABTRACK_NEW_USER_PASSWORD").Required().String()

	catalogCmd      = app.Command("catalog", "Order type catalog")
	catalogShowCmd  = catalogCmd.Command("show", "Print the automatic checklist items per order type")
	catalogShowPath = catalogShowCmd.Flag("path", "Catalog file; the built-in catalog when empty").Envar("LABTRACK_CATALOG_PATH").String()
)

func main() {
	var err error
	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case serveCmd.FullCommand():
		err = serve()
	case userAddCmd.FullCommand():
		err = addUser()
	case catalogShowCmd.FullCommand():
		err = showCatalog(os.Stdout, *catalogShowPath)
	}
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(env *config.BaseEnv) {
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}

func newStorage(ctx context.Context, env *config.StorageEnv) (storage.Storage, error) {
	switch env.Type {
	case "s3":
		s, err := storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return s, nil
	case "", "local":
		s, err := storage.NewLocalStorage(env.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", env.Type)
	}
}

func newEngine(base *config.BaseEnv, catalogEnv *config.CatalogEnv) (*checklist.Engine, error) {
	catalog, err := checklist.LoadCatalog(catalogEnv.Path)
	if err != nil {
		return nil, err
	}
	return checklist.NewEngine(catalog,
		checklist.WithClock(checklist.SystemClock{Location: base.Location()}),
		checklist.WithPrunePolicy(catalogEnv.PrunePolicy()),
	), nil
}

func serve() error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	setupLogger(&env.BaseEnv)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	store, err := newStorage(ctx, config.StorageEnvFromEnv(env))
	if err != nil {
		return err
	}
	engine, err := newEngine(&env.BaseEnv, &env.CatalogEnv)
	if err != nil {
		return err
	}
	clock := engine.Clock()
	slog.Info("order type catalog loaded",
		"order_types", len(engine.Catalog().OrderTypes()),
		"prune_policy", engine.Policy().String(),
		"timezone", env.Location().String(),
	)

	bus := eventbus.New()

	// Setup repositories
	userRepo := userrepo.NewYAMLRepository(store)
	taskRepo := taskrepo.NewYAMLRepository(store)
	stationRepo := stationrepo.NewYAMLRepository(store)
	staffRepo := staffrepo.NewYAMLRepository(store)
	providerRepo := providerrepo.NewYAMLRepository(store)
	whiteboardRepo := whiteboardrepo.NewYAMLRepository(store)
	folderRepo := filerepo.NewFolderRepository(store)
	fileRepo := filerepo.NewFileRepository(store)
	pushSubRepo := pushsubrepo.NewYAMLRepository(store)

	authEnv := config.AuthEnvFromEnv(env)
	if err := user.EnsureAdmin(ctx, userRepo, authEnv.BootstrapAdminUsername, authEnv.BootstrapAdminPassword); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	issuer := auth.NewIssuer(authEnv.JWTSecret, authEnv.TokenTTL)

	// Setup services and servers
	taskService := task.NewService(taskRepo, engine, bus, stationRepo, staffRepo)
	fileService := file.NewService(folderRepo, fileRepo, store, bus, env.MaxUploadBytes)
	providerServer := provider.NewServer(providerRepo, staffRepo, clock)

	vapidEnv := config.VAPIDEnvFromEnv(env)
	pushSender := pushnotification.NewSender(vapidEnv, pushSubRepo)
	pushDispatcher := pushnotification.NewDispatcher(bus, pushSender)
	m := metrics.New()
	activityLogger := activity.NewLogger(store, env.Location())

	srv := server.NewServer(
		env,
		issuer,
		m,
		user.NewServer(userRepo, issuer),
		task.NewServer(taskService),
		station.NewServer(stationRepo, taskService, bus),
		staff.NewServer(staffRepo),
		providerServer,
		whiteboard.NewServer(whiteboardRepo, bus),
		file.NewServer(fileService),
		dashboard.NewServer(taskService, stationRepo, providerServer, clock),
		report.NewGenerator(taskService, staffRepo, stationRepo, clock),
		pushnotification.NewServer(vapidEnv, pushSubRepo, pushSender),
		eventstream.NewServer(bus),
		activity.NewServer(activityLogger, clock),
	)

	go pushDispatcher.Start(ctx)
	go m.Run(ctx, bus)
	go activityLogger.Run(ctx, bus)
	if env.CatalogEnv.Watch && env.CatalogEnv.Path != "" {
		go func() {
			if err := checklist.WatchCatalog(ctx, env.CatalogEnv.Path, engine); err != nil {
				slog.Error("catalog watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

func addUser() error {
	env, err := config.LoadCLIEnv()
	if err != nil {
		return err
	}
	setupLogger(&env.BaseEnv)

	ctx := context.Background()
	store, err := newStorage(ctx, &env.StorageEnv)
	if err != nil {
		return err
	}
	u, err := user.Register(ctx, userrepo.NewYAMLRepository(store), *userAddName, *userAddDisplay, auth.Role(*userAddRole), *userAddPassword)
	if err != nil {
		return err
	}
	fmt.Printf("created %s user %s (%s)\n", u.Role, u.Username, u.ID)
	return nil
}

func showCatalog(w io.Writer, path string) error {
	catalog, err := checklist.LoadCatalog(path)
	if err != nil {
		return err
	}
	for _, orderType := range catalog.OrderTypes() {
		fmt.Fprintln(w, orderType)
		labels := catalog.Labels(orderType)
		if len(labels) == 0 {
			fmt.Fprintln(w, "  (no automatic items)")
			continue
		}
		fmt.Fprintln(w, "  - "+strings.Join(labels, "\n  - "))
	}
	return nil
}
