// Package storage holds the documents, blobs and activity logs of the lab
// under slash-separated keys such as "tasks/<id>.yaml".
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidKey is returned for keys that are empty or leave the store root.
	ErrInvalidKey = errors.New("invalid key")
)

type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the content of key.
	Write(ctx context.Context, key string, data []byte) error
	// Append adds data to the end of key, creating it when missing.
	Append(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	// List returns the keys directly under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// CleanKey normalizes key to the relative slash form every backend stores.
// An empty prefix is allowed when allowRoot is set.
func CleanKey(key string, allowRoot bool) (string, error) {
	trimmed := strings.Trim(key, "/")
	if trimmed == "" {
		if allowRoot {
			return "", nil
		}
		return "", fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	for seg := range strings.SplitSeq(trimmed, "/") {
		if seg == ".." || seg == "." || seg == "" || strings.ContainsRune(seg, '\\') {
			return "", fmt.Errorf("%q: %w", key, ErrInvalidKey)
		}
	}
	return path.Clean(trimmed), nil
}
