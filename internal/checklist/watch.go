package checklist

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce lets editors finish a write-then-rename before the file is
// re-read.
const watchDebounce = 100 * time.Millisecond

// WatchCatalog reloads the catalog at path into e whenever the file content
// changes, until ctx ends. A file that fails to parse is logged and the
// previous catalog stays active.
func WatchCatalog(ctx context.Context, path string, e *Engine) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: atomic replaces change the inode of the file.
	dir, name := filepath.Dir(path), filepath.Base(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	lastHash, _ := hashFile(path)
	slog.InfoContext(ctx, "watching order type catalog", "path", path)

	reload := make(chan struct{}, 1)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name || event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			h, err := hashFile(path)
			if err != nil {
				slog.WarnContext(ctx, "catalog file unreadable, keeping previous catalog", "path", path, "error", err)
				continue
			}
			if h == lastHash {
				continue
			}
			c, err := LoadCatalog(path)
			if err != nil {
				slog.ErrorContext(ctx, "catalog reload failed, keeping previous catalog", "path", path, "error", err)
				continue
			}
			lastHash = h
			e.SetCatalog(c)
			slog.InfoContext(ctx, "order type catalog reloaded", "path", path, "order_types", len(c.OrderTypes()))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "catalog watcher error", "error", err)
		}
	}
}

func hashFile(path string) ([sha256.Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}
