package depcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watch watches every directory the resolver searches for init scripts
// and forces a rebuild, debounced, whenever one changes. It blocks until
// ctx is cancelled.
func (c *Cache) Watch(ctx context.Context, dirs []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	logger := slog.With("component", "depcache")
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warn("failed to watch init script directory", "dir", dir, "error", err)
			continue
		}
	}

	var debounceTimer *time.Timer
	rebuild := func() {
		if err := c.Update(ctx, true); err != nil {
			logger.Error("deptree rebuild after fs event failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("init script changed", "file", event.Name, "op", event.Op)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, rebuild)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
