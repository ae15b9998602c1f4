package model

import (
	"context"
	"path/filepath"
	"time"

	"multisearch/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay lets editors finish writing before the directory is re-read;
// a burst of events results in a single reload.
var reloadDelay = 200 * time.Millisecond

// Watch reloads the registry from dir whenever a definition file changes,
// until ctx is done. A reload that fails to load or validate is logged and
// the previous definitions stay in service.
func Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warn("search_watch_close_failed", map[string]any{"error": err.Error()})
		}
	}()
	if err := watcher.Add(dir); err != nil {
		return err
	}
	logger.Info("search_watch_started", map[string]any{"dir": dir})

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".yml" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if err := InitRegistry(dir); err != nil {
				logger.Warn("search_reload_failed", map[string]any{"dir": dir, "error": err.Error()})
				continue
			}
			logger.Info("search_reloaded", map[string]any{"dir": dir, "names": Names()})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("search_watch_error", map[string]any{"error": err.Error()})
		}
	}
}
