package config

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/i474232898/airline-rank-bot/internal/logger"
	"github.com/i474232898/airline-rank-bot/internal/standings"
)

// WatchRoster monitors path and calls onChange with the newly loaded roster
// each time the file is written. It runs until ctx is cancelled.
//
// If a reload fails (e.g., invalid YAML), the error is logged and the previous
// roster stays active.
func WatchRoster(ctx context.Context, path string, log logger.Logger, onChange func(standings.Roster)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	log.Info("config: watching roster for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so Create counts as a write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			roster, err := LoadRoster(path)
			if err != nil {
				log.Error("config: roster reload failed, keeping previous roster", "path", path, "err", err)
				continue
			}

			log.Info("config: roster reloaded", "path", path)
			onChange(roster)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("config: roster watcher error", "err", err)
		}
	}
}
