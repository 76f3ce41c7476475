package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"headphones/internal/logging"
)

// Watch calls onChange whenever the config file or its meta file is written.
// It blocks until ctx is done.
func (c *Config) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(c.Path)); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	targets := map[string]struct{}{
		filepath.Clean(c.Path):       {},
		filepath.Clean(c.MetaPath()): {},
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, watched := targets[filepath.Clean(event.Name)]; !watched {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			c.logger.Debug("config file changed", logging.String("path", event.Name), logging.String("op", event.Op.String()))
			onChange()
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(c.logger, "config watcher error", "config_watch_error",
				logging.Error(werr),
				logging.String(logging.FieldImpact, "external config edits may not be picked up"),
			)
		}
	}
}
