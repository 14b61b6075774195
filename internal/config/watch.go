package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bryanchriswhite/FocusOverlay/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors produce for one save
const reloadDelay = 100 * time.Millisecond

// Watch reloads the config file whenever it changes on disk and passes the
// new configuration to onChange. Files that fail to parse are logged and
// skipped; the previous configuration stays active. Watch returns once the
// watcher is installed; the loop runs until ctx is done.
func (m *Manager) Watch(ctx context.Context, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Editors often replace the file, so watch the directory
	dir := filepath.Dir(m.configPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go m.watchLoop(ctx, watcher, onChange)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func(*Config)) {
	log := logger.WithComponent("config")
	defer watcher.Close()

	target := filepath.Clean(m.configPath)
	var (
		timer  *time.Timer
		reload <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(reloadDelay)
			reload = timer.C

		case <-reload:
			reload = nil
			cfg, err := m.Reload()
			if err != nil {
				log.Warn().Err(err).Str("path", m.configPath).Msg("Ignoring invalid config change")
				continue
			}
			log.Info().Str("path", m.configPath).Msg("Config reloaded")
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Config watcher error")
		}
	}
}
