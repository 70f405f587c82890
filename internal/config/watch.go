package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long the file must stay quiet before it is re-read.
// One save often arrives as a truncate followed by writes.
const reloadDebounce = 100 * time.Millisecond

// Watch reloads the settings file into st whenever it changes, until ctx is done.
// The parent directory is watched so that atomic rename-on-save is picked up.
// A file that fails to parse keeps the previous settings in place.
func Watch(ctx context.Context, path string, st *SettingsStore, logger *log.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	reload := time.NewTimer(reloadDebounce)
	reload.Stop()
	defer reload.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			reload.Reset(reloadDebounce)
		case <-reload.C:
			s, err := LoadSettings(target)
			if err != nil {
				logger.Warn("settings reload failed", "path", target, "err", err)
				continue
			}
			st.Store(s)
			logger.Info("settings reloaded", "path", target)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("settings watcher error", "err", err)
		}
	}
}
