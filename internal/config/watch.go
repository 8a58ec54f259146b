package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sadopc/tasktimer/internal/util"
)

// WatchDebounce is how long Watch waits for writes to settle.
var WatchDebounce = 200 * time.Millisecond

// Watch reloads the config file at path whenever it changes and passes the
// result to onChange. Invalid files are logged and skipped. The containing
// directory is watched so editors that replace the file are seen too. Watch
// blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, log util.Logger, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	d := NewDebouncer(WatchDebounce, func() {
		cfg, err := Load(path, nil)
		if err != nil {
			log.Warn("ignoring invalid config change", util.F("path", path), util.Err(err))
			return
		}
		log.Info("config reloaded", util.F("path", path))
		onChange(cfg)
	})
	defer d.Stop()

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				d.Trigger()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
