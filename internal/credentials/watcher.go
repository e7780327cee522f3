package credentials

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ApplyFunc receives freshly loaded credentials after a file change.
type ApplyFunc func(Credentials)

// Watch starts an fsnotify watcher on the credentials file and reloads it
// until ctx is cancelled. Reloads are debounced because editors and secret
// managers typically replace the file with a write-then-rename burst.
// A file that temporarily fails validation keeps the previous credentials.
func Watch(ctx context.Context, path string, logger *slog.Logger, apply ApplyFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory, not the file: rename-based replacement would
	// otherwise drop the watch.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	logger.Info("credentials watcher: started", slog.String("file", target))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("credentials watcher: stopped")
			return nil

		case <-reloadCh:
			creds, loadErr := Load(target)
			if loadErr != nil {
				logger.Warn("credentials watcher: reload failed",
					slog.String("file", target),
					slog.String("error", loadErr.Error()))
				continue
			}
			apply(creds)
			logger.Info("credentials watcher: credentials reloaded")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("credentials watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
