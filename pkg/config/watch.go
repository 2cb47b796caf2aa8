package config

import (
	"context"
	"path/filepath"

	cerr "github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads path and invokes onReload whenever the file is written or
// recreated (editors commonly replace a file rather than write in place),
// until ctx is cancelled. Reload errors are logged, not returned, since a
// momentarily invalid config file (mid-save) shouldn't bring the loop down.
func Watch(ctx context.Context, path string, log *zap.Logger, onReload func(*Scope)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return cerr.Wrap(err, "creating config file watcher")
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return cerr.Wrapf(err, "watching directory of %s", path)
	}

	go runWatch(ctx, path, log, watcher, onReload)
	return nil
}

func runWatch(ctx context.Context, path string, log *zap.Logger, w *fsnotify.Watcher, onReload func(*Scope)) {
	defer w.Close()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Name != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			scope, err := Load(path)
			if err != nil {
				log.Warn("reloading configuration file after change", zap.String("path", path), zap.Error(err))
				continue
			}
			log.Info("configuration file reloaded", zap.String("path", path))
			onReload(scope)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("config watcher error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}
