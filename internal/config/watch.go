package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// watchSettle coalesces the burst of events an editor produces when it saves a file.
const watchSettle = 100 * time.Millisecond

// Watch reloads the store whenever the document changes on disk, until ctx is done.
// The directory is watched rather than the file so editors that replace the file by
// rename keep being observed.
func Watch(ctx context.Context, store *Store, logger *zap.SugaredLogger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer watcher.Close()

	path, err := filepath.Abs(store.doc.Path)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", store.doc.Path)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "watching %s", filepath.Dir(path))
	}
	logger.Debugw("watching config document", "path", path)

	reload := func() {
		changed, err := store.MaybeReloadFromDisk()
		switch {
		case err != nil:
			logger.Debugw("config reload skipped", "error", err)
		case changed:
			logger.Infow("config changed on disk", "path", path)
		}
	}
	debounced := debounce.New(watchSettle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debounced(reload)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("config watcher error", "error", err)
		}
	}
}
