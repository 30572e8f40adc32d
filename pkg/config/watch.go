package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vnykmshr/flowgate/pkg/common/errors"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/debounce"
)

// DefaultWatchQuiet is the quiet period Watch uses when none is given.
const DefaultWatchQuiet = 100 * time.Millisecond

// Watch reloads the file at path whenever it changes and hands the result
// to onChange, which receives either the new File or the load error.
// Bursts of filesystem events collapse into one reload once quiet has
// passed without further events. onChange runs on a timer goroutine.
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, quiet time.Duration, onChange func(*File, error)) error {
	if quiet <= 0 {
		quiet = DefaultWatchQuiet
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return errors.NewOperationError("config", "watch", err).WithContext(path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.NewOperationError("config", "watch", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return errors.NewOperationError("config", "watch", err).WithContext(path)
	}

	reload := debounce.New(quiet)
	defer reload.Dispose()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.NewOperationError("config", "watch", errors.ErrClosed)
			}
			if event.Op == fsnotify.Chmod || filepath.Clean(event.Name) != target {
				continue
			}
			reload.Call(func() {
				onChange(Load(target))
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.NewOperationError("config", "watch", errors.ErrClosed)
			}
			onChange(nil, errors.NewOperationError("config", "watch", err))
		}
	}
}
