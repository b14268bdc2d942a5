package config

import (
	"context"
	"path/filepath"
	"time"

	"emperror.dev/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDelay = 200 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	logger   zerolog.Logger
}

// NewWatcher starts watching the directory holding path. onChange receives every config that
// loads and validates; broken edits are logged and ignored.
func NewWatcher(path string, logger zerolog.Logger, onChange func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapIf(err, "resolving config path")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapIf(err, "creating file watcher")
	}
	// Editors replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, errors.WrapIfWithDetails(err, "watching config directory", "dir", filepath.Dir(abs))
	}
	return &Watcher{path: abs, watcher: w, onChange: onChange, logger: logger}, nil
}

// Run dispatches reloads until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("config change detected")
			timer.Reset(reloadDelay)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("config watcher error")
		case <-timer.C:
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Error().Err(err).Msg("keeping previous config")
				continue
			}
			w.logger.Info().Str("path", w.path).Msg("config reloaded")
			w.onChange(cfg)
		}
	}
}
