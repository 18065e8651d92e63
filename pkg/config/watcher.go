package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/errors"
)

// Watcher reloads a configuration file whenever it changes on disk and
// hands each valid result to a callback. Invalid files are logged and
// skipped so the last good configuration stays in effect.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(*Config)
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
}

// NewWatcher creates a watcher for filePath. The directory is watched
// rather than the file itself so editors that replace files atomically
// are still observed.
func NewWatcher(filePath string, onChange func(*Config), logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create file watcher")
	}
	if err := fsw.Add(filepath.Dir(filePath)); err != nil {
		_ = fsw.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to watch config directory").
			WithDetail("file", filePath)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     filepath.Clean(filePath),
		debounce: 100 * time.Millisecond,
		onChange: onChange,
		watcher:  fsw,
		logger:   logger.With(zap.String("component", "config_watcher"), zap.String("file", filePath)),
	}, nil
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("ignoring invalid configuration", zap.Error(err))
		return
	}
	w.logger.Info("configuration reloaded",
		zap.Int("shared_entries", len(cfg.Shared)),
		zap.Int("scenes", len(cfg.Scenes)))
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
