package ml

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher reports changes to the artifact file after it has been
// loaded. The loaded model is never replaced; a change only means the
// running process serves a stale model until restart.
type ArtifactWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	onStale func(fsnotify.Op)
}

// NewArtifactWatcher watches the directory holding path, so atomic
// replacements of the file are seen too.
func NewArtifactWatcher(path string, logger *zap.Logger, onStale func(fsnotify.Op)) (*ArtifactWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactWatcher{path: abs, watcher: w, logger: logger, onStale: onStale}, nil
}

// Run blocks until ctx is done or the watcher is closed.
func (aw *ArtifactWatcher) Run(ctx context.Context) {
	defer aw.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != aw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			aw.logger.Warn("model artifact changed on disk, restart to serve the new model",
				zap.String("path", aw.path),
				zap.String("op", event.Op.String()))
			if aw.onStale != nil {
				aw.onStale(event.Op)
			}
		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			aw.logger.Error("artifact watcher error", zap.Error(err))
		}
	}
}

func (aw *ArtifactWatcher) Close() error {
	return aw.watcher.Close()
}
