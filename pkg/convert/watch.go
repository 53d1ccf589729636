package convert

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"heic-toolkit-go/pkg/utils"
)

// RunFunc performs one conversion pass
type RunFunc func(ctx context.Context) error

// Watcher re-runs a conversion pass when new source files show up under root
type Watcher struct {
	root     string
	exts     map[string]bool
	debounce time.Duration
	run      RunFunc
	logger   *zap.Logger
}

// NewWatcher creates a watcher for root. run is invoked once the tree has
// been quiet for debounce after a matching change.
func NewWatcher(root string, exts []string, debounce time.Duration, run RunFunc, logger *zap.Logger) *Watcher {
	accepted := make(map[string]bool, len(exts))
	for _, ext := range exts {
		accepted[utils.NormalizeExtension(ext)] = true
	}
	return &Watcher{
		root:     root,
		exts:     accepted,
		debounce: debounce,
		run:      run,
		logger:   logger,
	}
}

// Watch blocks until ctx is done. Failed passes are logged and watching
// continues.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return utils.WrapError(err, "failed to create file watcher")
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.root); err != nil {
		return err
	}

	w.logger.Info("Watching for new source files",
		zap.String("root", w.root),
		zap.Duration("debounce", w.debounce))

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(fsw, event) {
				continue
			}
			w.logger.Debug("Change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			if err := w.run(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("Conversion pass failed", zap.Error(err))
			}
		}
	}
}

// relevant reports whether event should schedule a pass. New directories are
// added to the watch and count as a change.
func (w *Watcher) relevant(fsw *fsnotify.Watcher, event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(fsw, event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return true
		}
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return w.exts[strings.ToLower(filepath.Ext(name))]
}

// addTree watches dir and every directory below it
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return utils.WrapErrorf(err, "failed to watch %s", dir)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return utils.WrapErrorf(err, "failed to watch %s", path)
		}
		return nil
	})
}
