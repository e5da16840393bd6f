// Package watcher implements hot reload (C8): it watches every local
// file touched by the last successful import graph load and re-runs
// import+resolve whenever one of them changes, debouncing bursts of
// filesystem events into a single rebuild.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/moonrailgun/reqcraft/pkg/importer"
	"github.com/moonrailgun/reqcraft/pkg/logging"
	"github.com/moonrailgun/reqcraft/pkg/model"
	"github.com/moonrailgun/reqcraft/pkg/resolver"
)

// debounceInterval coalesces a burst of filesystem events (the rename+
// write pairs editors commonly emit when saving) into one rebuild.
const debounceInterval = 150 * time.Millisecond

// BuildResult is what a build (initial or on change) produces.
type BuildResult struct {
	Model *model.ApiModel
	Err   error
}

// Watcher owns one fsnotify.Watcher tracking the local files named by
// the importer's last successful load, and rebuilds the model whenever
// one of them changes.
//
// Grounded on danielgtaylor/apisprout's ConfigReloader.Run: a single
// goroutine select-looping over watcher.Events/Errors/ctx.Done, adding
// a renamed path back so editors that replace-on-save don't silently
// drop out of the watch set.
type Watcher struct {
	log      *slog.Logger
	rootPath string
	im       *importer.Importer

	onBuild func(BuildResult)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// New creates a Watcher for rootPath. onBuild is invoked once per
// initial build and once per subsequent rebuild.
func New(rootPath string, im *importer.Importer, onBuild func(BuildResult), opts ...Option) *Watcher {
	w := &Watcher{
		log:      logging.Nop(),
		rootPath: rootPath,
		im:       im,
		onBuild:  onBuild,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run performs the initial build, then watches the resulting local file
// set until ctx is canceled. It returns only once watching has stopped
// (or right after the initial build, with the watcher-creation error, if
// the file watcher itself could not be created; build outcomes are only
// ever reported through onBuild).
func (w *Watcher) Run(ctx context.Context) error {
	w.build(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addAll(fsw, w.im.LocalFiles()); err != nil {
		w.log.Warn("failed to watch file", "error", err)
	}

	var debounce *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.log.Debug("fs event", "op", event.Op.String(), "name", event.Name)

			// Editors that replace-on-save rename the old file away; the
			// watch on that inode is gone, so re-add the same path to
			// pick up the new file that lands there.
			if event.Op&fsnotify.Rename == fsnotify.Rename {
				_ = fsw.Add(event.Name)
			}
			if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceInterval, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "error", err)

		case <-fire:
			w.build(ctx)
			// The watch set is retained even if this build failed: a
			// broken file is still watched so fixing it triggers the
			// next rebuild.
			if err := w.addAll(fsw, w.im.LocalFiles()); err != nil {
				w.log.Warn("failed to watch file", "error", err)
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// build runs one import+resolve pass and reports the outcome.
func (w *Watcher) build(ctx context.Context) {
	sf, perrs, err := w.im.Load(ctx, w.rootPath)
	if err != nil {
		w.onBuild(BuildResult{Err: err})
		return
	}
	if len(perrs) > 0 {
		w.onBuild(BuildResult{Err: perrs[0]})
		return
	}

	m, rerrs := resolver.New().Resolve(sf)
	if len(rerrs) > 0 {
		w.onBuild(BuildResult{Err: rerrs[0]})
		return
	}

	w.onBuild(BuildResult{Model: m})
}

func (w *Watcher) addAll(fsw *fsnotify.Watcher, files []string) error {
	var firstErr error
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := fsw.Add(abs); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
