// Package watch purges cached textures when their files change on disk.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/echoflaresat/facetex/cache"
	"github.com/fsnotify/fsnotify"
)

// Watcher watches texture directories and purges the textures read from
// changed files. A change to any file also purges the face manifests in
// the same directory, since they may reference it.
type Watcher struct {
	fs    *fsnotify.Watcher
	cache *cache.Cache

	// OnPurge, if set, is called after a change purged n textures.
	OnPurge func(path string, n int)
}

// New starts watching dirs (not recursively).
func New(c *cache.Cache, dirs ...string) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		if err := fs.Add(d); err != nil {
			fs.Close()
			return nil, err
		}
	}
	return &Watcher{fs: fs, cache: c}, nil
}

// Run handles file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.handle(e.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			slog.Warn("texture watcher error", "error", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) handle(name string) {
	changed := absPath(name)
	dir := filepath.Dir(changed)
	n := w.cache.PurgeFunc(func(path string) bool {
		p := absPath(path)
		if p == changed {
			return true
		}
		return filepath.Dir(p) == dir && strings.EqualFold(filepath.Ext(p), ".toml")
	})
	if n == 0 {
		return
	}
	slog.Info("purged changed textures", "path", name, "count", n)
	if w.OnPurge != nil {
		w.OnPurge(name, n)
	}
}

func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return filepath.Clean(p)
}
