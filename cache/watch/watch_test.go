package watch

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/echoflaresat/facetex/cache"
)

func writePNG(t *testing.T, path string, size int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, size, size))); err != nil {
		t.Fatal(err)
	}
}

func TestPurgeOnChange(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 4)
	writePNG(t, filepath.Join(dir, "b.png"), 4)

	c := cache.New(cache.Options{SearchPath: []string{dir}})
	for _, id := range []string{"a.png", "b.png"} {
		h, err := c.Get(id)
		if err != nil {
			t.Fatalf("Get(%s): %v", id, err)
		}
		h.Release()
	}

	w, err := New(c, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	purged := make(chan string, 16)
	w.OnPurge = func(path string, n int) { purged <- path }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writePNG(t, filepath.Join(dir, "a.png"), 8)

	select {
	case p := <-purged:
		if filepath.Base(p) != "a.png" {
			t.Errorf("purged after change to %s, want a.png", p)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no purge after the file changed")
	}

	if s := c.Stats(); s.OpenFiles != 1 {
		t.Errorf("open files = %d, want 1 (b.png untouched)", s.OpenFiles)
	}
	h, err := c.Get("a.png")
	if err != nil {
		t.Fatalf("Get after change: %v", err)
	}
	if w := h.Texture().Face(0).Width(); w != 8 {
		t.Errorf("reloaded width = %d, want 8", w)
	}
	h.Release()

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
