package main

import (
	"context"
	"errors"
	"flag"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/echoflaresat/facetex/texture"
)

func writeSolid(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func parse(t *testing.T, args ...string) options {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	opts := defineFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return opts
}

func TestRunWritesImage(t *testing.T) {
	dir := t.TempDir()
	var names [6]string
	for i := range names {
		names[i] = string(rune('a'+i)) + ".png"
		writeSolid(t, filepath.Join(dir, names[i]), color.Gray{Y: 128})
	}
	if err := texture.WriteManifest(filepath.Join(dir, "env.toml"), texture.CubeManifest(names, 3)); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(dir, "facetex.toml")
	if err := os.WriteFile(cfgPath, []byte("[searchpath]\ntexture = \""+filepath.ToSlash(dir)+"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "view.png")
	opts := parse(t, "-config", cfgPath, "-width", "12", "-height", "9", "-gamma", "1", "-out", out)

	if err := run(context.Background(), opts); err != nil {
		t.Fatalf("run: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 9 {
		t.Fatalf("output bounds = %v, want 12x9", b)
	}
	r, _, _, _ := img.At(6, 4).RGBA()
	if v := r >> 8; v < 126 || v > 129 {
		t.Errorf("center pixel red = %d, want about 128", v)
	}
}

func TestRunMissingTexture(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PTEX_SEARCHPATH", dir)
	opts := parse(t, "-texture", "nope.toml", "-out", filepath.Join(dir, "x.png"))
	if err := run(context.Background(), opts); !errors.Is(err, texture.ErrNotFound) {
		t.Errorf("run: got %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "x.png")); !os.IsNotExist(err) {
		t.Errorf("no image should be written for a failed render")
	}
}
