// Command mkcube writes the face manifest of a cube environment texture.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/echoflaresat/facetex/internal/logging"
	"github.com/echoflaresat/facetex/texture"
)

// sideSuffixes name the face images of -base in +x, -x, +y, -y, +z, -z order.
var sideSuffixes = [6]string{"_r", "_l", "_u", "_d", "_f", "_b"}

func main() {
	out := flag.String("o", "env.toml", "Manifest to write")
	channels := flag.Int("channels", 3, "Channels per texel (1-4)")
	base := flag.String("base", "", "Find the faces as <base>_r, _l, _u, _d, _f, _b with extension -ext")
	ext := flag.String("ext", ".png", "Face image extension used with -base")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <+x> <-x> <+y> <-y> <+z> <-z>\n       %s [options] -base <name>\n\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	logging.Setup(os.Stderr, "mkcube ", *verbose)

	var images [6]string
	switch {
	case *base != "" && flag.NArg() == 0:
		images = baseImages(*base, *ext)
	case *base == "" && flag.NArg() == 6:
		copy(images[:], flag.Args())
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err := makeCube(*out, images, *channels); err != nil {
		slog.Error("failed to build cube manifest", "out", *out, "error", err)
		os.Exit(1)
	}
}

func baseImages(base, ext string) [6]string {
	var images [6]string
	for i, s := range sideSuffixes {
		images[i] = base + s + ext
	}
	return images
}

// makeCube writes the manifest and loads it back, so a manifest that would
// not load is never left behind.
func makeCube(out string, images [6]string, channels int) error {
	if channels < 1 || channels > 4 {
		return fmt.Errorf("channels must be 1-4, got %d", channels)
	}
	dir, err := filepath.Abs(filepath.Dir(out))
	if err != nil {
		return err
	}
	var rel [6]string
	for i, img := range images {
		abs, err := filepath.Abs(img)
		if err != nil {
			return err
		}
		if _, err := os.Stat(abs); err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
		if rel[i], err = filepath.Rel(dir, abs); err != nil {
			rel[i] = abs
		}
		rel[i] = filepath.ToSlash(rel[i])
	}

	if err := texture.WriteManifest(out, texture.CubeManifest(rel, channels)); err != nil {
		return err
	}
	tex, err := texture.Load(out)
	if err != nil {
		return errors.Join(err, os.Remove(out))
	}
	slog.Info("wrote cube manifest", "out", out, "faces", tex.NumFaces(), "channels", tex.NumChannels, "bytes", tex.MemoryUsage())
	return nil
}
