package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/echoflaresat/facetex/cache/watch"
	"github.com/echoflaresat/facetex/config"
	"github.com/echoflaresat/facetex/internal/logging"
	"github.com/echoflaresat/facetex/render"
	"github.com/echoflaresat/facetex/shadeop"
)

type options struct {
	config, texture      *string
	channel              *int
	fov, tilt, yaw       *float64
	width, height        *int
	blur, gamma          *float64
	workers              *int
	out                  *string
	watch, verbose, help *bool
}

func defineFlags(fs *flag.FlagSet) options {
	return options{
		config:  fs.String("config", "", "TOML settings file (cache limits, search paths)"),
		texture: fs.String("texture", "env.toml", "Cube environment texture, resolved through the search path"),
		channel: fs.Int("channel", 0, "First of the three channels to read"),

		fov:  fs.Float64("fov", 90.0, "Camera field of view in degrees"),
		yaw:  fs.Float64("yaw", 0.0, "Camera yaw in degrees"),
		tilt: fs.Float64("tilt", 0.0, "Camera tilt in degrees"),

		width:   fs.Int("width", 640, "Output image width in pixels"),
		height:  fs.Int("height", 480, "Output image height in pixels"),
		blur:    fs.Float64("blur", 0.0, "Extra filter blur, in face units"),
		gamma:   fs.Float64("gamma", 2.2, "Output gamma (1 writes linear values)"),
		workers: fs.Int("workers", 0, "Rows rendered concurrently (0 = all cores)"),

		out:   fs.String("out", "env_view.png", "Output PNG file path"),
		watch: fs.Bool("watch", false, "Re-render whenever a texture file changes"),

		verbose: fs.Bool("v", false, "Debug logging"),
		help:    fs.Bool("h", false, "Show this help message"),
	}
}

func printHelp(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `facetex - Cube Environment Viewer

Usage:
  %[1]s [options]

`, os.Args[0])

	printGroup(fs, "Texture Options", []string{"config", "texture", "channel"})
	printGroup(fs, "Camera Options", []string{"fov", "yaw", "tilt"})
	printGroup(fs, "Rendering Options", []string{"width", "height", "blur", "gamma", "workers"})
	printGroup(fs, "Output", []string{"out", "watch"})
	printGroup(fs, "Misc", []string{"v", "h"})
}

func printGroup(fs *flag.FlagSet, title string, keys []string) {
	fmt.Fprintf(os.Stderr, "%s:\n", title)
	for _, name := range keys {
		if f := fs.Lookup(name); f != nil {
			fmt.Fprintf(os.Stderr, "  -%-8s %s (default %q)\n", f.Name, f.Usage, f.DefValue)
		}
	}
	fmt.Fprintln(os.Stderr)
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	opts := defineFlags(fs)
	fs.Usage = func() { printHelp(fs) }
	fs.Parse(os.Args[1:])

	if *opts.help {
		printHelp(fs)
		return
	}
	logging.Setup(os.Stderr, "facetex ", *opts.verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("render failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(*opts.config)
	if err != nil {
		return err
	}
	sh := shadeop.New(cfg)
	defer func() {
		if err := sh.Close(); err != nil {
			slog.Warn("closing texture cache", "error", err)
		}
	}()

	camera := render.NewCamera(*opts.fov, *opts.yaw, *opts.tilt)
	ropts := render.Options{
		Texture: *opts.texture,
		Channel: *opts.channel,
		Width:   *opts.width,
		Height:  *opts.height,
		Blur:    float32(*opts.blur),
		Gamma:   *opts.gamma,
		Workers: *opts.workers,
	}

	// Only textures that loaded are watched, so the first frame must succeed.
	if err := renderToFile(ctx, sh, camera, ropts, *opts.out); err != nil {
		return err
	}
	if !*opts.watch {
		return nil
	}
	return watchAndRender(ctx, sh, cfg, camera, ropts, *opts.out)
}

func renderToFile(ctx context.Context, sh *shadeop.Context, camera render.Camera, ropts render.Options, out string) error {
	start := time.Now()
	img, err := render.Render(ctx, sh, camera, ropts)
	if err != nil {
		return err
	}
	if err := writePNG(out, img); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	s := sh.Cache().Stats()
	slog.Info("rendered", "out", out, "took", time.Since(start).Round(time.Millisecond),
		"textures", s.OpenFiles, "memory", s.MemoryUsed)
	return nil
}

// watchAndRender re-renders after texture files in the search path, or
// next to an absolute texture path, change.
func watchAndRender(ctx context.Context, sh *shadeop.Context, cfg config.Config, camera render.Camera, ropts render.Options, out string) error {
	dirs := cfg.TextureSearchPath()
	if filepath.IsAbs(ropts.Texture) {
		dirs = append(dirs, filepath.Dir(ropts.Texture))
	}
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	w, err := watch.New(sh.Cache(), dirs...)
	if err != nil {
		return err
	}
	changed := make(chan struct{}, 1)
	w.OnPurge = func(string, int) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	go w.Run(ctx)

	slog.Info("watching for texture changes", "dirs", dirs)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
			if err := renderToFile(ctx, sh, camera, ropts, out); err != nil {
				slog.Error("render failed", "error", err)
			}
		}
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return (&png.Encoder{CompressionLevel: png.BestSpeed}).Encode(f, img)
}
