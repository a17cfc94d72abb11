// Package render draws views of cube environment textures.
package render

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/echoflaresat/facetex/colors"
	"github.com/echoflaresat/facetex/shadeop"
	"github.com/echoflaresat/facetex/vectors"
	"golang.org/x/sync/errgroup"
)

// Options describe one frame.
type Options struct {
	Texture string // cube map identifier resolved through the cache
	Channel int    // first of the three channels read
	Width   int
	Height  int
	Blur    float32
	Gamma   float64 // output encoding; 0 or 1 writes linear values
	Workers int     // rows rendered concurrently; 0 uses GOMAXPROCS
}

// Render draws the environment seen by camera. Each pixel is filtered over
// the footprint of its four corner rays. The texture is held for the whole
// frame; failing to load it is an error, unlike a shading lookup.
func Render(ctx context.Context, sh *shadeop.Context, camera Camera, opts Options) (*image.NRGBA, error) {
	W, H := opts.Width, opts.Height
	if W <= 0 || H <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", W, H)
	}
	h, err := sh.Cache().Get(opts.Texture)
	if err != nil {
		return nil, fmt.Errorf("environment %q: %w", opts.Texture, err)
	}
	defer h.Release()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	img := image.NewNRGBA(image.Rect(0, 0, W, H))
	var done atomic.Int64
	progressStep := int64(max(H/10, 1))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y := 0; y < H; y++ {
		y := y
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := renderRow(sh, camera, opts, img, y); err != nil {
				return err
			}
			if n := done.Add(1); n%progressStep == 0 {
				slog.Debug("render progress", "rows", n, "of", H)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

func renderRow(sh *shadeop.Context, camera Camera, opts Options, img *image.NRGBA, y int) error {
	W, H := opts.Width, opts.Height
	env := shadeop.EnvPoints{
		R0:   make([]vectors.Vec3, W),
		R1:   make([]vectors.Vec3, W),
		R2:   make([]vectors.Vec3, W),
		R3:   make([]vectors.Vec3, W),
		Blur: shadeop.Uniform(opts.Blur),
	}
	for x := 0; x < W; x++ {
		c := camera.PixelCorners(x, y, W, H)
		env.R0[x], env.R1[x], env.R2[x], env.R3[x] = c[0], c[1], c[2], c[3]
	}

	out := make([][3]float32, W)
	if err := sh.EnvColor(out, opts.Texture, opts.Channel, env); err != nil {
		return err
	}
	for x, rgb := range out {
		c := colors.FromRGB(rgb)
		if opts.Gamma > 0 && opts.Gamma != 1 {
			c = c.Pow(1 / opts.Gamma)
		}
		img.SetNRGBA(x, y, c.ToNRGBA())
	}
	return nil
}
