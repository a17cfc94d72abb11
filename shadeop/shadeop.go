// Package shadeop exposes batch texture lookups: filtered color and float
// lookups on per-face textures, and color lookups on cube environment maps.
// Lookup failures never abort a batch; points whose texture cannot be
// loaded are filled with zeros.
package shadeop

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/echoflaresat/facetex/cache"
	"github.com/echoflaresat/facetex/config"
	"github.com/echoflaresat/facetex/cube"
	"github.com/echoflaresat/facetex/filter"
	"github.com/echoflaresat/facetex/kernel"
	"github.com/echoflaresat/facetex/vectors"
)

// ErrContract is returned when a batch's arguments do not fit together.
// Nothing is written to the output in that case.
var ErrContract = errors.New("shadeop: invalid call")

// Context holds the texture cache shared by all lookups. It is safe for
// concurrent use.
type Context struct {
	cache *cache.Cache
}

// New creates a context with a cache configured from cfg.
func New(cfg config.Config) *Context {
	return NewWithCache(cache.New(cfg.CacheOptions()))
}

// NewWithCache wraps an existing cache.
func NewWithCache(c *cache.Cache) *Context {
	return &Context{cache: c}
}

// Cache returns the context's cache.
func (ctx *Context) Cache() *cache.Cache { return ctx.cache }

// Close tears the cache down. Every lookup must have returned.
func (ctx *Context) Close() error { return ctx.cache.Close() }

// Points are per-point lookup arguments. All slices have one entry per point.
type Points struct {
	FaceID             []int
	U, V               []float32
	UW1, VW1, UW2, VW2 []float32
}

func (p Points) check(n int) error {
	lens := []int{len(p.FaceID), len(p.U), len(p.V), len(p.UW1), len(p.VW1), len(p.UW2), len(p.VW2)}
	for _, l := range lens {
		if l != n {
			return fmt.Errorf("%w: %d results but point arguments of lengths %v", ErrContract, n, lens)
		}
	}
	return nil
}

// Color fills out with three channels starting at channel for every point.
// Single-channel textures are promoted to gray. opts is a keyword list as
// read by ParseOptions.
func (ctx *Context) Color(out [][3]float32, name string, channel int, pts Points, opts ...any) error {
	return ctx.lookup(len(out), name, channel, 3, pts, opts, func(i int) []float32 { return out[i][:] })
}

// Float fills out with the value of channel for every point.
func (ctx *Context) Float(out []float32, name string, channel int, pts Points, opts ...any) error {
	return ctx.lookup(len(out), name, channel, 1, pts, opts, func(i int) []float32 { return out[i : i+1] })
}

func (ctx *Context) lookup(n int, name string, channel, nChan int, pts Points, opts []any, dst func(int) []float32) error {
	if err := pts.check(n); err != nil {
		return err
	}
	l, _ := ParseOptions(opts...)
	if !l.Width.fits(n) || !l.Blur.fits(n) {
		return fmt.Errorf("%w: width/blur have %d/%d values for %d points", ErrContract, len(l.Width), len(l.Blur), n)
	}

	h, err := ctx.cache.Get(name)
	if err != nil {
		slog.Warn("texture lookup failed, returning zeros", "texture", name, "error", err)
		for i := 0; i < n; i++ {
			clear(dst(i))
		}
		return nil
	}
	defer h.Release()

	f := filter.New(h.Texture(), l.Filter)
	for i := 0; i < n; i++ {
		f.Eval(dst(i), channel, nChan, pts.FaceID[i], pts.U[i], pts.V[i],
			pts.UW1[i], pts.VW1[i], pts.UW2[i], pts.VW2[i], l.Width.at(i), l.Blur.at(i))
	}
	return nil
}

// EnvPoints are per-point environment lookup arguments: the four corner
// directions of each point's footprint and its blur.
type EnvPoints struct {
	R0, R1, R2, R3 []vectors.Vec3
	Blur           Varying
}

// EnvOptions are the filter options of environment lookups.
var EnvOptions = filter.Options{Shape: kernel.BSpline, Lerp: true, Width: 1}

// EnvColor fills out with three channels starting at channel of the cube
// map name, seen through each point's corner directions.
func (ctx *Context) EnvColor(out [][3]float32, name string, channel int, env EnvPoints) error {
	n := len(out)
	if len(env.R0) != n || len(env.R1) != n || len(env.R2) != n || len(env.R3) != n || !env.Blur.fits(n) {
		return fmt.Errorf("%w: %d results but direction arguments of lengths %d/%d/%d/%d and %d blur values",
			ErrContract, n, len(env.R0), len(env.R1), len(env.R2), len(env.R3), len(env.Blur))
	}

	h, err := ctx.cache.Get(name)
	if err != nil {
		slog.Warn("environment lookup failed, returning zeros", "texture", name, "error", err)
		clear(out)
		return nil
	}
	defer h.Release()

	f := filter.New(h.Texture(), EnvOptions)
	for i := range out {
		p := cube.Project(env.R0[i], env.R1[i], env.R2[i], env.R3[i])
		u, v, uw1, vw1, uw2, vw2 := p.FilterArgs(float64(env.Blur.at(i)))
		f.Eval(out[i][:], channel, 3, p.FaceID, u, v, uw1, vw1, uw2, vw2, 1, 0)
	}
	return nil
}
