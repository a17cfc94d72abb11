// Package filter evaluates filtered texture lookups over a face footprint,
// crossing face edges through the texture's adjacency.
package filter

import (
	"math"

	"github.com/echoflaresat/facetex/kernel"
	"github.com/echoflaresat/facetex/texture"
)

const (
	// maxRadius is the largest footprint half-extent, in texels, walked at
	// the chosen level before a coarser level is used.
	maxRadius = 16
	// maxExtent caps the walk when even the coarsest level is too fine.
	maxExtent = 64
	// minWeight is the weight sum below which a lookup falls back to the nearest texel.
	minWeight = 1e-8
)

// Filter evaluates lookups against one texture.
//
// Eval writes nChan values to out, starting with channel firstChan, for the
// footprint centered at (u, v) on face faceID and spanned by the half-extent
// edges (uw1, vw1) and (uw2, vw2). width scales the edges and blur is added
// to them, on top of the filter's Options. Requested channels past the
// texture's last channel repeat the first computed channel.
//
// A Filter is not safe for concurrent use and must not outlive the
// texture it was built for.
type Filter interface {
	Eval(out []float32, firstChan, nChan, faceID int, u, v, uw1, vw1, uw2, vw2, width, blur float32)
}

// New returns the filter for opts.Shape bound to tex, which must not be nil.
func New(tex *texture.Texture, opts Options) Filter {
	b := base{tex: tex, opts: opts}
	switch opts.Shape {
	case kernel.Point:
		return &pointFilter{base: b}
	case kernel.Box:
		k := kernel.New(kernel.Box)
		return &separableFilter{base: b, k: k, bbox: true, rmin: 0.5}
	default:
		k := kernel.New(opts.Shape)
		return &separableFilter{base: b, k: k, rmin: k.Support()}
	}
}

type base struct {
	tex  *texture.Texture
	opts Options

	acc, tmp []float64
}

// eval runs sample for the channels the texture has and fills the rest.
func (b *base) eval(out []float32, firstChan, nChan, faceID int, sample func(acc []float64)) {
	if nChan <= 0 {
		return
	}
	out = out[:nChan]
	avail := min(nChan, b.tex.NumChannels-firstChan)
	if firstChan < 0 || avail <= 0 || b.tex.Face(faceID) == nil {
		if b.tex.Face(faceID) == nil {
			warnBadFace(b.tex, faceID)
		}
		clear(out)
		return
	}

	if cap(b.acc) < avail {
		b.acc = make([]float64, avail)
		b.tmp = make([]float64, avail)
	}
	acc := b.acc[:avail]
	clear(acc)
	sample(acc)

	for c := range acc {
		out[c] = float32(acc[c])
	}
	for c := avail; c < nChan; c++ {
		out[c] = out[0]
	}
}

// lod returns the fractional reduction level at which the shorter footprint
// edge spans rmin texels, raised so the longer edge stays within maxRadius.
func (b *base) lod(face *texture.Face, fp footprint, rmin float64) float64 {
	w, h := float64(face.Width()), float64(face.Height())
	la := math.Hypot(fp.a[0]*w, fp.a[1]*h)
	lb := math.Hypot(fp.b[0]*w, fp.b[1]*h)
	minor, major := math.Min(la, lb), math.Max(la, lb)

	lod := 0.0
	if minor > rmin {
		lod = math.Log2(minor / rmin)
	}
	if major > maxRadius {
		lod = math.Max(lod, math.Log2(major/maxRadius))
	}
	return math.Min(lod, float64(len(face.Levels)-1))
}

// nearest copies the texel covering (u, v) at level into acc.
func (b *base) nearest(acc []float64, firstChan, face, level int, u, v float64) {
	px := texel(b.tex, face, level, u, v)
	for c := range acc {
		acc[c] = float64(px[firstChan+c])
	}
}

// pointFilter returns single texels, or bilinear blends of the four nearest
// texels when Lerp is set.
type pointFilter struct {
	base
}

func (p *pointFilter) Eval(out []float32, firstChan, nChan, faceID int, u, v, uw1, vw1, uw2, vw2, width, blur float32) {
	fp := newFootprint(p.opts, u, v, uw1, vw1, uw2, vw2, width, blur, true)
	p.eval(out, firstChan, nChan, faceID, func(acc []float64) {
		level := int(p.lod(p.tex.Face(faceID), fp, 0.5))
		if p.opts.Lerp {
			p.bilinear(acc, firstChan, faceID, level, fp.u, fp.v)
			return
		}
		p.nearest(acc, firstChan, faceID, level, fp.u, fp.v)
	})
}

func (p *pointFilter) bilinear(acc []float64, firstChan, face, level int, u, v float64) {
	l := &p.tex.Face(face).Levels[level]
	w, h := float64(l.Width), float64(l.Height)
	x, y := u*w-0.5, v*h-0.5
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0

	for j := 0.0; j < 2; j++ {
		for i := 0.0; i < 2; i++ {
			wt := (1 - fx + i*(2*fx-1)) * (1 - fy + j*(2*fy-1))
			if wt == 0 {
				continue
			}
			px := texel(p.tex, face, level, (x0+i+0.5)/w, (y0+j+0.5)/h)
			for c := range acc {
				acc[c] += wt * float64(px[firstChan+c])
			}
		}
	}
}

// separableFilter weights texels by a separable kernel laid over the
// footprint parallelogram (or its bounding box).
type separableFilter struct {
	base
	k    kernel.Kernel
	bbox bool
	// rmin is the smallest footprint half-extent in texels.
	rmin float64
}

func (f *separableFilter) Eval(out []float32, firstChan, nChan, faceID int, u, v, uw1, vw1, uw2, vw2, width, blur float32) {
	fp := newFootprint(f.opts, u, v, uw1, vw1, uw2, vw2, width, blur, f.bbox)
	f.eval(out, firstChan, nChan, faceID, func(acc []float64) {
		face := f.tex.Face(faceID)
		lod := f.lod(face, fp, f.rmin)
		level := int(lod)
		f.sampleLevel(acc, firstChan, faceID, level, fp)

		frac := lod - float64(level)
		if !f.opts.Lerp || frac == 0 || level+1 >= len(face.Levels) {
			return
		}
		tmp := f.tmp[:len(acc)]
		clear(tmp)
		f.sampleLevel(tmp, firstChan, faceID, level+1, fp)
		for c := range acc {
			acc[c] = acc[c]*(1-frac) + tmp[c]*frac
		}
	})
}

// sampleLevel writes the normalized kernel-weighted average of the texels
// under fp at one level into acc.
func (f *separableFilter) sampleLevel(acc []float64, firstChan, face, level int, fp footprint) {
	l := &f.tex.Face(face).Levels[level]
	w, h := float64(l.Width), float64(l.Height)
	cx, cy := fp.u*w, fp.v*h
	a := atLeast([2]float64{fp.a[0] * w, fp.a[1] * h}, f.rmin, [2]float64{1, 0})
	b := atLeast([2]float64{fp.b[0] * w, fp.b[1] * h}, f.rmin, [2]float64{0, 1})

	det := a[0]*b[1] - a[1]*b[0]
	if math.Abs(det) < 1e-12 {
		f.nearest(acc, firstChan, face, level, fp.u, fp.v)
		return
	}
	ex := math.Min(math.Abs(a[0])+math.Abs(b[0]), maxExtent)
	ey := math.Min(math.Abs(a[1])+math.Abs(b[1]), maxExtent)
	support := f.k.Support()

	var wsum float64
	for j := int(math.Ceil(cy - ey - 0.5)); j <= int(math.Floor(cy+ey-0.5)); j++ {
		dy := float64(j) + 0.5 - cy
		for i := int(math.Ceil(cx - ex - 0.5)); i <= int(math.Floor(cx+ex-0.5)); i++ {
			dx := float64(i) + 0.5 - cx
			s := (dx*b[1] - dy*b[0]) / det
			t := (a[0]*dy - a[1]*dx) / det
			if math.Abs(s) > 1 || math.Abs(t) > 1 {
				continue
			}
			wt := kernel.Weight2D(f.k, s*support, t*support)
			if wt == 0 {
				continue
			}

			var px []float32
			if i >= 0 && i < l.Width && j >= 0 && j < l.Height {
				px = l.Texel(i, j, f.tex.NumChannels)
			} else {
				px = texel(f.tex, face, level, (float64(i)+0.5)/w, (float64(j)+0.5)/h)
			}
			for c := range acc {
				acc[c] += wt * float64(px[firstChan+c])
			}
			wsum += wt
		}
	}

	if math.Abs(wsum) < minWeight {
		clear(acc)
		f.nearest(acc, firstChan, face, level, fp.u, fp.v)
		return
	}
	for c := range acc {
		acc[c] /= wsum
	}
}
