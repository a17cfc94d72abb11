package filter

import "math"

// footprint is a parallelogram centered at (u, v) in a face's normalized
// space, spanned by the half-extent edges a and b.
type footprint struct {
	u, v float64
	a, b [2]float64
}

// skewLimit is the smallest |sin| of the angle between the two edges for
// which the parallelogram is kept; flatter ones use their bounding box.
const skewLimit = 0.05

// newFootprint builds the lookup footprint. width scales both edges and
// blur is added to their lengths. With bbox set, or when the edges do not
// span an area, the footprint is the axis-aligned bounding box of the edges.
func newFootprint(opts Options, u, v, uw1, vw1, uw2, vw2, width, blur float32, bbox bool) footprint {
	w := float64(opts.Width) * float64(width)
	bl := math.Max(0, float64(opts.Blur)+float64(blur))
	a := [2]float64{float64(uw1) * w, float64(vw1) * w}
	b := [2]float64{float64(uw2) * w, float64(vw2) * w}

	fp := footprint{u: float64(u), v: float64(v)}
	if !bbox && !degenerate(a, b) {
		fp.a = grow(a, bl)
		fp.b = grow(b, bl)
		return fp
	}
	fp.a = [2]float64{math.Abs(a[0]) + math.Abs(b[0]) + bl, 0}
	fp.b = [2]float64{0, math.Abs(a[1]) + math.Abs(b[1]) + bl}
	return fp
}

func degenerate(a, b [2]float64) bool {
	la, lb := math.Hypot(a[0], a[1]), math.Hypot(b[0], b[1])
	if la < 1e-12 || lb < 1e-12 {
		return true
	}
	return math.Abs(a[0]*b[1]-a[1]*b[0]) < skewLimit*la*lb
}

// grow lengthens e by d along its own direction.
func grow(e [2]float64, d float64) [2]float64 {
	l := math.Hypot(e[0], e[1])
	if l == 0 || d == 0 {
		return e
	}
	f := (l + d) / l
	return [2]float64{e[0] * f, e[1] * f}
}

// atLeast returns e scaled up to length r when it is shorter.
// A zero edge becomes r along dir.
func atLeast(e [2]float64, r float64, dir [2]float64) [2]float64 {
	l := math.Hypot(e[0], e[1])
	if l >= r {
		return e
	}
	if l == 0 {
		return [2]float64{dir[0] * r, dir[1] * r}
	}
	return [2]float64{e[0] * r / l, e[1] * r / l}
}
