// Package kernel provides the filter weight functions used by the texture filter.
package kernel

import (
	"fmt"
	"math"
	"strings"
)

// Shape names one of the supported filter kernels.
type Shape int

const (
	Point Shape = iota
	Box
	Gaussian
	BSpline
	CatmullRom
	Mitchell
)

var shapeNames = [...]string{
	Point:      "point",
	Box:        "box",
	Gaussian:   "gaussian",
	BSpline:    "bspline",
	CatmullRom: "catmullrom",
	Mitchell:   "mitchell",
}

func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return fmt.Sprintf("Shape(%d)", int(s))
	}
	return shapeNames[s]
}

// Shapes lists every kernel shape.
func Shapes() []Shape {
	return []Shape{Point, Box, Gaussian, BSpline, CatmullRom, Mitchell}
}

// ParseShape decodes a kernel name. Matching ignores case, and
// "catmull-rom" is accepted as well as "catmullrom".
func ParseShape(name string) (Shape, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "catmull-rom" {
		return CatmullRom, nil
	}
	for s, sn := range shapeNames {
		if sn == n {
			return Shape(s), nil
		}
	}
	return Point, fmt.Errorf("unknown filter %q", name)
}

// Kernel is a separable 1-D weight function with finite support.
type Kernel interface {
	// Support is the half-width outside which Weight is zero.
	Support() float64
	// Weight returns the unnormalized weight at offset x.
	Weight(x float64) float64
}

// Weight2D evaluates k at (x, y) as the product of the two 1-D weights.
func Weight2D(k Kernel, x, y float64) float64 {
	return k.Weight(x) * k.Weight(y)
}

// New returns the kernel for shape s.
func New(s Shape) Kernel {
	switch s {
	case Box:
		return box{}
	case Gaussian:
		return gaussian{}
	case BSpline:
		return NewCubic(1, 0)
	case CatmullRom:
		return NewCubic(0, 0.5)
	case Mitchell:
		return NewCubic(1.0/3, 1.0/3)
	default:
		return point{}
	}
}

// point selects the nearest texel; as a weight function it is a box of
// half-width one half.
type point struct{}

func (point) Support() float64 { return 0.5 }

func (point) Weight(x float64) float64 {
	if math.Abs(x) <= 0.5 {
		return 1
	}
	return 0
}

type box struct{}

func (box) Support() float64 { return 1 }

func (box) Weight(x float64) float64 {
	if math.Abs(x) <= 1 {
		return 1
	}
	return 0
}

type gaussian struct{}

func (gaussian) Support() float64 { return 2 }

func (gaussian) Weight(x float64) float64 {
	if math.Abs(x) >= 2 {
		return 0
	}
	return math.Exp(-2 * x * x)
}

// Cubic is the Mitchell-Netravali two-parameter family of cubic filters.
type Cubic struct {
	B, C float64

	// Polynomial coefficients for |x| < 1 and 1 <= |x| < 2.
	p [4]float64
	q [4]float64
}

// NewCubic builds the cubic filter with parameters b and c.
// (1,0) is the cubic B-spline, (0,0.5) Catmull-Rom, (1/3,1/3) Mitchell.
func NewCubic(b, c float64) Cubic {
	return Cubic{
		B: b,
		C: c,
		p: [4]float64{
			(6 - 2*b) / 6,
			0,
			(-18 + 12*b + 6*c) / 6,
			(12 - 9*b - 6*c) / 6,
		},
		q: [4]float64{
			(8*b + 24*c) / 6,
			(-12*b - 48*c) / 6,
			(6*b + 30*c) / 6,
			(-b - 6*c) / 6,
		},
	}
}

func (Cubic) Support() float64 { return 2 }

func (k Cubic) Weight(x float64) float64 {
	x = math.Abs(x)
	switch {
	case x < 1:
		return k.p[0] + x*(k.p[1]+x*(k.p[2]+x*k.p[3]))
	case x < 2:
		return k.q[0] + x*(k.q[1]+x*(k.q[2]+x*k.q[3]))
	default:
		return 0
	}
}
