package colors

import (
	"image/color"
	"math"
)

// Color4 is a linear RGBA color with float64 components in [0,1].
type Color4 struct {
	R, G, B, A float64
}

func New(r, g, b, a float64) Color4 {
	return Color4{R: r, G: g, B: b, A: a}
}

// FromRGB builds an opaque color from three filtered channel values.
func FromRGB(rgb [3]float32) Color4 {
	return Color4{R: float64(rgb[0]), G: float64(rgb[1]), B: float64(rgb[2]), A: 1}
}

func (c Color4) RGBA() (r, g, b, a uint32) {
	rf := clamp01(c.R)
	gf := clamp01(c.G)
	bf := clamp01(c.B)
	af := clamp01(c.A)

	// Convert to pre-multiplied 16-bit values
	return uint32(rf * af * 65535),
		uint32(gf * af * 65535),
		uint32(bf * af * 65535),
		uint32(af * 65535)
}

func FromStandardColor(c color.Color) Color4 {
	// Fast path: already a Color4
	if c4, ok := c.(Color4); ok {
		return c4
	}

	r16, g16, b16, a16 := c.RGBA()
	if a16 == 0 {
		return Color4{R: 0, G: 0, B: 0, A: 0}
	}

	// De-premultiply and normalize to [0,1]
	invA := float64(0xFFFF) / float64(a16)
	return Color4{
		R: float64(r16) * invA / 65535.0,
		G: float64(g16) * invA / 65535.0,
		B: float64(b16) * invA / 65535.0,
		A: float64(a16) / 65535.0,
	}
}

// Channels writes the first len(dst) channels of c into dst.
// One channel is the Rec.709 luma, two are luma and alpha,
// three are RGB and four are RGBA.
func (c Color4) Channels(dst []float32) {
	switch len(dst) {
	case 0:
	case 1:
		dst[0] = float32(c.Luma())
	case 2:
		dst[0] = float32(c.Luma())
		dst[1] = float32(c.A)
	default:
		dst[0] = float32(c.R)
		dst[1] = float32(c.G)
		dst[2] = float32(c.B)
		if len(dst) > 3 {
			dst[3] = float32(c.A)
		}
	}
}

// Luma returns the Rec.709 weighted brightness.
func (c Color4) Luma() float64 {
	return 0.2126*c.R + 0.7152*c.G + 0.0722*c.B
}

func (c Color4) Pow(gamma float64) Color4 {
	return Color4{
		R: math.Pow(math.Max(c.R, 0), gamma),
		G: math.Pow(math.Max(c.G, 0), gamma),
		B: math.Pow(math.Max(c.B, 0), gamma),
		A: c.A, // leave alpha untouched
	}
}

// ToNRGBA converts to 8 bits per channel, truncating.
func (c Color4) ToNRGBA() color.NRGBA {
	return color.NRGBA{
		to8bit(c.R),
		to8bit(c.G),
		to8bit(c.B),
		to8bit(c.A),
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func to8bit(x float64) uint8 {
	return uint8(255.0 * clamp01(x))
}
