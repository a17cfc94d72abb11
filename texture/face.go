package texture

import "fmt"

// Edge identifies one side of a face in its own (u,v) space.
// Edges are numbered counter-clockwise starting at v=0.
type Edge int

const (
	EdgeBottom Edge = iota // v = 0
	EdgeRight              // u = 1
	EdgeTop                // v = 1
	EdgeLeft               // u = 0
)

func (e Edge) String() string {
	switch e {
	case EdgeBottom:
		return "bottom"
	case EdgeRight:
		return "right"
	case EdgeTop:
		return "top"
	case EdgeLeft:
		return "left"
	default:
		return fmt.Sprintf("Edge(%d)", int(e))
	}
}

// Valid reports whether e is one of the four edges.
func (e Edge) Valid() bool {
	return e >= EdgeBottom && e <= EdgeLeft
}

// Adjacency links an edge to the edge of the neighbouring face it is glued to.
// Face < 0 means the edge is a border.
type Adjacency struct {
	Face int
	Edge Edge
}

// NoNeighbor marks a border edge.
var NoNeighbor = Adjacency{Face: -1}

// Level is one resolution of a face: channel-interleaved texels, row-major,
// row 0 at v=0.
type Level struct {
	Width, Height int
	Texels        []float32
}

// Texel returns the channels stored at (x, y). Coordinates must be in range.
func (l *Level) Texel(x, y, channels int) []float32 {
	i := (y*l.Width + x) * channels
	return l.Texels[i : i+channels]
}

// Face is one independently addressed texel grid plus its reductions.
// Levels[0] is the full resolution; each next level halves both axes
// down to 1x1. Face data is immutable once the texture is built.
type Face struct {
	Adj    [4]Adjacency
	Levels []Level

	// clamped marks edges whose adjacency failed validation.
	clamped [4]bool
}

// Width returns the full resolution width.
func (f *Face) Width() int { return f.Levels[0].Width }

// Height returns the full resolution height.
func (f *Face) Height() int { return f.Levels[0].Height }

// Neighbor returns the face glued to edge e. It reports false for border
// edges and for edges whose adjacency data was found to be inconsistent.
func (f *Face) Neighbor(e Edge) (Adjacency, bool) {
	if !e.Valid() || f.clamped[e] {
		return NoNeighbor, false
	}
	adj := f.Adj[e]
	if adj.Face < 0 {
		return NoNeighbor, false
	}
	return adj, true
}

// buildLevels computes the 2x2 box reduction chain from the base level.
func buildLevels(base Level, channels int) []Level {
	levels := []Level{base}
	for {
		src := levels[len(levels)-1]
		if src.Width == 1 && src.Height == 1 {
			return levels
		}
		levels = append(levels, reduce(src, channels))
	}
}

func reduce(src Level, channels int) Level {
	dstW := max(1, src.Width/2)
	dstH := max(1, src.Height/2)
	dst := Level{Width: dstW, Height: dstH, Texels: make([]float32, dstW*dstH*channels)}

	// Odd source sizes fold their last row/column into the last output texel.
	for dy := 0; dy < dstH; dy++ {
		sy0, sy1 := span(dy, dstH, src.Height)
		for dx := 0; dx < dstW; dx++ {
			sx0, sx1 := span(dx, dstW, src.Width)
			out := dst.Texel(dx, dy, channels)
			n := float32((sx1 - sx0) * (sy1 - sy0))
			for sy := sy0; sy < sy1; sy++ {
				for sx := sx0; sx < sx1; sx++ {
					in := src.Texel(sx, sy, channels)
					for c := range out {
						out[c] += in[c]
					}
				}
			}
			for c := range out {
				out[c] /= n
			}
		}
	}
	return dst
}

// span returns the source range [lo, hi) reduced into destination index d.
func span(d, dstN, srcN int) (int, int) {
	if dstN == srcN {
		return d, d + 1
	}
	lo := d * 2
	hi := lo + 2
	if d == dstN-1 {
		hi = srcN
	}
	return lo, hi
}
