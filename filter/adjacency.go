package filter

import (
	"log/slog"
	"math"

	"github.com/echoflaresat/facetex/texture"
)

// maxHops bounds how many edges one lookup may cross. Two hops reach the
// diagonal neighbour at a corner.
const maxHops = 2

// resolve maps the face-local point (s, t), which may lie outside the unit
// square, onto the face that contains it. Points past a border or a clamped
// edge are clamped onto the last face reached.
func resolve(tex *texture.Texture, face int, s, t float64) (int, float64, float64) {
	for hop := 0; hop < maxHops; hop++ {
		edge, depth := exitEdge(s, t)
		if depth <= 0 {
			return face, s, t
		}
		adj, ok := tex.Face(face).Neighbor(edge)
		if !ok || tex.Face(adj.Face) == nil {
			break
		}
		along := alongEdge(edge, s, t)
		s, t = enterEdge(adj.Edge, 1-along, depth)
		face = adj.Face
	}
	return face, clamp01(s), clamp01(t)
}

// exitEdge returns the edge (s, t) lies furthest beyond and by how much.
func exitEdge(s, t float64) (texture.Edge, float64) {
	edge, depth := texture.EdgeBottom, -t
	if d := s - 1; d > depth {
		edge, depth = texture.EdgeRight, d
	}
	if d := t - 1; d > depth {
		edge, depth = texture.EdgeTop, d
	}
	if d := -s; d > depth {
		edge, depth = texture.EdgeLeft, d
	}
	return edge, depth
}

// alongEdge returns the position of (s, t) along edge e, measured
// counter-clockwise around the face.
func alongEdge(e texture.Edge, s, t float64) float64 {
	switch e {
	case texture.EdgeBottom:
		return s
	case texture.EdgeRight:
		return t
	case texture.EdgeTop:
		return 1 - s
	default:
		return 1 - t
	}
}

// enterEdge places a point at position along on edge e, depth units inside the face.
func enterEdge(e texture.Edge, along, depth float64) (float64, float64) {
	switch e {
	case texture.EdgeBottom:
		return along, depth
	case texture.EdgeRight:
		return 1 - depth, along
	case texture.EdgeTop:
		return 1 - along, 1 - depth
	default:
		return depth, 1 - along
	}
}

// texel returns the texel of face at the given level index covering the
// normalized point (s, t) after crossing edges as needed. Faces with fewer
// reductions use their coarsest level.
func texel(tex *texture.Texture, face, level int, s, t float64) []float32 {
	face, s, t = resolve(tex, face, s, t)
	f := tex.Face(face)
	l := &f.Levels[min(level, len(f.Levels)-1)]
	x := clampIndex(int(math.Floor(s*float64(l.Width))), l.Width)
	y := clampIndex(int(math.Floor(t*float64(l.Height))), l.Height)
	return l.Texel(x, y, tex.NumChannels)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func warnBadFace(tex *texture.Texture, face int) {
	slog.Debug("filter lookup on missing face", "path", tex.Path, "face", face, "faces", tex.NumFaces())
}
