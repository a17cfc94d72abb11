package texture

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a texture identifier does not resolve to a file.
	ErrNotFound = errors.New("texture not found")
	// ErrFormat is returned when a file exists but cannot be decoded as a texture.
	ErrFormat = errors.New("unreadable texture")
)

// FaceData is the input for one face: full resolution texels, row 0 at v=0,
// and the adjacency of its four edges.
type FaceData struct {
	Width, Height int
	Texels        []float32
	Adj           [4]Adjacency
}

// Texture holds every face of one per-face texture map.
// It is immutable after New returns and safe to read from many goroutines.
type Texture struct {
	// ID distinguishes successive loads of the same path in diagnostics.
	ID          uuid.UUID
	Path        string
	NumChannels int
	Faces       []Face

	size int64
}

// New builds a texture from decoded face data: it computes every face's
// reductions and validates the adjacency graph. Inconsistent edges are
// logged and clamped rather than rejected.
func New(path string, channels int, faces []FaceData) (*Texture, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %s: invalid channel count %d", ErrFormat, path, channels)
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("%w: %s: no faces", ErrFormat, path)
	}

	t := &Texture{
		ID:          uuid.New(),
		Path:        path,
		NumChannels: channels,
		Faces:       make([]Face, len(faces)),
	}
	for i, fd := range faces {
		if fd.Width <= 0 || fd.Height <= 0 {
			return nil, fmt.Errorf("%w: %s: face %d has invalid size %dx%d", ErrFormat, path, i, fd.Width, fd.Height)
		}
		if len(fd.Texels) != fd.Width*fd.Height*channels {
			return nil, fmt.Errorf("%w: %s: face %d has %d texel values, want %d",
				ErrFormat, path, i, len(fd.Texels), fd.Width*fd.Height*channels)
		}
		base := Level{Width: fd.Width, Height: fd.Height, Texels: fd.Texels}
		t.Faces[i] = Face{Adj: fd.Adj, Levels: buildLevels(base, channels)}
		for _, l := range t.Faces[i].Levels {
			t.size += int64(len(l.Texels)) * 4
		}
	}
	t.validateAdjacency()
	return t, nil
}

// NumFaces returns the number of faces.
func (t *Texture) NumFaces() int { return len(t.Faces) }

// Face returns face id, or nil when id is out of range.
func (t *Texture) Face(id int) *Face {
	if id < 0 || id >= len(t.Faces) {
		return nil
	}
	return &t.Faces[id]
}

// MemoryUsage returns the bytes held by texel data, reductions included.
func (t *Texture) MemoryUsage() int64 { return t.size }

// validateAdjacency clamps every edge whose neighbour does not point back.
func (t *Texture) validateAdjacency() {
	for f := range t.Faces {
		face := &t.Faces[f]
		for e := EdgeBottom; e <= EdgeLeft; e++ {
			adj := face.Adj[e]
			if adj.Face < 0 {
				continue
			}
			if !t.reciprocal(f, e) {
				face.clamped[e] = true
				slog.Warn("malformed face adjacency, edge clamped",
					"path", t.Path, "face", f, "edge", e, "neighbor", adj.Face, "neighborEdge", adj.Edge)
			}
		}
	}
}

func (t *Texture) reciprocal(f int, e Edge) bool {
	adj := t.Faces[f].Adj[e]
	if adj.Face >= len(t.Faces) || !adj.Edge.Valid() {
		return false
	}
	if adj.Face == f && adj.Edge == e {
		return false
	}
	back := t.Faces[adj.Face].Adj[adj.Edge]
	return back.Face == f && back.Edge == e
}
