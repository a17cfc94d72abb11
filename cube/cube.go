// Package cube projects direction vectors onto the six faces of a cube map.
package cube

import (
	"math"

	"github.com/echoflaresat/facetex/vectors"
)

// Cube face ids.
const (
	FacePosX = 0
	FaceNegX = 1
	FacePosY = 2
	FaceNegY = 3
	FacePosZ = 4
	FaceNegZ = 5
)

// Projection is a face lookup: u and v in [-1,1] on face FaceID, and the
// extent du, dv of the projected corners.
type Projection struct {
	FaceID int
	U, V   float64
	DU, DV float64
}

// Project finds the face seen by the pixel whose corner rays are r0..r3.
// The face is picked by the dominant axis of the summed rays; the extent
// comes from the spread of the projected corners. When the corners do not
// all lie strictly on the same side of the face plane the extent is the
// whole face. All-zero input looks at the +y face with a full-face extent.
func Project(r0, r1, r2, r3 vectors.Vec3) Projection {
	corners := [4]vectors.Vec3{r0, r1, r2, r3}
	sum := vectors.Sum(corners[:]...)
	axis := sum.Dominant()
	major := sum.Component(axis)
	if major == 0 {
		return Projection{FaceID: FacePosY, U: 0.5, V: 0.5, DU: 1, DV: 1}
	}

	p := Projection{DU: 1, DV: 1}
	p.FaceID, p.U, p.V = faceUV(axis, sum)
	if !sameSide(corners, axis) {
		return p
	}

	// The spread only needs the ratios, which the per-face sign flips leave
	// unchanged in size.
	minU, maxU := math.Inf(1), math.Inf(-1)
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, c := range corners {
		a, b := ratios(axis, c)
		minU, maxU = math.Min(minU, a), math.Max(maxU, a)
		minV, maxV = math.Min(minV, b), math.Max(maxV, b)
	}
	p.DU, p.DV = maxU-minU, maxV-minV
	return p
}

// faceUV applies the cube unwrap for the face on axis selected by the sign of d.
func faceUV(axis vectors.Axis, d vectors.Vec3) (int, float64, float64) {
	switch axis {
	case vectors.AxisX:
		if d.X > 0 {
			return FacePosX, -d.Z / d.X, d.Y / d.X
		}
		return FaceNegX, -d.Z / d.X, -d.Y / d.X
	case vectors.AxisY:
		if d.Y > 0 {
			return FacePosY, d.X / d.Y, -d.Z / d.Y
		}
		return FaceNegY, -d.X / d.Y, -d.Z / d.Y
	default:
		if d.Z > 0 {
			return FacePosZ, d.X / d.Z, d.Y / d.Z
		}
		return FaceNegZ, d.X / d.Z, -d.Y / d.Z
	}
}

// ratios returns the two off-axis components of d divided by its axis
// component, in the (u, v) order of the faces on that axis.
func ratios(axis vectors.Axis, d vectors.Vec3) (float64, float64) {
	switch axis {
	case vectors.AxisX:
		return d.Z / d.X, d.Y / d.X
	case vectors.AxisY:
		return d.X / d.Y, d.Z / d.Y
	default:
		return d.X / d.Z, d.Y / d.Z
	}
}

func sameSide(corners [4]vectors.Vec3, axis vectors.Axis) bool {
	first := corners[0].Component(axis)
	if first == 0 {
		return false
	}
	for _, c := range corners[1:] {
		if c.Component(axis)*first <= 0 {
			return false
		}
	}
	return true
}

// FilterArgs converts the projection into a filter lookup: the center in
// normalized face coordinates and an axis-aligned footprint whose
// half-extents are du/2 and dv/2 plus blur. The second footprint edge is zero.
func (p Projection) FilterArgs(blur float64) (u, v, uw1, vw1, uw2, vw2 float32) {
	return float32((1 + p.U) / 2), float32((1 + p.V) / 2),
		float32(p.DU/2 + blur), float32(p.DV/2 + blur), 0, 0
}
