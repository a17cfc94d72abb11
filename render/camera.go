package render

import (
	"math"

	"github.com/echoflaresat/facetex/vectors"
)

// Camera models a pinhole camera at the center of an environment. With
// zero yaw and tilt it looks down +x with +z up.
type Camera struct {
	FOVDeg     float64
	TanHalfFOV float64
	Forward    vectors.Vec3
	Right      vectors.Vec3
	Up         vectors.Vec3
}

// NewCamera constructs a camera with the given field of view (deg), a yaw
// about the world up axis (deg) and a tilt about the camera's Right axis
// (deg, positive looks up).
func NewCamera(fovDeg, yawDeg, tiltDeg float64) Camera {
	fovRad := fovDeg * math.Pi / 180.0
	tanHalf := math.Tan(fovRad / 2.0)

	fwd := vectors.Vec3{X: 1}
	up := vectors.Vec3{Z: 1}
	right := fwd.Cross(up).Normalize()

	if yawDeg != 0 {
		fwd, right, up = yawCamera(fwd, right, up, yawDeg)
	}
	if tiltDeg != 0 {
		fwd, right, up = tiltCamera(fwd, right, up, tiltDeg)
	}
	return Camera{
		FOVDeg:     fovDeg,
		TanHalfFOV: tanHalf,
		Forward:    fwd,
		Right:      right,
		Up:         up,
	}
}

// rotateVec applies Rodrigues' rotation formula: rotate v around axis by (cosT, sinT).
func rotateVec(v, axis vectors.Vec3, cosT, sinT float64) vectors.Vec3 {
	// v*cos + (axis x v)*sin + axis*(axis·v)*(1-cos)
	return v.Scale(cosT).
		Add(axis.Cross(v).Scale(sinT)).
		Add(axis.Scale(axis.Dot(v) * (1.0 - cosT)))
}

// tiltCamera rotates forward/up around the Right axis by tiltDeg.
func tiltCamera(fwd, right, up vectors.Vec3, tiltDeg float64) (vectors.Vec3, vectors.Vec3, vectors.Vec3) {
	theta := tiltDeg * math.Pi / 180.0
	c, s := math.Cos(theta), math.Sin(theta)

	fwdNew := rotateVec(fwd, right, c, s).Normalize()
	upNew := rotateVec(up, right, c, s).Normalize()
	return fwdNew, right, upNew
}

// yawCamera rotates forward/right around the Up axis by yawDeg.
// This is a left-right (horizontal) camera pan.
func yawCamera(fwd, right, up vectors.Vec3, yawDeg float64) (vectors.Vec3, vectors.Vec3, vectors.Vec3) {
	theta := yawDeg * math.Pi / 180.0
	c, s := math.Cos(theta), math.Sin(theta)

	fwdNew := rotateVec(fwd, up, c, s).Normalize()
	rightNew := rotateVec(right, up, c, s).Normalize()
	return fwdNew, rightNew, up
}

// ComputeRay returns the normalized viewing direction through image point
// (i,j) of a width x height image. Pixel centers sit at integer
// coordinates; fractional values address points inside a pixel.
func (c Camera) ComputeRay(i, j float64, width, height int) vectors.Vec3 {
	w := float64(width)
	h := float64(height)

	// NDC in [-1, +1] across the image edges, flip Y so +up is up on screen.
	// The vertical extent keeps the horizontal scale for non-square images.
	xNDC := (i + 0.5 - w/2.0) / (w / 2.0)
	yNDC := -(j + 0.5 - h/2.0) / (w / 2.0)

	dir := c.Right.Scale(xNDC * c.TanHalfFOV).
		Add(c.Up.Scale(yNDC * c.TanHalfFOV)).
		Add(c.Forward)

	return dir.Normalize()
}

// PixelCorners returns the rays through the four corners of pixel (x,y),
// counter-clockwise from the lower left.
func (c Camera) PixelCorners(x, y, width, height int) [4]vectors.Vec3 {
	fx, fy := float64(x), float64(y)
	return [4]vectors.Vec3{
		c.ComputeRay(fx-0.5, fy+0.5, width, height),
		c.ComputeRay(fx+0.5, fy+0.5, width, height),
		c.ComputeRay(fx+0.5, fy-0.5, width, height),
		c.ComputeRay(fx-0.5, fy-0.5, width, height),
	}
}
