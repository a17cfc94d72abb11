package cube

import (
	"math"
	"testing"

	"github.com/echoflaresat/facetex/vectors"
)

func v(x, y, z float64) vectors.Vec3 { return vectors.Vec3{X: x, Y: y, Z: z} }

func same(d vectors.Vec3) Projection { return Project(d, d, d, d) }

func TestProjectDegenerate(t *testing.T) {
	got := same(v(0, 0, 0))
	want := Projection{FaceID: FacePosY, U: 0.5, V: 0.5, DU: 1, DV: 1}
	if got != want {
		t.Errorf("Project(0) = %+v, want %+v", got, want)
	}

	// Opposite rays cancel out.
	got = Project(v(1, 0, 0), v(-1, 0, 0), v(0, 1, 0), v(0, -1, 0))
	if got != want {
		t.Errorf("Project(cancelling) = %+v, want %+v", got, want)
	}
}

func TestProjectFaces(t *testing.T) {
	cases := []struct {
		name string
		dir  vectors.Vec3
		face int
		u, v float64
	}{
		{"+x", v(2, 0.5, -1), FacePosX, 0.5, 0.25},
		{"-x", v(-2, 0.5, -1), FaceNegX, -0.5, 0.25},
		{"+y", v(0.5, 2, -1), FacePosY, 0.25, 0.5},
		{"-y", v(0.5, -2, -1), FaceNegY, 0.25, -0.5},
		{"+z", v(0.5, -1, 2), FacePosZ, 0.25, -0.5},
		{"-z", v(0.5, -1, -2), FaceNegZ, -0.25, -0.5},
		{"x wins ties", v(1, 1, 1), FacePosX, -1, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := same(c.dir)
			if p.FaceID != c.face || math.Abs(p.U-c.u) > 1e-12 || math.Abs(p.V-c.v) > 1e-12 {
				t.Errorf("got face %d (%v, %v), want face %d (%v, %v)", p.FaceID, p.U, p.V, c.face, c.u, c.v)
			}
			if p.DU != 0 || p.DV != 0 {
				t.Errorf("identical corners should have zero extent, got %v, %v", p.DU, p.DV)
			}
		})
	}
}

func TestProjectExtent(t *testing.T) {
	p := Project(v(0.1, 0.2, 1), v(0.3, 0.2, 1), v(0.1, 0.6, 1), v(0.3, 0.6, 1))
	if p.FaceID != FacePosZ {
		t.Fatalf("face = %d, want +z", p.FaceID)
	}
	if math.Abs(p.DU-0.2) > 1e-12 || math.Abs(p.DV-0.4) > 1e-12 {
		t.Errorf("extent = (%v, %v), want (0.2, 0.4)", p.DU, p.DV)
	}
	if math.Abs(p.U-0.2) > 1e-12 || math.Abs(p.V-0.4) > 1e-12 {
		t.Errorf("center = (%v, %v), want (0.2, 0.4)", p.U, p.V)
	}
}

func TestProjectCrossingPlane(t *testing.T) {
	cases := []struct {
		name    string
		corners [4]vectors.Vec3
	}{
		{"one corner on the plane", [4]vectors.Vec3{v(1, 0, 0), v(1, 0.1, 0), v(0, 0.1, 0.1), v(1, 0, 0.1)}},
		{"corners on both sides", [4]vectors.Vec3{v(1, 0, 0), v(1, 0.1, 0), v(-0.2, 0.1, 0.1), v(1, 0, 0.1)}},
		{"two pairs of opposite sign", [4]vectors.Vec3{v(2, 0, 0), v(2, 0.1, 0), v(-0.1, 0.1, 0.1), v(-0.1, 0, 0.1)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := Project(c.corners[0], c.corners[1], c.corners[2], c.corners[3])
			if p.FaceID != FacePosX {
				t.Errorf("face = %d, want +x", p.FaceID)
			}
			if p.DU != 1 || p.DV != 1 {
				t.Errorf("extent = (%v, %v), want full face", p.DU, p.DV)
			}
		})
	}
}

func TestFilterArgs(t *testing.T) {
	p := Projection{FaceID: FacePosZ, U: -0.5, V: 0.5, DU: 0.2, DV: 0.4}
	u, vv, uw1, vw1, uw2, vw2 := p.FilterArgs(0.05)
	want := [6]float32{0.25, 0.75, 0.15, 0.25, 0, 0}
	got := [6]float32{u, vv, uw1, vw1, uw2, vw2}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("FilterArgs = %v, want %v", got, want)
			break
		}
	}
}
