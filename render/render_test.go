package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/echoflaresat/facetex/config"
	"github.com/echoflaresat/facetex/shadeop"
	"github.com/echoflaresat/facetex/texture"
	"github.com/echoflaresat/facetex/vectors"
)

var faceColors = [6]color.NRGBA{
	{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255},
	{255, 255, 0, 255}, {0, 255, 255, 255}, {255, 0, 255, 255},
}

// writeCube writes six solid 16x16 faces and their manifest into dir.
func writeCube(t *testing.T, dir string) {
	t.Helper()
	var names [6]string
	for i, c := range faceColors {
		names[i] = string(rune('a'+i)) + ".png"
		img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = c.R, c.G, c.B, c.A
		}
		f, err := os.Create(filepath.Join(dir, names[i]))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	if err := texture.WriteManifest(filepath.Join(dir, "env.toml"), texture.CubeManifest(names, 3)); err != nil {
		t.Fatal(err)
	}
}

func newShading(t *testing.T, dir string) *shadeop.Context {
	t.Helper()
	cfg := config.Default()
	cfg.SearchPath.Texture = dir
	sh := shadeop.New(cfg)
	t.Cleanup(func() { sh.Close() })
	return sh
}

func nearVec(a, b vectors.Vec3) bool {
	return a.Sub(b).Norm() < 1e-9
}

func TestCameraBasis(t *testing.T) {
	cases := []struct {
		name      string
		yaw, tilt float64
		forward   vectors.Vec3
	}{
		{"default", 0, 0, vectors.Vec3{X: 1}},
		{"yaw left", 90, 0, vectors.Vec3{Y: 1}},
		{"turn around", 180, 0, vectors.Vec3{X: -1}},
		{"look up", 0, 90, vectors.Vec3{Z: 1}},
		{"look down", 0, -90, vectors.Vec3{Z: -1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cam := NewCamera(60, c.yaw, c.tilt)
			if !nearVec(cam.Forward, c.forward) {
				t.Errorf("forward = %+v, want %+v", cam.Forward, c.forward)
			}
			for _, d := range []float64{cam.Forward.Dot(cam.Right), cam.Forward.Dot(cam.Up), cam.Right.Dot(cam.Up)} {
				if math.Abs(d) > 1e-9 {
					t.Errorf("basis not orthogonal: %+v", cam)
				}
			}
		})
	}
}

func TestComputeRay(t *testing.T) {
	cam := NewCamera(90, 0, 0)
	if got := cam.ComputeRay(1, 1, 3, 3); !nearVec(got, cam.Forward) {
		t.Errorf("center ray = %+v, want forward", got)
	}

	// The left edge of the image sits half the field of view off axis.
	left := cam.ComputeRay(-0.5, 1, 3, 3)
	if a := math.Acos(left.Dot(cam.Forward)) * 180 / math.Pi; math.Abs(a-45) > 1e-9 {
		t.Errorf("edge ray angle = %v, want 45", a)
	}

	c := cam.PixelCorners(1, 1, 3, 3)
	sum := vectors.Sum(c[:]...).Normalize()
	if !nearVec(sum, cam.Forward) {
		t.Errorf("corner rays centered on %+v, want forward", sum)
	}
	if c[0].Dot(cam.Up) >= 0 || c[2].Dot(cam.Up) <= 0 {
		t.Errorf("corner order: r0 should be below and r2 above the center")
	}
}

func TestRenderFaces(t *testing.T) {
	dir := t.TempDir()
	writeCube(t, dir)
	sh := newShading(t, dir)

	cases := []struct {
		name      string
		yaw, tilt float64
		face      int
	}{
		{"+x", 0, 0, 0},
		{"-x", 180, 0, 1},
		{"+y", 90, 0, 2},
		{"-y", -90, 0, 3},
		{"+z", 0, 90, 4},
		{"-z", 0, -90, 5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			img, err := Render(context.Background(), sh, NewCamera(20, c.yaw, c.tilt),
				Options{Texture: "env.toml", Width: 8, Height: 6, Workers: 3})
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
				t.Fatalf("bounds = %v", b)
			}
			want := faceColors[c.face]
			for y := 0; y < 6; y++ {
				for x := 0; x < 8; x++ {
					got := img.NRGBAAt(x, y)
					if absDiff(got.R, want.R) > 1 || absDiff(got.G, want.G) > 1 || absDiff(got.B, want.B) > 1 || got.A != 255 {
						t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
	if s := sh.Cache().Stats(); s.Loads != 1 {
		t.Errorf("environment loaded %d times, want 1", s.Loads)
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	writeCube(t, dir)
	sh := newShading(t, dir)
	cam := NewCamera(60, 0, 0)

	if _, err := Render(context.Background(), sh, cam, Options{Texture: "missing.toml", Width: 4, Height: 4}); !errors.Is(err, texture.ErrNotFound) {
		t.Errorf("missing texture: got %v, want ErrNotFound", err)
	}
	if _, err := Render(context.Background(), sh, cam, Options{Texture: "env.toml", Width: 0, Height: 4}); err == nil {
		t.Errorf("zero width: expected an error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Render(ctx, sh, cam, Options{Texture: "env.toml", Width: 4, Height: 4}); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled render: got %v, want context.Canceled", err)
	}
}
