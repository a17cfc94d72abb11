package shadeop

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/echoflaresat/facetex/cache"
	"github.com/echoflaresat/facetex/config"
	"github.com/echoflaresat/facetex/kernel"
	"github.com/echoflaresat/facetex/texture"
	"github.com/echoflaresat/facetex/vectors"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func newContext(t *testing.T, dir string) *Context {
	t.Helper()
	cfg := config.Default()
	cfg.SearchPath.Texture = dir
	ctx := New(cfg)
	t.Cleanup(func() {
		if err := ctx.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return ctx
}

// centers returns n lookups at the middle of face 0 with a small footprint.
func centers(n int) Points {
	p := Points{}
	for i := 0; i < n; i++ {
		p.FaceID = append(p.FaceID, 0)
		p.U = append(p.U, 0.5)
		p.V = append(p.V, 0.5)
		p.UW1 = append(p.UW1, 0.05)
		p.VW1 = append(p.VW1, 0)
		p.UW2 = append(p.UW2, 0)
		p.VW2 = append(p.VW2, 0.05)
	}
	return p
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

func TestMissingTextureZeroFills(t *testing.T) {
	ctx := newContext(t, t.TempDir())

	out := make([][3]float32, 5)
	for i := range out {
		out[i] = [3]float32{9, 9, 9}
	}
	if err := ctx.Color(out, "nope.png", 0, centers(5)); err != nil {
		t.Fatalf("Color: %v", err)
	}
	for i, c := range out {
		if c != [3]float32{} {
			t.Errorf("point %d = %v, want zeros", i, c)
		}
	}

	f := []float32{9, 9}
	if err := ctx.Float(f, "nope.png", 0, centers(2)); err != nil {
		t.Fatalf("Float: %v", err)
	}
	if f[0] != 0 || f[1] != 0 {
		t.Errorf("Float = %v, want zeros", f)
	}
}

func TestGrayPromotion(t *testing.T) {
	dir := t.TempDir()
	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range gray.Pix {
		gray.Pix[i] = 51
	}
	writePNG(t, filepath.Join(dir, "gray.png"), gray)
	ctx := newContext(t, dir)

	out := make([][3]float32, 3)
	if err := ctx.Color(out, "gray.png", 0, centers(3), "filter", "gaussian"); err != nil {
		t.Fatalf("Color: %v", err)
	}
	for i, c := range out {
		for ch, v := range c {
			if !near(v, 0.2) {
				t.Errorf("point %d channel %d = %v, want 0.2", i, ch, v)
			}
		}
	}
}

func TestColorAndFloat(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "rgb.png"), solid(8, 8, color.RGBA{255, 102, 0, 255}))
	ctx := newContext(t, dir)

	out := make([][3]float32, 2)
	if err := ctx.Color(out, "rgb.png", 0, centers(2), "lerp", 1.0, "width", Varying{1, 2}); err != nil {
		t.Fatalf("Color: %v", err)
	}
	for i, c := range out {
		if !near(c[0], 1) || !near(c[1], 0.4) || !near(c[2], 0) {
			t.Errorf("point %d = %v, want (1, 0.4, 0)", i, c)
		}
	}

	f := make([]float32, 2)
	if err := ctx.Float(f, "rgb.png", 1, centers(2), "filter", "mitchell"); err != nil {
		t.Fatalf("Float: %v", err)
	}
	for i, v := range f {
		if !near(v, 0.4) {
			t.Errorf("point %d = %v, want 0.4", i, v)
		}
	}

	// Channels past the end of an RGB texture repeat the first one read.
	if err := ctx.Color(out, "rgb.png", 2, centers(2)); err != nil {
		t.Fatalf("Color: %v", err)
	}
	if out[0] != [3]float32{0, 0, 0} {
		t.Errorf("channel 2 promoted = %v, want zeros", out[0])
	}

	if s := ctx.Cache().Stats(); s.Loads != 1 {
		t.Errorf("texture loaded %d times, want 1", s.Loads)
	}
}

func TestContractViolations(t *testing.T) {
	ctx := newContext(t, t.TempDir())
	short := centers(3)
	short.V = short.V[:2]

	out := make([][3]float32, 3)
	if err := ctx.Color(out, "any.png", 0, short); !errors.Is(err, ErrContract) {
		t.Errorf("mismatched points: got %v, want ErrContract", err)
	}
	if err := ctx.Color(out, "any.png", 0, centers(3), "blur", Varying{1, 2}); !errors.Is(err, ErrContract) {
		t.Errorf("mismatched blur: got %v, want ErrContract", err)
	}
	env := EnvPoints{
		R0: make([]vectors.Vec3, 3), R1: make([]vectors.Vec3, 3),
		R2: make([]vectors.Vec3, 2), R3: make([]vectors.Vec3, 3),
	}
	if err := ctx.EnvColor(out, "any.toml", 0, env); !errors.Is(err, ErrContract) {
		t.Errorf("mismatched directions: got %v, want ErrContract", err)
	}
}

func TestParseOptions(t *testing.T) {
	cases := []struct {
		name     string
		args     []any
		consumed int
		check    func(t *testing.T, l Lookup)
	}{
		{
			name:     "defaults",
			consumed: 0,
			check: func(t *testing.T, l Lookup) {
				if l.Filter.Shape != kernel.Box || l.Filter.Lerp || l.Width.at(0) != 1 || l.Blur.at(0) != 0 {
					t.Errorf("defaults = %+v", l)
				}
			},
		},
		{
			name:     "all keywords",
			args:     []any{"blur", float32(0.1), "width", 2.0, "lerp", true, "filter", "catmull-rom"},
			consumed: 8,
			check: func(t *testing.T, l Lookup) {
				if l.Filter.Shape != kernel.CatmullRom || !l.Filter.Lerp || l.Width.at(3) != 2 || l.Blur.at(0) != 0.1 {
					t.Errorf("lookup = %+v", l)
				}
			},
		},
		{
			name:     "per-point width",
			args:     []any{"width", []float32{1, 2, 3}},
			consumed: 2,
			check: func(t *testing.T, l Lookup) {
				if l.Width.at(2) != 3 {
					t.Errorf("width = %v", l.Width)
				}
			},
		},
		{
			// Unknown keywords end the list; later options are silently dropped.
			name:     "truncated at unknown keyword",
			args:     []any{"lerp", 1, "sharpness", 0.5, "filter", "point"},
			consumed: 2,
			check: func(t *testing.T, l Lookup) {
				if !l.Filter.Lerp || l.Filter.Shape != kernel.Box {
					t.Errorf("lookup = %+v, want lerp set and the filter option dropped", l)
				}
			},
		},
		{
			name:     "mistyped value",
			args:     []any{"blur", "lots"},
			consumed: 0,
		},
		{
			name:     "missing value",
			args:     []any{"filter", "gaussian", "blur"},
			consumed: 2,
		},
		{
			name:     "unknown filter name keeps parsing",
			args:     []any{"filter", "lanczos", "lerp", false},
			consumed: 4,
			check: func(t *testing.T, l Lookup) {
				if l.Filter.Shape != kernel.Box {
					t.Errorf("shape = %v, want box", l.Filter.Shape)
				}
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			l, n := ParseOptions(c.args...)
			if n != c.consumed {
				t.Errorf("consumed %d arguments, want %d", n, c.consumed)
			}
			if c.check != nil {
				c.check(t, l)
			}
		})
	}
}

func writeCube(t *testing.T, dir string) (string, [6]color.RGBA) {
	t.Helper()
	colors := [6]color.RGBA{
		{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255},
		{255, 255, 0, 255}, {0, 255, 255, 255}, {255, 0, 255, 255},
	}
	var names [6]string
	for i, c := range colors {
		names[i] = string(rune('a'+i)) + ".png"
		writePNG(t, filepath.Join(dir, names[i]), solid(16, 16, c))
	}
	path := filepath.Join(dir, "env.toml")
	if err := texture.WriteManifest(path, texture.CubeManifest(names, 3)); err != nil {
		t.Fatal(err)
	}
	return path, colors
}

func rgb(c color.RGBA) [3]float32 {
	return [3]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
}

func TestEnvColor(t *testing.T) {
	dir := t.TempDir()
	_, colors := writeCube(t, dir)
	ctx := newContext(t, dir)

	dirs := []vectors.Vec3{
		{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
	}
	const d = 0.01
	env := EnvPoints{Blur: Uniform(0)}
	for _, r := range dirs {
		// Corners spread slightly around the face center.
		env.R0 = append(env.R0, r.Add(vectors.Vec3{X: d, Y: d, Z: d}))
		env.R1 = append(env.R1, r.Add(vectors.Vec3{X: -d, Y: d, Z: -d}))
		env.R2 = append(env.R2, r.Add(vectors.Vec3{X: d, Y: -d, Z: -d}))
		env.R3 = append(env.R3, r.Add(vectors.Vec3{X: -d, Y: -d, Z: d}))
	}
	out := make([][3]float32, len(dirs))
	if err := ctx.EnvColor(out, "env.toml", 0, env); err != nil {
		t.Fatalf("EnvColor: %v", err)
	}
	for i, got := range out {
		want := rgb(colors[i])
		for c := range got {
			if !near(got[c], want[c]) {
				t.Errorf("face %d = %v, want %v", i, got, want)
				break
			}
		}
	}
}

func TestEnvColorDegenerate(t *testing.T) {
	dir := t.TempDir()
	writeCube(t, dir)
	ctx := newContext(t, dir)

	zero := make([]vectors.Vec3, 2)
	out := make([][3]float32, 2)
	err := ctx.EnvColor(out, "env.toml", 0, EnvPoints{R0: zero, R1: zero, R2: zero, R3: zero, Blur: Varying{0, 0.1}})
	if err != nil {
		t.Fatalf("EnvColor: %v", err)
	}
	for i, c := range out {
		for _, v := range c {
			if math.IsNaN(float64(v)) || v < 0 || v > 1 {
				t.Errorf("point %d = %v, want finite colors in [0,1]", i, c)
			}
		}
	}
}

func TestEnvColorMissing(t *testing.T) {
	ctx := newContext(t, t.TempDir())
	r := []vectors.Vec3{{X: 1}}
	out := [][3]float32{{7, 7, 7}}
	if err := ctx.EnvColor(out, "missing.toml", 0, EnvPoints{R0: r, R1: r, R2: r, R3: r}); err != nil {
		t.Fatalf("EnvColor: %v", err)
	}
	if out[0] != [3]float32{} {
		t.Errorf("got %v, want zeros", out[0])
	}
}

func TestNewWithCache(t *testing.T) {
	c := cache.New(cache.Options{MaxFiles: 1})
	ctx := NewWithCache(c)
	if ctx.Cache() != c {
		t.Errorf("Cache() returned a different cache")
	}
	if err := ctx.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
