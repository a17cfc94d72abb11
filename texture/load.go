package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/echoflaresat/facetex/colors"
	"github.com/echoflaresat/facetex/texture/tiff"
	"github.com/pelletier/go-toml/v2"
	xtiff "golang.org/x/image/tiff"

	_ "image/jpeg" // register JPEG format with image.Decode
	_ "image/png"  // register PNG format with image.Decode
)

// Manifest describes a multi-face texture assembled from ordinary image files.
type Manifest struct {
	// Channels stored per texel. Zero picks the channel count of the first face image.
	Channels int            `toml:"channels"`
	Faces    []ManifestFace `toml:"faces"`
}

// ManifestFace is one face entry. Image paths are relative to the manifest.
// AdjFaces and AdjEdges list bottom, right, top, left; -1 marks a border.
type ManifestFace struct {
	Image    string `toml:"image"`
	Page     int    `toml:"page,omitempty"`
	AdjFaces []int  `toml:"adjfaces"`
	AdjEdges []int  `toml:"adjedges"`
}

// Load reads a texture file. Manifests (*.toml) name one image per face;
// TIFF files contribute one face per page; other images are a single face.
func Load(path string) (*Texture, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFormat, path)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return loadManifest(path)
	}

	rasters, err := loadRasters(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	channels := rasters[0].Channels
	faces := make([]FaceData, len(rasters))
	for i, r := range rasters {
		faces[i] = faceFromRaster(r, channels)
	}
	return New(path, channels, faces)
}

func loadManifest(path string) (*Texture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	if len(m.Faces) == 0 {
		return nil, fmt.Errorf("%w: %s: manifest lists no faces", ErrFormat, path)
	}

	dir := filepath.Dir(path)
	rasters := make([]*tiff.Raster, len(m.Faces))
	for i, mf := range m.Faces {
		imgPath := mf.Image
		if !filepath.IsAbs(imgPath) {
			imgPath = filepath.Join(dir, imgPath)
		}
		pages, err := loadRasters(imgPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: face %d: %v", ErrFormat, path, i, err)
		}
		if mf.Page < 0 || mf.Page >= len(pages) {
			return nil, fmt.Errorf("%w: %s: face %d: page %d out of range", ErrFormat, path, i, mf.Page)
		}
		rasters[i] = pages[mf.Page]
	}

	channels := m.Channels
	if channels == 0 {
		channels = rasters[0].Channels
	}
	if channels < 1 || channels > 4 {
		return nil, fmt.Errorf("%w: %s: unsupported channel count %d", ErrFormat, path, channels)
	}
	faces := make([]FaceData, len(rasters))
	for i, r := range rasters {
		faces[i] = faceFromRaster(r, channels)
		adj, err := m.Faces[i].adjacency()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: face %d: %v", ErrFormat, path, i, err)
		}
		faces[i].Adj = adj
	}
	return New(path, channels, faces)
}

func (mf ManifestFace) adjacency() ([4]Adjacency, error) {
	adj := [4]Adjacency{NoNeighbor, NoNeighbor, NoNeighbor, NoNeighbor}
	if len(mf.AdjFaces) == 0 && len(mf.AdjEdges) == 0 {
		return adj, nil
	}
	if len(mf.AdjFaces) != 4 || len(mf.AdjEdges) != 4 {
		return adj, fmt.Errorf("adjfaces and adjedges need 4 entries, got %d and %d", len(mf.AdjFaces), len(mf.AdjEdges))
	}
	for e := range adj {
		if mf.AdjFaces[e] < 0 {
			continue
		}
		adj[e] = Adjacency{Face: mf.AdjFaces[e], Edge: Edge(mf.AdjEdges[e])}
	}
	return adj, nil
}

// WriteManifest encodes m as TOML to path.
func WriteManifest(path string, m Manifest) error {
	raw, err := toml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// loadRasters decodes every page of an image file.
func loadRasters(path string) ([]*tiff.Raster, error) {
	rasters, err := loadTiffPages(path)
	if err == nil {
		return rasters, nil
	}
	if errors.Is(err, tiff.ErrPageTooLarge) {
		return nil, err
	}
	if !errors.Is(err, tiff.ErrInvalidTiffHeader) {
		slog.Warn("failed to load TIFF pages", "path", path, "error", err)
	}

	// fallback to image codecs
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, err
	}
	if err := tiff.CheckSize(cfg.Width, cfg.Height, 4); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var img image.Image
	if isTiff(path) {
		img, err = xtiff.Decode(f)
	} else {
		img, _, err = image.Decode(f)
	}
	if err != nil {
		return nil, err
	}
	return []*tiff.Raster{rasterFromImage(img)}, nil
}

func loadTiffPages(path string) ([]*tiff.Raster, error) {
	file, err := tiff.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rasters := make([]*tiff.Raster, len(file.Pages))
	for i := range file.Pages {
		rasters[i], err = file.Raster(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
	}
	return rasters, nil
}

func isTiff(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tif" || ext == ".tiff"
}

// rasterFromImage converts a decoded image to 8-bit samples. Gray images
// keep one channel, opaque images three and everything else four.
func rasterFromImage(img image.Image) *tiff.Raster {
	b := img.Bounds()
	channels := 4
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		channels = 1
	default:
		if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
			channels = 3
		}
	}

	r := &tiff.Raster{Width: b.Dx(), Height: b.Dy(), Channels: channels}
	r.Pix = make([]byte, r.Width*r.Height*channels)
	px := make([]float32, channels)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			colors.FromStandardColor(img.At(b.Min.X+x, b.Min.Y+y)).Channels(px)
			i := (y*r.Width + x) * channels
			for c, v := range px {
				r.Pix[i+c] = uint8(v*255 + 0.5)
			}
		}
	}
	return r
}

// faceFromRaster converts 8-bit samples to floats, flipping rows so that
// texel row 0 sits at v=0 (the bottom of the image). Raster channels are
// adapted to the texture's channel count through colors.Color4.
func faceFromRaster(r *tiff.Raster, channels int) FaceData {
	fd := FaceData{
		Width:  r.Width,
		Height: r.Height,
		Texels: make([]float32, r.Width*r.Height*channels),
		Adj:    [4]Adjacency{NoNeighbor, NoNeighbor, NoNeighbor, NoNeighbor},
	}
	src := make([]float32, r.Channels)
	for y := 0; y < r.Height; y++ {
		row := r.Height - 1 - y
		for x := 0; x < r.Width; x++ {
			i := (y*r.Width + x) * r.Channels
			for c := range src {
				src[c] = float32(r.Pix[i+c]) / 255
			}
			dst := fd.Texels[(row*r.Width+x)*channels : (row*r.Width+x+1)*channels]
			if r.Channels == channels {
				copy(dst, src)
				continue
			}
			toColor(src).Channels(dst)
		}
	}
	return fd
}

func toColor(px []float32) colors.Color4 {
	switch len(px) {
	case 1:
		return colors.New(float64(px[0]), float64(px[0]), float64(px[0]), 1)
	case 2:
		return colors.New(float64(px[0]), float64(px[0]), float64(px[0]), float64(px[1]))
	case 3:
		return colors.FromRGB([3]float32{px[0], px[1], px[2]})
	default:
		return colors.New(float64(px[0]), float64(px[1]), float64(px[2]), float64(px[3]))
	}
}
