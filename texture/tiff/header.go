package tiff

import (
	"encoding/binary"
	"errors"
	"fmt"
)

type TiffHeader struct {
	ByteOrder       binary.ByteOrder
	Width, Height   int
	SamplesPerPixel int
	BitsPerSample   []int
	Photometric     int
	Compression     int
	PlanarConfig    int
	Predictor       int

	// Strip layout
	RowsPerStrip    int
	StripOffsets    []int
	StripByteCounts []int

	// Tile layout
	TileWidth      int
	TileHeight     int
	TileOffsets    []int
	TileByteCounts []int
}

// https://www.loc.gov/preservation/digital/formats/content/tiff_tags.shtml
const (
	TagImageWidth                = 256
	TagImageLength               = 257
	TagBitsPerSample             = 258
	TagCompression               = 259
	TagPhotometricInterpretation = 262
	TagStripOffsets              = 273
	TagSamplesPerPixel           = 277
	TagStripByteCounts           = 279
	TagRowsPerStrip              = 278
	TagPlanarConfiguration       = 284
	TagPredictor                 = 317
	TagTileWidth                 = 322
	TagTileLength                = 323
	TagTileOffsets               = 324
	TagTileByteCounts            = 325
)

const (
	CompressionNone       = 1
	CompressionDeflate    = 8
	CompressionDeflateOld = 32946

	PhotometricBlackIsZero = 1
	PhotometricRGB         = 2

	PredictorNone       = 1
	PredictorHorizontal = 2
)

// maxPages bounds the IFD chain so a looping file cannot hang the reader.
const maxPages = 4096

// Largest page, in pixels per side and in decoded bytes, the reader accepts.
const (
	MaxDimension = 1 << 16
	MaxPageBytes = 1 << 30
)

var (
	ErrInvalidTiffHeader = errors.New("invalid TIFF header")
	ErrPageTooLarge      = errors.New("TIFF page too large")
)

// CheckSize rejects pages whose decoded size exceeds MaxDimension or
// MaxPageBytes.
func CheckSize(width, height, channels int) error {
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrPageTooLarge, width, height)
	}
	if int64(width)*int64(height)*int64(channels) > MaxPageBytes {
		return fmt.Errorf("%w: %dx%dx%d bytes", ErrPageTooLarge, width, height, channels)
	}
	return nil
}

// Tiled reports whether the page stores its samples in tiles.
func (h TiffHeader) Tiled() bool {
	return len(h.TileOffsets) > 0
}

// parseTiffHeader reads every IFD of the file, one TiffHeader per page.
func parseTiffHeader(reader source) ([]TiffHeader, error) {
	read := func(offset, size int64) ([]byte, error) {
		if offset < 0 || size < 0 || offset+size > int64(reader.Len()) {
			return nil, fmt.Errorf("%d bytes at offset %d run past the end of the file (%d bytes)", size, offset, reader.Len())
		}
		buf := make([]byte, size)
		_, err := reader.ReadAt(buf, offset)
		return buf, err
	}

	// Read 8-byte header
	header, err := read(0, 8)
	if err != nil {
		return nil, ErrInvalidTiffHeader
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, ErrInvalidTiffHeader
	}
	if bo.Uint16(header[2:4]) != 42 {
		return nil, ErrInvalidTiffHeader
	}
	ifdOffset := int64(bo.Uint32(header[4:8]))

	var pages []TiffHeader
	for ifdOffset != 0 {
		if len(pages) == maxPages {
			return nil, fmt.Errorf("too many pages (>%d)", maxPages)
		}
		hdr, next, err := parseIFD(read, bo, ifdOffset)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", len(pages), err)
		}
		pages = append(pages, hdr)
		ifdOffset = next
	}
	if len(pages) == 0 {
		return nil, ErrInvalidTiffHeader
	}
	return pages, nil
}

func parseIFD(read func(int64, int64) ([]byte, error), bo binary.ByteOrder, ifdOffset int64) (TiffHeader, int64, error) {
	// Read number of entries
	entryCountRaw, err := read(ifdOffset, 2)
	if err != nil {
		return TiffHeader{}, 0, err
	}
	numEntries := int(bo.Uint16(entryCountRaw))
	entriesRaw, err := read(ifdOffset+2, int64(numEntries)*12+4)
	if err != nil {
		return TiffHeader{}, 0, err
	}

	hdr := TiffHeader{
		ByteOrder:       bo,
		BitsPerSample:   nil,
		SamplesPerPixel: -1,
		Photometric:     -1,
		Compression:     CompressionNone,
		PlanarConfig:    1, // default
		Predictor:       PredictorNone,
	}

	for i := 0; i < numEntries; i++ {
		entry := entriesRaw[i*12 : (i+1)*12]
		tag := bo.Uint16(entry[0:2])
		typ := bo.Uint16(entry[2:4])
		count := bo.Uint32(entry[4:8])
		valOffset := int64(bo.Uint32(entry[8:12]))

		// SHORT values are left-justified in the value field.
		scalar := func() int {
			if typ == 3 {
				return int(bo.Uint16(entry[8:10]))
			}
			return int(valOffset)
		}

		readShortArray := func() ([]int, error) {
			if count <= 2 {
				out := make([]int, count)
				for i := uint32(0); i < count; i++ {
					out[i] = int(bo.Uint16(entry[8+i*2:]))
				}
				return out, nil
			}
			buf, err := read(valOffset, int64(count)*2)
			if err != nil {
				return nil, err
			}
			out := make([]int, count)
			for i := uint32(0); i < count; i++ {
				out[i] = int(bo.Uint16(buf[i*2:]))
			}
			return out, nil
		}
		readLongArray := func() ([]int, error) {
			if typ == 3 {
				return readShortArray()
			}
			if count == 1 {
				return []int{int(valOffset)}, nil
			}
			buf, err := read(valOffset, int64(count)*4)
			if err != nil {
				return nil, err
			}
			out := make([]int, count)
			for i := uint32(0); i < count; i++ {
				out[i] = int(bo.Uint32(buf[i*4:]))
			}
			return out, nil
		}

		switch tag {
		case TagImageWidth:
			hdr.Width = scalar()
		case TagImageLength:
			hdr.Height = scalar()
		case TagBitsPerSample:
			hdr.BitsPerSample, err = readShortArray()
		case TagCompression:
			hdr.Compression = scalar()
		case TagPhotometricInterpretation:
			hdr.Photometric = scalar()
		case TagStripOffsets:
			hdr.StripOffsets, err = readLongArray()
		case TagSamplesPerPixel:
			hdr.SamplesPerPixel = scalar()
		case TagRowsPerStrip:
			hdr.RowsPerStrip = scalar()
		case TagStripByteCounts:
			hdr.StripByteCounts, err = readLongArray()
		case TagPlanarConfiguration:
			hdr.PlanarConfig = scalar()
		case TagPredictor:
			hdr.Predictor = scalar()
		case TagTileWidth:
			hdr.TileWidth = scalar()
		case TagTileLength:
			hdr.TileHeight = scalar()
		case TagTileOffsets:
			hdr.TileOffsets, err = readLongArray()
		case TagTileByteCounts:
			hdr.TileByteCounts, err = readLongArray()
		}
		if err != nil {
			return TiffHeader{}, 0, err
		}
	}

	if hdr.RowsPerStrip <= 0 || hdr.RowsPerStrip > hdr.Height {
		hdr.RowsPerStrip = hdr.Height
	}

	next := int64(bo.Uint32(entriesRaw[numEntries*12:]))
	return hdr, next, nil
}

// validate checks that the page is a layout this reader decodes.
func (h TiffHeader) validate() error {
	if h.Width <= 0 || h.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", h.Width, h.Height)
	}
	if err := CheckSize(h.Width, h.Height, h.SamplesPerPixel); err != nil {
		return err
	}
	switch h.Compression {
	case CompressionNone, CompressionDeflate, CompressionDeflateOld:
	default:
		return fmt.Errorf("unsupported compression: %d", h.Compression)
	}
	switch h.Photometric {
	case PhotometricBlackIsZero:
		if h.SamplesPerPixel != 1 && h.SamplesPerPixel != 2 {
			return fmt.Errorf("unsupported grayscale format: %d samples/pixel", h.SamplesPerPixel)
		}
	case PhotometricRGB:
		if h.SamplesPerPixel != 3 && h.SamplesPerPixel != 4 {
			return fmt.Errorf("unsupported RGB format: %d samples/pixel", h.SamplesPerPixel)
		}
	default:
		return fmt.Errorf("unsupported photometric: %d", h.Photometric)
	}
	for _, b := range h.BitsPerSample {
		if b != 8 {
			return fmt.Errorf("expected 8 bits/sample, got %v", h.BitsPerSample)
		}
	}
	if h.PlanarConfig != 1 {
		return fmt.Errorf("unsupported planar configuration: %d", h.PlanarConfig)
	}
	if h.Predictor != PredictorNone && h.Predictor != PredictorHorizontal {
		return fmt.Errorf("unsupported predictor: %d", h.Predictor)
	}
	if h.Tiled() {
		if h.TileWidth <= 0 || h.TileHeight <= 0 || len(h.TileOffsets) != len(h.TileByteCounts) {
			return fmt.Errorf("invalid tile offset/length")
		}
		if err := CheckSize(h.TileWidth, h.TileHeight, h.SamplesPerPixel); err != nil {
			return fmt.Errorf("tile: %w", err)
		}
		return nil
	}
	if len(h.StripOffsets) == 0 || len(h.StripOffsets) != len(h.StripByteCounts) {
		return fmt.Errorf("invalid strip offset/length")
	}
	return nil
}
