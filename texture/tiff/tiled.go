package tiff

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// readTiled decodes a tile-organized page. Edge tiles are stored padded to the
// full tile size; only the part inside the image is copied out.
func readTiled(h TiffHeader, reader source) ([]byte, error) {
	rowStride := h.Width * h.SamplesPerPixel
	pix := make([]byte, rowStride*h.Height)

	tilesAcross := (h.Width + h.TileWidth - 1) / h.TileWidth
	tilesDown := (h.Height + h.TileHeight - 1) / h.TileHeight
	if len(h.TileOffsets) < tilesAcross*tilesDown {
		return nil, fmt.Errorf("expected %d tiles, got %d", tilesAcross*tilesDown, len(h.TileOffsets))
	}

	tileStride := h.TileWidth * h.SamplesPerPixel
	for tileY := 0; tileY < tilesDown; tileY++ {
		for tileX := 0; tileX < tilesAcross; tileX++ {
			index := tileY*tilesAcross + tileX
			tile, err := readBlock(h, reader, h.TileOffsets[index], h.TileByteCounts[index], tileStride*h.TileHeight)
			if err != nil {
				return nil, fmt.Errorf("tile %d: %w", index, err)
			}
			if len(tile) < tileStride*h.TileHeight {
				return nil, fmt.Errorf("tile %d: short data (%d bytes)", index, len(tile))
			}
			if h.Predictor == PredictorHorizontal {
				undoHorizontalPredictor(tile, tileStride, h.SamplesPerPixel)
			}

			x0 := tileX * h.TileWidth
			y0 := tileY * h.TileHeight
			cols := min(h.TileWidth, h.Width-x0)
			rows := min(h.TileHeight, h.Height-y0)
			for row := 0; row < rows; row++ {
				src := tile[row*tileStride : row*tileStride+cols*h.SamplesPerPixel]
				copy(pix[(y0+row)*rowStride+x0*h.SamplesPerPixel:], src)
			}
		}
	}
	return pix, nil
}

// readBlock reads one strip or tile and inflates it when compressed. At
// most want bytes are inflated.
func readBlock(h TiffHeader, reader source, offset, byteCount, want int) ([]byte, error) {
	if offset < 0 || byteCount < 0 || int64(offset)+int64(byteCount) > int64(reader.Len()) {
		return nil, fmt.Errorf("%d bytes at offset %d run past the end of the file (%d bytes)", byteCount, offset, reader.Len())
	}
	buf := make([]byte, byteCount)
	if _, err := reader.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("failed to read %d bytes at %d: %w", byteCount, offset, err)
	}

	switch h.Compression {
	case CompressionDeflate, CompressionDeflateOld:
		r, err := zlib.NewReader(bytes.NewReader(buf))
		if err != nil {
			return nil, fmt.Errorf("zlib decompression error: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(io.LimitReader(r, int64(want)))
		if err != nil {
			return nil, fmt.Errorf("zlib read error: %w", err)
		}
		return out, nil
	default:
		return buf, nil
	}
}

// undoHorizontalPredictor reverses TIFF predictor 2 on 8-bit samples in place.
func undoHorizontalPredictor(data []byte, rowStride, spp int) {
	for row := 0; row+rowStride <= len(data); row += rowStride {
		line := data[row : row+rowStride]
		for i := spp; i < len(line); i++ {
			line[i] += line[i-spp]
		}
	}
}
