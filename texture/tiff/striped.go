package tiff

import "fmt"

// readStriped decodes a strip-organized page into a tightly packed
// row-major buffer of h.Width*h.Height*h.SamplesPerPixel bytes.
func readStriped(h TiffHeader, reader source) ([]byte, error) {
	rowStride := h.Width * h.SamplesPerPixel
	pix := make([]byte, rowStride*h.Height)

	for strip := range h.StripOffsets {
		y0 := strip * h.RowsPerStrip
		if y0 >= h.Height {
			break
		}
		rows := min(h.RowsPerStrip, h.Height-y0)

		data, err := readBlock(h, reader, h.StripOffsets[strip], h.StripByteCounts[strip], rows*rowStride)
		if err != nil {
			return nil, fmt.Errorf("strip %d: %w", strip, err)
		}
		if len(data) < rows*rowStride {
			return nil, fmt.Errorf("strip %d: short data (%d < %d bytes)", strip, len(data), rows*rowStride)
		}
		if h.Predictor == PredictorHorizontal {
			undoHorizontalPredictor(data[:rows*rowStride], rowStride, h.SamplesPerPixel)
		}
		copy(pix[y0*rowStride:], data[:rows*rowStride])
	}
	return pix, nil
}
