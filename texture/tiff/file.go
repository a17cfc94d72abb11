package tiff

import (
	"fmt"
	"io"

	"golang.org/x/exp/mmap"
)

// source is a mapped file: every read is bounded by Len.
type source interface {
	io.ReaderAt
	Len() int
}

// Raster is one decoded page: 8-bit samples, row-major, channel-interleaved.
type Raster struct {
	Width, Height int
	Channels      int
	Pix           []byte
}

// File is a memory-mapped TIFF with all of its page headers parsed.
type File struct {
	Pages  []TiffHeader
	reader *mmap.ReaderAt
}

// Open maps the file and parses its IFD chain. Files that are not TIFF
// at all fail with ErrInvalidTiffHeader.
func Open(path string) (*File, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	pages, err := parseTiffHeader(reader)
	if err != nil {
		reader.Close()
		return nil, err
	}
	return &File{Pages: pages, reader: reader}, nil
}

// Raster decodes page i.
func (f *File) Raster(i int) (*Raster, error) {
	if i < 0 || i >= len(f.Pages) {
		return nil, fmt.Errorf("page %d out of range [0,%d)", i, len(f.Pages))
	}
	h := f.Pages[i]
	if err := h.validate(); err != nil {
		return nil, err
	}

	var pix []byte
	var err error
	if h.Tiled() {
		pix, err = readTiled(h, f.reader)
	} else {
		pix, err = readStriped(h, f.reader)
	}
	if err != nil {
		return nil, err
	}
	return &Raster{Width: h.Width, Height: h.Height, Channels: h.SamplesPerPixel, Pix: pix}, nil
}

// Close unmaps the file.
func (f *File) Close() error {
	return f.reader.Close()
}
