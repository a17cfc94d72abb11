package filter

import "github.com/echoflaresat/facetex/kernel"

// Options configure a filter. They are fixed for the filter's lifetime.
type Options struct {
	Shape kernel.Shape
	// Lerp interpolates between reduction levels, and for the point
	// kernel between the four nearest texels.
	Lerp bool
	// Width multiplies both footprint edges of every lookup.
	Width float32
	// Blur is added to the footprint half-extents of every lookup.
	Blur float32
}

// DefaultOptions returns a box filter without interpolation, unit width and no blur.
func DefaultOptions() Options {
	return Options{Shape: kernel.Box, Width: 1}
}
