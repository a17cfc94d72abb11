package shadeop

import (
	"log/slog"

	"github.com/echoflaresat/facetex/filter"
	"github.com/echoflaresat/facetex/kernel"
)

// Varying is a per-point float argument. A single value applies to every
// point and an empty one reads as zero.
type Varying []float32

// Uniform returns a Varying holding v for every point.
func Uniform(v float32) Varying { return Varying{v} }

func (v Varying) at(i int) float32 {
	switch len(v) {
	case 0:
		return 0
	case 1:
		return v[0]
	default:
		return v[i]
	}
}

func (v Varying) fits(n int) bool {
	return len(v) <= 1 || len(v) == n
}

// Lookup is the result of parsing a keyword option list.
type Lookup struct {
	Filter filter.Options
	Width  Varying
	Blur   Varying
}

// DefaultLookup is a box filter with width 1 and no blur.
func DefaultLookup() Lookup {
	return Lookup{Filter: filter.DefaultOptions(), Width: Uniform(1), Blur: Uniform(0)}
}

// ParseOptions reads keyword/value pairs: "blur" and "width" take a number
// or a Varying, "lerp" a bool or number, "filter" a kernel name. Parsing
// stops at the first unknown keyword, non-string key, mistyped value or
// missing value; the options read so far are kept and the number of
// arguments consumed is returned.
func ParseOptions(args ...any) (Lookup, int) {
	l := DefaultLookup()
	i := 0
	for ; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			break
		}
		val := args[i+1]
		switch key {
		case "blur":
			var v Varying
			if v, ok = varying(val); ok {
				l.Blur = v
			}
		case "width":
			var v Varying
			if v, ok = varying(val); ok {
				l.Width = v
			}
		case "lerp":
			var b bool
			if b, ok = flag(val); ok {
				l.Filter.Lerp = b
			}
		case "filter":
			var name string
			if name, ok = val.(string); ok {
				if shape, err := kernel.ParseShape(name); err == nil {
					l.Filter.Shape = shape
				} else {
					slog.Debug("unknown filter name, keeping previous filter", "filter", name, "using", l.Filter.Shape)
				}
			}
		default:
			ok = false
		}
		if !ok {
			break
		}
	}
	if i < len(args) {
		slog.Debug("option list truncated", "consumed", i, "total", len(args), "at", args[i])
	}
	return l, i
}

func varying(v any) (Varying, bool) {
	switch x := v.(type) {
	case float32:
		return Uniform(x), true
	case float64:
		return Uniform(float32(x)), true
	case int:
		return Uniform(float32(x)), true
	case Varying:
		return x, len(x) > 0
	case []float32:
		return Varying(x), len(x) > 0
	default:
		return nil, false
	}
}

func flag(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case float32:
		return x != 0, true
	case float64:
		return x != 0, true
	case int:
		return x != 0, true
	default:
		return false, false
	}
}
