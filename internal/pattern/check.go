package pattern

import (
	"fmt"

	"github.com/born-ml/stgraph/internal/tensor"
)

// Normalize returns p in canonical spacing. Invalid patterns are returned
// with whitespace collapsed only.
func Normalize(p string) string {
	side, err := ParseSide(p)
	if err != nil {
		return collapse(p)
	}
	return side.String()
}

// Check validates a single-side pattern and returns it normalized. When
// ndim >= 0 the pattern must describe exactly ndim dimensions.
func Check(p string, ndim int) (string, error) {
	if _, _, hasSrc := Split(p); hasSrc {
		return "", fmt.Errorf("%w: %q is an expression, want a pattern", ErrInvalidPattern, p)
	}
	side, err := ParseSide(p)
	if err != nil {
		return "", err
	}
	if len(side) == 0 {
		return "", fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if ndim >= 0 && len(side) != ndim {
		return "", fmt.Errorf("%w: %q has %d axes, want %d", ErrShapeMismatch, p, len(side), ndim)
	}
	return side.String(), nil
}

// Infer labels each dimension of shape as time, nodes, edges or features by
// matching its size. A zero size disables that label. Time, nodes and edges
// may each appear once, in that order, followed by feature axes; the first
// feature axis is "f" and further ones "f1", "f2", ...
func Infer(shape tensor.Shape, steps, nodes, edges int) (string, error) {
	var (
		axes     []string
		features int
		stage    int // 0: start, 1: after time, 2: after nodes/edges, 3: features
	)
	for _, dim := range shape {
		switch {
		case stage < 1 && steps > 0 && dim == steps:
			axes, stage = append(axes, AxisTime), 1
		case stage < 2 && nodes > 0 && dim == nodes:
			axes, stage = append(axes, AxisNodes), 2
		case stage < 2 && edges > 0 && dim == edges:
			axes, stage = append(axes, AxisEdges), 2
		default:
			if features == 0 {
				axes = append(axes, AxisFeatures)
			} else {
				axes = append(axes, fmt.Sprintf("%s%d", AxisFeatures, features))
			}
			features, stage = features+1, 3
		}
	}
	if len(axes) == 0 {
		return "", fmt.Errorf("%w: cannot infer pattern from shape %v", ErrInvalidPattern, shape)
	}
	return Side(groupsOf(axes)).String(), nil
}

// Index returns the dimension of p that consists of exactly the axis name.
func Index(p, axis string) (int, bool) {
	side, err := ParseSide(p)
	if err != nil {
		return 0, false
	}
	for i, g := range side {
		if len(g) == 1 && g[0] == axis {
			return i, true
		}
	}
	return 0, false
}

// Prepend returns p with axis added as a new leading dimension.
func Prepend(axis, p string) string {
	return Normalize(axis + " " + p)
}

func groupsOf(axes []string) []Group {
	out := make([]Group, len(axes))
	for i, a := range axes {
		out[i] = Group{a}
	}
	return out
}

func collapse(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			space = len(out) > 0
			continue
		}
		if space {
			out = append(out, ' ')
			space = false
		}
		out = append(out, r)
	}
	return string(out)
}
