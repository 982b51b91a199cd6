package pattern

import (
	"fmt"

	"github.com/born-ml/stgraph/internal/tensor"
)

// Length fixes the size of an elementary axis that cannot be inferred from
// the tensor shape, e.g. "b" in "(b t) n f -> b t n f".
type Length struct {
	Axis string
	Size int
}

// L is shorthand for Length{axis, size}.
func L(axis string, size int) Length {
	return Length{Axis: axis, Size: size}
}

// Rearrange parses expr and applies it to x. The result never aliases x
// unless the expression is a pure reshape.
func Rearrange(x *tensor.RawTensor, expr string, lengths ...Length) (*tensor.RawTensor, error) {
	e, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return e.Apply(x, lengths...)
}

// Apply rearranges x: decompose the source groups into elementary axes,
// permute them into destination order, then compose the destination groups.
func (e *Expr) Apply(x *tensor.RawTensor, lengths ...Length) (*tensor.RawTensor, error) {
	if len(e.Src) != x.NDim() {
		return nil, fmt.Errorf("%w: %q has %d axes, tensor has shape %v",
			ErrShapeMismatch, e.Src.String(), len(e.Src), x.Shape())
	}

	sizes, err := e.resolve(x.Shape(), lengths)
	if err != nil {
		return nil, err
	}
	return e.run(x, sizes)
}

// resolve computes the size of every elementary axis.
func (e *Expr) resolve(shape tensor.Shape, lengths []Length) (map[string]int, error) {
	sizes := make(map[string]int, len(lengths))
	axes := make(map[string]bool)
	for _, a := range e.Src.Axes() {
		axes[a] = true
	}
	for _, l := range lengths {
		if !axes[l.Axis] {
			return nil, fmt.Errorf("%w: length given for unknown axis %q", ErrInvalidPattern, l.Axis)
		}
		if l.Size <= 0 {
			return nil, fmt.Errorf("%w: axis %q has non-positive length %d", ErrInvalidPattern, l.Axis, l.Size)
		}
		sizes[l.Axis] = l.Size
	}

	for i, g := range e.Src {
		dim := shape[i]
		if len(g) == 0 {
			if dim != 1 {
				return nil, fmt.Errorf("%w: singleton axis %d has size %d", ErrShapeMismatch, i, dim)
			}
			continue
		}

		known, unknown := 1, ""
		for _, a := range g {
			if s, ok := sizes[a]; ok {
				known *= s
				continue
			}
			if unknown != "" {
				return nil, fmt.Errorf("%w: cannot infer sizes of %v, pass lengths", ErrShapeMismatch, []string(g))
			}
			unknown = a
		}

		if unknown == "" {
			if known != dim {
				return nil, fmt.Errorf("%w: axis group %v has size %d, lengths give %d",
					ErrShapeMismatch, []string(g), dim, known)
			}
			continue
		}
		if dim%known != 0 {
			return nil, fmt.Errorf("%w: axis group %v of size %d not divisible by %d",
				ErrShapeMismatch, []string(g), dim, known)
		}
		sizes[unknown] = dim / known
	}
	return sizes, nil
}

func (e *Expr) run(x *tensor.RawTensor, sizes map[string]int) (*tensor.RawTensor, error) {
	srcAxes := e.Src.Axes()
	elemShape := make(tensor.Shape, len(srcAxes))
	pos := make(map[string]int, len(srcAxes))
	for i, a := range srcAxes {
		elemShape[i] = sizes[a]
		pos[a] = i
	}

	elem, err := tensor.Reshape(x, elemShape)
	if err != nil {
		return nil, err
	}

	dstAxes := e.Dst.Axes()
	perm := make([]int, len(dstAxes))
	identity := true
	for i, a := range dstAxes {
		perm[i] = pos[a]
		identity = identity && perm[i] == i
	}
	if !identity {
		elem = tensor.Permute(elem, perm...)
	}

	outShape := make(tensor.Shape, len(e.Dst))
	for i, g := range e.Dst {
		outShape[i] = 1
		for _, a := range g {
			outShape[i] *= sizes[a]
		}
	}
	return tensor.Reshape(elem, outShape)
}

// RearrangeParams moves transform parameters that broadcast against data with
// pattern src so that they broadcast against data rearranged to dst.
//
// A parameter dimension of size 1 stands for every elementary axis of its
// group. A non-singleton parameter dimension must be a single axis on both
// sides: composing it into a destination group would not broadcast. Axes
// only present in dst become singletons; axes only present in src must be
// singletons and are dropped.
func RearrangeParams(x *tensor.RawTensor, src, dst string) (*tensor.RawTensor, error) {
	srcSide, err := ParseSide(src)
	if err != nil {
		return nil, err
	}
	dstSide, err := ParseSide(dst)
	if err != nil {
		return nil, err
	}
	if len(srcSide) != x.NDim() {
		return nil, fmt.Errorf("%w: %q has %d axes, parameters have shape %v",
			ErrShapeMismatch, src, len(srcSide), x.Shape())
	}

	sizes := make(map[string]int)
	for i, g := range srcSide {
		dim := x.Shape()[i]
		switch {
		case dim == 1:
			for _, a := range g {
				sizes[a] = 1
			}
		case len(g) == 1:
			sizes[g[0]] = dim
		default:
			return nil, fmt.Errorf("%w: parameter group %v has size %d", ErrBroadcast, []string(g), dim)
		}
	}

	dropped := difference(srcSide.Axes(), dstSide.Axes())
	for _, a := range dropped {
		if sizes[a] != 1 {
			return nil, fmt.Errorf("%w: axis %q of size %d cannot be dropped", ErrBroadcast, a, sizes[a])
		}
	}
	added := difference(dstSide.Axes(), srcSide.Axes())
	for _, a := range added {
		sizes[a] = 1
	}

	for _, g := range dstSide {
		if len(g) < 2 {
			continue
		}
		for _, a := range g {
			if sizes[a] != 1 {
				return nil, fmt.Errorf("%w: axis %q of size %d cannot be composed in %v",
					ErrBroadcast, a, sizes[a], []string(g))
			}
		}
	}

	// Singleton axes carry no data: remove the dropped ones from the source
	// and append the added ones, so both sides name the same axes.
	keep := make(Side, 0, len(srcSide)+len(added))
	for _, g := range srcSide {
		keep = append(keep, Group(difference(g, dropped)))
	}
	for _, a := range added {
		keep = append(keep, Group{a})
	}
	e := &Expr{Src: keep, Dst: dstSide}
	return e.run(x, sizes)
}
