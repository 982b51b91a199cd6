// Package pattern parses einops-style axis patterns and rearranges tensors
// according to them.
//
// A pattern labels each axis of a tensor, e.g. "t n f" for time, nodes and
// features. A rearrangement expression maps a source pattern to a destination
// pattern, e.g. "t n f -> n t f" or "b t n f -> (b t) n f". Parenthesized
// groups compose axes; "1" and "()" denote singleton axes.
package pattern

import (
	"fmt"
	"strings"
)

// Arrow separates the source and destination side of an expression.
const Arrow = "->"

// Well-known axis names.
const (
	AxisBatch    = "b"
	AxisTime     = "t"
	AxisNodes    = "n"
	AxisEdges    = "e"
	AxisFeatures = "f"
)

// Group is one tensor dimension expressed as a product of elementary axes.
// An empty group is a singleton dimension.
type Group []string

// Side is a sequence of groups, one per tensor dimension.
type Side []Group

// Expr is a parsed "src -> dst" rearrangement.
type Expr struct {
	Src Side
	Dst Side
}

// Split separates expr into its source and destination patterns. When expr
// contains no arrow, it is the destination and hasSrc is false.
func Split(expr string) (src, dst string, hasSrc bool) {
	before, after, found := strings.Cut(expr, Arrow)
	if !found {
		return "", strings.TrimSpace(expr), false
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), true
}

// Parse parses a full "src -> dst" expression and checks that both sides
// name the same elementary axes.
func Parse(expr string) (*Expr, error) {
	srcText, dstText, hasSrc := Split(expr)
	if !hasSrc {
		return nil, fmt.Errorf("%w: %q has no %q", ErrInvalidPattern, expr, Arrow)
	}
	if strings.Contains(dstText, Arrow) {
		return nil, fmt.Errorf("%w: %q has more than one %q", ErrInvalidPattern, expr, Arrow)
	}

	src, err := ParseSide(srcText)
	if err != nil {
		return nil, err
	}
	dst, err := ParseSide(dstText)
	if err != nil {
		return nil, err
	}

	if missing := difference(src.Axes(), dst.Axes()); len(missing) > 0 {
		return nil, fmt.Errorf("%w: axes %v of %q missing on the right side", ErrInvalidPattern, missing, expr)
	}
	if extra := difference(dst.Axes(), src.Axes()); len(extra) > 0 {
		return nil, fmt.Errorf("%w: axes %v of %q missing on the left side", ErrInvalidPattern, extra, expr)
	}
	return &Expr{Src: src, Dst: dst}, nil
}

// ParseSide parses one side of an expression, e.g. "b (t n) f".
func ParseSide(text string) (Side, error) {
	var (
		side    Side
		group   Group
		inGroup bool
		seen    = make(map[string]bool)
	)

	for _, tok := range tokenize(text) {
		switch {
		case tok == "(":
			if inGroup {
				return nil, fmt.Errorf("%w: nested parenthesis in %q", ErrInvalidPattern, text)
			}
			inGroup, group = true, Group{}
		case tok == ")":
			if !inGroup {
				return nil, fmt.Errorf("%w: unbalanced parenthesis in %q", ErrInvalidPattern, text)
			}
			side = append(side, group)
			inGroup, group = false, nil
		case tok == "1":
			if inGroup {
				continue // "(1 a)" is the same as "(a)"
			}
			side = append(side, Group{})
		case isIdent(tok):
			if seen[tok] {
				return nil, fmt.Errorf("%w: duplicate axis %q in %q", ErrInvalidPattern, tok, text)
			}
			seen[tok] = true
			if inGroup {
				group = append(group, tok)
			} else {
				side = append(side, Group{tok})
			}
		default:
			return nil, fmt.Errorf("%w: invalid axis name %q in %q", ErrInvalidPattern, tok, text)
		}
	}
	if inGroup {
		return nil, fmt.Errorf("%w: unbalanced parenthesis in %q", ErrInvalidPattern, text)
	}
	return side, nil
}

// Axes returns the elementary axis names of the side in order.
func (s Side) Axes() []string {
	var axes []string
	for _, g := range s {
		axes = append(axes, g...)
	}
	return axes
}

// String formats the side in canonical spacing, e.g. "b (t n) f".
func (s Side) String() string {
	parts := make([]string, len(s))
	for i, g := range s {
		switch len(g) {
		case 0:
			parts[i] = "1"
		case 1:
			parts[i] = g[0]
		default:
			parts[i] = "(" + strings.Join(g, " ") + ")"
		}
	}
	return strings.Join(parts, " ")
}

// String formats the expression in canonical spacing.
func (e *Expr) String() string {
	return e.Src.String() + " " + Arrow + " " + e.Dst.String()
}

func tokenize(text string) []string {
	text = strings.ReplaceAll(text, "(", " ( ")
	text = strings.ReplaceAll(text, ")", " ) ")
	fields := strings.Fields(text)

	// "()" is a singleton, same as "1".
	out := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		if fields[i] == "(" && i+1 < len(fields) && fields[i+1] == ")" {
			out = append(out, "1")
			i++
			continue
		}
		out = append(out, fields[i])
	}
	return out
}

func isIdent(tok string) bool {
	for i, r := range tok {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return tok != ""
}

// difference returns the elements of a not present in b, in order.
func difference(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, x := range b {
		in[x] = true
	}
	var out []string
	for _, x := range a {
		if !in[x] {
			out = append(out, x)
		}
	}
	return out
}
