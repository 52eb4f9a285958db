// Package render turns expression trees back into text.
//
// Rendering never inserts precedence parentheses: each node prints its own symbol around its
// children, and only Parenthesized nodes produce grouping. A tree built by the solver may
// therefore print as text that reparses into a differently shaped tree, e.g. "XL/L/2*pi".
package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/comroid-git/clmath/pkg/ast"
)

// Mode selects the output notation.
type Mode int

const (
	Plain Mode = iota
	LaTeX
)

// String returns the mode's configuration name.
func (m Mode) String() string {
	if m == LaTeX {
		return "latex"
	}
	return "plain"
}

// ParseMode accepts "plain", "text" or "latex" and reports whether the name was known.
func ParseMode(name string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "plain", "text":
		return Plain, true
	case "latex":
		return LaTeX, true
	}
	return Plain, false
}

// Number formats v in fixed notation with at most 15 decimals and no trailing zeros.
// Non-zero values too small for that use exponent notation instead of printing 0.
func Number(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	case v != 0 && math.Abs(v) < 1e-15:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', 15, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// Render returns the textual form of node in the given mode.
func Render(node ast.Component, mode Mode) string {
	var b strings.Builder
	write(&b, node, mode)
	return b.String()
}

func write(b *strings.Builder, node ast.Component, mode Mode) {
	latex := mode == LaTeX
	switch n := node.(type) {
	case *ast.Num:
		b.WriteString(Number(n.Value))

	case *ast.Var:
		if latex {
			b.WriteString(`\text{` + n.Name + `}`)
		} else {
			b.WriteString(n.Name)
		}

	case *ast.Mem:
		b.WriteString("mem")
		if n.Index != nil {
			b.WriteByte('[')
			write(b, n.Index, mode)
			b.WriteByte(']')
		}

	case *ast.UnaryFunc:
		if latex {
			b.WriteByte('\\')
		}
		b.WriteString(string(n.Func))
		b.WriteByte('(')
		write(b, n.X, mode)
		b.WriteByte(')')

	case *ast.Factorial:
		write(b, n.X, mode)
		b.WriteByte('!')

	case *ast.Root:
		index := "2"
		if n.Index != nil {
			index = Render(n.Index, mode)
		}
		if latex {
			b.WriteString(`\sqrt`)
			if index != "2" {
				b.WriteString("[" + index + "]")
			}
			b.WriteByte('{')
			write(b, n.X, mode)
			b.WriteByte('}')
			return
		}
		if index == "2" {
			b.WriteString("sqrt(")
		} else {
			b.WriteString("root[" + index + "](")
		}
		write(b, n.X, mode)
		b.WriteByte(')')

	case *ast.Abs:
		b.WriteByte('|')
		write(b, n.X, mode)
		b.WriteByte('|')

	case *ast.Fraction:
		writeFrac(b, n.Numerator, n.Denominator, mode)

	case *ast.BinaryOp:
		writeBinary(b, n, mode)

	case *ast.FunctionCall:
		b.WriteByte('$')
		b.WriteString(n.Name)
		if len(n.Bindings) == 0 {
			return
		}
		b.WriteByte('{')
		for i, binding := range n.Bindings {
			if i > 0 {
				b.WriteString("; ")
			}
			write(b, binding, mode)
		}
		b.WriteByte('}')

	case *ast.Binding:
		b.WriteString(n.Name)
		b.WriteByte('=')
		write(b, n.X, mode)

	case *ast.Parenthesized:
		b.WriteByte('(')
		write(b, n.X, mode)
		b.WriteByte(')')

	case *ast.UnitAnnotation:
		write(b, n.X, mode)
		if latex {
			if n.Symbol != "" {
				b.WriteString(`\text{` + n.Symbol + `}`)
			}
			return
		}
		b.WriteByte('[')
		b.WriteString(n.Symbol)
		if n.Mode != ast.UnitApply {
			b.WriteByte('?')
		}
		b.WriteByte(']')

	case *ast.Equation:
		write(b, n.Left, mode)
		if latex {
			b.WriteString(" &= ")
		} else {
			b.WriteString(" = ")
		}
		write(b, n.Right, mode)

	case *ast.Declaration:
		b.WriteString(n.Name)
		b.WriteString(" = ")
		write(b, n.X, mode)

	case *ast.TargetMarker:
		b.WriteByte('@')
		b.WriteString(n.Name)
	}
}

func writeFrac(b *strings.Builder, num, den ast.Component, mode Mode) {
	if mode == LaTeX {
		b.WriteString(`\frac{`)
		write(b, num, mode)
		b.WriteString("}{")
		write(b, den, mode)
		b.WriteByte('}')
		return
	}
	b.WriteString("frac(")
	write(b, num, mode)
	b.WriteString(")(")
	write(b, den, mode)
	b.WriteByte(')')
}

func writeBinary(b *strings.Builder, n *ast.BinaryOp, mode Mode) {
	if mode == LaTeX {
		switch n.Op {
		case ast.OpDiv:
			b.WriteString(`\frac{`)
			write(b, n.Left, mode)
			b.WriteString("}{")
			write(b, n.Right, mode)
			b.WriteByte('}')
			return
		case ast.OpMul:
			write(b, n.Left, mode)
			b.WriteString(`\cdot `)
			write(b, n.Right, mode)
			return
		case ast.OpPow:
			write(b, n.Left, mode)
			b.WriteString("^{")
			write(b, n.Right, mode)
			b.WriteByte('}')
			return
		}
	}
	write(b, n.Left, mode)
	b.WriteString(string(n.Op))
	write(b, n.Right, mode)
}
