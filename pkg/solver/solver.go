// Package solver rearranges an expression to isolate a single variable.
//
// Solving is purely structural: the path from the root to the target leaf is inverted step by
// step, starting from the substitute variable. No simplification is attempted.
package solver

import (
	"fmt"
	"log/slog"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/render"
)

// Error is a solver failure.
type Error struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *Error) Error() string       { return e.Message }
func (e *Error) DiagCode() string    { return e.Code }
func (e *Error) DiagSpan() *ast.Span { return e.Span }

func errorf(node ast.Component, code, format string, args ...any) *Error {
	e := &Error{Code: code, Message: fmt.Sprintf(format, args...)}
	if node != nil {
		if s := node.NodeSpan(); s.StartLine > 0 {
			e.Span = &s
		}
	}
	return e
}

// Solver inverts expressions.
type Solver struct {
	logger *slog.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithLogger sets the logger that receives one debug record per inversion step.
func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Solver.
func New(opts ...Option) *Solver {
	s := &Solver{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckTarget verifies that target occurs exactly once in root.
func CheckTarget(root ast.Component, target string) error {
	switch n := ast.Occurrences(root, target); {
	case n == 0:
		return errorf(root, diagnostics.ETargetMissing, "Variable %s was not found in function", target)
	case n > 1:
		return errorf(root, diagnostics.ETargetAmbiguous, "Variable %s was found more than once", target)
	}
	return nil
}

// step is one ancestor on the path to the target and the child slot the path takes.
type step struct {
	node ast.Component
	slot int
}

// Solve returns an expression for target in terms of substitute, given that root equals
// substitute. The input tree is never modified.
func (s *Solver) Solve(root ast.Component, target, substitute string) (ast.Component, error) {
	if err := CheckTarget(root, target); err != nil {
		return nil, err
	}
	path, ok := findPath(root, target, nil)
	if !ok {
		return nil, errorf(root, diagnostics.ETargetMissing, "Variable %s was not found in function", target)
	}

	var current ast.Component = &ast.Var{Name: substitute}
	for _, st := range path {
		next, err := invert(st, current)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("solver step", "node", st.node.Kind(), "slot", st.slot,
			"result", render.Render(next, render.Plain))
		current = next
	}
	return current, nil
}

// SolveEquation solves "f(x) = s" or "s = f(x)" for target in terms of s.
func (s *Solver) SolveEquation(stmt ast.Component, target string) (ast.Component, error) {
	switch n := stmt.(type) {
	case *ast.Equation:
		if v, ok := n.Right.(*ast.Var); ok {
			return s.Solve(n.Left, target, v.Name)
		}
	case *ast.Declaration:
		return s.Solve(n.X, target, n.Name)
	}
	return nil, errorf(stmt, diagnostics.EMalformed, "expected f(x) = var")
}

// findPath records the ancestors of the Var leaf named target, outermost first.
func findPath(node ast.Component, target string, path []step) ([]step, bool) {
	if v, ok := node.(*ast.Var); ok {
		return path, v.Name == target
	}
	for i, child := range ast.Children(node) {
		if child == nil {
			continue
		}
		if found, ok := findPath(child, target, append(path, step{node: node, slot: i})); ok {
			return found, true
		}
	}
	return nil, false
}

var inverseFunc = map[ast.FuncKind]ast.FuncKind{
	ast.FuncSin:    ast.FuncArcSin,
	ast.FuncCos:    ast.FuncArcCos,
	ast.FuncTan:    ast.FuncArcTan,
	ast.FuncArcSin: ast.FuncSin,
	ast.FuncArcCos: ast.FuncCos,
	ast.FuncArcTan: ast.FuncTan,
}

func invert(st step, current ast.Component) (ast.Component, error) {
	cannot := func(what string) (ast.Component, error) {
		return nil, errorf(st.node, diagnostics.EUnsupported, "cannot invert %s", what)
	}

	switch n := st.node.(type) {
	case *ast.Parenthesized:
		return current, nil

	case *ast.BinaryOp:
		left := st.slot == 0
		other := n.Right
		if !left {
			other = n.Left
		}
		switch n.Op {
		case ast.OpAdd:
			return bin(ast.OpSub, current, ast.Clone(other)), nil
		case ast.OpSub:
			if left {
				return bin(ast.OpAdd, current, ast.Clone(other)), nil
			}
			return bin(ast.OpSub, ast.Clone(other), current), nil
		case ast.OpMul:
			if num, den, ok := quotient(other); ok {
				if !ast.IsAtomic(num) {
					num = &ast.Parenthesized{X: num}
				}
				return bin(ast.OpMul, bin(ast.OpDiv, current, num), den), nil
			}
			return bin(ast.OpDiv, current, ast.Clone(other)), nil
		case ast.OpDiv:
			if left {
				return bin(ast.OpMul, current, ast.Clone(other)), nil
			}
			return bin(ast.OpDiv, ast.Clone(other), current), nil
		case ast.OpPow:
			if !left {
				return cannot("an exponent")
			}
			return &ast.Root{X: current, Index: ast.Clone(n.Right)}, nil
		}
		return cannot("operator " + string(n.Op))

	case *ast.Fraction:
		if st.slot == 0 {
			return bin(ast.OpMul, current, ast.Clone(n.Denominator)), nil
		}
		return bin(ast.OpDiv, ast.Clone(n.Numerator), current), nil

	case *ast.Root:
		if st.slot != 0 {
			return cannot("a root index")
		}
		var index ast.Component = &ast.Num{Value: 2}
		if n.Index != nil {
			index = ast.Clone(n.Index)
		}
		return bin(ast.OpPow, current, index), nil

	case *ast.UnaryFunc:
		inv, ok := inverseFunc[n.Func]
		if !ok {
			return cannot("function " + string(n.Func))
		}
		return &ast.UnaryFunc{Func: inv, X: current}, nil
	}
	return cannot(st.node.Kind())
}

// quotient splits a Fraction or Divide node into cloned numerator and denominator.
func quotient(c ast.Component) (num, den ast.Component, ok bool) {
	switch n := c.(type) {
	case *ast.Fraction:
		return ast.Clone(n.Numerator), ast.Clone(n.Denominator), true
	case *ast.BinaryOp:
		if n.Op == ast.OpDiv {
			return ast.Clone(n.Left), ast.Clone(n.Right), true
		}
	}
	return nil, nil, false
}

func bin(op ast.Operator, left, right ast.Component) *ast.BinaryOp {
	return &ast.BinaryOp{Op: op, Left: left, Right: right}
}
