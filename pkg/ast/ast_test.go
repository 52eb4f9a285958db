package ast_test

import (
	"reflect"
	"testing"

	"github.com/comroid-git/clmath/pkg/ast"
)

func v(name string) *ast.Var { return &ast.Var{Name: name} }
func n(value float64) *ast.Num { return &ast.Num{Value: value} }

func TestNodeKinds(t *testing.T) {
	nodes := []ast.Component{
		n(42),
		v("x"),
		&ast.Mem{},
		&ast.UnaryFunc{Func: ast.FuncSin, X: v("x")},
		&ast.Factorial{X: n(5)},
		&ast.Root{X: n(4)},
		&ast.Abs{X: n(-1)},
		&ast.Fraction{Numerator: n(1), Denominator: n(2)},
		&ast.BinaryOp{Op: ast.OpAdd, Left: n(1), Right: n(2)},
		&ast.FunctionCall{Name: "f"},
		&ast.Binding{Name: "a", X: n(1)},
		&ast.Parenthesized{X: n(1)},
		&ast.UnitAnnotation{Mode: ast.UnitApply, Symbol: "V", X: n(1)},
		&ast.Equation{Left: v("a"), Right: v("b")},
		&ast.Declaration{Name: "a", X: n(1)},
		&ast.TargetMarker{Name: "a"},
	}

	expected := []string{
		"Num", "Var", "Mem", "UnaryFunc", "Factorial", "Root", "Abs", "Fraction",
		"BinaryOp", "FunctionCall", "Binding", "Parenthesized", "UnitAnnotation",
		"Equation", "Declaration", "TargetMarker",
	}

	for i, node := range nodes {
		if got := node.Kind(); got != expected[i] {
			t.Errorf("node %d: got Kind() = %q, want %q", i, got, expected[i])
		}
	}
}

func TestVarsAndOccurrences(t *testing.T) {
	// sqrt(a^2+b^2) + a
	tree := &ast.BinaryOp{
		Op: ast.OpAdd,
		Left: &ast.Root{X: &ast.BinaryOp{
			Op:    ast.OpAdd,
			Left:  &ast.BinaryOp{Op: ast.OpPow, Left: v("a"), Right: n(2)},
			Right: &ast.BinaryOp{Op: ast.OpPow, Left: v("b"), Right: n(2)},
		}},
		Right: v("a"),
	}

	if got, want := ast.Vars(tree), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got Vars = %v, want %v", got, want)
	}
	if got := ast.Occurrences(tree, "a"); got != 2 {
		t.Errorf("got Occurrences(a) = %d, want 2", got)
	}
	if got := ast.Occurrences(tree, "c"); got != 0 {
		t.Errorf("got Occurrences(c) = %d, want 0", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &ast.FunctionCall{Name: "f", Bindings: []*ast.Binding{{Name: "a", X: n(1)}}}
	cp := ast.Clone(orig).(*ast.FunctionCall)

	if !reflect.DeepEqual(orig, cp) {
		t.Fatalf("clone differs from original: %#v", cp)
	}
	cp.Bindings[0].X.(*ast.Num).Value = 99
	if orig.Bindings[0].X.(*ast.Num).Value != 1 {
		t.Error("mutating the clone changed the original")
	}
}

func TestWalkSkipsChildren(t *testing.T) {
	tree := &ast.Parenthesized{X: &ast.BinaryOp{Op: ast.OpMul, Left: v("x"), Right: v("y")}}
	visited := 0
	ast.Walk(tree, func(c ast.Component) bool {
		visited++
		_, isOp := c.(*ast.BinaryOp)
		return !isOp
	})
	if visited != 2 {
		t.Errorf("got %d visited nodes, want 2", visited)
	}
}
