package solver_test

import (
	"math"
	"testing"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/parser"
	"github.com/comroid-git/clmath/pkg/render"
	"github.com/comroid-git/clmath/pkg/solver"
)

func parse(t *testing.T, src string) ast.Component {
	t.Helper()
	node, diags := parser.Parse(src, "solve.math")
	if len(diags) > 0 {
		t.Fatalf("parse %q: %v", src, diags)
	}
	return node
}

func TestSolve(t *testing.T) {
	tests := []struct {
		expr       string
		target     string
		substitute string
		want       string
	}{
		{"x^2", "x", "y", "sqrt(y)"},
		{"x^3", "x", "y", "root[3](y)"},
		{"(x^3)/5", "x", "y", "root[3](y*5)"},
		{"sqrt(a^2+b^2)", "b", "c", "sqrt(c^2-a^2)"},
		{"acos(P/S)", "P", "p", "cos(p)*S"},
		{"frac(XL)(2*pi*f)", "f", "L", "XL/L/2*pi"},
		{"frac(b+c)(2)*d", "b", "a", "a/d*2-c"},
		{"frac(b+c)(2)*d", "c", "a", "a/d*2-b"},
		{"frac(b+c)(2)*d", "d", "a", "a/(b+c)*2"},
		{"x-4", "x", "y", "y+4"},
		{"4-x", "x", "y", "4-y"},
		{"10/x", "x", "y", "10/y"},
		{"sin(x)", "x", "y", "arcsin(y)"},
		{"tan(x)", "x", "y", "arctan(y)"},
		{"x*a/b", "x", "y", "y*b/a"},
		{"x*(a/b)", "x", "y", "y/(a/b)"},
		{"x*frac(a)(b)", "x", "y", "y/a*b"},
	}
	s := solver.New()
	for _, tt := range tests {
		t.Run(tt.expr+" for "+tt.target, func(t *testing.T) {
			got, err := s.Solve(parse(t, tt.expr), tt.target, tt.substitute)
			if err != nil {
				t.Fatal(err)
			}
			if out := render.Render(got, render.Plain); out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestSolveLeavesInputUntouched(t *testing.T) {
	tree := parse(t, "frac(b+c)(2)*d")
	before := render.Render(tree, render.Plain)
	got, err := solver.New().Solve(tree, "d", "a")
	if err != nil {
		t.Fatal(err)
	}
	if after := render.Render(tree, render.Plain); after != before {
		t.Errorf("input changed from %q to %q", before, after)
	}

	// The result must not share nodes with the input.
	shared := map[ast.Component]bool{}
	ast.Walk(tree, func(c ast.Component) bool { shared[c] = true; return true })
	ast.Walk(got, func(c ast.Component) bool {
		if shared[c] {
			t.Errorf("result shares %s node with the input", c.Kind())
		}
		return true
	})
}

// TestSolveCorrectness substitutes the original's value and checks the target comes back.
func TestSolveCorrectness(t *testing.T) {
	tests := []struct {
		expr   string
		target string
		vars   map[string]float64
	}{
		{"x^2", "x", map[string]float64{"x": 3}},
		{"(x^3)/5", "x", map[string]float64{"x": 2}},
		{"sqrt(a^2+b^2)", "b", map[string]float64{"a": 3, "b": 4}},
		{"acos(P/S)", "P", map[string]float64{"P": 1, "S": 2}},
		{"frac(XL)(2*pi*f)", "f", map[string]float64{"XL": 10, "f": 3}},
		{"frac(b+c)(2)*d", "b", map[string]float64{"b": 1, "c": 3, "d": 5}},
		{"frac(b+c)(2)*d", "d", map[string]float64{"b": 1, "c": 3, "d": 5}},
		{"7-x*2", "x", map[string]float64{"x": 1.5}},
	}
	e := evaluator.New()
	for _, tt := range tests {
		t.Run(tt.expr+" for "+tt.target, func(t *testing.T) {
			tree := parse(t, tt.expr)
			ctx := evaluator.NewContext(nil)
			for name, v := range tt.vars {
				ctx.Set(name, &ast.Num{Value: v})
			}
			value, err := e.Evaluate(tree, ctx)
			if err != nil {
				t.Fatal(err)
			}

			solved, err := solver.New().Solve(tree, tt.target, "result")
			if err != nil {
				t.Fatal(err)
			}
			check := evaluator.NewContext(nil)
			for name, v := range tt.vars {
				if name != tt.target {
					check.Set(name, &ast.Num{Value: v})
				}
			}
			check.Set("result", &ast.Num{Value: value.Value})
			back, err := e.Evaluate(solved, check)
			if err != nil {
				t.Fatal(err)
			}
			if want := tt.vars[tt.target]; math.Abs(back.Value-want) > 1e-9 {
				t.Errorf("got %v back, want %v (solved as %s)", back.Value, want, render.Render(solved, render.Plain))
			}
		})
	}
}

func TestCheckTarget(t *testing.T) {
	if err := solver.CheckTarget(parse(t, "x+1"), "x"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := solver.CheckTarget(parse(t, "x+1"), "t")
	if diagnostics.CodeOf(err) != diagnostics.ETargetMissing || err.Error() != "Variable t was not found in function" {
		t.Errorf("got %v", err)
	}
	err = solver.CheckTarget(parse(t, "t*t"), "t")
	if diagnostics.CodeOf(err) != diagnostics.ETargetAmbiguous || err.Error() != "Variable t was found more than once" {
		t.Errorf("got %v", err)
	}
}

func TestSolveUnsupported(t *testing.T) {
	s := solver.New()
	for _, src := range []string{"2^x", "root[x](8)", "log(x)", "sec(x)", "x!", "|x|", "x%3", "$f{a=x}", "x[V]"} {
		t.Run(src, func(t *testing.T) {
			_, err := s.Solve(parse(t, src), "x", "y")
			if diagnostics.CodeOf(err) != diagnostics.EUnsupported {
				t.Errorf("got %v, want E_UNSUPPORTED", err)
			}
		})
	}
}

func TestSolveChecksTarget(t *testing.T) {
	_, err := solver.New().Solve(parse(t, "x*x"), "x", "y")
	if diagnostics.CodeOf(err) != diagnostics.ETargetAmbiguous {
		t.Errorf("got %v, want E_TARGET_AMBIGUOUS", err)
	}
}

func TestSolveEquation(t *testing.T) {
	s := solver.New()
	for _, src := range []string{"x^2 = y", "y = x^2"} {
		t.Run(src, func(t *testing.T) {
			got, err := s.SolveEquation(parse(t, src), "x")
			if err != nil {
				t.Fatal(err)
			}
			if out := render.Render(got, render.Plain); out != "sqrt(y)" {
				t.Errorf("got %q, want sqrt(y)", out)
			}
		})
	}

	for _, src := range []string{"x^2 = 2*y", "x^2", "@x"} {
		t.Run(src, func(t *testing.T) {
			_, err := s.SolveEquation(parse(t, src), "x")
			if diagnostics.CodeOf(err) != diagnostics.EMalformed {
				t.Errorf("got %v, want E_MALFORMED", err)
			}
		})
	}
}
