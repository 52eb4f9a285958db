package main

import (
	"context"
	"math"
	"testing"

	"github.com/comroid-git/clmath/internal/testutil"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/render"
	"github.com/comroid-git/clmath/pkg/runtime"
)

const numberTolerance = 1e-9

func TestConformance(t *testing.T) {
	scenarios, err := testutil.LoadScenarios(testutil.ScenariosFile)
	if err != nil {
		t.Fatalf("load scenarios: %v", err)
	}
	if len(scenarios) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			rt := newScenarioRuntime(t, sc)
			switch {
			case sc.Solve != nil:
				runSolve(t, rt, sc)
			case sc.Render != nil:
				runRender(t, rt, sc)
			default:
				runInput(t, rt, sc)
			}
		})
	}
}

func newScenarioRuntime(t *testing.T, sc testutil.Scenario) *runtime.Runtime {
	t.Helper()
	var opts []runtime.Option
	if sc.Angle != "" {
		mode, err := evaluator.ParseAngleMode(sc.Angle)
		if err != nil {
			t.Fatalf("scenario angle: %v", err)
		}
		opts = append(opts, runtime.WithAngleMode(mode))
	}
	rt, err := runtime.New(opts...)
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	return rt
}

func runInput(t *testing.T, rt *runtime.Runtime, sc testutil.Scenario) {
	t.Helper()
	ctx := context.Background()
	var (
		res *runtime.Result
		err error
	)
	for i, stmt := range sc.Input {
		res, err = rt.Exec(ctx, stmt)
		if err != nil && i < len(sc.Input)-1 {
			t.Fatalf("statement %d (%q): %v", i, stmt, err)
		}
	}
	if checkError(t, sc.Expect, err) {
		return
	}

	exp := sc.Expect
	if exp.Value != "" {
		if got := res.Value.String(); got != exp.Value {
			t.Errorf("value: got %q, want %q", got, exp.Value)
		}
	}
	if exp.Number != nil {
		if got := res.Value.Base(); math.Abs(got-*exp.Number) > numberTolerance {
			t.Errorf("number: got %v, want %v", got, *exp.Number)
		}
	}
	if exp.Output != "" {
		if got := res.Format(render.Plain); got != exp.Output {
			t.Errorf("output: got %q, want %q", got, exp.Output)
		}
	}
	if exp.Kind != "" && string(res.Kind) != exp.Kind {
		t.Errorf("kind: got %q, want %q", res.Kind, exp.Kind)
	}
}

func runSolve(t *testing.T, rt *runtime.Runtime, sc testutil.Scenario) {
	t.Helper()
	solved, err := rt.SolveSource(sc.Solve.Expr, sc.Solve.For, sc.Solve.As)
	if checkError(t, sc.Expect, err) {
		return
	}
	if got := render.Render(solved, render.Plain); got != sc.Expect.Output {
		t.Errorf("solve %s for %s: got %q, want %q", sc.Solve.Expr, sc.Solve.For, got, sc.Expect.Output)
	}
}

func runRender(t *testing.T, rt *runtime.Runtime, sc testutil.Scenario) {
	t.Helper()
	mode, ok := render.ParseMode(sc.Render.Mode)
	if !ok {
		t.Fatalf("unknown render mode %q", sc.Render.Mode)
	}
	got, err := rt.Render(sc.Render.Expr, mode)
	if checkError(t, sc.Expect, err) {
		return
	}
	if got != sc.Expect.Output {
		t.Errorf("render: got %q, want %q", got, sc.Expect.Output)
	}
}

// checkError verifies err against an expected code and reports whether the scenario ended
// in an error, so the caller stops checking values.
func checkError(t *testing.T, exp testutil.ExpectedResult, err error) bool {
	t.Helper()
	if exp.Code == "" {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return false
	}
	if err == nil {
		t.Fatalf("expected %s, got no error", exp.Code)
	}
	code := diagnostics.CodeOf(err)
	if code != exp.Code {
		t.Errorf("code: got %q, want %q (%v)", code, exp.Code, err)
	}
	if exp.Kind != "" {
		if kind := diagnostics.KindOf(code); string(kind) != exp.Kind {
			t.Errorf("kind: got %q, want %q", kind, exp.Kind)
		}
	}
	return true
}
