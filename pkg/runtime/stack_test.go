package runtime_test

import (
	"context"
	"testing"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/parser"
	"github.com/comroid-git/clmath/pkg/render"
	"github.com/comroid-git/clmath/pkg/runtime"
)

func stackRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	ohm, _ := parser.ParseExpr("U/I", "ohm")
	power, _ := parser.ParseExpr("U*I", "power")
	mains, _ := parser.ParseExpr("230[V]", "power.U")
	return newRuntime(t, runtime.WithFunctions(evaluator.MapFunctions{
		"ohm":   {Name: "ohm", Body: ohm},
		"power": {Name: "power", Body: power, Defaults: map[string]ast.Component{"U": mains}},
	}))
}

func frameNames(frames []*runtime.Frame) []string {
	var out []string
	for _, f := range frames {
		out = append(out, f.Name())
	}
	return out
}

func TestLoadFunctionScopesVariables(t *testing.T) {
	rt := stackRuntime(t)
	exec(t, rt, "U = 100[V]")

	f, err := rt.LoadFunction("ohm")
	if err != nil {
		t.Fatal(err)
	}
	if rt.Context() != f.Context || f.Context.Parent() != rt.Root() {
		t.Fatal("loaded function should own a child of the root context")
	}
	if f.Context.Owner() != f.Function.Body {
		t.Error("loaded scope should be owned by the function body")
	}

	if _, err := rt.EvaluateFrame(context.Background()); diagnostics.CodeOf(err) != diagnostics.EUnresolved {
		t.Errorf("got %v, want E_UNRESOLVED", err)
	}
	exec(t, rt, "I = 4[A]")
	q, err := rt.EvaluateFrame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if q.String() != "25[Ω]" {
		t.Errorf("got %s, want 25[Ω]", q)
	}
	if rt.Root().Has("I") {
		t.Error("declaration inside a loaded function leaked into the root")
	}

	if _, err := rt.Drop(); err != nil {
		t.Fatal(err)
	}
	if rt.Context() != rt.Root() || rt.Context().Has("I") {
		t.Error("drop should return to the root context")
	}
}

func TestLoadFunctionBindsDefaults(t *testing.T) {
	rt := stackRuntime(t)
	if _, err := rt.LoadFunction("power"); err != nil {
		t.Fatal(err)
	}
	exec(t, rt, "I = 16[A]")
	q, err := rt.EvaluateFrame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if q.String() != "3.68[kW]" {
		t.Errorf("got %s, want 3.68[kW]", q)
	}
	if got := exec(t, rt, "U = 400[V]").Format(render.Plain); got != "U = 400[V]" {
		t.Errorf("got %q", got)
	}
	if q, _ := rt.EvaluateFrame(context.Background()); q.String() != "6.4[kW]" {
		t.Errorf("got %s, want 6.4[kW]", q)
	}
}

func TestLoadUnknownFunction(t *testing.T) {
	rt := stackRuntime(t)
	if _, err := rt.LoadFunction("nope"); diagnostics.CodeOf(err) != diagnostics.EUnresolved {
		t.Errorf("got %v, want E_UNRESOLVED", err)
	}
	if rt.Frame() != nil {
		t.Error("failed load pushed a frame")
	}
}

func TestStashRestore(t *testing.T) {
	rt := stackRuntime(t)
	mustLoad := func(name string) {
		t.Helper()
		if _, err := rt.LoadFunction(name); err != nil {
			t.Fatal(err)
		}
	}
	mustLoad("ohm")
	exec(t, rt, "I = 2[A]")
	mustLoad("power")

	if got := frameNames(rt.Frames()); len(got) != 2 || got[0] != "power" || got[1] != "ohm" {
		t.Fatalf("stack = %v, want [power ohm]", got)
	}

	for range 2 {
		if _, err := rt.Stash(); err != nil {
			t.Fatal(err)
		}
	}
	if rt.Frame() != nil || len(rt.Frames()) != 0 {
		t.Error("stack should be empty after stashing both frames")
	}
	if got := frameNames(rt.Stashed()); len(got) != 2 || got[0] != "ohm" || got[1] != "power" {
		t.Errorf("stash = %v, want [ohm power]", got)
	}
	if _, err := rt.Stash(); diagnostics.CodeOf(err) != diagnostics.EUnsupported {
		t.Errorf("got %v, want E_UNSUPPORTED", err)
	}

	f, err := rt.Restore()
	if err != nil {
		t.Fatal(err)
	}
	if f.Name() != "ohm" || !rt.Context().Has("I") {
		t.Error("restore should bring back the stashed scope with its variables")
	}

	rt.ClearStash()
	if _, err := rt.Restore(); diagnostics.CodeOf(err) != diagnostics.EUnsupported {
		t.Errorf("got %v, want E_UNSUPPORTED", err)
	}
}

func TestDropRoot(t *testing.T) {
	rt := stackRuntime(t)
	if _, err := rt.Drop(); diagnostics.CodeOf(err) != diagnostics.EUnsupported {
		t.Errorf("got %v, want E_UNSUPPORTED", err)
	}
	if _, err := rt.EvaluateFrame(context.Background()); diagnostics.CodeOf(err) != diagnostics.EUnsupported {
		t.Errorf("got %v, want E_UNSUPPORTED", err)
	}
}

func TestClearAllDropsFrames(t *testing.T) {
	rt := stackRuntime(t)
	if _, err := rt.LoadFunction("ohm"); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Stash(); err != nil {
		t.Fatal(err)
	}
	if _, err := rt.LoadFunction("power"); err != nil {
		t.Fatal(err)
	}
	rt.ClearAll()
	if rt.Frame() != nil || len(rt.Stashed()) != 0 {
		t.Error("ClearAll left frames behind")
	}
}
