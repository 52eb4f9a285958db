package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/parser"
	"github.com/comroid-git/clmath/pkg/store"
)

func newStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(store.Config{Path: filepath.Join(t.TempDir(), "data", "clmath.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetFunction(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	saved, err := s.SaveFunction(ctx, "power", "U*I", map[string]string{"U": "230[V]"})
	if err != nil {
		t.Fatalf("SaveFunction() error = %v", err)
	}
	if saved.ID == "" {
		t.Error("SaveFunction() should assign an ID")
	}

	got, err := s.GetFunction(ctx, "power")
	if err != nil {
		t.Fatalf("GetFunction() error = %v", err)
	}
	if got == nil || got.Source != "U*I" || got.Defaults["U"] != "230[V]" || got.ID != saved.ID {
		t.Errorf("GetFunction() = %+v", got)
	}

	missing, err := s.GetFunction(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetFunction(nope) = %v, %v", missing, err)
	}
}

func TestSaveFunction_Replaces(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	first, err := s.SaveFunction(ctx, "f", "a+b", map[string]string{"a": "1", "b": "2"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SaveFunction(ctx, "f", "a*c", map[string]string{"c": "3"})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("replacing changed the ID from %s to %s", first.ID, second.ID)
	}

	got, err := s.GetFunction(ctx, "f")
	if err != nil {
		t.Fatal(err)
	}
	if got.Source != "a*c" || len(got.Defaults) != 1 || got.Defaults["c"] != "3" {
		t.Errorf("GetFunction() = %+v", got)
	}
	if names := got.SortedDefaults(); len(names) != 1 || names[0] != "c" {
		t.Errorf("SortedDefaults() = %v", names)
	}
}

func TestSaveFunction_Invalid(t *testing.T) {
	s := newStore(t)
	tests := []struct {
		name     string
		fn       string
		source   string
		defaults map[string]string
		code     string
	}{
		{"bad name", "1x", "x", nil, diagnostics.EMalformed},
		{"bad body", "f", "1 +", nil, diagnostics.EParse},
		{"bad default name", "f", "x", map[string]string{"a b": "1"}, diagnostics.EMalformed},
		{"bad default", "f", "x", map[string]string{"x": "("}, diagnostics.EParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SaveFunction(context.Background(), tt.fn, tt.source, tt.defaults)
			if diagnostics.CodeOf(err) != tt.code {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestListAndDeleteFunctions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := s.SaveFunction(ctx, name, "x", map[string]string{"x": "1"}); err != nil {
			t.Fatal(err)
		}
	}
	fns, err := s.ListFunctions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(fns) != 3 || fns[0].Name != "alpha" || fns[2].Name != "zeta" {
		t.Errorf("ListFunctions() = %v", fns)
	}

	deleted, err := s.DeleteFunction(ctx, "mid")
	if err != nil || !deleted {
		t.Fatalf("DeleteFunction() = %v, %v", deleted, err)
	}
	deleted, err = s.DeleteFunction(ctx, "mid")
	if err != nil || deleted {
		t.Errorf("second DeleteFunction() = %v, %v", deleted, err)
	}

	stats, err := s.Statistics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats["functions"] != 2 || stats["function_vars"] != 2 {
		t.Errorf("Statistics() = %v", stats)
	}
}

func TestRenameFunction(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	saved, err := s.SaveFunction(ctx, "power", "U*I", map[string]string{"U": "230[V]"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveFunction(ctx, "ohm", "U/I", nil); err != nil {
		t.Fatal(err)
	}

	renamed, err := s.RenameFunction(ctx, "power", "watts")
	if err != nil || !renamed {
		t.Fatalf("RenameFunction() = %v, %v", renamed, err)
	}
	if old, _ := s.GetFunction(ctx, "power"); old != nil {
		t.Error("old name still resolves after rename")
	}
	got, err := s.GetFunction(ctx, "watts")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != saved.ID || got.Source != "U*I" || got.Defaults["U"] != "230[V]" {
		t.Errorf("GetFunction(watts) = %+v", got)
	}

	tests := []struct {
		name, from, to string
		code           string
	}{
		{"onto existing", "watts", "ohm", diagnostics.EUnsupported},
		{"invalid name", "watts", "2w", diagnostics.EMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.RenameFunction(ctx, tt.from, tt.to); diagnostics.CodeOf(err) != tt.code {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}

	if renamed, err := s.RenameFunction(ctx, "nope", "other"); err != nil || renamed {
		t.Errorf("RenameFunction(nope) = %v, %v", renamed, err)
	}
	if ohm, _ := s.GetFunction(ctx, "ohm"); ohm == nil || ohm.Source != "U/I" {
		t.Errorf("failed rename touched ohm: %+v", ohm)
	}
}

func TestLookupFunctionEvaluates(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if _, err := s.SaveFunction(ctx, "ohm", "U/I", map[string]string{"I": "16"}); err != nil {
		t.Fatal(err)
	}

	fn, ok, err := s.LookupFunction("ohm")
	if err != nil || !ok {
		t.Fatalf("LookupFunction() = %v, %v, %v", fn, ok, err)
	}
	if fn.Defaults["I"] == nil {
		t.Error("LookupFunction() dropped defaults")
	}
	if _, ok, err := s.LookupFunction("nope"); ok || err != nil {
		t.Errorf("LookupFunction(nope) = %v, %v", ok, err)
	}

	e := evaluator.New(evaluator.WithFunctions(s))
	node, diags := parser.ParseExpr("$ohm{U=3680}", "test")
	if len(diags) > 0 {
		t.Fatal(diags)
	}
	ctxVars := evaluator.NewContext(nil)
	q, err := e.Evaluate(node, ctxVars)
	if err != nil {
		t.Fatal(err)
	}
	if q.Value != 230 {
		t.Errorf("got %v, want 230", q.Value)
	}
}

func TestConstants(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.SetConstant(ctx, "g", 9.81); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConstant(ctx, "g", 9.80665); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConstant(ctx, "c", 299792458); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConstant(ctx, "pi", 3); diagnostics.CodeOf(err) != diagnostics.EUnsupported {
		t.Errorf("SetConstant(pi) error = %v, want E_UNSUPPORTED", err)
	}

	consts, err := s.ListConstants(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(consts) != 2 || consts[0].Name != "c" || consts[1].Value != 9.80665 {
		t.Errorf("ListConstants() = %+v", consts)
	}

	table := evaluator.NewConstants()
	if err := s.LoadConstants(ctx, table); err != nil {
		t.Fatal(err)
	}
	if v, ok := table.Get("g"); !ok || v != 9.80665 {
		t.Errorf("table g = %v, %v", v, ok)
	}

	if deleted, err := s.DeleteConstant(ctx, "g"); err != nil || !deleted {
		t.Errorf("DeleteConstant() = %v, %v", deleted, err)
	}
	if deleted, err := s.DeleteConstant(ctx, "g"); err != nil || deleted {
		t.Errorf("second DeleteConstant() = %v, %v", deleted, err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clmath.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(store.Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveFunction(ctx, "sq", "x^2", nil); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = store.NewSQLiteStore(store.Config{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if fn, err := s.GetFunction(ctx, "sq"); err != nil || fn == nil || fn.Source != "x^2" {
		t.Errorf("GetFunction() after reopen = %v, %v", fn, err)
	}
}
