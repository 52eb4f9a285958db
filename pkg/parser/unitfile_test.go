package parser_test

import (
	"testing"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/parser"
)

func TestParseUnitFile(t *testing.T) {
	src := "Volt\nV*A=W\n\n# comment\nV/A=Ω;\n"
	file, diags := parser.ParseUnitFile(src, "V.unit")
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if file.Header != "Volt" {
		t.Errorf("got header %q, want Volt", file.Header)
	}
	if len(file.Relations) != 2 {
		t.Fatalf("got %d relations, want 2", len(file.Relations))
	}

	first := file.Relations[0]
	op := asBinary(t, first.Left, ast.OpMul)
	expectVar(t, op.Left, "V")
	expectVar(t, op.Right, "A")
	expectVar(t, first.Right, "W")
	if first.Span.StartLine != 2 {
		t.Errorf("got line %d, want 2", first.Span.StartLine)
	}

	second := file.Relations[1]
	asBinary(t, second.Left, ast.OpDiv)
	expectVar(t, second.Right, "Ω")
	if second.Span.StartLine != 5 {
		t.Errorf("got line %d, want 5", second.Span.StartLine)
	}
}

func TestParseUnitFileScalarRelation(t *testing.T) {
	file, diags := parser.ParseUnitFile("Minute\nmin*60=s", "min.unit")
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	op := asBinary(t, file.Relations[0].Left, ast.OpMul)
	expectNum(t, op.Right, 60)
}

func TestParseUnitFileHeaderOnly(t *testing.T) {
	file, diags := parser.ParseUnitFile("Ampere\n", "A.unit")
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if file.Header != "Ampere" || len(file.Relations) != 0 {
		t.Errorf("got %#v", file)
	}
}

func TestParseUnitFileMalformed(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"addition", "Volt\nV+A=W"},
		{"declaration", "Volt\nW=V"},
		{"nested", "Volt\nV*A*B=W"},
		{"numeric both sides", "Volt\nV*2=3"},
		{"number on the left", "Volt\n2*V=W"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, diags := parser.ParseUnitFile(tt.source, "bad.unit")
			if len(diags) == 0 {
				t.Fatalf("expected diagnostics, got %#v", file)
			}
			if file != nil {
				t.Error("expected no partial result")
			}
			if diags[0].Code != diagnostics.EMalformed {
				t.Errorf("got code %q, want %q", diags[0].Code, diagnostics.EMalformed)
			}
		})
	}
}

func TestParseUnitFileSyntaxErrorKeepsLine(t *testing.T) {
	_, diags := parser.ParseUnitFile("Volt\nV*A=W\nV*(=W", "V.unit")
	if len(diags) == 0 {
		t.Fatal("expected diagnostics")
	}
	if diags[0].Span == nil || diags[0].Span.StartLine != 3 {
		t.Errorf("got span %+v, want line 3", diags[0].Span)
	}
}
