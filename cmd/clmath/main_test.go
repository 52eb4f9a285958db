package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/runtime"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", errors.New("boom"), 1},
		{"parse", &runtime.DiagnosticError{Diagnostics: []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EParse, "bad", nil, "")}}, 2},
		{"target", &evaluator.RuntimeError{Code: diagnostics.ETargetMissing, Message: "no target"}, 3},
		{"unresolved", &evaluator.RuntimeError{Code: diagnostics.EUnresolved, Message: "x"}, 4},
		{"wrapped dimension", fmt.Errorf("eval: %w", &evaluator.RuntimeError{Code: diagnostics.EDimension}), 4},
		{"store", &evaluator.RuntimeError{Code: diagnostics.EStore}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"I=16[A]", " U = 230[V] "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["I"] != "16[A]" || got["U"] != "230[V]" {
		t.Errorf("unexpected assignments: %v", got)
	}

	if _, err := parseAssignments([]string{"novalue"}); diagnostics.CodeOf(err) != diagnostics.EMalformed {
		t.Errorf("expected %s, got %v", diagnostics.EMalformed, err)
	}
	if got, err := parseAssignments(nil); err != nil || got != nil {
		t.Errorf("expected nil map, got %v, %v", got, err)
	}
}

func TestShowGuide(t *testing.T) {
	var buf bytes.Buffer
	if err := showGuide(&buf, nil, false); err != nil {
		t.Fatalf("quickref: %v", err)
	}
	if !strings.Contains(buf.String(), "quick reference") {
		t.Errorf("unexpected quickref:\n%s", buf.String())
	}

	buf.Reset()
	if err := showGuide(&buf, []string{"solv"}, false); err != nil {
		t.Fatalf("topic: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Solver") {
		t.Errorf("unexpected topic:\n%s", buf.String())
	}

	buf.Reset()
	if err := showGuide(&buf, nil, true); err != nil {
		t.Fatalf("index: %v", err)
	}
	if !strings.Contains(buf.String(), "Reserved:    cot csc hyp sec") {
		t.Errorf("unexpected index:\n%s", buf.String())
	}

	if err := showGuide(&buf, []string{"nope"}, false); err == nil {
		t.Error("expected error for unknown topic")
	}
}

func TestWriteErrorWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	writeError(&buf, false, &evaluator.RuntimeError{Code: diagnostics.EUnresolved, Message: "variable depth is not defined"})
	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("unexpected escape sequence in %q", out)
	}
	if !strings.Contains(out, "error[E_UNRESOLVED]: variable depth is not defined") {
		t.Errorf("unexpected output %q", out)
	}
}
