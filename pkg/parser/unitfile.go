package parser

import (
	"fmt"
	"strings"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
)

// ParseUnitFile parses a unit relation file. The first non-empty line is the unit's display
// name; every further line declares one relation such as "V*A=W", "Wh/h=W" or "min*60=s".
// A single malformed line fails the whole file and no relations are returned.
func ParseUnitFile(source, filename string) (*ast.UnitFile, []diagnostics.Diagnostic) {
	file := &ast.UnitFile{Span: ast.Span{File: filename, StartLine: 1, StartCol: 1}}
	var diags []diagnostics.Diagnostic
	headerSeen := false

	for i, raw := range strings.Split(source, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ";"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !headerSeen {
			file.Header = line
			headerSeen = true
			continue
		}

		eq, lineDiags := parseRelationLine(line, filename, lineNo)
		if len(lineDiags) > 0 {
			diags = append(diags, lineDiags...)
			continue
		}
		file.Relations = append(file.Relations, eq)
	}

	if !headerSeen {
		diags = append(diags, diagnostics.MakeDiag(diagnostics.EMalformed,
			"unit file has no header line", &ast.Span{File: filename, StartLine: 1, StartCol: 1}, ""))
	}
	if len(diags) > 0 {
		return nil, diags
	}
	return file, nil
}

// ParseRelation parses a single relation declaration outside of a unit file.
func ParseRelation(source, filename string) (*ast.Equation, []diagnostics.Diagnostic) {
	return parseRelationLine(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(source), ";")), filename, 1)
}

func parseRelationLine(line, filename string, lineNo int) (*ast.Equation, []diagnostics.Diagnostic) {
	stmt, diags := Parse(line, filename)
	if len(diags) > 0 {
		for i := range diags {
			if diags[i].Span != nil {
				shifted := *diags[i].Span
				shifted.StartLine, shifted.EndLine = lineNo, lineNo
				diags[i].Span = &shifted
			}
		}
		return nil, diags
	}

	span := &ast.Span{File: filename, StartLine: lineNo, StartCol: 1, EndLine: lineNo, EndCol: len(line) + 1}
	malformed := func() (*ast.Equation, []diagnostics.Diagnostic) {
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EMalformed,
			fmt.Sprintf("invalid relation %q", line), span,
			"expected <symbol>(*|/)<symbol|number>=<symbol|number>")}
	}

	eq, ok := stmt.(*ast.Equation)
	if !ok {
		return malformed()
	}
	op, ok := eq.Left.(*ast.BinaryOp)
	if !ok || (op.Op != ast.OpMul && op.Op != ast.OpDiv) {
		return malformed()
	}
	if _, ok := op.Left.(*ast.Var); !ok {
		return malformed()
	}
	if !isSymbolOrNumber(op.Right) || !isSymbolOrNumber(eq.Right) {
		return malformed()
	}
	if _, rightNum := op.Right.(*ast.Num); rightNum {
		if _, resultNum := eq.Right.(*ast.Num); resultNum {
			return malformed()
		}
	}

	shiftSpans(eq, lineNo)
	return eq, nil
}

func isSymbolOrNumber(c ast.Component) bool {
	switch c.(type) {
	case *ast.Var, *ast.Num:
		return true
	}
	return false
}

// shiftSpans moves spans produced from a single-line parse onto the file line they came from.
func shiftSpans(eq *ast.Equation, lineNo int) {
	ast.Walk(eq, func(c ast.Component) bool {
		switch n := c.(type) {
		case *ast.Equation:
			n.Span.StartLine, n.Span.EndLine = lineNo, lineNo
		case *ast.BinaryOp:
			n.Span.StartLine, n.Span.EndLine = lineNo, lineNo
		case *ast.Var:
			n.Span.StartLine, n.Span.EndLine = lineNo, lineNo
		case *ast.Num:
			n.Span.StartLine, n.Span.EndLine = lineNo, lineNo
		}
		return true
	})
}
