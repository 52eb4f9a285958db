// Package diagnostics defines clmath diagnostic types for parse, evaluation and solver errors.
package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/comroid-git/clmath/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex             = "E_LEX"
	EParse           = "E_PARSE"
	EUnresolved      = "E_UNRESOLVED"
	EUnsupported     = "E_UNSUPPORTED"
	ENotImplemented  = "E_NOT_IMPLEMENTED"
	ERecursion       = "E_RECURSION"
	EDimension       = "E_DIMENSION"
	EMalformed       = "E_MALFORMED"
	ETargetMissing   = "E_TARGET_MISSING"
	ETargetAmbiguous = "E_TARGET_AMBIGUOUS"
	EIO              = "E_IO"
	EConfig          = "E_CONFIG"
	EStore           = "E_STORE"
)

// Kind groups diagnostic codes into the error taxonomy reported to users.
type Kind string

const (
	KindUnresolvedReference   Kind = "UnresolvedReference"
	KindUnsupportedOperation  Kind = "UnsupportedOperation"
	KindDimensionalMismatch   Kind = "DimensionalMismatch"
	KindMalformedDeclaration  Kind = "MalformedDeclaration"
	KindPreconditionViolation Kind = "PreconditionViolation"
	KindInfrastructure        Kind = "Infrastructure"
)

// KindOf maps a diagnostic code to its taxonomy kind.
func KindOf(code string) Kind {
	switch code {
	case EUnresolved:
		return KindUnresolvedReference
	case EUnsupported, ENotImplemented, ERecursion:
		return KindUnsupportedOperation
	case EDimension:
		return KindDimensionalMismatch
	case EMalformed, ELex, EParse:
		return KindMalformedDeclaration
	case ETargetMissing, ETargetAmbiguous:
		return KindPreconditionViolation
	default:
		return KindInfrastructure
	}
}

// Diagnostic represents a parse, evaluation, or solver diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// Coded is implemented by errors that carry a diagnostic code.
type Coded interface {
	error
	DiagCode() string
}

// Spanned is implemented by errors that know where in the source they happened.
type Spanned interface {
	DiagSpan() *ast.Span
}

// FromError converts err into a diagnostic. Errors without a code become E_IO.
func FromError(err error) Diagnostic {
	var coded Coded
	if !errors.As(err, &coded) {
		return MakeDiag(EIO, err.Error(), nil, "")
	}
	var span *ast.Span
	var spanned Spanned
	if errors.As(err, &spanned) {
		span = spanned.DiagSpan()
	}
	return MakeDiag(coded.DiagCode(), coded.Error(), span, "")
}

// CodeOf returns the diagnostic code carried by err, or the empty string.
func CodeOf(err error) string {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.DiagCode()
	}
	return ""
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	out := fmt.Sprintf("error[%s]: %s", d.Code, d.Message)
	if d.Span != nil && d.Span.StartLine > 0 {
		out += fmt.Sprintf("\n  --> %s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
