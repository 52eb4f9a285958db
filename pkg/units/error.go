package units

import (
	"fmt"

	"github.com/comroid-git/clmath/pkg/diagnostics"
)

// Error is a unit resolution, definition or arithmetic failure.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string    { return e.Message }
func (e *Error) DiagCode() string { return e.Code }

func errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func unresolved(format string, args ...any) *Error {
	return errorf(diagnostics.EUnresolved, format, args...)
}
