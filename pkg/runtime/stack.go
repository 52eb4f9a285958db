package runtime

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/units"
)

// Frame is a loaded function together with the scope its variables are declared in.
type Frame struct {
	Function *evaluator.Function
	Context  *evaluator.Context
}

// Name returns the loaded function's name.
func (f *Frame) Name() string { return f.Function.Name }

func stackErr(format string, args ...any) error {
	return &evaluator.RuntimeError{Code: diagnostics.EUnsupported, Message: fmt.Sprintf(format, args...)}
}

// LoadFunction looks name up in the function store and loads it with Load.
func (rt *Runtime) LoadFunction(name string) (*Frame, error) {
	fn, ok, err := rt.functions.LookupFunction(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &evaluator.RuntimeError{Code: diagnostics.EUnresolved, Message: fmt.Sprintf("function %s is not defined", name)}
	}
	return rt.Load(fn), nil
}

// Load pushes a child of the root context owned by fn. The function's defaults are bound
// in the new scope, so later declarations override them without touching the root.
func (rt *Runtime) Load(fn *evaluator.Function) *Frame {
	scope := rt.root.Child()
	scope.SetOwner(fn.Body)
	for name, expr := range fn.Defaults {
		scope.Set(name, expr)
	}
	f := &Frame{Function: fn, Context: scope}
	rt.stack = append(rt.stack, f)
	rt.logger.Debug("function loaded", "name", fn.Name, "context", scope.ID, "depth", len(rt.stack))
	return f
}

// Frame returns the innermost loaded function, or nil when the root is active.
func (rt *Runtime) Frame() *Frame {
	if n := len(rt.stack); n > 0 {
		return rt.stack[n-1]
	}
	return nil
}

// Frames lists the loaded functions, innermost first.
func (rt *Runtime) Frames() []*Frame {
	out := slices.Clone(rt.stack)
	slices.Reverse(out)
	return out
}

// Stashed lists the stashed functions, most recently stashed first.
func (rt *Runtime) Stashed() []*Frame {
	out := slices.Clone(rt.stash)
	slices.Reverse(out)
	return out
}

// Drop discards the innermost loaded function. The root context cannot be dropped.
func (rt *Runtime) Drop() (*Frame, error) {
	f, ok := pop(&rt.stack)
	if !ok {
		return nil, stackErr("no function is loaded")
	}
	rt.logger.Debug("function dropped", "name", f.Name(), "context", f.Context.ID)
	return f, nil
}

// Stash moves the innermost loaded function onto the stash, keeping its variables.
func (rt *Runtime) Stash() (*Frame, error) {
	f, ok := pop(&rt.stack)
	if !ok {
		return nil, stackErr("no function is loaded")
	}
	rt.stash = append(rt.stash, f)
	return f, nil
}

// Restore moves the most recently stashed function back onto the stack.
func (rt *Runtime) Restore() (*Frame, error) {
	f, ok := pop(&rt.stash)
	if !ok {
		return nil, stackErr("nothing is stashed")
	}
	rt.stack = append(rt.stack, f)
	return f, nil
}

// ClearStack drops every loaded function.
func (rt *Runtime) ClearStack() { rt.stack = nil }

// ClearStash discards every stashed function.
func (rt *Runtime) ClearStash() { rt.stash = nil }

// EvaluateFrame evaluates the innermost loaded function in its own scope. Variables the
// scope cannot resolve are reported together.
func (rt *Runtime) EvaluateFrame(ctx context.Context) (units.Quantity, error) {
	if err := ctx.Err(); err != nil {
		return units.Quantity{}, err
	}
	f := rt.Frame()
	if f == nil {
		return units.Quantity{}, stackErr("no function is loaded")
	}
	if missing := rt.eval.MissingVariables(f.Function.Body, f.Context); len(missing) > 0 {
		return units.Quantity{}, &evaluator.RuntimeError{
			Code:    diagnostics.EUnresolved,
			Message: fmt.Sprintf("%s is missing %s", f.Name(), strings.Join(missing, ", ")),
		}
	}
	return rt.evaluate(f.Function.Body, f.Context)
}

func pop(s *[]*Frame) (*Frame, bool) {
	n := len(*s)
	if n == 0 {
		return nil, false
	}
	f := (*s)[n-1]
	*s = (*s)[:n-1]
	return f, true
}
