// Package runtime provides the top-level clmath session orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/evaluator"
	"github.com/comroid-git/clmath/pkg/parser"
	"github.com/comroid-git/clmath/pkg/render"
	"github.com/comroid-git/clmath/pkg/solver"
	"github.com/comroid-git/clmath/pkg/units"
)

// ResultKind tells what a statement did.
type ResultKind string

const (
	KindValue       ResultKind = "value"
	KindDeclaration ResultKind = "declaration"
	KindTarget      ResultKind = "target"
	KindSolution    ResultKind = "solution"
)

// Result holds the outcome of one statement.
type Result struct {
	Kind  ResultKind
	Name  string
	Value units.Quantity
	Expr  ast.Component
}

// Format renders the result for display.
func (r *Result) Format(mode render.Mode) string {
	switch r.Kind {
	case KindDeclaration:
		return r.Name + " = " + r.Value.String()
	case KindTarget:
		return "@" + r.Name
	case KindSolution:
		return r.Name + " = " + render.Render(r.Expr, mode)
	}
	return r.Value.String()
}

// Runtime wires the parser, evaluator, unit registry and solver into one session.
type Runtime struct {
	registry  *units.Registry
	functions evaluator.FunctionStore
	constants *evaluator.Constants
	mode      evaluator.AngleMode
	maxDepth  int
	rng       *rand.Rand
	catalogs  []string
	logger    *slog.Logger

	eval   *evaluator.Evaluator
	solver *solver.Solver
	root   *evaluator.Context
	stack  []*Frame
	stash  []*Frame
	target string
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithRegistry sets the unit registry. Without it the embedded catalogs are loaded.
func WithRegistry(r *units.Registry) Option {
	return func(rt *Runtime) { rt.registry = r }
}

// WithFunctions sets the function store.
func WithFunctions(fs evaluator.FunctionStore) Option {
	return func(rt *Runtime) { rt.functions = fs }
}

// WithConstants sets the constant table.
func WithConstants(c *evaluator.Constants) Option {
	return func(rt *Runtime) { rt.constants = c }
}

// WithAngleMode sets the initial angle mode.
func WithAngleMode(m evaluator.AngleMode) Option {
	return func(rt *Runtime) { rt.mode = m }
}

// WithMaxDepth bounds function and variable recursion.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) { rt.maxDepth = n }
}

// WithRand sets the random source for rng_i and rng_d.
func WithRand(r *rand.Rand) Option {
	return func(rt *Runtime) { rt.rng = r }
}

// WithCatalogs sets the catalogs enabled in the session's root context.
func WithCatalogs(names ...string) Option {
	return func(rt *Runtime) { rt.catalogs = names }
}

// WithLogger sets the logger shared by all components.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// New creates a new Runtime with the given options.
// By default the embedded unit catalogs are loaded and enabled.
func New(opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		functions: evaluator.MapFunctions{},
		constants: evaluator.NewConstants(),
		catalogs:  units.DefaultCatalogs,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.registry == nil {
		rt.registry = units.NewRegistry(units.WithLogger(rt.logger))
		if err := units.LoadDefaults(rt.registry); err != nil {
			return nil, fmt.Errorf("load default catalogs: %w", err)
		}
	}

	evalOpts := []evaluator.Option{
		evaluator.WithRegistry(rt.registry),
		evaluator.WithFunctions(rt.functions),
		evaluator.WithConstants(rt.constants),
		evaluator.WithAngleMode(rt.mode),
		evaluator.WithMaxDepth(rt.maxDepth),
		evaluator.WithLogger(rt.logger),
	}
	if rt.rng != nil {
		evalOpts = append(evalOpts, evaluator.WithRand(rt.rng))
	}
	rt.eval = evaluator.New(evalOpts...)
	rt.solver = solver.New(solver.WithLogger(rt.logger))

	rt.root = evaluator.NewContext(nil)
	for _, name := range rt.catalogs {
		if err := rt.EnableCatalog(name); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// Context returns the active context: the innermost loaded function's scope, or the root.
func (rt *Runtime) Context() *evaluator.Context {
	if n := len(rt.stack); n > 0 {
		return rt.stack[n-1].Context
	}
	return rt.root
}

// Root returns the session's root context.
func (rt *Runtime) Root() *evaluator.Context { return rt.root }

// Evaluator returns the session's evaluator.
func (rt *Runtime) Evaluator() *evaluator.Evaluator { return rt.eval }

// Registry returns the unit registry.
func (rt *Runtime) Registry() *units.Registry { return rt.registry }

// Constants returns the constant table.
func (rt *Runtime) Constants() *evaluator.Constants { return rt.constants }

// Target returns the pending target variable set by "@name", if any.
func (rt *Runtime) Target() string { return rt.target }

// AngleMode returns the current angle mode.
func (rt *Runtime) AngleMode() evaluator.AngleMode { return rt.eval.AngleMode() }

// SetAngleMode changes the angle mode.
func (rt *Runtime) SetAngleMode(m evaluator.AngleMode) { rt.eval.SetAngleMode(m) }

// Exec parses and runs one statement. Declarations bind only after their value evaluates,
// and every successful evaluation is pushed to memory.
func (rt *Runtime) Exec(ctx context.Context, source string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node, diags := parser.Parse(source, "input")
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	scope := rt.Context()
	switch n := node.(type) {
	case *ast.TargetMarker:
		rt.target = n.Name
		rt.logger.Debug("target set", "name", n.Name, "context", scope.ID)
		return &Result{Kind: KindTarget, Name: n.Name}, nil

	case *ast.Declaration:
		q, err := rt.evaluate(n.X, scope)
		if err != nil {
			return nil, err
		}
		scope.Set(n.Name, n.X)
		rt.logger.Debug("variable declared", "name", n.Name, "value", q.String(), "context", scope.ID)
		return &Result{Kind: KindDeclaration, Name: n.Name, Value: q, Expr: n.X}, nil

	case *ast.Equation:
		if rt.target == "" {
			return nil, &solver.Error{Code: diagnostics.ETargetMissing, Message: "no target variable set; use @name first"}
		}
		solved, err := rt.solver.SolveEquation(n, rt.target)
		if err != nil {
			return nil, err
		}
		res := &Result{Kind: KindSolution, Name: rt.target, Expr: solved}
		rt.target = ""
		return res, nil
	}

	q, err := rt.evaluate(node, scope)
	if err != nil {
		return nil, err
	}
	if rt.target != "" {
		name := rt.target
		scope.Set(name, node)
		rt.target = ""
		return &Result{Kind: KindDeclaration, Name: name, Value: q, Expr: node}, nil
	}
	return &Result{Kind: KindValue, Value: q, Expr: node}, nil
}

func (rt *Runtime) evaluate(node ast.Component, scope *evaluator.Context) (units.Quantity, error) {
	q, err := rt.eval.Evaluate(node, scope)
	if err != nil {
		return units.Quantity{}, err
	}
	scope.Push(q)
	return q, nil
}

// Evaluate parses and evaluates a bare expression without binding anything.
func (rt *Runtime) Evaluate(ctx context.Context, source string) (units.Quantity, error) {
	if err := ctx.Err(); err != nil {
		return units.Quantity{}, err
	}
	node, diags := parser.ParseExpr(source, "input")
	if len(diags) > 0 {
		return units.Quantity{}, &DiagnosticError{Diagnostics: diags}
	}
	return rt.evaluate(node, rt.Context())
}

// Solve rearranges root for target in terms of substitute.
func (rt *Runtime) Solve(root ast.Component, target, substitute string) (ast.Component, error) {
	return rt.solver.Solve(root, target, substitute)
}

// SolveSource parses source and solves it for target. An equation or declaration supplies
// its own substitute variable; a bare expression needs substitute.
func (rt *Runtime) SolveSource(source, target, substitute string) (ast.Component, error) {
	node, diags := parser.Parse(source, "input")
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	switch node.(type) {
	case *ast.Equation, *ast.Declaration:
		return rt.solver.SolveEquation(node, target)
	}
	if substitute == "" {
		return nil, &solver.Error{Code: diagnostics.EMalformed, Message: "a substitute variable is required to solve a bare expression"}
	}
	return rt.solver.Solve(node, target, substitute)
}

// Render parses source and renders it in mode.
func (rt *Runtime) Render(source string, mode render.Mode) (string, error) {
	node, diags := parser.Parse(source, "input")
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return render.Render(node, mode), nil
}

// Missing lists the variables source needs that the session cannot resolve.
func (rt *Runtime) Missing(source string) ([]string, error) {
	node, diags := parser.ParseExpr(source, "input")
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	return rt.eval.MissingVariables(node, rt.Context()), nil
}

// EnableCatalog makes a finalized catalog visible to the active context.
func (rt *Runtime) EnableCatalog(name string) error {
	if !rt.registry.HasCatalog(name) {
		return &units.Error{Code: diagnostics.EUnresolved, Message: fmt.Sprintf("catalog %q not found", name)}
	}
	rt.Context().EnableCatalog(name)
	return nil
}

// DisableCatalog hides a catalog from the active context.
func (rt *Runtime) DisableCatalog(name string) bool {
	return rt.Context().DisableCatalog(name)
}

// ClearVars removes the active context's variables and the pending target.
func (rt *Runtime) ClearVars() {
	rt.Context().ClearVars()
	rt.target = ""
}

// ClearMem empties the active context's memory.
func (rt *Runtime) ClearMem() { rt.Context().ClearMem() }

// ClearAll drops every loaded function and stashed context, then clears the root's
// variables, memory and the pending target.
func (rt *Runtime) ClearAll() {
	rt.ClearStack()
	rt.ClearStash()
	rt.ClearVars()
	rt.ClearMem()
}

// Diagnose converts any error from the runtime into diagnostics.
func Diagnose(err error) []diagnostics.Diagnostic {
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Diagnostics
	}
	return []diagnostics.Diagnostic{diagnostics.FromError(err)}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// DiagCode returns the code of the first diagnostic.
func (e *DiagnosticError) DiagCode() string {
	if len(e.Diagnostics) == 0 {
		return diagnostics.EParse
	}
	return e.Diagnostics[0].Code
}
