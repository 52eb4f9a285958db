// Package evaluator computes quantities from expression trees.
package evaluator

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/units"
)

// DefaultMaxDepth bounds nested function calls and variable indirections.
const DefaultMaxDepth = 256

// RuntimeError represents an error raised while evaluating a tree.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
}

func (e *RuntimeError) Error() string { return e.Message }

// DiagCode returns the diagnostic code.
func (e *RuntimeError) DiagCode() string { return e.Code }

// DiagSpan returns the location of the failing node, if known.
func (e *RuntimeError) DiagSpan() *ast.Span { return e.Span }

func errAt(node ast.Component, code, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: spanOf(node)}
}

func spanOf(node ast.Component) *ast.Span {
	if node == nil {
		return nil
	}
	s := node.NodeSpan()
	if s.StartLine == 0 {
		return nil
	}
	return &s
}

// Evaluator evaluates trees against a Context. It keeps no per-call state, so one Evaluator
// may serve several goroutines as long as each uses its own Context.
type Evaluator struct {
	registry  *units.Registry
	functions FunctionStore
	constants *Constants
	maxDepth  int
	logger    *slog.Logger

	mu   sync.Mutex
	mode AngleMode
	rng  *rand.Rand
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRegistry sets the unit registry used for annotations and dimensional arithmetic.
func WithRegistry(r *units.Registry) Option {
	return func(e *Evaluator) { e.registry = r }
}

// WithFunctions sets the store consulted by FunctionCall nodes.
func WithFunctions(fs FunctionStore) Option {
	return func(e *Evaluator) { e.functions = fs }
}

// WithConstants replaces the constant table.
func WithConstants(c *Constants) Option {
	return func(e *Evaluator) { e.constants = c }
}

// WithAngleMode sets the initial angle mode.
func WithAngleMode(m AngleMode) Option {
	return func(e *Evaluator) { e.mode = m }
}

// WithMaxDepth bounds recursion. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithRand sets the random source for rng_i and rng_d.
func WithRand(r *rand.Rand) Option {
	return func(e *Evaluator) { e.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		registry:  units.NewRegistry(),
		functions: MapFunctions{},
		constants: NewConstants(),
		maxDepth:  DefaultMaxDepth,
		logger:    slog.New(slog.DiscardHandler),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the unit registry.
func (e *Evaluator) Registry() *units.Registry { return e.registry }

// Constants returns the constant table.
func (e *Evaluator) Constants() *Constants { return e.constants }

// Functions returns the function store.
func (e *Evaluator) Functions() FunctionStore { return e.functions }

// AngleMode returns the current angle mode.
func (e *Evaluator) AngleMode() AngleMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetAngleMode changes the angle mode for subsequent evaluations.
func (e *Evaluator) SetAngleMode(m AngleMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = m
}

func (e *Evaluator) random(integer bool) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if integer {
		return float64(e.rng.Int())
	}
	return e.rng.Float64()
}

// Evaluate computes node in ctx.
func (e *Evaluator) Evaluate(node ast.Component, ctx *Context) (units.Quantity, error) {
	if ctx == nil {
		ctx = NewContext(nil)
	}
	c := &call{e: e, mode: e.AngleMode(), resolving: make(map[string]bool)}
	return c.eval(node, ctx)
}

// call holds the state of a single Evaluate invocation.
type call struct {
	e         *Evaluator
	mode      AngleMode
	resolving map[string]bool
	depth     int
}

func (c *call) enter(node ast.Component, what string) error {
	c.depth++
	if c.depth > c.e.maxDepth {
		return errAt(node, diagnostics.ERecursion, "maximum evaluation depth %d exceeded while resolving %s", c.e.maxDepth, what)
	}
	return nil
}

func (c *call) leave() { c.depth-- }

func (c *call) eval(node ast.Component, ctx *Context) (units.Quantity, error) {
	switch n := node.(type) {
	case *ast.Num:
		return units.Scalar(n.Value), nil

	case *ast.Var:
		return c.evalVar(n, ctx)

	case *ast.Mem:
		i := 0
		if n.Index != nil {
			idx, err := c.eval(n.Index, ctx)
			if err != nil {
				return units.Quantity{}, err
			}
			i = int(idx.Base())
		}
		q, ok := ctx.Mem(i)
		if !ok {
			return units.Quantity{}, errAt(n, diagnostics.EUnresolved, "memory index %d is out of range", i)
		}
		return q, nil

	case *ast.UnaryFunc:
		return c.evalFunc(n, ctx)

	case *ast.Factorial:
		x, err := c.eval(n.X, ctx)
		if err != nil {
			return units.Quantity{}, err
		}
		return units.Quantity{Value: factorial(x.Base()), Unit: x.Unit}.Normalize(), nil

	case *ast.Root:
		x, err := c.eval(n.X, ctx)
		if err != nil {
			return units.Quantity{}, err
		}
		index := 2.0
		if n.Index != nil {
			idx, err := c.eval(n.Index, ctx)
			if err != nil {
				return units.Quantity{}, err
			}
			index = idx.Base()
		}
		return units.Scalar(math.Pow(x.Base(), 1/index)), nil

	case *ast.Abs:
		x, err := c.eval(n.X, ctx)
		if err != nil {
			return units.Quantity{}, err
		}
		return units.Quantity{Value: math.Abs(x.Base()), Unit: x.Unit}.Normalize(), nil

	case *ast.Fraction:
		return c.evalArith(n, ast.OpDiv, n.Numerator, n.Denominator, ctx)

	case *ast.BinaryOp:
		return c.evalArith(n, n.Op, n.Left, n.Right, ctx)

	case *ast.FunctionCall:
		return c.evalCall(n, ctx)

	case *ast.Parenthesized:
		x, err := c.eval(n.X, ctx)
		if err != nil {
			return units.Quantity{}, err
		}
		return x.Normalize(), nil

	case *ast.UnitAnnotation:
		return c.evalUnit(n, ctx)

	case *ast.Equation, *ast.Declaration, *ast.TargetMarker, *ast.Binding:
		return units.Quantity{}, errAt(n, diagnostics.EUnsupported, "%s cannot be evaluated", n.Kind())
	}
	return units.Quantity{}, errAt(node, diagnostics.EUnsupported, "unknown node %T", node)
}

func (c *call) evalVar(n *ast.Var, ctx *Context) (units.Quantity, error) {
	switch n.Name {
	case RandomInt:
		return units.Scalar(c.e.random(true)), nil
	case RandomFloat:
		return units.Scalar(c.e.random(false)), nil
	}
	if v, ok := c.e.constants.Get(n.Name); ok {
		return units.Scalar(v), nil
	}
	b, ok := ctx.lookup(n.Name)
	if !ok {
		return units.Quantity{}, errAt(n, diagnostics.EUnresolved, "variable %s is not defined", n.Name)
	}
	if err := c.enter(n, n.Name); err != nil {
		return units.Quantity{}, err
	}
	defer c.leave()
	scope := b.scope
	if scope == nil {
		scope = ctx
	}
	return c.eval(b.expr, scope)
}

// Implemented reports whether the evaluator can compute f. The others parse but are reserved.
func Implemented(f ast.FuncKind) bool {
	switch f {
	case ast.FuncSec, ast.FuncCsc, ast.FuncCot, ast.FuncHyp:
		return false
	}
	return true
}

func (c *call) evalFunc(n *ast.UnaryFunc, ctx *Context) (units.Quantity, error) {
	if !Implemented(n.Func) {
		return units.Quantity{}, errAt(n, diagnostics.ENotImplemented, "function %s is not implemented", n.Func)
	}
	x, err := c.eval(n.X, ctx)
	if err != nil {
		return units.Quantity{}, err
	}
	v := x.Base()
	var r float64
	switch n.Func {
	case ast.FuncSin:
		r = math.Sin(c.mode.In(v))
	case ast.FuncCos:
		r = math.Cos(c.mode.In(v))
	case ast.FuncTan:
		r = math.Tan(c.mode.In(v))
	case ast.FuncArcSin:
		r = c.mode.Out(math.Asin(v))
	case ast.FuncArcCos:
		r = c.mode.Out(math.Acos(v))
	case ast.FuncArcTan:
		r = c.mode.Out(math.Atan(v))
	case ast.FuncLog:
		r = math.Log(v)
	default:
		return units.Quantity{}, errAt(n, diagnostics.EUnsupported, "unknown function %s", n.Func)
	}
	return units.Scalar(r), nil
}

func (c *call) evalArith(node ast.Component, op ast.Operator, left, right ast.Component, ctx *Context) (units.Quantity, error) {
	a, err := c.eval(left, ctx)
	if err != nil {
		return units.Quantity{}, err
	}
	b, err := c.eval(right, ctx)
	if err != nil {
		return units.Quantity{}, err
	}

	switch op {
	case ast.OpMul, ast.OpDiv:
		var q units.Quantity
		if op == ast.OpMul {
			q, err = c.e.registry.Multiply(a, b)
		} else {
			q, err = c.e.registry.Divide(a, b)
		}
		if err != nil {
			return units.Quantity{}, withSpan(err, node)
		}
		return q, nil
	}

	x, y := a.Base(), b.Base()
	switch op {
	case ast.OpAdd, ast.OpSub:
		unit := units.Dimensionless
		if a.Unit == b.Unit {
			unit = a.Unit
		}
		v := x + y
		if op == ast.OpSub {
			v = x - y
		}
		return units.Quantity{Value: v, Unit: unit}.Normalize(), nil
	case ast.OpMod:
		return units.Quantity{Value: math.Mod(x, y), Unit: a.Unit}.Normalize(), nil
	case ast.OpPow:
		return units.Quantity{Value: math.Pow(x, y), Unit: a.Unit}.Normalize(), nil
	}
	return units.Quantity{}, errAt(node, diagnostics.EUnsupported, "unknown operator %q", op)
}

func (c *call) evalCall(n *ast.FunctionCall, ctx *Context) (units.Quantity, error) {
	var (
		fn  *Function
		ok  bool
		err error
	)
	if c.e.functions != nil {
		fn, ok, err = c.e.functions.LookupFunction(n.Name)
		if err != nil {
			return units.Quantity{}, fmt.Errorf("lookup function %s: %w", n.Name, err)
		}
	}
	if !ok || fn == nil || fn.Body == nil {
		c.e.logger.Debug("function not found", "name", n.Name, "context", ctx.ID)
		return units.Scalar(math.NaN()), nil
	}
	if c.resolving[n.Name] {
		return units.Quantity{}, errAt(n, diagnostics.ERecursion, "function %s calls itself", n.Name)
	}

	child := ctx.Child()
	child.SetOwner(fn.Body)
	for name, expr := range fn.Defaults {
		if !ctx.Has(name) {
			child.Set(name, expr)
		}
	}
	for _, b := range n.Bindings {
		child.Bind(b.Name, b.X, ctx)
	}

	if err := c.enter(n, "$"+n.Name); err != nil {
		return units.Quantity{}, err
	}
	c.resolving[n.Name] = true
	defer func() {
		delete(c.resolving, n.Name)
		c.leave()
	}()

	c.e.logger.Debug("evaluating function", "name", n.Name, "context", child.ID, "depth", c.depth)
	return c.eval(fn.Body, child)
}

func (c *call) evalUnit(n *ast.UnitAnnotation, ctx *Context) (units.Quantity, error) {
	x, err := c.eval(n.X, ctx)
	if err != nil {
		return units.Quantity{}, err
	}
	if n.Mode == ast.UnitNormalize {
		return x.Normalize(), nil
	}

	id, prefix, err := c.e.registry.Resolve(n.Symbol, ctx.Catalogs())
	if err != nil {
		return units.Quantity{}, withSpan(err, n)
	}

	if n.Mode == ast.UnitCast {
		return units.Quantity{Value: x.Base(), Unit: id, Prefix: prefix}, nil
	}
	if x.Unit.IsDimensionless() {
		return units.Quantity{Value: x.Base(), Unit: id, Prefix: prefix}.Normalize(), nil
	}
	q, err := c.e.registry.Convert(x, id)
	if err != nil {
		return units.Quantity{}, withSpan(err, n)
	}
	return q, nil
}

// factorial truncates x and multiplies down to 1. Results past 170! overflow to +Inf.
func factorial(x float64) float64 {
	if math.IsNaN(x) {
		return x
	}
	n := math.Trunc(x)
	if n > 170 {
		return math.Inf(1)
	}
	r := 1.0
	for i := n; i > 1; i-- {
		r *= i
	}
	return r
}

// withSpan turns a coded error from a lower layer into a RuntimeError located at node.
func withSpan(err error, node ast.Component) error {
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return err
	}
	code := diagnostics.CodeOf(err)
	if code == "" {
		return err
	}
	return &RuntimeError{Code: code, Message: err.Error(), Span: spanOf(node)}
}
