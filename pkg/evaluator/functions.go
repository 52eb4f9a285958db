package evaluator

import (
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
)

// Function is a stored expression callable as $name{...}. Defaults supply values for
// variables the caller leaves undefined.
type Function struct {
	Name     string
	Body     ast.Component
	Defaults map[string]ast.Component
}

// FunctionStore resolves function names for FunctionCall nodes.
type FunctionStore interface {
	LookupFunction(name string) (*Function, bool, error)
}

// MapFunctions is an in-memory FunctionStore.
type MapFunctions map[string]*Function

// LookupFunction implements FunctionStore.
func (m MapFunctions) LookupFunction(name string) (*Function, bool, error) {
	fn, ok := m[name]
	return fn, ok, nil
}

// AngleMode selects how trigonometric functions interpret their input.
type AngleMode int

const (
	Deg AngleMode = iota
	Rad
	Grad
)

func (m AngleMode) String() string {
	switch m {
	case Rad:
		return "rad"
	case Grad:
		return "grad"
	default:
		return "deg"
	}
}

func (m AngleMode) factor() float64 {
	switch m {
	case Rad:
		return math.Pi / 180
	case Grad:
		return 1.111111111
	default:
		return 1
	}
}

// In converts a trigonometric argument into the mode.
func (m AngleMode) In(x float64) float64 { return x * m.factor() }

// Out converts an inverse trigonometric result back out of the mode.
func (m AngleMode) Out(x float64) float64 { return x / m.factor() }

// ParseAngleMode accepts deg, rad or grad in any case.
func ParseAngleMode(s string) (AngleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deg", "d", "":
		return Deg, nil
	case "rad", "r":
		return Rad, nil
	case "grad", "g":
		return Grad, nil
	}
	return Deg, &RuntimeError{Code: diagnostics.EConfig, Message: "unknown angle mode " + s}
}

// Names reserved for random number generation.
const (
	RandomInt   = "rng_i"
	RandomFloat = "rng_d"
)

var builtinConstants = map[string]float64{
	"pi":  math.Pi,
	"e":   math.E,
	"tau": 2 * math.Pi,
}

// Constants is the global constant table. pi, e and tau are always present.
type Constants struct {
	mu     sync.RWMutex
	values map[string]float64
}

// NewConstants creates a table holding the built-in constants.
func NewConstants() *Constants {
	c := &Constants{values: make(map[string]float64, len(builtinConstants))}
	for k, v := range builtinConstants {
		c.values[k] = v
	}
	return c
}

// IsBuiltin reports whether name is a constant that cannot be changed.
func IsBuiltin(name string) bool {
	_, ok := builtinConstants[name]
	return ok || name == RandomInt || name == RandomFloat
}

// Get returns a constant's value.
func (c *Constants) Get(name string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	return v, ok
}

// Set defines or replaces a user constant.
func (c *Constants) Set(name string, v float64) error {
	if IsBuiltin(name) {
		return &RuntimeError{Code: diagnostics.EUnsupported, Message: "constant " + name + " is built in"}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = v
	return nil
}

// Unset removes a user constant.
func (c *Constants) Unset(name string) bool {
	if IsBuiltin(name) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[name]
	delete(c.values, name)
	return ok
}

// Names lists all constants sorted by name.
func (c *Constants) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
