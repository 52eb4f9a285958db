package evaluator

import (
	"github.com/comroid-git/clmath/pkg/ast"
)

// FreeVariables lists the variables node depends on, in first-seen order. A FunctionCall
// contributes the free variables of the called function minus the names its bindings
// shadow, plus those of the binding expressions.
func (e *Evaluator) FreeVariables(node ast.Component) []string {
	var out []string
	e.collectFree(node, &out, make(map[string]bool), make(map[string]bool), false)
	return out
}

// MissingVariables lists the free variables of node that ctx cannot resolve. Function
// defaults count as resolvable.
func (e *Evaluator) MissingVariables(node ast.Component, ctx *Context) []string {
	var free []string
	e.collectFree(node, &free, make(map[string]bool), make(map[string]bool), true)
	var missing []string
	for _, name := range free {
		if name == RandomInt || name == RandomFloat {
			continue
		}
		if _, ok := e.constants.Get(name); ok {
			continue
		}
		if ctx != nil && ctx.Has(name) {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

func (e *Evaluator) collectFree(node ast.Component, out *[]string, seen, visiting map[string]bool, defaults bool) {
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			*out = append(*out, name)
		}
	}
	ast.Walk(node, func(c ast.Component) bool {
		switch n := c.(type) {
		case *ast.Var:
			add(n.Name)
		case *ast.FunctionCall:
			for _, b := range n.Bindings {
				e.collectFree(b.X, out, seen, visiting, defaults)
			}
			if visiting[n.Name] || e.functions == nil {
				return false
			}
			fn, ok, err := e.functions.LookupFunction(n.Name)
			if err != nil || !ok || fn == nil || fn.Body == nil {
				return false
			}
			shadowed := make(map[string]bool, len(n.Bindings))
			for _, b := range n.Bindings {
				shadowed[b.Name] = true
			}
			if defaults {
				for name := range fn.Defaults {
					shadowed[name] = true
				}
			}
			visiting[n.Name] = true
			var inner []string
			e.collectFree(fn.Body, &inner, make(map[string]bool), visiting, defaults)
			delete(visiting, n.Name)
			for _, name := range inner {
				if !shadowed[name] {
					add(name)
				}
			}
			return false
		}
		return true
	})
}
