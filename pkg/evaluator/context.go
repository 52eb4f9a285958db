package evaluator

import (
	"slices"

	"github.com/google/uuid"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/units"
)

// binding is an unevaluated variable. A nil scope means the expression is evaluated in
// whichever context looks it up.
type binding struct {
	expr  ast.Component
	scope *Context
}

// Context is a scope for variables, the memory stack and enabled unit catalogs.
// It supports parent-chained lookup; a child never mutates its parent.
type Context struct {
	ID       uuid.UUID
	parent   *Context
	vars     map[string]binding
	mem      []units.Quantity
	catalogs []string
	owner    ast.Component
}

// NewContext creates a context with an optional parent. The parent's enabled catalogs are
// copied at creation time.
func NewContext(parent *Context) *Context {
	c := &Context{
		ID:     uuid.New(),
		parent: parent,
		vars:   make(map[string]binding),
	}
	if parent != nil {
		c.catalogs = slices.Clone(parent.catalogs)
	}
	return c
}

// Child creates a new child scope whose parent is this context.
func (c *Context) Child() *Context {
	return NewContext(c)
}

// Parent returns the enclosing scope, or nil for the root.
func (c *Context) Parent() *Context { return c.parent }

// Set binds name to an expression evaluated wherever it is looked up.
func (c *Context) Set(name string, expr ast.Component) {
	c.vars[name] = binding{expr: expr}
}

// Bind binds name to an expression evaluated in scope.
func (c *Context) Bind(name string, expr ast.Component, scope *Context) {
	c.vars[name] = binding{expr: expr, scope: scope}
}

// Unset removes name from this scope only.
func (c *Context) Unset(name string) bool {
	_, ok := c.vars[name]
	delete(c.vars, name)
	return ok
}

// Get looks up a variable by name, traversing parent scopes.
func (c *Context) Get(name string) (ast.Component, bool) {
	b, ok := c.lookup(name)
	return b.expr, ok
}

func (c *Context) lookup(name string) (binding, bool) {
	for s := c; s != nil; s = s.parent {
		if b, ok := s.vars[name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

// Has checks whether a variable is defined in this scope or any parent.
func (c *Context) Has(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

// Names lists the visible variable names, own scope first, then each parent's.
func (c *Context) Names() []string {
	var out []string
	seen := make(map[string]bool)
	for s := c; s != nil; s = s.parent {
		own := make([]string, 0, len(s.vars))
		for name := range s.vars {
			if !seen[name] {
				own = append(own, name)
				seen[name] = true
			}
		}
		slices.Sort(own)
		out = append(out, own...)
	}
	return out
}

// ClearVars removes this scope's own bindings.
func (c *Context) ClearVars() { c.vars = make(map[string]binding) }

// Push records a computed value. Nothing is pushed when q equals the most recent entry.
func (c *Context) Push(q units.Quantity) {
	if n := len(c.mem); n > 0 && c.mem[n-1] == q {
		return
	}
	c.mem = append(c.mem, q)
}

// Mem reads the memory stack, 0 being the most recent entry. Indices past this scope's own
// entries continue in the parent.
func (c *Context) Mem(i int) (units.Quantity, bool) {
	for s := c; s != nil; s = s.parent {
		if i < 0 {
			return units.Quantity{}, false
		}
		if i < len(s.mem) {
			return s.mem[len(s.mem)-1-i], true
		}
		i -= len(s.mem)
	}
	return units.Quantity{}, false
}

// MemLen returns the number of entries in this scope's own memory.
func (c *Context) MemLen() int { return len(c.mem) }

// ClearMem empties this scope's own memory.
func (c *Context) ClearMem() { c.mem = nil }

// EnableCatalog makes a unit catalog visible to this scope.
func (c *Context) EnableCatalog(name string) {
	if !slices.Contains(c.catalogs, name) {
		c.catalogs = append(c.catalogs, name)
	}
}

// DisableCatalog hides a unit catalog from this scope.
func (c *Context) DisableCatalog(name string) bool {
	i := slices.Index(c.catalogs, name)
	if i < 0 {
		return false
	}
	c.catalogs = slices.Delete(c.catalogs, i, i+1)
	return true
}

// Catalogs returns the enabled catalog names in enable order.
func (c *Context) Catalogs() []string { return slices.Clone(c.catalogs) }

// SetOwner records the expression this scope evaluates on behalf of, usually a function body.
func (c *Context) SetOwner(owner ast.Component) { c.owner = owner }

// Owner returns the nearest owner set on this scope or a parent.
func (c *Context) Owner() ast.Component {
	for s := c; s != nil; s = s.parent {
		if s.owner != nil {
			return s.owner
		}
	}
	return nil
}
