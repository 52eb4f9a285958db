package units

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/parser"
)

// Registry holds every finalized catalog. Lookups take a read lock; installing a catalog
// replaces the catalog map under the write lock.
type Registry struct {
	mu       sync.RWMutex
	catalogs map[string]*Catalog
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		catalogs: make(map[string]*Catalog),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns a finalized catalog by name.
func (r *Registry) Catalog(name string) (*Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.catalogs[name]
	return c, ok
}

// Catalogs lists the names of all finalized catalogs.
func (r *Registry) Catalogs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.catalogs)
}

// HasCatalog reports whether a catalog with the given name has been finalized.
func (r *Registry) HasCatalog(name string) bool {
	_, ok := r.Catalog(name)
	return ok
}

// Unit finds a unit by id.
func (r *Registry) Unit(id UnitID) (*Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.unitLocked(id)
}

func (r *Registry) unitLocked(id UnitID) (*Unit, bool) {
	c, ok := r.catalogs[id.Catalog]
	if !ok {
		return nil, false
	}
	return c.Unit(id.Symbol)
}

// Resolve maps a possibly prefixed symbol such as "kWh" onto a unit from the enabled catalogs.
// An exact symbol match wins over a prefix split, so "min" and "Wh" are never split.
func (r *Registry) Resolve(symbol string, enabled []string) (UnitID, Prefix, error) {
	symbol = normalizeMicro(strings.TrimSpace(symbol))
	if symbol == "" {
		return Dimensionless, None, unresolved("empty unit symbol")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if id, ok := r.exactLocked(symbol, enabled); ok {
		return id, None, nil
	}
	for _, p := range prefixes {
		if p.IsNone() || !strings.HasPrefix(symbol, p.ID) {
			continue
		}
		rest := symbol[len(p.ID):]
		if rest == "" {
			continue
		}
		if id, ok := r.exactLocked(rest, enabled); ok {
			return id, p, nil
		}
	}
	return Dimensionless, None, unresolved("unit %q not found in enabled catalogs %v", symbol, enabled)
}

func (r *Registry) exactLocked(symbol string, enabled []string) (UnitID, bool) {
	for _, name := range enabled {
		c, ok := r.catalogs[name]
		if !ok {
			continue
		}
		if u, ok := c.Unit(symbol); ok {
			return u.ID, true
		}
	}
	return Dimensionless, false
}

// DefineUnit adds a unit and its relations to catalog, creating the catalog if needed.
// Relations use unit file notation, e.g. "V*A=W".
func (r *Registry) DefineUnit(catalog, symbol, name string, relations ...string) error {
	b := r.Builder(catalog)
	if err := b.AddUnit(symbol, name); err != nil {
		return err
	}
	for _, rel := range relations {
		if err := b.AddRelationSource(rel); err != nil {
			return err
		}
	}
	return b.Finalize()
}

// DefineRelation adds a single relation to an existing catalog.
func (r *Registry) DefineRelation(catalog, relation string) error {
	if !r.HasCatalog(catalog) {
		return unresolved("catalog %q not found", catalog)
	}
	b := r.Builder(catalog)
	if err := b.AddRelationSource(relation); err != nil {
		return err
	}
	return b.Finalize()
}

// Builder starts a transactional definition of catalog. Existing units of the catalog stay
// visible to the builder; nothing is installed until Finalize succeeds.
func (r *Registry) Builder(catalog string) *Builder {
	return &Builder{registry: r, catalog: catalog}
}

type pendingUnit struct {
	symbol string
	name   string
}

// Builder accumulates units and relation candidates for one catalog.
type Builder struct {
	registry  *Registry
	catalog   string
	units     []pendingUnit
	relations []*ast.Equation
	finalized bool
}

// AddUnit declares a unit. Relations may reference it before or after this call.
func (b *Builder) AddUnit(symbol, name string) error {
	symbol = normalizeMicro(strings.TrimSpace(symbol))
	if symbol == "" {
		return errorf(diagnostics.EMalformed, "unit symbol must not be empty")
	}
	if strings.ContainsAny(symbol, " \t[]?") {
		return errorf(diagnostics.EMalformed, "invalid unit symbol %q", symbol)
	}
	for _, u := range b.units {
		if u.symbol == symbol {
			return errorf(diagnostics.EMalformed, "unit %q declared twice in catalog %q", symbol, b.catalog)
		}
	}
	if name == "" {
		name = symbol
	}
	b.units = append(b.units, pendingUnit{symbol: symbol, name: name})
	return nil
}

// AddRelation queues a parsed relation equation.
func (b *Builder) AddRelation(eq *ast.Equation) {
	b.relations = append(b.relations, eq)
}

// AddRelationSource parses and queues a relation such as "Wh/h=W".
func (b *Builder) AddRelationSource(source string) error {
	eq, diags := parser.ParseRelation(source, b.catalog)
	if len(diags) > 0 {
		return errorf(diags[0].Code, "%s", diags[0].Message)
	}
	b.AddRelation(eq)
	return nil
}

// AddUnitFile declares the unit described by a parsed unit file.
func (b *Builder) AddUnitFile(symbol string, file *ast.UnitFile) error {
	if err := b.AddUnit(symbol, file.Header); err != nil {
		return err
	}
	for _, eq := range file.Relations {
		b.AddRelation(eq)
	}
	return nil
}

// Finalize resolves every relation, closes them and installs the catalog. On failure the
// registry is left unchanged. A builder can be finalized only once.
func (b *Builder) Finalize() error {
	r := b.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.finalized {
		return errorf(diagnostics.EUnsupported, "catalog %q builder already finalized", b.catalog)
	}
	b.finalized = true

	working := make(map[string]*Catalog, len(r.catalogs)+1)
	for name, c := range r.catalogs {
		working[name] = c.clone()
	}
	cat, ok := working[b.catalog]
	if !ok {
		cat = newCatalog(b.catalog)
		working[b.catalog] = cat
	}

	for _, pu := range b.units {
		if existing, ok := cat.units[pu.symbol]; ok {
			existing.Name = pu.name
			continue
		}
		cat.units[pu.symbol] = newUnit(UnitID{Catalog: b.catalog, Symbol: pu.symbol}, pu.name)
	}

	lookup := func(symbol string) (*Unit, error) {
		symbol = normalizeMicro(symbol)
		if u, ok := cat.units[symbol]; ok {
			return u, nil
		}
		for _, name := range sortedNames(working) {
			if name == b.catalog {
				continue
			}
			if u, ok := working[name].units[symbol]; ok {
				return u, nil
			}
		}
		return nil, unresolved("unit %q referenced by catalog %q is not defined", symbol, b.catalog)
	}

	for _, eq := range b.relations {
		if err := applyRelation(eq, lookup); err != nil {
			r.logger.Debug("catalog rejected", "catalog", b.catalog, "error", err)
			return err
		}
	}

	r.catalogs = working
	r.logger.Debug("catalog installed", "catalog", b.catalog, "units", len(cat.units), "relations", len(b.relations))
	return nil
}

func applyRelation(eq *ast.Equation, lookup func(string) (*Unit, error)) error {
	op, ok := eq.Left.(*ast.BinaryOp)
	if !ok || (op.Op != ast.OpMul && op.Op != ast.OpDiv) {
		return errorf(diagnostics.EMalformed, "relation must be a product or quotient")
	}
	lhs, ok := op.Left.(*ast.Var)
	if !ok {
		return errorf(diagnostics.EMalformed, "relation must start with a unit symbol")
	}
	a, err := lookup(lhs.Name)
	if err != nil {
		return err
	}
	inverse := ast.OpDiv
	if op.Op == ast.OpDiv {
		inverse = ast.OpMul
	}

	switch rhs := op.Right.(type) {
	case *ast.Num:
		res, ok := eq.Right.(*ast.Var)
		if !ok {
			return errorf(diagnostics.EMalformed, "scalar relation must produce a unit")
		}
		c, err := lookup(res.Name)
		if err != nil {
			return err
		}
		if rhs.Value == 0 {
			return errorf(diagnostics.EMalformed, "scalar relation factor must not be zero")
		}
		a.setConversion(c.ID, op.Op, rhs.Value)
		c.setConversion(a.ID, inverse, rhs.Value)
		return nil

	case *ast.Var:
		bu, err := lookup(rhs.Name)
		if err != nil {
			return err
		}
		if _, numeric := eq.Right.(*ast.Num); numeric {
			a.setRelation(bu.ID, op.Op, Evaluator{Output: Dimensionless})
			bu.setRelation(a.ID, op.Op, Evaluator{Output: Dimensionless})
			return nil
		}
		res, ok := eq.Right.(*ast.Var)
		if !ok {
			return errorf(diagnostics.EMalformed, "relation result must be a unit or a number")
		}
		c, err := lookup(res.Name)
		if err != nil {
			return err
		}
		if op.Op == ast.OpMul {
			// A*B=C
			a.setRelation(bu.ID, ast.OpMul, Evaluator{Output: c.ID})
			bu.setRelation(a.ID, ast.OpMul, Evaluator{Output: c.ID})
			c.setRelation(a.ID, ast.OpDiv, Evaluator{Output: bu.ID})
			c.setRelation(bu.ID, ast.OpDiv, Evaluator{Output: a.ID})
		} else {
			// A/B=C
			a.setRelation(bu.ID, ast.OpDiv, Evaluator{Output: c.ID})
			a.setRelation(c.ID, ast.OpDiv, Evaluator{Output: bu.ID})
			c.setRelation(bu.ID, ast.OpMul, Evaluator{Output: a.ID})
			bu.setRelation(c.ID, ast.OpMul, Evaluator{Output: a.ID})
		}
		return nil
	}
	return errorf(diagnostics.EMalformed, "relation operand must be a unit or a number")
}

func sortedNames(m map[string]*Catalog) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
