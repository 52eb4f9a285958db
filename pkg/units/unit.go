// Package units implements unit catalogs, magnitude prefixes and dimensional arithmetic.
package units

import (
	"sort"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/render"
)

// UnitID identifies a unit within a catalog. The zero value is the dimensionless unit.
type UnitID struct {
	Catalog string
	Symbol  string
}

// Dimensionless is the unit of plain numbers.
var Dimensionless = UnitID{}

// IsDimensionless reports whether id names no unit.
func (id UnitID) IsDimensionless() bool { return id.Symbol == "" }

func (id UnitID) String() string {
	if id.IsDimensionless() {
		return "1"
	}
	return id.Symbol
}

// Evaluator is the outcome of a relation: the unit of the result.
type Evaluator struct {
	Output UnitID
}

// conversion rescales a value into another unit: v*Factor or v/Factor depending on Op.
type conversion struct {
	Op     ast.Operator
	Factor float64
}

func (c conversion) apply(v float64) float64 {
	if c.Op == ast.OpDiv {
		return v / c.Factor
	}
	return v * c.Factor
}

type relationKey struct {
	Other UnitID
	Op    ast.Operator
}

// Unit is a named unit with its relation table and its scalar conversions.
// Conversions come from relations like "min*60=s" and are only used to express a
// quantity in another unit, never for arithmetic with plain numbers.
type Unit struct {
	ID          UnitID
	Name        string
	relations   map[relationKey]Evaluator
	conversions map[UnitID]conversion
}

func newUnit(id UnitID, name string) *Unit {
	return &Unit{
		ID:          id,
		Name:        name,
		relations:   make(map[relationKey]Evaluator),
		conversions: make(map[UnitID]conversion),
	}
}

// Relation returns how this unit combines with other under op.
func (u *Unit) Relation(other UnitID, op ast.Operator) (Evaluator, bool) {
	ev, ok := u.relations[relationKey{Other: other, Op: op}]
	return ev, ok
}

func (u *Unit) setRelation(other UnitID, op ast.Operator, ev Evaluator) {
	u.relations[relationKey{Other: other, Op: op}] = ev
}

// ConvertValue rescales v, given in this unit, into to. It reports false when no
// scalar relation links the two units.
func (u *Unit) ConvertValue(v float64, to UnitID) (float64, bool) {
	c, ok := u.conversions[to]
	if !ok {
		return 0, false
	}
	return c.apply(v), true
}

func (u *Unit) setConversion(to UnitID, op ast.Operator, factor float64) {
	u.conversions[to] = conversion{Op: op, Factor: factor}
}

// Relation describes one entry of a unit's relation table. Factor is set for scalar
// conversions, whose Other is Dimensionless.
type Relation struct {
	Unit   UnitID
	Op     ast.Operator
	Other  UnitID
	Output UnitID
	Factor *float64
}

// String renders the relation in unit file notation, e.g. "V*A=W" or "min*60=s".
func (r Relation) String() string {
	rhs := r.Other.String()
	if r.Factor != nil {
		rhs = render.Number(*r.Factor)
	}
	return r.Unit.String() + string(r.Op) + rhs + "=" + r.Output.String()
}

// Relations lists the unit's relation table in a stable order.
func (u *Unit) Relations() []Relation {
	out := make([]Relation, 0, len(u.relations)+len(u.conversions))
	for key, ev := range u.relations {
		out = append(out, Relation{Unit: u.ID, Op: key.Op, Other: key.Other, Output: ev.Output})
	}
	for to, c := range u.conversions {
		factor := c.Factor
		out = append(out, Relation{Unit: u.ID, Op: c.Op, Other: Dimensionless, Output: to, Factor: &factor})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Op != out[j].Op {
			return out[i].Op < out[j].Op
		}
		if out[i].Other.Symbol != out[j].Other.Symbol {
			return out[i].Other.Symbol < out[j].Other.Symbol
		}
		return out[i].Output.Symbol < out[j].Output.Symbol
	})
	return out
}

func (u *Unit) clone() *Unit {
	c := newUnit(u.ID, u.Name)
	for k, v := range u.relations {
		c.relations[k] = v
	}
	for k, v := range u.conversions {
		c.conversions[k] = v
	}
	return c
}

// Catalog is a named collection of units.
type Catalog struct {
	Name  string
	units map[string]*Unit
}

func newCatalog(name string) *Catalog {
	return &Catalog{Name: name, units: make(map[string]*Unit)}
}

// Unit finds a unit by its exact symbol.
func (c *Catalog) Unit(symbol string) (*Unit, bool) {
	u, ok := c.units[symbol]
	return u, ok
}

// Units lists the catalog's units sorted by symbol.
func (c *Catalog) Units() []*Unit {
	out := make([]*Unit, 0, len(c.units))
	for _, u := range c.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Symbol < out[j].ID.Symbol })
	return out
}

func (c *Catalog) clone() *Catalog {
	cp := newCatalog(c.Name)
	for sym, u := range c.units {
		cp.units[sym] = u.clone()
	}
	return cp
}
