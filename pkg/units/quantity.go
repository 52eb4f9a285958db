package units

import (
	"math"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/render"
)

// Quantity is a value with a unit and a magnitude prefix.
type Quantity struct {
	Value  float64
	Unit   UnitID
	Prefix Prefix
}

// Scalar returns a dimensionless quantity.
func Scalar(v float64) Quantity { return Quantity{Value: v} }

// Base returns the value rebased to the empty prefix.
func (q Quantity) Base() float64 { return Convert(q.Value, q.Prefix, None) }

// Rebase returns q expressed with the empty prefix.
func (q Quantity) Rebase() Quantity {
	return Quantity{Value: q.Base(), Unit: q.Unit}
}

// In returns q expressed with prefix p, without renormalizing.
func (q Quantity) In(p Prefix) Quantity {
	return Quantity{Value: Convert(q.Value, q.Prefix, p), Unit: q.Unit, Prefix: p}
}

// Normalize picks the best-fit prefix for q. Dimensionless quantities always use the empty prefix.
func (q Quantity) Normalize() Quantity {
	base := q.Base()
	if q.Unit.IsDimensionless() {
		return Quantity{Value: base}
	}
	p := BestFit(base)
	if p == q.Prefix {
		return q
	}
	return Quantity{Value: Convert(base, None, p), Unit: q.Unit, Prefix: p}
}

// String renders q as "3.68[kW]", or just the number when q is dimensionless.
func (q Quantity) String() string {
	s := render.Number(q.Value)
	if q.Unit.IsDimensionless() {
		return s
	}
	return s + "[" + q.Prefix.ID + q.Unit.Symbol + "]"
}

// ApproxEqual reports whether q and o have the same unit and base values within tol.
func (q Quantity) ApproxEqual(o Quantity, tol float64) bool {
	if q.Unit != o.Unit {
		return false
	}
	a, b := q.Base(), o.Base()
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// Multiply combines a and b through the unit relation table.
func (r *Registry) Multiply(a, b Quantity) (Quantity, error) {
	return r.combine(a, b, ast.OpMul)
}

// Divide divides a by b through the unit relation table.
func (r *Registry) Divide(a, b Quantity) (Quantity, error) {
	return r.combine(a, b, ast.OpDiv)
}

func (r *Registry) combine(a, b Quantity, op ast.Operator) (Quantity, error) {
	a, b = a.Rebase(), b.Rebase()

	ev, ok := r.relation(a.Unit, b.Unit, op)
	if !ok {
		switch {
		case a.Unit.IsDimensionless():
			ev = Evaluator{Output: b.Unit}
		case b.Unit.IsDimensionless():
			ev = Evaluator{Output: a.Unit}
		default:
			return Quantity{}, errorf(diagnostics.EDimension,
				"no evaluator found for %s%s%s", a.Unit, op, b.Unit)
		}
	}

	var v float64
	if op == ast.OpMul {
		v = a.Value * b.Value
	} else {
		v = a.Value / b.Value
	}
	return Quantity{Value: v, Unit: ev.Output}.Normalize(), nil
}

func (r *Registry) relation(a, b UnitID, op ast.Operator) (Evaluator, bool) {
	if a.IsDimensionless() {
		return Evaluator{}, false
	}
	u, ok := r.Unit(a)
	if !ok {
		return Evaluator{}, false
	}
	return u.Relation(b, op)
}

// Convert expresses q in unit to. Identical units only renormalize, a scalar relation
// such as "min*60=s" converts directly, and anything else multiplies by 1[to].
func (r *Registry) Convert(q Quantity, to UnitID) (Quantity, error) {
	if q.Unit == to {
		return q.Normalize(), nil
	}
	if u, ok := r.Unit(q.Unit); ok {
		if v, ok := u.ConvertValue(q.Base(), to); ok {
			return Quantity{Value: v, Unit: to}.Normalize(), nil
		}
	}
	return r.Multiply(q, Quantity{Value: 1, Unit: to})
}
