package units

import (
	"math"
	"strings"
)

// Prefix is an SI magnitude prefix. The zero value is the empty prefix.
type Prefix struct {
	ID  string
	Exp int
}

// Factor returns 10^Exp.
func (p Prefix) Factor() float64 { return math.Pow10(p.Exp) }

// IsNone reports whether p is the empty prefix.
func (p Prefix) IsNone() bool { return p.Exp == 0 }

// None is the empty prefix.
var None = Prefix{}

// prefixes is ordered by ascending exponent. Centi, deci, deca and hecto are not supported.
var prefixes = []Prefix{
	{"y", -24},
	{"z", -21},
	{"a", -18},
	{"f", -15},
	{"p", -12},
	{"n", -9},
	{"µ", -6},
	{"m", -3},
	None,
	{"k", 3},
	{"M", 6},
	{"G", 9},
	{"T", 12},
	{"P", 15},
	{"E", 18},
	{"Z", 21},
	{"Y", 24},
}

// Prefixes returns the supported prefixes in ascending order.
func Prefixes() []Prefix {
	out := make([]Prefix, len(prefixes))
	copy(out, prefixes)
	return out
}

// normalizeMicro maps the Greek small letter mu onto the micro sign.
func normalizeMicro(s string) string {
	return strings.ReplaceAll(s, "μ", "µ")
}

// LookupPrefix finds a prefix by its id. The empty id is None.
func LookupPrefix(id string) (Prefix, bool) {
	id = normalizeMicro(id)
	for _, p := range prefixes {
		if p.ID == id {
			return p, true
		}
	}
	return None, false
}

// Convert rescales value expressed with prefix from into prefix to.
func Convert(value float64, from, to Prefix) float64 {
	if from == to {
		return value
	}
	return value / to.Factor() * from.Factor()
}

// BestFit returns the largest prefix whose factor does not exceed |value| while the next
// prefix's factor does. Values outside the table, zero, NaN and Inf get None.
func BestFit(value float64) Prefix {
	abs := math.Abs(value)
	if abs == 0 || math.IsNaN(abs) || math.IsInf(abs, 0) {
		return None
	}
	for i := 0; i+1 < len(prefixes); i++ {
		if abs >= prefixes[i].Factor() && abs < prefixes[i+1].Factor() {
			return prefixes[i]
		}
	}
	return None
}
