package units_test

import (
	"math"
	"testing"

	"github.com/comroid-git/clmath/pkg/units"
)

func TestBestFit(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{3680, "k"},
		{230, ""},
		{1, ""},
		{999, ""},
		{1000, "k"},
		{-2500, "k"},
		{0.5, "m"},
		{2e-6, "µ"},
		{4.2e9, "G"},
		{0, ""},
		{1e30, ""},
		{1e-30, ""},
		{math.NaN(), ""},
		{math.Inf(1), ""},
	}
	for _, tt := range tests {
		if got := units.BestFit(tt.value); got.ID != tt.want {
			t.Errorf("BestFit(%v) = %q, want %q", tt.value, got.ID, tt.want)
		}
	}
}

func TestPrefixTableSkipsDecimalPrefixes(t *testing.T) {
	for _, id := range []string{"c", "d", "da", "h"} {
		if _, ok := units.LookupPrefix(id); ok {
			t.Errorf("prefix %q should not be supported", id)
		}
	}
	ps := units.Prefixes()
	if len(ps) != 17 {
		t.Fatalf("got %d prefixes, want 17", len(ps))
	}
	for i := 1; i < len(ps); i++ {
		if ps[i].Exp <= ps[i-1].Exp {
			t.Errorf("prefixes out of order at %d", i)
		}
	}
}

func TestLookupPrefixAcceptsGreekMu(t *testing.T) {
	p, ok := units.LookupPrefix("μ")
	if !ok || p.Exp != -6 || p.ID != "µ" {
		t.Errorf("got %+v %v, want micro", p, ok)
	}
}

func TestConvert(t *testing.T) {
	k, _ := units.LookupPrefix("k")
	m, _ := units.LookupPrefix("m")
	if got := units.Convert(3.68, k, units.None); got != 3680 {
		t.Errorf("got %v, want 3680", got)
	}
	if got := units.Convert(3680, units.None, k); got != 3.68 {
		t.Errorf("got %v, want 3.68", got)
	}
	if got := units.Convert(1, k, m); math.Abs(got-1e6) > 1e-6 {
		t.Errorf("got %v, want 1e6", got)
	}
}
