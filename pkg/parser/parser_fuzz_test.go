package parser_test

import (
	"testing"

	"github.com/comroid-git/clmath/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic; invalid input must come back as diagnostics.
func FuzzParse(f *testing.F) {
	seeds := []string{
		`1+2*3`,
		`3*2^2`,
		`frac(1)(2)`,
		`sqrt(a^2+b^2)`,
		`root[3](y*5)`,
		`|x-3|!`,
		`sin(90)`,
		`acos(P/S)`,
		`mem`,
		`mem[2]`,
		`$ohm{U=230; I=16}`,
		`230[V]*16[A]`,
		`3680[kW?]`,
		`x[?]`,
		`x = 5`,
		`x^2 = y`,
		`@x`,
		`-(-2)`,
		// Edge cases
		``,
		`(`,
		`)`,
		`frac(1)`,
		`root[](x)`,
		`$`,
		`$f{a=}`,
		`[V]`,
		`1 = = 2`,
		`|||`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Parse panicked on input %q: %v", input, r)
				}
			}()
			parser.Parse(input, "fuzz.math")
			parser.ParseUnitFile(input, "fuzz.unit")
		}()
	})
}
