package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
// The lexer should never panic; invalid input must come back as an error.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		// Keywords
		`frac sqrt root mem`,
		// Numbers
		`42 3.14 0 .5 1e10 2.5E-3 2e`,
		// Operators
		`+ - * / % ^ !`,
		// Delimiters
		`{ } [ ] ( ) | = ; ? $ @`,
		// Identifiers and unit symbols
		`x foo bar_baz µA Ω kWh °C`,
		// Comments
		`# this is a comment`,
		// Mixed
		`230[V]*16[A]`,
		`frac(b+c)(2)*d`,
		`$ohm{U=230; I=16}`,
		// Edge cases
		``,
		`   `,
		"\t\n\r",
		`&~`,
		"\xff",
		`..`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Tokenize panicked on input %q: %v", input, r)
				}
			}()
			Tokenize(input, "fuzz.math")
		}()
	})
}
