// Package help holds the built-in reference text shown by "clmath guide" and the
// session's help command.
package help

import (
	"fmt"
	"sort"
	"strings"
)

// QUICKREF is the one-screen overview printed without a topic.
const QUICKREF = `clmath v0.3 quick reference

  1+2*3                 evaluate an expression
  230[V]*16[A]          attach units, result is 3.68[kW]
  3680[W][?]            renormalize the prefix
  U = 230[V]            declare a session variable
  @x                    set the solve target
  x^2 = y               solve for the target, result is x = sqrt(y)
  $ohm{U=230[V]}        call a saved function
  mem[0]                read the result memory

Topics: syntax, units, solver, functions, session, config, diagnostics, examples
Run "clmath guide <topic>" for details. Topic names may be abbreviated.
`

// TopicList is the display order of the topics.
var TopicList = []string{"syntax", "units", "solver", "functions", "session", "config", "diagnostics", "examples"}

// Topics maps a topic name to its text.
var Topics = map[string]string{
	"syntax": `Syntax

  Numbers      1, 2.5, .5
  Operators    + - * / % ^, postfix ! for factorial
  Grouping     (x+1), |x| for absolute value
  Fractions    frac(numerator)(denominator)
  Roots        sqrt(x), root[n](x)
  Functions    sin cos tan log, arcsin/asin arccos/acos arctan/atan
  Reserved     sec csc cot hyp parse but are not implemented
  Constants    pi e tau, rng_i and rng_d draw random numbers
  Memory       mem[i] reads entry i, mem reads the latest
  Units        value[unit], value[unit?] casts, value[?] renormalizes
`,
	"units": `Units

Units belong to catalogs. Each unit has a symbol, an optional name and relations
such as W = V*A that tell how products and quotients of units resolve. Only enabled
catalogs are visible to a session.

  clmath units list [catalog]
  clmath units define <catalog> <symbol> [name] --rel "W=V*A"
  clmath units relation <catalog> "W=V*A"
  clmath units enable|disable <catalog>

Symbols take SI prefixes from y (1e-24) to Y (1e24). Results are renormalized to
the prefix that keeps the value between 1 and 1000.
`,
	"solver": `Solver

The solver rearranges an expression for one variable by walking from the root to
the variable and inverting each step. The variable must occur exactly once.

  clmath solve "x^2" --for x --as y          sqrt(y)
  clmath solve "frac(b+c)(2)*d" --for d --as a

In a session, set a target with @name, then enter an equation f(name) = var.
Exponents with the variable in the exponent cannot be inverted.
`,
	"functions": `Saved functions

A saved function is an expression with optional default values. Calls bind
arguments in braces, defaults fill in what the call leaves out.

  clmath func save ohm "U/I" --var I=16[A]
  clmath eval '$ohm{U=230[V]}'
  clmath func show ohm
  clmath func rename ohm resistance
  clmath func delete resistance

Functions and constants are stored in a SQLite database (store.path).
`,
	"session": `Session

Every evaluated value is pushed onto the memory stack. Declarations bind names
for the rest of the session. Angle mode applies to trigonometric functions.

"load name" enters a scope owned by the function. Declarations made there stay
in that scope and "eval" evaluates the function with them. "drop" leaves the
scope, "stash" puts it aside with its variables and "restore" brings it back.

  help, exit, quit, list vars|mem|consts|funcs|stack|stash|units, set, unset,
  mode, enable, disable, save, load, eval, drop, stash, restore, rename, delete,
  clear vars|mem|stack|stash|all, solve, render, latex, missing
`,
	"config": `Configuration

clmath reads TOML from $CLMATH_CONFIG or ~/.config/clmath/config.toml.

  [engine]  angle_mode, max_depth, auto_eval
  [units]   dir, enabled
  [store]   path
  [output]  mode (plain or latex)
  [log]     level, format (text or json)
`,
	"diagnostics": `Diagnostics

  E_LEX, E_PARSE          malformed input (exit 2)
  E_TARGET_MISSING        no target set or target absent (exit 3)
  E_TARGET_AMBIGUOUS      target occurs more than once (exit 3)
  E_UNRESOLVED            unknown variable, unit, catalog or function (exit 4)
  E_DIMENSION             no relation combines the units (exit 4)
  E_UNSUPPORTED           operation cannot be evaluated or inverted (exit 4)
  E_NOT_IMPLEMENTED       reserved function (exit 4)
  E_RECURSION             evaluation nested too deep (exit 4)
  E_MALFORMED             malformed declaration (exit 4)
  E_IO, E_CONFIG, E_STORE infrastructure failures (exit 5)
`,
	"examples": `Examples

  clmath eval "230[V]*16[A]"                 3.68[kW]
  clmath eval "1[kWh]/1[h]"                  1[kW]
  clmath eval "2[min][s]"                    120[s]
  clmath --angle rad eval "sin(90)"          1
  clmath solve "sqrt(a^2+b^2)" --for b --as c
  clmath render --latex "frac(1)(x)"
`,
}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[query]; ok {
		return query, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if query != "" && strings.HasPrefix(name, query) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	case 1:
		return matches[0], Topics[matches[0]], nil
	}
	return "", "", fmt.Errorf("help topic %q is ambiguous: %s", query, strings.Join(matches, ", "))
}

// FunctionIndex lists the unary function names grouped by status.
func FunctionIndex(names map[string]bool) string {
	var implemented, reserved []string
	for name, ok := range names {
		if ok {
			implemented = append(implemented, name)
		} else {
			reserved = append(reserved, name)
		}
	}
	sort.Strings(implemented)
	sort.Strings(reserved)

	var b strings.Builder
	fmt.Fprintf(&b, "Implemented: %s\n", strings.Join(implemented, " "))
	if len(reserved) > 0 {
		fmt.Fprintf(&b, "Reserved:    %s\n", strings.Join(reserved, " "))
	}
	fmt.Fprintf(&b, "Total: %d functions\n", len(names))
	return b.String()
}
