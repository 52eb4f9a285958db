package ast

// Children returns the direct children of c in source order.
func Children(c Component) []Component {
	switch n := c.(type) {
	case *Mem:
		if n.Index != nil {
			return []Component{n.Index}
		}
	case *UnaryFunc:
		return []Component{n.X}
	case *Factorial:
		return []Component{n.X}
	case *Root:
		if n.Index != nil {
			return []Component{n.X, n.Index}
		}
		return []Component{n.X}
	case *Abs:
		return []Component{n.X}
	case *Fraction:
		return []Component{n.Numerator, n.Denominator}
	case *BinaryOp:
		return []Component{n.Left, n.Right}
	case *FunctionCall:
		out := make([]Component, len(n.Bindings))
		for i, b := range n.Bindings {
			out[i] = b
		}
		return out
	case *Binding:
		return []Component{n.X}
	case *Parenthesized:
		return []Component{n.X}
	case *UnitAnnotation:
		return []Component{n.X}
	case *Equation:
		return []Component{n.Left, n.Right}
	case *Declaration:
		return []Component{n.X}
	}
	return nil
}

// Walk visits c and its descendants depth-first. Returning false from fn skips the node's children.
func Walk(c Component, fn func(Component) bool) {
	if c == nil || !fn(c) {
		return
	}
	for _, child := range Children(c) {
		Walk(child, fn)
	}
}

// Vars returns the distinct Var names in c in order of first appearance.
// Names bound by a FunctionCall's bindings are not reported; the binding expressions are.
func Vars(c Component) []string {
	var out []string
	seen := make(map[string]bool)
	Walk(c, func(n Component) bool {
		if v, ok := n.(*Var); ok && !seen[v.Name] {
			seen[v.Name] = true
			out = append(out, v.Name)
		}
		return true
	})
	return out
}

// Occurrences counts the Var leaves named name.
func Occurrences(c Component, name string) int {
	count := 0
	Walk(c, func(n Component) bool {
		if v, ok := n.(*Var); ok && v.Name == name {
			count++
		}
		return true
	})
	return count
}

// IsAtomic reports whether c renders as a single token-like unit that needs no grouping.
func IsAtomic(c Component) bool {
	switch c.(type) {
	case *Num, *Var, *Mem, *Parenthesized, *UnaryFunc, *Root, *Abs, *Fraction, *FunctionCall:
		return true
	}
	return false
}

// Clone returns a deep copy of c.
func Clone(c Component) Component {
	switch n := c.(type) {
	case nil:
		return nil
	case *Num:
		cp := *n
		return &cp
	case *Var:
		cp := *n
		return &cp
	case *Mem:
		return &Mem{Span: n.Span, Index: Clone(n.Index)}
	case *UnaryFunc:
		return &UnaryFunc{Span: n.Span, Func: n.Func, X: Clone(n.X)}
	case *Factorial:
		return &Factorial{Span: n.Span, X: Clone(n.X)}
	case *Root:
		return &Root{Span: n.Span, X: Clone(n.X), Index: Clone(n.Index)}
	case *Abs:
		return &Abs{Span: n.Span, X: Clone(n.X)}
	case *Fraction:
		return &Fraction{Span: n.Span, Numerator: Clone(n.Numerator), Denominator: Clone(n.Denominator)}
	case *BinaryOp:
		return &BinaryOp{Span: n.Span, Op: n.Op, Left: Clone(n.Left), Right: Clone(n.Right)}
	case *FunctionCall:
		bindings := make([]*Binding, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = Clone(b).(*Binding)
		}
		return &FunctionCall{Span: n.Span, Name: n.Name, Bindings: bindings}
	case *Binding:
		return &Binding{Span: n.Span, Name: n.Name, X: Clone(n.X)}
	case *Parenthesized:
		return &Parenthesized{Span: n.Span, X: Clone(n.X)}
	case *UnitAnnotation:
		return &UnitAnnotation{Span: n.Span, Mode: n.Mode, Symbol: n.Symbol, X: Clone(n.X)}
	case *Equation:
		return &Equation{Span: n.Span, Left: Clone(n.Left), Right: Clone(n.Right)}
	case *Declaration:
		return &Declaration{Span: n.Span, Name: n.Name, X: Clone(n.X)}
	case *TargetMarker:
		cp := *n
		return &cp
	}
	panic("ast.Clone: unknown component " + c.Kind())
}
