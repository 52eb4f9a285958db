// Package ast defines the clmath expression tree.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// Component is the closed set of expression tree variants.
type Component interface {
	Node
	component() // sealed marker
}

// Operator identifies a binary arithmetic operator.
type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
	OpMod Operator = "%"
	OpPow Operator = "^"
)

// FuncKind identifies a unary function.
type FuncKind string

const (
	FuncSin    FuncKind = "sin"
	FuncCos    FuncKind = "cos"
	FuncTan    FuncKind = "tan"
	FuncLog    FuncKind = "log"
	FuncSec    FuncKind = "sec"
	FuncCsc    FuncKind = "csc"
	FuncCot    FuncKind = "cot"
	FuncHyp    FuncKind = "hyp"
	FuncArcSin FuncKind = "arcsin"
	FuncArcCos FuncKind = "arccos"
	FuncArcTan FuncKind = "arctan"
)

// UnitMode selects what a UnitAnnotation does with its operand.
type UnitMode int

const (
	// UnitApply attaches the named unit to the operand, e.g. 230[V].
	UnitApply UnitMode = iota
	// UnitCast reinterprets the operand under the named unit without renormalizing, e.g. 3680[kW?].
	UnitCast
	// UnitNormalize recomputes the best-fit prefix only, e.g. x[?].
	UnitNormalize
)

// --- Leaves ---

type Num struct {
	Span  Span
	Value float64
}

func (n *Num) Kind() string   { return "Num" }
func (n *Num) NodeSpan() Span { return n.Span }
func (n *Num) component()     {}

type Var struct {
	Span Span
	Name string
}

func (n *Var) Kind() string   { return "Var" }
func (n *Var) NodeSpan() Span { return n.Span }
func (n *Var) component()     {}

// Mem reads the memory stack. A nil Index reads the most recent entry.
type Mem struct {
	Span  Span
	Index Component
}

func (n *Mem) Kind() string   { return "Mem" }
func (n *Mem) NodeSpan() Span { return n.Span }
func (n *Mem) component()     {}

// --- Functions ---

type UnaryFunc struct {
	Span Span
	Func FuncKind
	X    Component
}

func (n *UnaryFunc) Kind() string   { return "UnaryFunc" }
func (n *UnaryFunc) NodeSpan() Span { return n.Span }
func (n *UnaryFunc) component()     {}

type Factorial struct {
	Span Span
	X    Component
}

func (n *Factorial) Kind() string   { return "Factorial" }
func (n *Factorial) NodeSpan() Span { return n.Span }
func (n *Factorial) component()     {}

// Root is the Index-th root of X. A nil Index means square root.
type Root struct {
	Span  Span
	X     Component
	Index Component
}

func (n *Root) Kind() string   { return "Root" }
func (n *Root) NodeSpan() Span { return n.Span }
func (n *Root) component()     {}

type Abs struct {
	Span Span
	X    Component
}

func (n *Abs) Kind() string   { return "Abs" }
func (n *Abs) NodeSpan() Span { return n.Span }
func (n *Abs) component()     {}

type Fraction struct {
	Span        Span
	Numerator   Component
	Denominator Component
}

func (n *Fraction) Kind() string   { return "Fraction" }
func (n *Fraction) NodeSpan() Span { return n.Span }
func (n *Fraction) component()     {}

type BinaryOp struct {
	Span  Span
	Op    Operator
	Left  Component
	Right Component
}

func (n *BinaryOp) Kind() string   { return "BinaryOp" }
func (n *BinaryOp) NodeSpan() Span { return n.Span }
func (n *BinaryOp) component()     {}

// FunctionCall invokes a stored function, e.g. $ohm{U=230; I=16}.
type FunctionCall struct {
	Span     Span
	Name     string
	Bindings []*Binding
}

func (n *FunctionCall) Kind() string   { return "FunctionCall" }
func (n *FunctionCall) NodeSpan() Span { return n.Span }
func (n *FunctionCall) component()     {}

type Binding struct {
	Span Span
	Name string
	X    Component
}

func (n *Binding) Kind() string   { return "Binding" }
func (n *Binding) NodeSpan() Span { return n.Span }
func (n *Binding) component()     {}

type Parenthesized struct {
	Span Span
	X    Component
}

func (n *Parenthesized) Kind() string   { return "Parenthesized" }
func (n *Parenthesized) NodeSpan() Span { return n.Span }
func (n *Parenthesized) component()     {}

// UnitAnnotation attaches, casts or normalizes the unit of X. Symbol is empty for UnitNormalize.
type UnitAnnotation struct {
	Span   Span
	Mode   UnitMode
	Symbol string
	X      Component
}

func (n *UnitAnnotation) Kind() string   { return "UnitAnnotation" }
func (n *UnitAnnotation) NodeSpan() Span { return n.Span }
func (n *UnitAnnotation) component()     {}

// --- Structural markers ---

type Equation struct {
	Span  Span
	Left  Component
	Right Component
}

func (n *Equation) Kind() string   { return "Equation" }
func (n *Equation) NodeSpan() Span { return n.Span }
func (n *Equation) component()     {}

type Declaration struct {
	Span Span
	Name string
	X    Component
}

func (n *Declaration) Kind() string   { return "Declaration" }
func (n *Declaration) NodeSpan() Span { return n.Span }
func (n *Declaration) component()     {}

type TargetMarker struct {
	Span Span
	Name string
}

func (n *TargetMarker) Kind() string   { return "TargetMarker" }
func (n *TargetMarker) NodeSpan() Span { return n.Span }
func (n *TargetMarker) component()     {}

// --- Unit files ---

// UnitFile is a parsed unit relation file: a display name header and relation equations.
type UnitFile struct {
	Span      Span
	Header    string
	Relations []*Equation
}

func (n *UnitFile) Kind() string   { return "UnitFile" }
func (n *UnitFile) NodeSpan() Span { return n.Span }
