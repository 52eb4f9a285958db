// Package parser implements the clmath expression parser.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
	"github.com/comroid-git/clmath/pkg/lexer"
)

// funcNames maps every accepted spelling of a unary function to its kind.
var funcNames = map[string]ast.FuncKind{
	"sin":    ast.FuncSin,
	"cos":    ast.FuncCos,
	"tan":    ast.FuncTan,
	"log":    ast.FuncLog,
	"sec":    ast.FuncSec,
	"csc":    ast.FuncCsc,
	"cot":    ast.FuncCot,
	"hyp":    ast.FuncHyp,
	"arcsin": ast.FuncArcSin,
	"asin":   ast.FuncArcSin,
	"arccos": ast.FuncArcCos,
	"acos":   ast.FuncArcCos,
	"arctan": ast.FuncArcTan,
	"atan":   ast.FuncArcTan,
}

// FunctionNames returns every spelling the parser accepts for a unary function.
func FunctionNames() map[string]ast.FuncKind {
	out := make(map[string]ast.FuncKind, len(funcNames))
	for name, kind := range funcNames {
		out[name] = kind
	}
	return out
}

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into a single statement: an expression, an equation,
// a declaration (name = expr) or a target marker (@name).
func Parse(source, filename string) (ast.Component, []diagnostics.Diagnostic) {
	p, diags := newParser(source, filename)
	if diags != nil {
		return nil, diags
	}
	stmt := p.parseStatement()
	if stmt != nil && p.peek() != lexer.TokEOF {
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected token '%s'", tok.Value), &tok.Span)
	}
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return stmt, nil
}

// ParseExpr parses source as a bare expression; equations and declarations are rejected.
func ParseExpr(source, filename string) (ast.Component, []diagnostics.Diagnostic) {
	p, diags := newParser(source, filename)
	if diags != nil {
		return nil, diags
	}
	expr := p.parseExpr()
	if expr != nil && p.peek() != lexer.TokEOF {
		tok := p.current()
		p.addError(fmt.Sprintf("unexpected token '%s'", tok.Value), &tok.Span)
	}
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return expr, nil
}

func newParser(source, filename string) (*parser, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}
	return &parser{tokens: tokens, pos: 0}, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		got := tok.Value
		if tok.Type == lexer.TokEOF {
			got = "end of input"
		}
		p.addError(fmt.Sprintf("expected %s, got '%s'", tokenName(typ), got), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func tokenName(t lexer.TokenType) string {
	switch t {
	case lexer.TokLBrace:
		return "'{'"
	case lexer.TokRBrace:
		return "'}'"
	case lexer.TokLBracket:
		return "'['"
	case lexer.TokRBracket:
		return "']'"
	case lexer.TokLParen:
		return "'('"
	case lexer.TokRParen:
		return "')'"
	case lexer.TokPipe:
		return "'|'"
	case lexer.TokEquals:
		return "'='"
	case lexer.TokIdent:
		return "identifier"
	case lexer.TokNumber:
		return "number"
	case lexer.TokEOF:
		return "end of input"
	default:
		return fmt.Sprintf("token(%d)", t)
	}
}

func (p *parser) parseStatement() ast.Component {
	switch {
	case p.peek() == lexer.TokAt:
		start := p.advance()
		name, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		return &ast.TargetMarker{Span: p.spanFromTo(start.Span, name.Span), Name: name.Value}

	case p.peek() == lexer.TokIdent && p.peekAt(1) == lexer.TokEquals:
		name := p.advance()
		p.advance() // '='
		value := p.parseExpr()
		if value == nil {
			return nil
		}
		return &ast.Declaration{Span: p.spanFromTo(name.Span, value.NodeSpan()), Name: name.Value, X: value}
	}

	left := p.parseExpr()
	if left == nil {
		return nil
	}
	if p.peek() != lexer.TokEquals {
		return left
	}
	p.advance()
	right := p.parseExpr()
	if right == nil {
		return nil
	}
	return &ast.Equation{Span: p.spanFromTo(left.NodeSpan(), right.NodeSpan()), Left: left, Right: right}
}

func (p *parser) parseExpr() ast.Component {
	return p.parseAdditive()
}

func (p *parser) parseAdditive() ast.Component {
	left := p.parseMultiplicative()
	if left == nil {
		return nil
	}

	for {
		var op ast.Operator
		switch p.peek() {
		case lexer.TokPlus:
			op = ast.OpAdd
		case lexer.TokMinus:
			op = ast.OpSub
		default:
			return left
		}
		p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) parseMultiplicative() ast.Component {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		var op ast.Operator
		switch p.peek() {
		case lexer.TokStar:
			op = ast.OpMul
		case lexer.TokSlash:
			op = ast.OpDiv
		case lexer.TokPercent:
			op = ast.OpMod
		default:
			return left
		}
		p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &ast.BinaryOp{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

// parseUnary folds a leading minus into a numeric literal; any other operand becomes -1*x.
func (p *parser) parseUnary() ast.Component {
	if p.peek() != lexer.TokMinus {
		return p.parsePower()
	}
	start := p.advance()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	span := p.spanFromTo(start.Span, operand.NodeSpan())
	if num, ok := operand.(*ast.Num); ok {
		return &ast.Num{Span: span, Value: -num.Value}
	}
	return &ast.BinaryOp{
		Span:  span,
		Op:    ast.OpMul,
		Left:  &ast.Num{Span: start.Span, Value: -1},
		Right: operand,
	}
}

// parsePower is right-associative: 2^3^2 is 2^(3^2).
func (p *parser) parsePower() ast.Component {
	base := p.parsePostfix()
	if base == nil {
		return nil
	}
	if p.peek() != lexer.TokCaret {
		return base
	}
	p.advance()
	exp := p.parseUnary()
	if exp == nil {
		return nil
	}
	return &ast.BinaryOp{
		Span:  p.spanFromTo(base.NodeSpan(), exp.NodeSpan()),
		Op:    ast.OpPow,
		Left:  base,
		Right: exp,
	}
}

func (p *parser) parsePostfix() ast.Component {
	expr := p.parsePrimary()
	if expr == nil {
		return nil
	}

	for {
		switch p.peek() {
		case lexer.TokBang:
			end := p.advance()
			expr = &ast.Factorial{Span: p.spanFromTo(expr.NodeSpan(), end.Span), X: expr}
		case lexer.TokLBracket:
			expr = p.parseUnitAnnotation(expr)
			if expr == nil {
				return nil
			}
		default:
			return expr
		}
	}
}

// parseUnitAnnotation parses [sym], [sym?] or [?] after an operand.
func (p *parser) parseUnitAnnotation(operand ast.Component) ast.Component {
	p.advance() // '['
	ann := &ast.UnitAnnotation{Mode: ast.UnitApply, X: operand}

	switch p.peek() {
	case lexer.TokQuestion:
		p.advance()
		ann.Mode = ast.UnitNormalize
	case lexer.TokIdent:
		ann.Symbol = p.advance().Value
		if p.peek() == lexer.TokQuestion {
			p.advance()
			ann.Mode = ast.UnitCast
		}
	default:
		tok := p.current()
		p.addError(fmt.Sprintf("expected unit symbol or '?', got '%s'", tok.Value), &tok.Span)
		return nil
	}

	end, ok := p.expect(lexer.TokRBracket)
	if !ok {
		return nil
	}
	ann.Span = p.spanFromTo(operand.NodeSpan(), end.Span)
	return ann
}

func (p *parser) parsePrimary() ast.Component {
	switch p.peek() {
	case lexer.TokNumber:
		tok := p.advance()
		val, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil && !strings.Contains(err.Error(), "value out of range") {
			p.addError(fmt.Sprintf("invalid number '%s'", tok.Value), &tok.Span)
			return nil
		}
		return &ast.Num{Span: tok.Span, Value: val}

	case lexer.TokIdent:
		tok := p.advance()
		if kind, ok := funcNames[tok.Value]; ok && p.peek() == lexer.TokLParen {
			x, end := p.parseGroup()
			if x == nil {
				return nil
			}
			return &ast.UnaryFunc{Span: p.spanFromTo(tok.Span, end), Func: kind, X: x}
		}
		return &ast.Var{Span: tok.Span, Name: tok.Value}

	case lexer.TokLParen:
		start := p.current().Span
		x, end := p.parseGroup()
		if x == nil {
			return nil
		}
		return &ast.Parenthesized{Span: p.spanFromTo(start, end), X: x}

	case lexer.TokFrac:
		start := p.advance()
		num, _ := p.parseGroup()
		if num == nil {
			return nil
		}
		den, end := p.parseGroup()
		if den == nil {
			return nil
		}
		return &ast.Fraction{Span: p.spanFromTo(start.Span, end), Numerator: num, Denominator: den}

	case lexer.TokSqrt:
		start := p.advance()
		x, end := p.parseGroup()
		if x == nil {
			return nil
		}
		return &ast.Root{Span: p.spanFromTo(start.Span, end), X: x}

	case lexer.TokRoot:
		start := p.advance()
		if _, ok := p.expect(lexer.TokLBracket); !ok {
			return nil
		}
		index := p.parseExpr()
		if index == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRBracket); !ok {
			return nil
		}
		x, end := p.parseGroup()
		if x == nil {
			return nil
		}
		return &ast.Root{Span: p.spanFromTo(start.Span, end), X: x, Index: index}

	case lexer.TokPipe:
		start := p.advance()
		x := p.parseExpr()
		if x == nil {
			return nil
		}
		end, ok := p.expect(lexer.TokPipe)
		if !ok {
			return nil
		}
		return &ast.Abs{Span: p.spanFromTo(start.Span, end.Span), X: x}

	case lexer.TokMem:
		start := p.advance()
		if p.peek() != lexer.TokLBracket {
			return &ast.Mem{Span: start.Span}
		}
		p.advance()
		index := p.parseExpr()
		if index == nil {
			return nil
		}
		end, ok := p.expect(lexer.TokRBracket)
		if !ok {
			return nil
		}
		return &ast.Mem{Span: p.spanFromTo(start.Span, end.Span), Index: index}

	case lexer.TokDollar:
		return p.parseFunctionCall()

	default:
		tok := p.current()
		if tok.Type == lexer.TokEOF {
			p.addError("unexpected end of input", &tok.Span)
		} else {
			p.addError(fmt.Sprintf("unexpected token '%s'", tok.Value), &tok.Span)
		}
		return nil
	}
}

// parseGroup parses '(' expr ')' and returns the inner expression and the span of ')'.
func (p *parser) parseGroup() (ast.Component, ast.Span) {
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil, ast.Span{}
	}
	x := p.parseExpr()
	if x == nil {
		return nil, ast.Span{}
	}
	end, ok := p.expect(lexer.TokRParen)
	if !ok {
		return nil, ast.Span{}
	}
	return x, end.Span
}

// parseFunctionCall parses $name or $name{a=1; b=2}.
func (p *parser) parseFunctionCall() ast.Component {
	start := p.advance() // '$'
	name, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	call := &ast.FunctionCall{Span: p.spanFromTo(start.Span, name.Span), Name: name.Value}
	if p.peek() != lexer.TokLBrace {
		return call
	}
	p.advance()

	for p.peek() != lexer.TokRBrace {
		key, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		if _, ok := p.expect(lexer.TokEquals); !ok {
			return nil
		}
		value := p.parseExpr()
		if value == nil {
			return nil
		}
		call.Bindings = append(call.Bindings, &ast.Binding{
			Span: p.spanFromTo(key.Span, value.NodeSpan()),
			Name: key.Value,
			X:    value,
		})
		if p.peek() != lexer.TokSemi {
			break
		}
		p.advance()
	}

	end, ok := p.expect(lexer.TokRBrace)
	if !ok {
		return nil
	}
	call.Span = p.spanFromTo(start.Span, end.Span)
	return call
}
