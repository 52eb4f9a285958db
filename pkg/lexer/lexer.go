// Package lexer implements the clmath expression tokenizer.
package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/comroid-git/clmath/pkg/ast"
	"github.com/comroid-git/clmath/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokFrac TokenType = iota
	TokSqrt
	TokRoot
	TokMem

	// Literals
	TokNumber

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace   // {
	TokRBrace   // }
	TokLBracket // [
	TokRBracket // ]
	TokLParen   // (
	TokRParen   // )
	TokPipe     // |
	TokEquals   // =
	TokSemi     // ;
	TokQuestion // ?
	TokDollar   // $
	TokAt       // @

	// Arithmetic operators
	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %
	TokCaret   // ^
	TokBang    // !

	// Special
	TokEOF
)

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

var keywords = map[string]TokenType{
	"frac": TokFrac,
	"sqrt": TokSqrt,
	"root": TokRoot,
	"mem":  TokMem,
}

var punctuation = map[byte]TokenType{
	'{': TokLBrace,
	'}': TokRBrace,
	'[': TokLBracket,
	']': TokRBracket,
	'(': TokLParen,
	')': TokRParen,
	'|': TokPipe,
	'=': TokEquals,
	';': TokSemi,
	'?': TokQuestion,
	'$': TokDollar,
	'@': TokAt,
	'+': TokPlus,
	'-': TokMinus,
	'*': TokStar,
	'/': TokSlash,
	'%': TokPercent,
	'^': TokCaret,
	'!': TokBang,
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) peekRune() (rune, int) {
	if s.atEnd() {
		return 0, 0
	}
	return utf8.DecodeRuneInString(s.source[s.pos:])
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

// advanceRune consumes one UTF-8 encoded rune and counts it as a single column.
func (s *scanner) advanceRune(size int) {
	s.pos += size
	s.col++
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
			s.advance()
		} else if ch == '#' {
			// Skip comment to end of line
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// isIdentStart accepts letters of any script so unit symbols such as µA or Ω lex as identifiers.
func isIdentStart(r rune) bool {
	return r == '_' || r == '°' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func (s *scanner) scanNumber() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	// Scan integer part
	for !s.atEnd() && isDigit(s.peek()) {
		s.advance()
	}

	// Optional fractional part
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance() // consume '.'
		for !s.atEnd() && isDigit(s.peek()) {
			s.advance()
		}
	}

	// Optional exponent, only when digits follow so "2e" stays a number and an identifier
	if s.peek() == 'e' || s.peek() == 'E' {
		offset := 1
		if s.peekAt(1) == '+' || s.peekAt(1) == '-' {
			offset = 2
		}
		if isDigit(s.peekAt(offset)) {
			for i := 0; i < offset; i++ {
				s.advance()
			}
			for !s.atEnd() && isDigit(s.peek()) {
				s.advance()
			}
		}
	}

	return Token{
		Type:  TokNumber,
		Value: s.source[startPos:s.pos],
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	startPos := s.pos

	for {
		r, size := s.peekRune()
		if size == 0 || !isIdentPart(r) {
			break
		}
		s.advanceRune(size)
	}

	text := s.source[startPos:s.pos]

	if tokType, ok := keywords[text]; ok {
		return Token{
			Type:  tokType,
			Value: text,
			Span:  s.span(startLine, startCol),
		}
	}

	return Token{
		Type:  TokIdent,
		Value: text,
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

// DiagCode returns the diagnostic code of the error.
func (e *LexError) DiagCode() string { return e.Diag.Code }

// DiagSpan returns the location of the offending character.
func (e *LexError) DiagSpan() *ast.Span { return e.Diag.Span }

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	if typ, ok := punctuation[ch]; ok {
		s.advance()
		return Token{Type: typ, Value: string(ch), Span: s.span(startLine, startCol)}, nil
	}

	// Numbers, including a leading-dot fraction such as .5
	if isDigit(ch) || (ch == '.' && isDigit(s.peekAt(1))) {
		return s.scanNumber(), nil
	}

	// Identifiers and keywords
	if r, size := s.peekRune(); isIdentStart(r) {
		return s.scanIdentOrKeyword(), nil
	} else if r == utf8.RuneError && size == 1 {
		s.advance()
		return Token{}, s.lexError(startLine, startCol, "invalid UTF-8 character")
	} else {
		s.advanceRune(size)
		return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("unexpected character '%c'", r))
	}
}

// Tokenize breaks source code into a slice of tokens.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
