package lexer

import (
	"strings"
	"testing"
)

// helper to tokenize and fail on error
func mustTokenize(t *testing.T, source string) []Token {
	t.Helper()
	tokens, err := Tokenize(source, "test.math")
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	return tokens
}

// helper that strips the trailing EOF for easier assertions
func mustTokenizeNoEOF(t *testing.T, source string) []Token {
	t.Helper()
	tokens := mustTokenize(t, source)
	if len(tokens) == 0 {
		t.Fatal("expected at least one token (EOF)")
	}
	if tokens[len(tokens)-1].Type != TokEOF {
		t.Fatal("last token is not EOF")
	}
	return tokens[:len(tokens)-1]
}

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestEmptyInput(t *testing.T) {
	tokens := mustTokenize(t, "")
	if len(tokens) != 1 {
		t.Fatalf("expected 1 token (EOF), got %d", len(tokens))
	}
	if tokens[0].Type != TokEOF {
		t.Errorf("expected TokEOF, got %v", tokens[0].Type)
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		keyword  string
		expected TokenType
	}{
		{"frac", TokFrac},
		{"sqrt", TokSqrt},
		{"root", TokRoot},
		{"mem", TokMem},
		{"sin", TokIdent},
		{"fraction", TokIdent},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, tt.keyword)
			if len(tokens) != 1 {
				t.Fatalf("expected 1 token, got %d", len(tokens))
			}
			if tokens[0].Type != tt.expected {
				t.Errorf("got type %v, want %v", tokens[0].Type, tt.expected)
			}
		})
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"42", "42"},
		{"3.14", "3.14"},
		{".5", ".5"},
		{"1e10", "1e10"},
		{"2.5E-3", "2.5E-3"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, tt.source)
			if len(tokens) != 1 || tokens[0].Type != TokNumber {
				t.Fatalf("expected one number token, got %v", tokens)
			}
			if tokens[0].Value != tt.want {
				t.Errorf("got %q, want %q", tokens[0].Value, tt.want)
			}
		})
	}
}

func TestExponentNeedsDigits(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "2e")
	got := types(tokens)
	want := []TokenType{TokNumber, TokIdent}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUnitExpression(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "230[V]*16[kW?]")
	want := []TokenType{
		TokNumber, TokLBracket, TokIdent, TokRBracket,
		TokStar,
		TokNumber, TokLBracket, TokIdent, TokQuestion, TokRBracket,
	}
	got := types(tokens)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestUnicodeIdentifiers(t *testing.T) {
	for _, src := range []string{"µA", "Ω", "°C", "μV"} {
		t.Run(src, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, src)
			if len(tokens) != 1 || tokens[0].Type != TokIdent || tokens[0].Value != src {
				t.Errorf("got %v, want single identifier %q", tokens, src)
			}
		})
	}
}

func TestSpans(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "a +\n  bc")
	last := tokens[len(tokens)-1]
	if last.Span.StartLine != 2 || last.Span.StartCol != 3 {
		t.Errorf("got span %+v, want line 2 col 3", last.Span)
	}
	if last.Span.EndCol != 5 {
		t.Errorf("got end col %d, want 5", last.Span.EndCol)
	}
}

func TestComments(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "1 + 2 # trailing comment\n# full line\n3")
	if len(tokens) != 4 {
		t.Errorf("expected 4 tokens, got %d", len(tokens))
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	_, err := Tokenize("1 & 2", "test.math")
	if err == nil {
		t.Fatal("expected lex error")
	}
	le, ok := err.(*LexError)
	if !ok {
		t.Fatalf("expected *LexError, got %T", err)
	}
	if le.Diag.Code != "E_LEX" {
		t.Errorf("got code %q, want E_LEX", le.Diag.Code)
	}
	if !strings.Contains(le.Error(), "'&'") {
		t.Errorf("expected offending character in message, got %q", le.Error())
	}
	if le.Diag.Span == nil || le.Diag.Span.StartCol != 3 {
		t.Errorf("got span %+v, want column 3", le.Diag.Span)
	}
}
