package lexer

import (
	"testing"
)

func TestRegexLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenType
		literals []string
	}{
		{
			name:     "Simple regex",
			input:    "/hello/",
			expected: []TokenType{REGEX, EOF},
			literals: []string{"/hello/", ""},
		},
		{
			name:     "Regex with flags",
			input:    "/world/gi",
			expected: []TokenType{REGEX, EOF},
			literals: []string{"/world/gi", ""},
		},
		{
			name:     "Slash inside class",
			input:    "/[/]+/m",
			expected: []TokenType{REGEX, EOF},
			literals: []string{"/[/]+/m", ""},
		},
		{
			name:     "Escaped slash",
			input:    `/a\/b/`,
			expected: []TokenType{REGEX, EOF},
			literals: []string{`/a\/b/`, ""},
		},
		{
			name:     "Assignment context",
			input:    "let x = /test/i;",
			expected: []TokenType{IDENT, IDENT, ASSIGN, REGEX, SEMICOLON, EOF},
			literals: []string{"let", "x", "=", "/test/i", ";", ""},
		},
		{
			name:     "After return",
			input:    "return /r/.test(s)",
			expected: []TokenType{RETURN, REGEX, DOT, IDENT, LPAREN, IDENT, RPAREN, EOF},
			literals: []string{"return", "/r/", ".", "test", "(", "s", ")", ""},
		},
		{
			name:     "Division vs regex - division",
			input:    "5 / 2",
			expected: []TokenType{NUMBER, SLASH, NUMBER, EOF},
			literals: []string{"5", "/", "2", ""},
		},
		{
			name:     "Division after identifier and paren",
			input:    "a / (b) / c",
			expected: []TokenType{IDENT, SLASH, LPAREN, IDENT, RPAREN, SLASH, IDENT, EOF},
			literals: []string{"a", "/", "(", "b", ")", "/", "c", ""},
		},
		{
			name:     "Division vs regex - regex after paren",
			input:    "(/pattern/)",
			expected: []TokenType{LPAREN, REGEX, RPAREN, EOF},
			literals: []string{"(", "/pattern/", ")", ""},
		},
		{
			name:     "Divide assign",
			input:    "x /= 2",
			expected: []TokenType{IDENT, SLASH_ASSIGN, NUMBER, EOF},
			literals: []string{"x", "/=", "2", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLexer(tt.input)

			for i, expectedToken := range tt.expected {
				tok := l.NextToken()
				if tok.Type != expectedToken {
					t.Errorf("test[%d] - tokentype wrong. expected=%q, got=%q", i, expectedToken, tok.Type)
				}
				if i < len(tt.literals) && tok.Literal != tt.literals[i] {
					t.Errorf("test[%d] - literal wrong. expected=%q, got=%q", i, tt.literals[i], tok.Literal)
				}
			}
		})
	}
}

// Flags are validated when the RegExp object is created, not while lexing.
func TestRegexFlagsAreLexedVerbatim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  TokenType
	}{
		{name: "Valid flags", input: "/test/gims", want: REGEX},
		{name: "Unknown flag", input: "/test/x", want: REGEX},
		{name: "Unterminated", input: "/test", want: ILLEGAL},
		{name: "Newline in body", input: "/te\nst/", want: ILLEGAL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			if tok.Type != tt.want {
				t.Errorf("expected %q, got %q (%q)", tt.want, tok.Type, tok.Literal)
			}
			if tt.want == REGEX && tok.Literal != tt.input {
				t.Errorf("literal wrong. expected=%q, got=%q", tt.input, tok.Literal)
			}
		})
	}
}
