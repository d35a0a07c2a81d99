package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a token.
type TokenType string

// Token represents a lexical token.
type Token struct {
	Type     TokenType
	Literal  string // Source text of the token
	Value    string // Cooked value for strings and templates
	Line     int    // 1-based line
	Column   int    // 1-based column
	StartPos int    // byte offset of the first byte
	EndPos   int    // byte offset after the last byte
	// NewlineBefore is set when a line terminator separates this token from
	// the previous one. The parser uses it for automatic semicolon insertion
	// and the [no LineTerminator here] restrictions.
	NewlineBefore bool
}

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT    TokenType = "IDENT"
	NUMBER   TokenType = "NUMBER"
	STRING   TokenType = "STRING"
	TEMPLATE TokenType = "TEMPLATE"
	REGEX    TokenType = "REGEX"

	// Punctuators
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"
	SEMICOLON TokenType = ";"
	COMMA     TokenType = ","
	DOT       TokenType = "."
	SPREAD    TokenType = "..."
	QUESTION  TokenType = "?"
	COLON     TokenType = ":"
	ARROW     TokenType = "=>"

	LT            TokenType = "<"
	GT            TokenType = ">"
	LE            TokenType = "<="
	GE            TokenType = ">="
	EQ            TokenType = "=="
	NOT_EQ        TokenType = "!="
	STRICT_EQ     TokenType = "==="
	STRICT_NOT_EQ TokenType = "!=="

	PLUS      TokenType = "+"
	MINUS     TokenType = "-"
	ASTERISK  TokenType = "*"
	SLASH     TokenType = "/"
	REMAINDER TokenType = "%"
	EXPONENT  TokenType = "**"
	INC       TokenType = "++"
	DEC       TokenType = "--"

	LEFT_SHIFT           TokenType = "<<"
	RIGHT_SHIFT          TokenType = ">>"
	UNSIGNED_RIGHT_SHIFT TokenType = ">>>"
	BITWISE_AND          TokenType = "&"
	BITWISE_OR           TokenType = "|"
	BITWISE_XOR          TokenType = "^"
	BANG                 TokenType = "!"
	BITWISE_NOT          TokenType = "~"
	LOGICAL_AND          TokenType = "&&"
	LOGICAL_OR           TokenType = "||"
	COALESCE             TokenType = "??"

	ASSIGN                      TokenType = "="
	PLUS_ASSIGN                 TokenType = "+="
	MINUS_ASSIGN                TokenType = "-="
	ASTERISK_ASSIGN             TokenType = "*="
	SLASH_ASSIGN                TokenType = "/="
	REMAINDER_ASSIGN            TokenType = "%="
	EXPONENT_ASSIGN             TokenType = "**="
	LEFT_SHIFT_ASSIGN           TokenType = "<<="
	RIGHT_SHIFT_ASSIGN          TokenType = ">>="
	UNSIGNED_RIGHT_SHIFT_ASSIGN TokenType = ">>>="
	BITWISE_AND_ASSIGN          TokenType = "&="
	BITWISE_OR_ASSIGN           TokenType = "|="
	BITWISE_XOR_ASSIGN          TokenType = "^="
	LOGICAL_AND_ASSIGN          TokenType = "&&="
	LOGICAL_OR_ASSIGN           TokenType = "||="
	COALESCE_ASSIGN             TokenType = "??="

	// Keywords
	VAR        TokenType = "VAR"
	CONST      TokenType = "CONST"
	FUNCTION   TokenType = "FUNCTION"
	RETURN     TokenType = "RETURN"
	IF         TokenType = "IF"
	ELSE       TokenType = "ELSE"
	WHILE      TokenType = "WHILE"
	DO         TokenType = "DO"
	FOR        TokenType = "FOR"
	IN         TokenType = "IN"
	BREAK      TokenType = "BREAK"
	CONTINUE   TokenType = "CONTINUE"
	THROW      TokenType = "THROW"
	TRY        TokenType = "TRY"
	CATCH      TokenType = "CATCH"
	FINALLY    TokenType = "FINALLY"
	SWITCH     TokenType = "SWITCH"
	CASE       TokenType = "CASE"
	DEFAULT    TokenType = "DEFAULT"
	NEW        TokenType = "NEW"
	DELETE     TokenType = "DELETE"
	TYPEOF     TokenType = "TYPEOF"
	VOID       TokenType = "VOID"
	INSTANCEOF TokenType = "INSTANCEOF"
	THIS       TokenType = "THIS"
	NULL       TokenType = "NULL"
	TRUE       TokenType = "TRUE"
	FALSE      TokenType = "FALSE"
)

// Contextual keywords (let, async, await, yield, of, get, set) are lexed as
// IDENT; the parser decides by literal.
var keywords = map[string]TokenType{
	"var":        VAR,
	"const":      CONST,
	"function":   FUNCTION,
	"return":     RETURN,
	"if":         IF,
	"else":       ELSE,
	"while":      WHILE,
	"do":         DO,
	"for":        FOR,
	"in":         IN,
	"break":      BREAK,
	"continue":   CONTINUE,
	"throw":      THROW,
	"try":        TRY,
	"catch":      CATCH,
	"finally":    FINALLY,
	"switch":     SWITCH,
	"case":       CASE,
	"default":    DEFAULT,
	"new":        NEW,
	"delete":     DELETE,
	"typeof":     TYPEOF,
	"void":       VOID,
	"instanceof": INSTANCEOF,
	"this":       THIS,
	"null":       NULL,
	"true":       TRUE,
	"false":      FALSE,
}

// LookupIdent checks the keywords table for an identifier.
func LookupIdent(ident string) TokenType {
	if tokType, ok := keywords[ident]; ok {
		return tokType
	}
	return IDENT
}

// IsKeyword reports whether t is a reserved word token. Reserved words are
// still valid property names after '.' and in object literal keys.
func IsKeyword(t TokenType) bool {
	for _, kw := range keywords {
		if kw == t {
			return true
		}
	}
	return false
}

// punctuators sorted longest first so the scanner takes maximal munch.
var punctuators = []TokenType{
	UNSIGNED_RIGHT_SHIFT_ASSIGN,
	STRICT_EQ, STRICT_NOT_EQ, UNSIGNED_RIGHT_SHIFT, EXPONENT_ASSIGN,
	LEFT_SHIFT_ASSIGN, RIGHT_SHIFT_ASSIGN, LOGICAL_AND_ASSIGN, LOGICAL_OR_ASSIGN,
	COALESCE_ASSIGN, SPREAD,
	ARROW, LE, GE, EQ, NOT_EQ, EXPONENT, INC, DEC, LEFT_SHIFT, RIGHT_SHIFT,
	LOGICAL_AND, LOGICAL_OR, COALESCE, PLUS_ASSIGN, MINUS_ASSIGN, ASTERISK_ASSIGN,
	SLASH_ASSIGN, REMAINDER_ASSIGN, BITWISE_AND_ASSIGN, BITWISE_OR_ASSIGN,
	BITWISE_XOR_ASSIGN,
	LBRACE, RBRACE, LPAREN, RPAREN, LBRACKET, RBRACKET, SEMICOLON, COMMA, DOT,
	QUESTION, COLON, LT, GT, PLUS, MINUS, ASTERISK, SLASH, REMAINDER,
	BITWISE_AND, BITWISE_OR, BITWISE_XOR, BANG, BITWISE_NOT, ASSIGN,
}

// Lexer holds the state of the scanner.
type Lexer struct {
	input  string
	pos    int // byte offset of the next unread byte
	line   int
	column int

	last    TokenType // type of the previously returned token
	sawLine bool      // a line terminator was skipped before the current token
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, column: 1}
}

func (l *Lexer) peekByte(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.input); i++ {
		if l.input[l.pos] == '\n' {
			l.line++
			l.column = 1
		} else if l.input[l.pos]&0xC0 != 0x80 {
			l.column++
		}
		l.pos++
	}
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '\n':
			l.sawLine = true
			l.advance(1)
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\v' || ch == '\f':
			l.advance(1)
		case ch == '/' && l.peekByte(1) == '/':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance(1)
			}
		case ch == '/' && l.peekByte(1) == '*':
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return fmt.Errorf("unterminated comment")
			}
			if strings.Contains(l.input[l.pos:l.pos+2+end], "\n") {
				l.sawLine = true
			}
			l.advance(end + 4)
		default:
			r, size := utf8.DecodeRuneInString(l.input[l.pos:])
			if r == 0xA0 || r == 0xFEFF || unicode.Is(unicode.Zs, r) {
				l.advance(size)
				continue
			}
			if r == 0x2028 || r == 0x2029 {
				l.sawLine = true
				l.advance(size)
				continue
			}
			return nil
		}
	}
	return nil
}

// regexAllowed reports whether a '/' at this point starts a regular
// expression literal rather than a division operator.
func (l *Lexer) regexAllowed() bool {
	switch l.last {
	case IDENT, NUMBER, STRING, TEMPLATE, REGEX, RPAREN, RBRACKET, RBRACE,
		THIS, NULL, TRUE, FALSE, INC, DEC:
		return false
	}
	return true
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() Token {
	l.sawLine = false
	if err := l.skipWhitespaceAndComments(); err != nil {
		return l.illegal(err.Error())
	}
	tok := Token{Line: l.line, Column: l.column, StartPos: l.pos, NewlineBefore: l.sawLine}
	if l.pos >= len(l.input) {
		tok.Type = EOF
		tok.EndPos = l.pos
		l.last = EOF
		return tok
	}

	ch := l.input[l.pos]
	switch {
	case isIdentStart(ch) || ch >= utf8.RuneSelf:
		ident := l.readIdentifier()
		if ident == "" {
			r, size := utf8.DecodeRuneInString(l.input[l.pos:])
			l.advance(size)
			return l.finish(tok, ILLEGAL, string(r))
		}
		return l.finish(tok, LookupIdent(ident), ident)
	case isDigit(ch) || (ch == '.' && isDigit(l.peekByte(1))):
		lit, err := l.readNumber()
		if err != nil {
			return l.illegal(err.Error())
		}
		return l.finish(tok, NUMBER, lit)
	case ch == '"' || ch == '\'':
		start := l.pos
		cooked, err := l.readString(ch)
		if err != nil {
			return l.illegal(err.Error())
		}
		tok.Value = cooked
		return l.finish(tok, STRING, l.input[start:l.pos])
	case ch == '`':
		raw, err := l.readTemplate()
		if err != nil {
			return l.illegal(err.Error())
		}
		tok.Value = raw
		return l.finish(tok, TEMPLATE, "`"+raw+"`")
	case ch == '/' && l.regexAllowed():
		lit, err := l.readRegex()
		if err != nil {
			return l.illegal(err.Error())
		}
		return l.finish(tok, REGEX, lit)
	}

	for _, p := range punctuators {
		if strings.HasPrefix(l.input[l.pos:], string(p)) {
			l.advance(len(p))
			return l.finish(tok, p, string(p))
		}
	}
	l.advance(1)
	return l.finish(tok, ILLEGAL, string(ch))
}

func (l *Lexer) finish(tok Token, typ TokenType, literal string) Token {
	tok.Type = typ
	tok.Literal = literal
	tok.EndPos = l.pos
	l.last = typ
	return tok
}

func (l *Lexer) illegal(msg string) Token {
	tok := Token{Type: ILLEGAL, Literal: msg, Line: l.line, Column: l.column, StartPos: l.pos, EndPos: l.pos}
	l.pos = len(l.input)
	l.last = ILLEGAL
	return tok
}

// Tokenize scans the whole input. It is used by tests and tooling.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF || tok.Type == ILLEGAL {
			return toks
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch < utf8.RuneSelf {
			if !isIdentStart(ch) && !isDigit(ch) {
				break
			}
			l.advance(1)
			continue
		}
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) {
			break
		}
		l.advance(size)
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() (string, error) {
	start := l.pos
	if l.input[l.pos] == '0' {
		switch l.peekByte(1) {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			l.advance(2)
			for l.pos < len(l.input) && (isHexDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
				l.advance(1)
			}
			return l.input[start:l.pos], nil
		}
	}
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
		l.advance(1)
	}
	if l.peekByte(0) == '.' {
		l.advance(1)
		for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
			l.advance(1)
		}
	}
	if c := l.peekByte(0); c == 'e' || c == 'E' {
		l.advance(1)
		if c := l.peekByte(0); c == '+' || c == '-' {
			l.advance(1)
		}
		if !isDigit(l.peekByte(0)) {
			return "", fmt.Errorf("malformed exponent in number literal")
		}
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.advance(1)
		}
	}
	if isIdentStart(l.peekByte(0)) {
		return "", fmt.Errorf("identifier starts immediately after numeric literal")
	}
	return l.input[start:l.pos], nil
}

// ParseNumber converts a NUMBER literal into its float64 value.
func ParseNumber(lit string) (float64, error) {
	clean := strings.ReplaceAll(lit, "_", "")
	if len(clean) > 2 && clean[0] == '0' {
		base := 0
		switch clean[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(clean[2:], base, 64)
			if err != nil {
				return 0, err
			}
			return float64(n), nil
		}
	}
	return strconv.ParseFloat(clean, 64)
}

func (l *Lexer) readString(quote byte) (string, error) {
	l.advance(1)
	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return "", fmt.Errorf("unterminated string literal")
		}
		ch := l.input[l.pos]
		switch {
		case ch == quote:
			l.advance(1)
			return sb.String(), nil
		case ch == '\n':
			return "", fmt.Errorf("unterminated string literal")
		case ch == '\\':
			if err := l.readEscape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(ch)
			l.advance(1)
		}
	}
}

// readEscape consumes a backslash escape and writes its cooked value.
func (l *Lexer) readEscape(sb *strings.Builder) error {
	l.advance(1)
	if l.pos >= len(l.input) {
		return fmt.Errorf("unterminated escape sequence")
	}
	ch := l.input[l.pos]
	l.advance(1)
	switch ch {
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		sb.WriteByte(0)
	case '\n':
		// line continuation
	case 'x':
		if l.pos+2 > len(l.input) {
			return fmt.Errorf("malformed hexadecimal escape")
		}
		n, err := strconv.ParseUint(l.input[l.pos:l.pos+2], 16, 8)
		if err != nil {
			return fmt.Errorf("malformed hexadecimal escape")
		}
		sb.WriteRune(rune(n))
		l.advance(2)
	case 'u':
		var digits string
		if l.peekByte(0) == '{' {
			end := strings.IndexByte(l.input[l.pos:], '}')
			if end < 0 {
				return fmt.Errorf("malformed unicode escape")
			}
			digits = l.input[l.pos+1 : l.pos+end]
			l.advance(end + 1)
		} else {
			if l.pos+4 > len(l.input) {
				return fmt.Errorf("malformed unicode escape")
			}
			digits = l.input[l.pos : l.pos+4]
			l.advance(4)
		}
		n, err := strconv.ParseUint(digits, 16, 32)
		if err != nil || n > unicode.MaxRune {
			return fmt.Errorf("malformed unicode escape")
		}
		sb.WriteRune(rune(n))
	default:
		sb.WriteByte(ch)
	}
	return nil
}

// readTemplate returns the raw text between the backticks. Substitutions are
// kept verbatim; the parser splits them and parses each expression.
func (l *Lexer) readTemplate() (string, error) {
	l.advance(1)
	start := l.pos
	depth := 0
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '\\':
			l.advance(2)
			continue
		case depth == 0 && ch == '`':
			raw := l.input[start:l.pos]
			l.advance(1)
			return raw, nil
		case ch == '$' && l.peekByte(1) == '{':
			depth++
			l.advance(2)
			continue
		case depth > 0 && ch == '{':
			depth++
		case depth > 0 && ch == '}':
			depth--
		case depth > 0 && (ch == '"' || ch == '\''):
			if _, err := l.readString(ch); err != nil {
				return "", err
			}
			continue
		case depth > 0 && ch == '`':
			if _, err := l.readTemplate(); err != nil {
				return "", err
			}
			continue
		}
		l.advance(1)
	}
	return "", fmt.Errorf("unterminated template literal")
}

func (l *Lexer) readRegex() (string, error) {
	start := l.pos
	l.advance(1)
	inClass := false
	for {
		if l.pos >= len(l.input) || l.input[l.pos] == '\n' {
			return "", fmt.Errorf("unterminated regular expression literal")
		}
		ch := l.input[l.pos]
		if ch == '\\' {
			l.advance(2)
			continue
		}
		if ch == '[' {
			inClass = true
		} else if ch == ']' {
			inClass = false
		} else if ch == '/' && !inClass {
			break
		}
		l.advance(1)
	}
	l.advance(1)
	for l.pos < len(l.input) && isIdentStart(l.input[l.pos]) {
		l.advance(1)
	}
	return l.input[start:l.pos], nil
}

// CookTemplateString processes escapes in a template chunk.
func CookTemplateString(raw string) (string, error) {
	l := NewLexer(raw)
	var sb strings.Builder
	for l.pos < len(l.input) {
		if l.input[l.pos] == '\\' {
			if err := l.readEscape(&sb); err != nil {
				return "", err
			}
			continue
		}
		sb.WriteByte(l.input[l.pos])
		l.advance(1)
	}
	return sb.String(), nil
}

func isIdentStart(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}
