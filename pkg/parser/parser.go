package parser

import (
	"fmt"
	"strings"

	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/lexer"
	"github.com/nooga/cadence/pkg/source"
)

// bailout unwinds the recursive descent on the first syntax error.
type bailout struct {
	err *errors.SyntaxError
}

// Parser turns a token stream into an AST. All tokens are scanned up front
// so the parser can look ahead freely when telling arrow parameter lists
// from parenthesized expressions.
type Parser struct {
	src  *source.SourceFile
	toks []lexer.Token
	pos  int
	cur  lexer.Token
	last lexer.Token

	inFunction  bool
	inAsync     bool
	inGenerator bool
	noIn        bool

	labels    []string
	loopDepth int
	breakable int

	coverInits map[*ObjectLiteral]lexer.Token
	converted  map[*ObjectLiteral]bool
}

// NewParser creates a parser over a source file.
func NewParser(src *source.SourceFile) *Parser {
	p := &Parser{
		src:        src,
		toks:       lexer.Tokenize(src.Content),
		coverInits: make(map[*ObjectLiteral]lexer.Token),
		converted:  make(map[*ObjectLiteral]bool),
	}
	p.cur = p.toks[0]
	return p
}

// ParseString parses inline source text.
func ParseString(code string) (*Program, error) {
	prog, errs := NewParser(source.NewEvalSource(code)).ParseProgram()
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return prog, nil
}

// ParseProgram parses a whole script.
func (p *Parser) ParseProgram() (prog *Program, errs []errors.CadenceError) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			prog = nil
			errs = []errors.CadenceError{b.err}
		}
	}()
	if p.cur.Type == lexer.ILLEGAL {
		p.failAt(p.cur, "%s", p.cur.Literal)
	}
	prog = &Program{}
	for !p.is(lexer.EOF) {
		prog.Body = append(prog.Body, p.parseStatementListItem())
	}
	p.validateScope(prog.Body, true, nil)
	for lit, tok := range p.coverInits {
		if !p.converted[lit] {
			p.failAt(tok, "invalid shorthand property initializer")
		}
	}
	return prog, nil
}

// --- token helpers ---

func (p *Parser) next() {
	p.last = p.cur
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	p.cur = p.toks[p.pos]
	if p.cur.Type == lexer.ILLEGAL {
		p.failAt(p.cur, "%s", p.cur.Literal)
	}
}

func (p *Parser) peek(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) is(t lexer.TokenType) bool {
	return p.cur.Type == t
}

func (p *Parser) isIdent(name string) bool {
	return p.cur.Type == lexer.IDENT && p.cur.Literal == name
}

func (p *Parser) eat(t lexer.TokenType) bool {
	if p.is(t) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expect(t lexer.TokenType) lexer.Token {
	if !p.is(t) {
		p.fail("expected '%s' but found '%s'", t, p.describe(p.cur))
	}
	tok := p.cur
	p.next()
	return tok
}

func (p *Parser) describe(tok lexer.Token) string {
	if tok.Type == lexer.EOF {
		return "end of input"
	}
	return tok.Literal
}

func (p *Parser) fail(format string, args ...any) {
	p.failAt(p.cur, format, args...)
}

func (p *Parser) failAt(tok lexer.Token, format string, args ...any) {
	panic(bailout{err: &errors.SyntaxError{
		Position: errors.Position{
			Line:     tok.Line,
			Column:   tok.Column,
			StartPos: tok.StartPos,
			EndPos:   tok.EndPos,
			Source:   p.src,
		},
		Msg: fmt.Sprintf(format, args...),
	}})
}

// consumeSemicolon implements automatic semicolon insertion.
func (p *Parser) consumeSemicolon() {
	if p.eat(lexer.SEMICOLON) {
		return
	}
	if p.is(lexer.RBRACE) || p.is(lexer.EOF) || p.cur.NewlineBefore {
		return
	}
	p.fail("unexpected token '%s'", p.describe(p.cur))
}

// --- statements ---

func (p *Parser) parseStatementListItem() Statement {
	switch {
	case p.is(lexer.FUNCTION):
		return &FunctionDeclaration{Function: p.parseFunction(false, true)}
	case p.isIdent("async") && p.peek(1).Type == lexer.FUNCTION && !p.peek(1).NewlineBefore:
		p.next()
		return &FunctionDeclaration{Function: p.parseFunction(true, true)}
	case p.is(lexer.CONST):
		return p.parseVariableStatement("const")
	case p.isLetDeclaration():
		return p.parseVariableStatement("let")
	}
	return p.parseStatement()
}

func (p *Parser) isLetDeclaration() bool {
	if !p.isIdent("let") {
		return false
	}
	switch p.peek(1).Type {
	case lexer.IDENT, lexer.LBRACKET, lexer.LBRACE:
		return true
	}
	return false
}

func (p *Parser) parseStatement() Statement {
	switch p.cur.Type {
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.VAR:
		return p.parseVariableStatement("var")
	case lexer.SEMICOLON:
		p.next()
		return &EmptyStatement{}
	case lexer.IF:
		return p.parseIfStatement()
	case lexer.WHILE:
		return p.parseWhileStatement()
	case lexer.DO:
		return p.parseDoWhileStatement()
	case lexer.FOR:
		return p.parseForStatement()
	case lexer.BREAK:
		return p.parseBreakStatement()
	case lexer.CONTINUE:
		return p.parseContinueStatement()
	case lexer.RETURN:
		return p.parseReturnStatement()
	case lexer.THROW:
		return p.parseThrowStatement()
	case lexer.TRY:
		return p.parseTryStatement()
	case lexer.SWITCH:
		return p.parseSwitchStatement()
	case lexer.FUNCTION:
		p.fail("function declarations are not allowed in statement position")
	case lexer.IDENT:
		if p.peek(1).Type == lexer.COLON && !p.isReservedIdent(p.cur.Literal) {
			return p.parseLabeledStatement()
		}
	}
	expr := p.parseExpression()
	p.consumeSemicolon()
	return &ExpressionStatement{Expression: expr}
}

func (p *Parser) parseBlock() *BlockStatement {
	p.expect(lexer.LBRACE)
	block := &BlockStatement{}
	for !p.is(lexer.RBRACE) {
		if p.is(lexer.EOF) {
			p.fail("unexpected end of input")
		}
		block.Body = append(block.Body, p.parseStatementListItem())
	}
	p.validateScope(block.Body, false, nil)
	p.next()
	return block
}

func (p *Parser) parseVariableStatement(kind string) Statement {
	p.next()
	decl := &VariableDeclaration{Kind: kind, Declarations: p.parseVariableDeclarationList()}
	p.checkInitializers(decl)
	p.consumeSemicolon()
	return decl
}

func (p *Parser) parseVariableDeclarationList() []*VariableDeclarator {
	var decls []*VariableDeclarator
	for {
		d := &VariableDeclarator{Target: p.parseBindingTarget()}
		if p.eat(lexer.ASSIGN) {
			d.Init = p.parseAssignment()
		}
		decls = append(decls, d)
		if !p.eat(lexer.COMMA) {
			return decls
		}
	}
}

func (p *Parser) checkInitializers(decl *VariableDeclaration) {
	for _, d := range decl.Declarations {
		if d.Init != nil {
			continue
		}
		if decl.Kind == "const" {
			p.failAt(p.last, "missing initializer in const declaration")
		}
		if _, ok := d.Target.(*Identifier); !ok {
			p.failAt(p.last, "missing initializer in destructuring declaration")
		}
	}
}

func (p *Parser) parseIfStatement() Statement {
	p.next()
	p.expect(lexer.LPAREN)
	stmt := &IfStatement{Test: p.parseExpression()}
	p.expect(lexer.RPAREN)
	stmt.Consequent = p.parseStatement()
	if p.eat(lexer.ELSE) {
		stmt.Alternate = p.parseStatement()
	}
	return stmt
}

func (p *Parser) parseLoopBody() Statement {
	p.loopDepth++
	p.breakable++
	body := p.parseStatement()
	p.loopDepth--
	p.breakable--
	return body
}

func (p *Parser) parseWhileStatement() Statement {
	p.next()
	p.expect(lexer.LPAREN)
	stmt := &WhileStatement{Test: p.parseExpression()}
	p.expect(lexer.RPAREN)
	stmt.Body = p.parseLoopBody()
	return stmt
}

func (p *Parser) parseDoWhileStatement() Statement {
	p.next()
	stmt := &DoWhileStatement{Body: p.parseLoopBody()}
	p.expect(lexer.WHILE)
	p.expect(lexer.LPAREN)
	stmt.Test = p.parseExpression()
	p.expect(lexer.RPAREN)
	p.eat(lexer.SEMICOLON)
	return stmt
}

func (p *Parser) parseForStatement() Statement {
	forTok := p.cur
	p.next()
	isAwait := false
	if p.isIdent("await") {
		if !p.inAsync {
			p.fail("for await is only valid in async functions")
		}
		isAwait = true
		p.next()
	}
	p.expect(lexer.LPAREN)

	var init Node
	savedNoIn := p.noIn
	switch {
	case p.is(lexer.SEMICOLON):
	case p.is(lexer.VAR) || p.is(lexer.CONST) || p.isLetDeclaration():
		kind := p.cur.Literal
		p.next()
		p.noIn = true
		decl := &VariableDeclaration{Kind: kind, Declarations: p.parseVariableDeclarationList()}
		p.noIn = savedNoIn
		if p.is(lexer.IN) || p.isIdent("of") {
			if len(decl.Declarations) != 1 || decl.Declarations[0].Init != nil {
				p.fail("for-in/of loop variable declaration may not have an initializer")
			}
			return p.parseForInOfRest(decl, isAwait)
		}
		p.checkInitializers(decl)
		init = decl
	default:
		p.noIn = true
		expr := p.parseExpression()
		p.noIn = savedNoIn
		if p.is(lexer.IN) || p.isIdent("of") {
			return p.parseForInOfRest(p.assignmentTarget(expr, forTok), isAwait)
		}
		init = expr
	}
	if isAwait {
		p.fail("for await requires an of clause")
	}
	stmt := &ForStatement{Init: init}
	p.expect(lexer.SEMICOLON)
	if !p.is(lexer.SEMICOLON) {
		stmt.Test = p.parseExpression()
	}
	p.expect(lexer.SEMICOLON)
	if !p.is(lexer.RPAREN) {
		stmt.Update = p.parseExpression()
	}
	p.expect(lexer.RPAREN)
	stmt.Body = p.parseLoopBody()
	return stmt
}

func (p *Parser) parseForInOfRest(left Node, isAwait bool) Statement {
	stmt := &ForInOfStatement{Of: p.isIdent("of"), Await: isAwait, Left: left}
	p.next()
	if isAwait && !stmt.Of {
		p.fail("for await requires an of clause")
	}
	if stmt.Of {
		stmt.Right = p.parseAssignment()
	} else {
		stmt.Right = p.parseExpression()
	}
	p.expect(lexer.RPAREN)
	stmt.Body = p.parseLoopBody()
	return stmt
}

func (p *Parser) parseOptionalLabel() string {
	if p.is(lexer.IDENT) && !p.cur.NewlineBefore {
		label := p.cur.Literal
		p.next()
		return label
	}
	return ""
}

func (p *Parser) hasLabel(label string) bool {
	for _, l := range p.labels {
		if l == label {
			return true
		}
	}
	return false
}

func (p *Parser) parseBreakStatement() Statement {
	tok := p.cur
	p.next()
	stmt := &BreakStatement{Label: p.parseOptionalLabel()}
	if stmt.Label != "" && !p.hasLabel(stmt.Label) {
		p.failAt(tok, "undefined label '%s'", stmt.Label)
	}
	if stmt.Label == "" && p.breakable == 0 {
		p.failAt(tok, "illegal break statement")
	}
	p.consumeSemicolon()
	return stmt
}

func (p *Parser) parseContinueStatement() Statement {
	tok := p.cur
	p.next()
	stmt := &ContinueStatement{Label: p.parseOptionalLabel()}
	if p.loopDepth == 0 {
		p.failAt(tok, "illegal continue statement")
	}
	if stmt.Label != "" && !p.hasLabel(stmt.Label) {
		p.failAt(tok, "undefined label '%s'", stmt.Label)
	}
	p.consumeSemicolon()
	return stmt
}

func (p *Parser) parseReturnStatement() Statement {
	if !p.inFunction {
		p.fail("illegal return statement")
	}
	p.next()
	stmt := &ReturnStatement{}
	if !p.is(lexer.SEMICOLON) && !p.is(lexer.RBRACE) && !p.is(lexer.EOF) && !p.cur.NewlineBefore {
		stmt.Argument = p.parseExpression()
	}
	p.consumeSemicolon()
	return stmt
}

func (p *Parser) parseThrowStatement() Statement {
	p.next()
	if p.cur.NewlineBefore {
		p.fail("illegal newline after throw")
	}
	stmt := &ThrowStatement{Argument: p.parseExpression()}
	p.consumeSemicolon()
	return stmt
}

func (p *Parser) parseTryStatement() Statement {
	p.next()
	stmt := &TryStatement{Block: p.parseBlock()}
	if p.eat(lexer.CATCH) {
		if p.eat(lexer.LPAREN) {
			stmt.Param = p.parseBindingTarget()
			p.expect(lexer.RPAREN)
		}
		stmt.Handler = p.parseBlock()
	}
	if p.eat(lexer.FINALLY) {
		stmt.Finalizer = p.parseBlock()
	}
	if stmt.Handler == nil && stmt.Finalizer == nil {
		p.fail("missing catch or finally after try")
	}
	return stmt
}

func (p *Parser) parseSwitchStatement() Statement {
	p.next()
	p.expect(lexer.LPAREN)
	stmt := &SwitchStatement{Discriminant: p.parseExpression()}
	p.expect(lexer.RPAREN)
	p.expect(lexer.LBRACE)
	p.breakable++
	sawDefault := false
	for !p.eat(lexer.RBRACE) {
		c := &SwitchCase{}
		switch {
		case p.eat(lexer.CASE):
			c.Test = p.parseExpression()
		case p.is(lexer.DEFAULT):
			if sawDefault {
				p.fail("more than one default clause in switch statement")
			}
			sawDefault = true
			p.next()
		default:
			p.fail("unexpected token '%s' in switch body", p.describe(p.cur))
		}
		p.expect(lexer.COLON)
		for !p.is(lexer.CASE) && !p.is(lexer.DEFAULT) && !p.is(lexer.RBRACE) {
			if p.is(lexer.EOF) {
				p.fail("unexpected end of input")
			}
			c.Consequent = append(c.Consequent, p.parseStatementListItem())
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	var all []Statement
	for _, c := range stmt.Cases {
		all = append(all, c.Consequent...)
	}
	p.validateScope(all, false, nil)
	p.breakable--
	return stmt
}

func (p *Parser) parseLabeledStatement() Statement {
	label := p.cur.Literal
	if p.hasLabel(label) {
		p.fail("label '%s' has already been declared", label)
	}
	p.next()
	p.expect(lexer.COLON)
	p.labels = append(p.labels, label)
	p.breakable++
	body := p.parseStatement()
	p.breakable--
	p.labels = p.labels[:len(p.labels)-1]
	return &LabeledStatement{Label: label, Body: body}
}

// --- binding targets ---

func (p *Parser) isReservedIdent(name string) bool {
	return (name == "yield" && p.inGenerator) || (name == "await" && p.inAsync)
}

func (p *Parser) parseBindingIdentifier() *Identifier {
	if !p.is(lexer.IDENT) {
		p.fail("expected identifier but found '%s'", p.describe(p.cur))
	}
	if p.isReservedIdent(p.cur.Literal) || p.cur.Literal == "eval" || p.cur.Literal == "arguments" {
		p.fail("'%s' cannot be used as a binding identifier here", p.cur.Literal)
	}
	id := &Identifier{Token: p.cur, Name: p.cur.Literal}
	p.next()
	return id
}

func (p *Parser) parseBindingTarget() Expression {
	switch p.cur.Type {
	case lexer.LBRACKET:
		return p.parseArrayBindingPattern()
	case lexer.LBRACE:
		return p.parseObjectBindingPattern()
	}
	return p.parseBindingIdentifier()
}

func (p *Parser) parseBindingElement() *BindingElement {
	el := &BindingElement{Target: p.parseBindingTarget()}
	if p.eat(lexer.ASSIGN) {
		el.Default = p.parseAssignmentIn()
	}
	return el
}

func (p *Parser) parseArrayBindingPattern() Expression {
	p.expect(lexer.LBRACKET)
	pat := &ArrayPattern{}
	for !p.eat(lexer.RBRACKET) {
		if p.eat(lexer.COMMA) {
			pat.Elements = append(pat.Elements, nil)
			continue
		}
		if p.eat(lexer.SPREAD) {
			pat.Rest = p.parseBindingTarget()
			p.expect(lexer.RBRACKET)
			return pat
		}
		pat.Elements = append(pat.Elements, p.parseBindingElement())
		if !p.is(lexer.RBRACKET) {
			p.expect(lexer.COMMA)
		}
	}
	return pat
}

func (p *Parser) parseObjectBindingPattern() Expression {
	p.expect(lexer.LBRACE)
	pat := &ObjectPattern{}
	for !p.eat(lexer.RBRACE) {
		if p.eat(lexer.SPREAD) {
			pat.Rest = p.parseBindingIdentifier()
			p.expect(lexer.RBRACE)
			return pat
		}
		keyTok := p.cur
		key, computed := p.parsePropertyName()
		prop := &PatternProperty{Key: key, Computed: computed}
		if p.eat(lexer.COLON) {
			prop.Value = p.parseBindingElement()
		} else {
			id, ok := key.(*Identifier)
			if !ok || computed || keyTok.Type != lexer.IDENT {
				p.failAt(keyTok, "unexpected token '%s' in object pattern", keyTok.Literal)
			}
			if p.isReservedIdent(id.Name) {
				p.failAt(keyTok, "'%s' cannot be used as a binding identifier here", id.Name)
			}
			prop.Value = &BindingElement{Target: &Identifier{Token: keyTok, Name: id.Name}}
			if p.eat(lexer.ASSIGN) {
				prop.Value.Default = p.parseAssignmentIn()
			}
		}
		pat.Properties = append(pat.Properties, prop)
		if !p.is(lexer.RBRACE) {
			p.expect(lexer.COMMA)
		}
	}
	return pat
}

// parsePropertyName parses an object literal or pattern key.
func (p *Parser) parsePropertyName() (Expression, bool) {
	tok := p.cur
	switch {
	case p.is(lexer.LBRACKET):
		p.next()
		key := p.parseAssignmentIn()
		p.expect(lexer.RBRACKET)
		return key, true
	case p.is(lexer.STRING):
		p.next()
		return &StringLiteral{Token: tok, Value: tok.Value}, false
	case p.is(lexer.NUMBER):
		p.next()
		n, err := lexer.ParseNumber(tok.Literal)
		if err != nil {
			p.failAt(tok, "invalid number literal '%s'", tok.Literal)
		}
		return &NumberLiteral{Token: tok, Value: n}, false
	case p.is(lexer.IDENT) || lexer.IsKeyword(tok.Type):
		p.next()
		return &Identifier{Token: tok, Name: tok.Literal}, false
	}
	p.fail("unexpected token '%s'", p.describe(tok))
	return nil, false
}

// --- functions ---

func (p *Parser) parseFunction(isAsync, isDeclaration bool) *FunctionLiteral {
	asyncTok := p.last
	tok := p.expect(lexer.FUNCTION)
	if isAsync {
		// Source text starts at the async keyword.
		tok = asyncTok
	}
	isGenerator := p.eat(lexer.ASTERISK)
	var name *Identifier
	if p.is(lexer.IDENT) {
		// The name of a function expression is bound inside its own body, so
		// yield/await restrictions follow the function's own kind.
		savedAsync, savedGen := p.inAsync, p.inGenerator
		if !isDeclaration {
			p.inAsync, p.inGenerator = isAsync, isGenerator
		}
		name = p.parseBindingIdentifier()
		p.inAsync, p.inGenerator = savedAsync, savedGen
	} else if isDeclaration {
		p.fail("function declaration requires a name")
	}
	fn := &FunctionLiteral{Token: tok, Name: name, IsAsync: isAsync, IsGenerator: isGenerator}
	p.parseFunctionRest(fn)
	return fn
}

type functionState struct {
	inFunction, inAsync, inGenerator, noIn bool
	labels                                 []string
	loopDepth, breakable                   int
}

func (p *Parser) enterFunction(isAsync, isGenerator bool) functionState {
	saved := functionState{p.inFunction, p.inAsync, p.inGenerator, p.noIn, p.labels, p.loopDepth, p.breakable}
	p.inFunction, p.inAsync, p.inGenerator, p.noIn = true, isAsync, isGenerator, false
	p.labels, p.loopDepth, p.breakable = nil, 0, 0
	return saved
}

func (p *Parser) leaveFunction(s functionState) {
	p.inFunction, p.inAsync, p.inGenerator, p.noIn = s.inFunction, s.inAsync, s.inGenerator, s.noIn
	p.labels, p.loopDepth, p.breakable = s.labels, s.loopDepth, s.breakable
}

// parseFunctionRest parses parameters and body; fn.Token marks where the
// function's source text starts.
func (p *Parser) parseFunctionRest(fn *FunctionLiteral) {
	saved := p.enterFunction(fn.IsAsync, fn.IsGenerator)
	fn.Params, fn.Rest = p.parseFormalParameters()
	fn.Body = p.parseFunctionBody()
	p.validateScope(fn.Body, true, ParameterNames(fn))
	p.leaveFunction(saved)
	fn.Source = p.sourceSince(fn.Token)
}

func (p *Parser) sourceSince(start lexer.Token) string {
	if p.src == nil || p.last.EndPos > len(p.src.Content) || start.StartPos > p.last.EndPos {
		return ""
	}
	return p.src.Content[start.StartPos:p.last.EndPos]
}

func (p *Parser) parseFormalParameters() ([]*BindingElement, Expression) {
	p.expect(lexer.LPAREN)
	var params []*BindingElement
	for !p.eat(lexer.RPAREN) {
		if p.eat(lexer.SPREAD) {
			rest := p.parseBindingTarget()
			p.expect(lexer.RPAREN)
			return params, rest
		}
		params = append(params, p.parseBindingElement())
		if !p.is(lexer.RPAREN) {
			p.expect(lexer.COMMA)
		}
	}
	return params, nil
}

func (p *Parser) parseFunctionBody() []Statement {
	p.expect(lexer.LBRACE)
	body := []Statement{}
	for !p.is(lexer.RBRACE) {
		if p.is(lexer.EOF) {
			p.fail("unexpected end of input")
		}
		body = append(body, p.parseStatementListItem())
	}
	p.next()
	return body
}

// validateScope reports conflicting declarations in one scope. Parameter
// names may not be redeclared lexically, and may not repeat.
func (p *Parser) validateScope(body []Statement, topLevel bool, params []string) {
	if err := ValidateDeclarations(body, topLevel); err != nil {
		p.failAt(p.last, "%s", err.Error())
	}
	if params == nil {
		return
	}
	seen := make(map[string]bool, len(params))
	for _, n := range params {
		if seen[n] {
			p.failAt(p.last, "duplicate parameter name '%s'", n)
		}
		seen[n] = true
	}
	for _, n := range LexicallyDeclaredNames(body, false) {
		if seen[n] {
			p.failAt(p.last, "identifier '%s' has already been declared", n)
		}
	}
}

// parseArrowBody finishes an arrow function once its parameters are known;
// the current token is '=>'.
func (p *Parser) parseArrowBody(start lexer.Token, params []*BindingElement, rest Expression, isAsync bool) Expression {
	if p.cur.NewlineBefore {
		p.fail("unexpected line break before '=>'")
	}
	p.expect(lexer.ARROW)
	fn := &FunctionLiteral{Token: start, Params: params, Rest: rest, IsArrow: true, IsAsync: isAsync}
	saved := p.enterFunction(isAsync, false)
	if p.is(lexer.LBRACE) {
		fn.Body = p.parseFunctionBody()
		p.validateScope(fn.Body, true, ParameterNames(fn))
	} else {
		p.noIn = saved.noIn
		fn.ExprBody = p.parseAssignment()
	}
	p.leaveFunction(saved)
	fn.Source = p.sourceSince(start)
	return fn
}

// arrowParamsCover stands for `()` or a parenthesized list ending in a rest
// element; only valid directly before '=>'.
type arrowParamsCover struct {
	params []Expression
	rest   Expression
}

func (*arrowParamsCover) node()           {}
func (*arrowParamsCover) expressionNode() {}

func (p *Parser) arrowParameters(cover Expression, tok lexer.Token) ([]*BindingElement, Expression) {
	var items []Expression
	var rest Expression
	switch c := cover.(type) {
	case *Identifier:
		items = []Expression{c}
	case *ParenthesizedExpression:
		if seq, ok := c.Expression.(*SequenceExpression); ok {
			items = seq.Expressions
		} else {
			items = []Expression{c.Expression}
		}
	case *arrowParamsCover:
		items, rest = c.params, c.rest
	case *CallExpression:
		items = c.Arguments
		if n := len(items); n > 0 {
			if spread, ok := items[n-1].(*SpreadElement); ok {
				items, rest = items[:n-1], spread.Argument
			}
		}
	default:
		p.failAt(tok, "malformed arrow function parameter list")
	}
	params := make([]*BindingElement, 0, len(items))
	for _, item := range items {
		el, err := toBindingElement(item, true)
		if err != nil {
			p.failAt(tok, "%s", err.Error())
		}
		p.markConverted(item)
		params = append(params, el)
	}
	if rest != nil {
		target, err := toPattern(rest, true)
		if err != nil {
			p.failAt(tok, "%s", err.Error())
		}
		p.markConverted(rest)
		rest = target
	}
	return params, rest
}

// --- expressions ---

func (p *Parser) parseExpression() Expression {
	first := p.parseAssignment()
	if !p.is(lexer.COMMA) {
		return first
	}
	seq := &SequenceExpression{Expressions: []Expression{first}}
	for p.eat(lexer.COMMA) {
		seq.Expressions = append(seq.Expressions, p.parseAssignment())
	}
	return seq
}

// parseAssignmentIn parses an assignment expression with the `in` operator
// allowed regardless of the enclosing context.
func (p *Parser) parseAssignmentIn() Expression {
	saved := p.noIn
	p.noIn = false
	e := p.parseAssignment()
	p.noIn = saved
	return e
}

func (p *Parser) parseExpressionIn() Expression {
	saved := p.noIn
	p.noIn = false
	e := p.parseExpression()
	p.noIn = saved
	return e
}

func isAssignmentOperator(t lexer.TokenType) bool {
	switch t {
	case lexer.ASSIGN, lexer.PLUS_ASSIGN, lexer.MINUS_ASSIGN, lexer.ASTERISK_ASSIGN,
		lexer.SLASH_ASSIGN, lexer.REMAINDER_ASSIGN, lexer.EXPONENT_ASSIGN,
		lexer.LEFT_SHIFT_ASSIGN, lexer.RIGHT_SHIFT_ASSIGN, lexer.UNSIGNED_RIGHT_SHIFT_ASSIGN,
		lexer.BITWISE_AND_ASSIGN, lexer.BITWISE_OR_ASSIGN, lexer.BITWISE_XOR_ASSIGN,
		lexer.LOGICAL_AND_ASSIGN, lexer.LOGICAL_OR_ASSIGN, lexer.COALESCE_ASSIGN:
		return true
	}
	return false
}

func (p *Parser) parseAssignment() Expression {
	if p.inGenerator && p.isIdent("yield") {
		return p.parseYield()
	}
	start := p.cur
	left := p.parseConditional()

	if p.is(lexer.ARROW) {
		isAsync := false
		if call, ok := left.(*CallExpression); ok {
			id, isIdent := call.Callee.(*Identifier)
			if !isIdent || id.Name != "async" {
				p.fail("malformed arrow function parameter list")
			}
			isAsync = true
		}
		params, rest := p.arrowParameters(left, start)
		return p.parseArrowBody(start, params, rest, isAsync)
	}
	if _, ok := left.(*arrowParamsCover); ok {
		p.fail("expected '=>' after arrow function parameters")
	}

	if !isAssignmentOperator(p.cur.Type) {
		return left
	}
	opTok := p.cur
	var target Expression
	if opTok.Type == lexer.ASSIGN {
		target = p.assignmentTarget(left, start)
		// The cover form stays in the tree; the evaluator re-reads it as a
		// pattern.
		switch left.(type) {
		case *ObjectLiteral, *ArrayLiteral:
			target = left
		}
	} else {
		if !isSimpleAssignmentTarget(left) {
			p.failAt(start, "invalid left-hand side in assignment")
		}
		target = left
	}
	p.next()
	right := p.parseAssignment()
	return &AssignmentExpression{Token: opTok, Operator: opTok.Literal, Left: target, Right: right}
}

// assignmentTarget validates the target of `=` or of a for-in/of head. Object
// and array literals become patterns; everything else must be a simple target.
func (p *Parser) assignmentTarget(e Expression, tok lexer.Token) Expression {
	switch e.(type) {
	case *ObjectLiteral, *ArrayLiteral:
		pat, err := CoverToAssignmentPattern(e)
		if err != nil {
			p.failAt(tok, "%s", err.Error())
		}
		p.markConverted(e)
		return pat
	}
	if !isSimpleAssignmentTarget(e) {
		p.failAt(tok, "invalid assignment target")
	}
	return e
}

func isSimpleAssignmentTarget(e Expression) bool {
	switch t := e.(type) {
	case *Identifier:
		return t.Name != "eval" && t.Name != "arguments"
	case *MemberExpression:
		return true
	case *ParenthesizedExpression:
		return isSimpleAssignmentTarget(t.Expression)
	}
	return false
}

func (p *Parser) markConverted(e Expression) {
	switch t := e.(type) {
	case *ObjectLiteral:
		p.converted[t] = true
		for _, prop := range t.Properties {
			if prop.Value != nil {
				p.markConverted(prop.Value)
			}
		}
	case *ArrayLiteral:
		for _, el := range t.Elements {
			if el != nil {
				p.markConverted(el)
			}
		}
	case *AssignmentExpression:
		p.markConverted(t.Left)
	case *SpreadElement:
		p.markConverted(t.Argument)
	}
}

func (p *Parser) parseYield() Expression {
	tok := p.cur
	p.next()
	y := &YieldExpression{}
	if p.cur.NewlineBefore {
		return y
	}
	if p.eat(lexer.ASTERISK) {
		y.Delegate = true
		y.Argument = p.parseAssignment()
		return y
	}
	switch p.cur.Type {
	case lexer.RPAREN, lexer.RBRACKET, lexer.RBRACE, lexer.COMMA, lexer.SEMICOLON,
		lexer.COLON, lexer.EOF, lexer.IN:
		return y
	}
	if p.isIdent("of") && tok.Type == lexer.IDENT {
		return y
	}
	y.Argument = p.parseAssignment()
	return y
}

func (p *Parser) parseConditional() Expression {
	test := p.parseBinary(precCoalesce)
	if !p.eat(lexer.QUESTION) {
		return test
	}
	cond := &ConditionalExpression{Test: test}
	cond.Consequent = p.parseAssignmentIn()
	p.expect(lexer.COLON)
	cond.Alternate = p.parseAssignment()
	return cond
}

// Binary operator precedences, lowest first.
const (
	precCoalesce = iota + 1
	precLogicalOr
	precLogicalAnd
	precBitwiseOr
	precBitwiseXor
	precBitwiseAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precExponent
)

var binaryPrecedence = map[lexer.TokenType]int{
	lexer.COALESCE:             precCoalesce,
	lexer.LOGICAL_OR:           precLogicalOr,
	lexer.LOGICAL_AND:          precLogicalAnd,
	lexer.BITWISE_OR:           precBitwiseOr,
	lexer.BITWISE_XOR:          precBitwiseXor,
	lexer.BITWISE_AND:          precBitwiseAnd,
	lexer.EQ:                   precEquality,
	lexer.NOT_EQ:               precEquality,
	lexer.STRICT_EQ:            precEquality,
	lexer.STRICT_NOT_EQ:        precEquality,
	lexer.LT:                   precRelational,
	lexer.GT:                   precRelational,
	lexer.LE:                   precRelational,
	lexer.GE:                   precRelational,
	lexer.INSTANCEOF:           precRelational,
	lexer.IN:                   precRelational,
	lexer.LEFT_SHIFT:           precShift,
	lexer.RIGHT_SHIFT:          precShift,
	lexer.UNSIGNED_RIGHT_SHIFT: precShift,
	lexer.PLUS:                 precAdditive,
	lexer.MINUS:                precAdditive,
	lexer.ASTERISK:             precMultiplicative,
	lexer.SLASH:                precMultiplicative,
	lexer.REMAINDER:            precMultiplicative,
	lexer.EXPONENT:             precExponent,
}

func (p *Parser) currentPrecedence() (int, bool) {
	if p.noIn && p.is(lexer.IN) {
		return 0, false
	}
	prec, ok := binaryPrecedence[p.cur.Type]
	return prec, ok
}

// parseBinary is the precedence-climbing loop shared by every binary and
// logical operator. Operators are left associative except `**`, whose right
// operand is parsed at its own precedence.
func (p *Parser) parseBinary(minPrec int) Expression {
	start := p.cur
	left := p.parseUnary()
	for {
		prec, ok := p.currentPrecedence()
		if !ok || prec < minPrec {
			return left
		}
		op := p.cur
		if op.Type == lexer.EXPONENT {
			if _, unary := left.(*UnaryExpression); unary && start.Type != lexer.LPAREN {
				p.fail("unary operator used immediately before exponentiation expression")
			}
		}
		p.next()
		nextMin := prec + 1
		if op.Type == lexer.EXPONENT {
			nextMin = prec
		}
		right := p.parseBinary(nextMin)
		switch op.Type {
		case lexer.LOGICAL_AND, lexer.LOGICAL_OR, lexer.COALESCE:
			left = &LogicalExpression{Operator: op.Literal, Left: left, Right: right}
		case lexer.INSTANCEOF:
			left = &BinaryExpression{Operator: "instanceof", Left: left, Right: right}
		case lexer.IN:
			left = &BinaryExpression{Operator: "in", Left: left, Right: right}
		default:
			left = &BinaryExpression{Operator: op.Literal, Left: left, Right: right}
		}
	}
}

func (p *Parser) parseUnary() Expression {
	tok := p.cur
	switch tok.Type {
	case lexer.BANG, lexer.MINUS, lexer.PLUS, lexer.BITWISE_NOT, lexer.TYPEOF, lexer.VOID, lexer.DELETE:
		p.next()
		operand := p.parseUnary()
		op := tok.Literal
		if _, isIdent := operand.(*Identifier); isIdent && tok.Type == lexer.DELETE {
			p.failAt(tok, "delete of an unqualified identifier")
		}
		return &UnaryExpression{Operator: op, Operand: operand}
	case lexer.INC, lexer.DEC:
		p.next()
		operand := p.parseUnary()
		if !isSimpleAssignmentTarget(operand) {
			p.failAt(tok, "invalid left-hand side in prefix operation")
		}
		return &UpdateExpression{Operator: tok.Literal, Prefix: true, Operand: operand}
	case lexer.IDENT:
		if tok.Literal == "await" && p.inAsync {
			p.next()
			return &AwaitExpression{Argument: p.parseUnary()}
		}
	}
	expr := p.parseLeftHandSide()
	if (p.is(lexer.INC) || p.is(lexer.DEC)) && !p.cur.NewlineBefore {
		if !isSimpleAssignmentTarget(expr) {
			p.fail("invalid left-hand side in postfix operation")
		}
		op := p.cur.Literal
		p.next()
		return &UpdateExpression{Operator: op, Operand: expr}
	}
	return expr
}

func (p *Parser) parseLeftHandSide() Expression {
	var e Expression
	if p.is(lexer.NEW) {
		e = p.parseNew()
	} else {
		e = p.parsePrimary()
	}
	return p.parseCallTail(e, true)
}

func (p *Parser) parseNew() Expression {
	p.expect(lexer.NEW)
	var callee Expression
	if p.is(lexer.NEW) {
		callee = p.parseNew()
	} else {
		callee = p.parsePrimary()
	}
	callee = p.parseCallTail(callee, false)
	ne := &NewExpression{Callee: callee}
	if p.is(lexer.LPAREN) {
		ne.Arguments = p.parseArguments()
	}
	return ne
}

func (p *Parser) parseCallTail(e Expression, allowCall bool) Expression {
	for {
		switch {
		case p.is(lexer.DOT):
			p.next()
			if !p.is(lexer.IDENT) && !lexer.IsKeyword(p.cur.Type) {
				p.fail("unexpected token '%s' after '.'", p.describe(p.cur))
			}
			e = &MemberExpression{Object: e, Name: p.cur.Literal}
			p.next()
		case p.is(lexer.LBRACKET):
			p.next()
			prop := p.parseExpressionIn()
			p.expect(lexer.RBRACKET)
			e = &MemberExpression{Object: e, Property: prop, Computed: true}
		case p.is(lexer.LPAREN) && allowCall:
			e = &CallExpression{Callee: e, Arguments: p.parseArguments()}
		case p.is(lexer.TEMPLATE):
			p.fail("tagged templates are not supported")
		default:
			return e
		}
	}
}

func (p *Parser) parseArguments() []Expression {
	p.expect(lexer.LPAREN)
	args := []Expression{}
	for !p.eat(lexer.RPAREN) {
		if p.eat(lexer.SPREAD) {
			args = append(args, &SpreadElement{Argument: p.parseAssignmentIn()})
		} else {
			args = append(args, p.parseAssignmentIn())
		}
		if !p.is(lexer.RPAREN) {
			p.expect(lexer.COMMA)
		}
	}
	return args
}

func (p *Parser) parsePrimary() Expression {
	tok := p.cur
	switch tok.Type {
	case lexer.THIS:
		p.next()
		return &ThisExpression{}
	case lexer.NULL:
		p.next()
		return &NullLiteral{}
	case lexer.TRUE, lexer.FALSE:
		p.next()
		return &BooleanLiteral{Value: tok.Type == lexer.TRUE}
	case lexer.NUMBER:
		p.next()
		n, err := lexer.ParseNumber(tok.Literal)
		if err != nil {
			p.failAt(tok, "invalid number literal '%s'", tok.Literal)
		}
		return &NumberLiteral{Token: tok, Value: n}
	case lexer.STRING:
		p.next()
		return &StringLiteral{Token: tok, Value: tok.Value}
	case lexer.TEMPLATE:
		p.next()
		return p.parseTemplate(tok)
	case lexer.REGEX:
		p.next()
		slash := strings.LastIndexByte(tok.Literal, '/')
		return &RegExpLiteral{Pattern: tok.Literal[1:slash], Flags: tok.Literal[slash+1:]}
	case lexer.LBRACKET:
		return p.parseArrayLiteral()
	case lexer.LBRACE:
		return p.parseObjectLiteral()
	case lexer.FUNCTION:
		return p.parseFunction(false, false)
	case lexer.LPAREN:
		return p.parseParenthesized()
	case lexer.IDENT:
		return p.parseIdentifierExpression()
	}
	p.fail("unexpected token '%s'", p.describe(tok))
	return nil
}

func (p *Parser) parseIdentifierExpression() Expression {
	tok := p.cur
	if tok.Literal == "async" && !p.peek(1).NewlineBefore {
		switch {
		case p.peek(1).Type == lexer.FUNCTION:
			p.next()
			return p.parseFunction(true, false)
		case p.peek(1).Type == lexer.IDENT && p.peek(2).Type == lexer.ARROW:
			p.next()
			saved := p.inAsync
			p.inAsync = true
			param := p.parseBindingIdentifier()
			p.inAsync = saved
			return p.parseArrowBody(tok, []*BindingElement{{Target: param}}, nil, true)
		}
	}
	if p.isReservedIdent(tok.Literal) {
		p.fail("unexpected reserved word '%s'", tok.Literal)
	}
	p.next()
	return &Identifier{Token: tok, Name: tok.Literal}
}

func (p *Parser) parseParenthesized() Expression {
	p.expect(lexer.LPAREN)
	if p.eat(lexer.RPAREN) {
		if !p.is(lexer.ARROW) {
			p.fail("unexpected token ')'")
		}
		return &arrowParamsCover{}
	}
	saved := p.noIn
	p.noIn = false
	defer func() { p.noIn = saved }()

	var items []Expression
	for {
		if p.eat(lexer.SPREAD) {
			rest := p.parseBindingTarget()
			p.expect(lexer.RPAREN)
			if !p.is(lexer.ARROW) {
				p.fail("expected '=>' after rest parameter")
			}
			return &arrowParamsCover{params: items, rest: rest}
		}
		items = append(items, p.parseAssignment())
		if p.eat(lexer.RPAREN) {
			break
		}
		p.expect(lexer.COMMA)
		if p.is(lexer.RPAREN) {
			// trailing comma is only legal in arrow parameter lists
			p.next()
			if !p.is(lexer.ARROW) {
				p.fail("unexpected token ')'")
			}
			return &arrowParamsCover{params: items}
		}
	}
	if len(items) == 1 {
		return &ParenthesizedExpression{Expression: items[0]}
	}
	return &ParenthesizedExpression{Expression: &SequenceExpression{Expressions: items}}
}

func (p *Parser) parseArrayLiteral() Expression {
	tok := p.expect(lexer.LBRACKET)
	lit := &ArrayLiteral{Token: tok, Elements: []Expression{}}
	for !p.eat(lexer.RBRACKET) {
		if p.eat(lexer.COMMA) {
			lit.Elements = append(lit.Elements, nil)
			continue
		}
		if p.eat(lexer.SPREAD) {
			lit.Elements = append(lit.Elements, &SpreadElement{Argument: p.parseAssignmentIn()})
		} else {
			lit.Elements = append(lit.Elements, p.parseAssignmentIn())
		}
		if !p.is(lexer.RBRACKET) {
			p.expect(lexer.COMMA)
		}
	}
	return lit
}

func (p *Parser) isPropertyNameStart(t lexer.Token) bool {
	switch t.Type {
	case lexer.IDENT, lexer.STRING, lexer.NUMBER, lexer.LBRACKET:
		return true
	}
	return lexer.IsKeyword(t.Type)
}

func (p *Parser) parseObjectLiteral() Expression {
	tok := p.expect(lexer.LBRACE)
	lit := &ObjectLiteral{Token: tok}
	for !p.eat(lexer.RBRACE) {
		lit.Properties = append(lit.Properties, p.parsePropertyDefinition(lit))
		if !p.is(lexer.RBRACE) {
			p.expect(lexer.COMMA)
		}
	}
	return lit
}

func (p *Parser) parsePropertyDefinition(lit *ObjectLiteral) *Property {
	if p.eat(lexer.SPREAD) {
		return &Property{Kind: PropertySpread, Value: p.parseAssignmentIn()}
	}
	start := p.cur
	kind := PropertyInit
	isAsync, isGenerator := false, false
	if (p.isIdent("get") || p.isIdent("set")) && p.isPropertyNameStart(p.peek(1)) {
		if p.cur.Literal == "get" {
			kind = PropertyGet
		} else {
			kind = PropertySet
		}
		p.next()
	} else if p.isIdent("async") && !p.peek(1).NewlineBefore &&
		(p.isPropertyNameStart(p.peek(1)) || p.peek(1).Type == lexer.ASTERISK) {
		isAsync = true
		p.next()
	}
	if p.eat(lexer.ASTERISK) {
		isGenerator = true
	}
	keyTok := p.cur
	key, computed := p.parsePropertyName()
	prop := &Property{Kind: kind, Key: key, Computed: computed}

	if kind != PropertyInit || p.is(lexer.LPAREN) {
		fn := &FunctionLiteral{Token: start, IsAsync: isAsync, IsGenerator: isGenerator, IsMethod: true}
		p.parseFunctionRest(fn)
		switch {
		case kind == PropertyGet && (len(fn.Params) != 0 || fn.Rest != nil):
			p.failAt(keyTok, "getter must not have parameters")
		case kind == PropertySet && (len(fn.Params) != 1 || fn.Rest != nil):
			p.failAt(keyTok, "setter must have exactly one parameter")
		}
		prop.Value = fn
		prop.Method = true
		return prop
	}
	if isAsync || isGenerator {
		p.fail("expected '(' after method name")
	}
	if p.eat(lexer.COLON) {
		prop.Value = p.parseAssignmentIn()
		return prop
	}
	id, ok := key.(*Identifier)
	if !ok || computed || keyTok.Type != lexer.IDENT {
		p.failAt(keyTok, "unexpected token '%s' in object literal", keyTok.Literal)
	}
	if p.isReservedIdent(id.Name) {
		p.failAt(keyTok, "unexpected reserved word '%s'", id.Name)
	}
	prop.Shorthand = true
	prop.Value = &Identifier{Token: keyTok, Name: id.Name}
	if p.is(lexer.ASSIGN) {
		p.coverInits[lit] = p.cur
		p.next()
		prop.CoverInitializer = p.parseAssignmentIn()
	}
	return prop
}

// parseTemplate splits the raw template text into cooked chunks and parses
// each substitution with a nested parser sharing this parser's context.
func (p *Parser) parseTemplate(tok lexer.Token) Expression {
	raw := tok.Value
	lit := &TemplateLiteral{}
	chunkStart := 0
	for i := 0; i < len(raw); i++ {
		switch {
		case raw[i] == '\\':
			i++
		case raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{':
			end := matchingBrace(raw, i+2)
			if end < 0 {
				p.failAt(tok, "unterminated template substitution")
			}
			lit.Quasis = append(lit.Quasis, p.cookTemplate(tok, raw[chunkStart:i]))
			lit.Expressions = append(lit.Expressions, p.parseSubstitution(tok, raw[i+2:end]))
			i = end
			chunkStart = end + 1
		}
	}
	lit.Quasis = append(lit.Quasis, p.cookTemplate(tok, raw[chunkStart:]))
	return lit
}

func (p *Parser) cookTemplate(tok lexer.Token, chunk string) string {
	cooked, err := lexer.CookTemplateString(chunk)
	if err != nil {
		p.failAt(tok, "%s", err.Error())
	}
	return cooked
}

func (p *Parser) parseSubstitution(tok lexer.Token, code string) Expression {
	sub := NewParser(source.NewEvalSource(code))
	sub.inFunction, sub.inAsync, sub.inGenerator = p.inFunction, p.inAsync, p.inGenerator
	var expr Expression
	func() {
		defer func() {
			if r := recover(); r != nil {
				b, ok := r.(bailout)
				if !ok {
					panic(r)
				}
				p.failAt(tok, "in template substitution: %s", b.err.Msg)
			}
		}()
		if sub.cur.Type == lexer.ILLEGAL {
			sub.failAt(sub.cur, "%s", sub.cur.Literal)
		}
		expr = sub.parseExpression()
		if !sub.is(lexer.EOF) {
			sub.fail("unexpected token '%s'", sub.describe(sub.cur))
		}
	}()
	for lit, t := range sub.coverInits {
		if !sub.converted[lit] {
			p.failAt(t, "invalid shorthand property initializer")
		}
	}
	return expr
}

// matchingBrace returns the index of the '}' closing a substitution whose
// body starts at from, skipping nested braces, strings and templates.
func matchingBrace(s string, from int) int {
	depth := 0
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		case '"', '\'', '`':
			q := s[i]
			for i++; i < len(s) && s[i] != q; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		}
	}
	return -1
}
