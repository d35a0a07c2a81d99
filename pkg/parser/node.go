package parser

import "github.com/nooga/cadence/pkg/lexer"

// Node is the closed set of AST node shapes. The unexported marker methods
// keep the set closed to this package so evaluators can switch exhaustively.
type Node interface {
	node()
}

// Expression represents an expression node.
type Expression interface {
	Node
	expressionNode()
}

// Statement represents a statement node.
type Statement interface {
	Node
	statementNode()
}

// Program is the root of a parsed script.
type Program struct {
	Body []Statement
}

// --- Expressions ---

type Identifier struct {
	Token lexer.Token
	Name  string
}

type NumberLiteral struct {
	Token lexer.Token
	Value float64
}

type StringLiteral struct {
	Token lexer.Token
	Value string
}

type BooleanLiteral struct {
	Value bool
}

type NullLiteral struct{}

// TemplateLiteral holds len(Expressions)+1 cooked string chunks.
type TemplateLiteral struct {
	Quasis      []string
	Expressions []Expression
}

type RegExpLiteral struct {
	Pattern string
	Flags   string
}

type ThisExpression struct{}

// ArrayLiteral elements may be nil (elision) or *SpreadElement.
type ArrayLiteral struct {
	Token    lexer.Token
	Elements []Expression
}

// PropertyKind classifies object literal members.
type PropertyKind int

const (
	PropertyInit PropertyKind = iota
	PropertyGet
	PropertySet
	PropertySpread
)

// Property is one member of an object literal. Non-computed keys are stored
// as *Identifier, *StringLiteral or *NumberLiteral.
type Property struct {
	Kind      PropertyKind
	Key       Expression
	Computed  bool
	Value     Expression
	Method    bool
	Shorthand bool
	// CoverInitializer is the `= expr` of a shorthand property, only legal
	// when the literal is reinterpreted as an assignment pattern.
	CoverInitializer Expression
}

type ObjectLiteral struct {
	Token      lexer.Token
	Properties []*Property
}

type SpreadElement struct {
	Argument Expression
}

// FunctionLiteral covers function expressions, declarations, arrows and
// methods.
type FunctionLiteral struct {
	Token       lexer.Token
	Name        *Identifier
	Params      []*BindingElement
	Rest        Expression // binding target of a rest parameter
	Body        []Statement
	ExprBody    Expression // concise arrow body
	IsArrow     bool
	IsAsync     bool
	IsGenerator bool
	IsMethod    bool
	// Source is the function's source text, used by Function.prototype.toString.
	Source string
}

type UnaryExpression struct {
	Operator string
	Operand  Expression
}

type UpdateExpression struct {
	Operator string
	Prefix   bool
	Operand  Expression
}

// BinaryExpression covers arithmetic, shift, relational, equality and
// bitwise operators.
type BinaryExpression struct {
	Operator string
	Left     Expression
	Right    Expression
}

// LogicalExpression covers the short-circuiting &&, || and ??.
type LogicalExpression struct {
	Operator string
	Left     Expression
	Right    Expression
}

type ConditionalExpression struct {
	Test       Expression
	Consequent Expression
	Alternate  Expression
}

// AssignmentExpression covers `=`, the arithmetic/bitwise compound
// operators and the logical assignment operators. Left keeps the parsed
// shape; an *ObjectLiteral or *ArrayLiteral there is the cover grammar for a
// destructuring pattern.
type AssignmentExpression struct {
	Token    lexer.Token
	Operator string
	Left     Expression
	Right    Expression
}

type SequenceExpression struct {
	Expressions []Expression
}

// MemberExpression is `obj.name` (Computed false, Name set) or
// `obj[expr]` (Computed true, Property set).
type MemberExpression struct {
	Object   Expression
	Property Expression
	Name     string
	Computed bool
}

type CallExpression struct {
	Callee    Expression
	Arguments []Expression
}

type NewExpression struct {
	Callee    Expression
	Arguments []Expression
}

type AwaitExpression struct {
	Argument Expression
}

type YieldExpression struct {
	Argument Expression // nil for a bare yield
	Delegate bool
}

type ParenthesizedExpression struct {
	Expression Expression
}

// --- Binding patterns ---

// BindingElement pairs a binding target (an *Identifier, *ObjectPattern,
// *ArrayPattern, or for assignment patterns any simple target) with an
// optional default.
type BindingElement struct {
	Target  Expression
	Default Expression
}

type PatternProperty struct {
	Key      Expression
	Computed bool
	Value    *BindingElement
}

type ObjectPattern struct {
	Properties []*PatternProperty
	Rest       Expression
}

// ArrayPattern elements may be nil for elisions.
type ArrayPattern struct {
	Elements []*BindingElement
	Rest     Expression
}

// --- Statements ---

type VariableDeclarator struct {
	Target Expression // *Identifier, *ObjectPattern or *ArrayPattern
	Init   Expression
}

type VariableDeclaration struct {
	Kind         string // "var", "let", "const"
	Declarations []*VariableDeclarator
}

type FunctionDeclaration struct {
	Function *FunctionLiteral
}

type ExpressionStatement struct {
	Expression Expression
}

type BlockStatement struct {
	Body []Statement
}

type EmptyStatement struct{}

type IfStatement struct {
	Test       Expression
	Consequent Statement
	Alternate  Statement
}

type WhileStatement struct {
	Test Expression
	Body Statement
}

type DoWhileStatement struct {
	Body Statement
	Test Expression
}

// ForStatement Init is a *VariableDeclaration, an Expression or nil.
type ForStatement struct {
	Init   Node
	Test   Expression
	Update Expression
	Body   Statement
}

// ForInOfStatement covers for-in, for-of and for-await-of. Left is a
// *VariableDeclaration with one declarator and no initializer, or an
// assignment target expression.
type ForInOfStatement struct {
	Of    bool
	Await bool
	Left  Node
	Right Expression
	Body  Statement
}

type BreakStatement struct {
	Label string
}

type ContinueStatement struct {
	Label string
}

type ReturnStatement struct {
	Argument Expression
}

type ThrowStatement struct {
	Argument Expression
}

type TryStatement struct {
	Block     *BlockStatement
	Param     Expression // binding target, nil for `catch {` or no handler
	Handler   *BlockStatement
	Finalizer *BlockStatement
}

type SwitchCase struct {
	Test       Expression // nil for default
	Consequent []Statement
}

type SwitchStatement struct {
	Discriminant Expression
	Cases        []*SwitchCase
}

type LabeledStatement struct {
	Label string
	Body  Statement
}

func (*Program) node() {}

func (*Identifier) node()              {}
func (*NumberLiteral) node()           {}
func (*StringLiteral) node()           {}
func (*BooleanLiteral) node()          {}
func (*NullLiteral) node()             {}
func (*TemplateLiteral) node()         {}
func (*RegExpLiteral) node()           {}
func (*ThisExpression) node()          {}
func (*ArrayLiteral) node()            {}
func (*ObjectLiteral) node()           {}
func (*SpreadElement) node()           {}
func (*FunctionLiteral) node()         {}
func (*UnaryExpression) node()         {}
func (*UpdateExpression) node()        {}
func (*BinaryExpression) node()        {}
func (*LogicalExpression) node()       {}
func (*ConditionalExpression) node()   {}
func (*AssignmentExpression) node()    {}
func (*SequenceExpression) node()      {}
func (*MemberExpression) node()        {}
func (*CallExpression) node()          {}
func (*NewExpression) node()           {}
func (*AwaitExpression) node()         {}
func (*YieldExpression) node()         {}
func (*ParenthesizedExpression) node() {}
func (*ObjectPattern) node()           {}
func (*ArrayPattern) node()            {}

func (*Identifier) expressionNode()              {}
func (*NumberLiteral) expressionNode()           {}
func (*StringLiteral) expressionNode()           {}
func (*BooleanLiteral) expressionNode()          {}
func (*NullLiteral) expressionNode()             {}
func (*TemplateLiteral) expressionNode()         {}
func (*RegExpLiteral) expressionNode()           {}
func (*ThisExpression) expressionNode()          {}
func (*ArrayLiteral) expressionNode()            {}
func (*ObjectLiteral) expressionNode()           {}
func (*SpreadElement) expressionNode()           {}
func (*FunctionLiteral) expressionNode()         {}
func (*UnaryExpression) expressionNode()         {}
func (*UpdateExpression) expressionNode()        {}
func (*BinaryExpression) expressionNode()        {}
func (*LogicalExpression) expressionNode()       {}
func (*ConditionalExpression) expressionNode()   {}
func (*AssignmentExpression) expressionNode()    {}
func (*SequenceExpression) expressionNode()      {}
func (*MemberExpression) expressionNode()        {}
func (*CallExpression) expressionNode()          {}
func (*NewExpression) expressionNode()           {}
func (*AwaitExpression) expressionNode()         {}
func (*YieldExpression) expressionNode()         {}
func (*ParenthesizedExpression) expressionNode() {}
func (*ObjectPattern) expressionNode()           {}
func (*ArrayPattern) expressionNode()            {}

func (*VariableDeclaration) node()  {}
func (*FunctionDeclaration) node()  {}
func (*ExpressionStatement) node()  {}
func (*BlockStatement) node()       {}
func (*EmptyStatement) node()       {}
func (*IfStatement) node()          {}
func (*WhileStatement) node()       {}
func (*DoWhileStatement) node()     {}
func (*ForStatement) node()         {}
func (*ForInOfStatement) node()     {}
func (*BreakStatement) node()       {}
func (*ContinueStatement) node()    {}
func (*ReturnStatement) node()      {}
func (*ThrowStatement) node()       {}
func (*TryStatement) node()         {}
func (*SwitchStatement) node()      {}
func (*LabeledStatement) node()     {}
func (*VariableDeclarator) node()   {}
func (*BindingElement) node()       {}
func (*SwitchCase) node()           {}

func (*VariableDeclaration) statementNode() {}
func (*FunctionDeclaration) statementNode() {}
func (*ExpressionStatement) statementNode() {}
func (*BlockStatement) statementNode()      {}
func (*EmptyStatement) statementNode()      {}
func (*IfStatement) statementNode()         {}
func (*WhileStatement) statementNode()      {}
func (*DoWhileStatement) statementNode()    {}
func (*ForStatement) statementNode()        {}
func (*ForInOfStatement) statementNode()    {}
func (*BreakStatement) statementNode()      {}
func (*ContinueStatement) statementNode()   {}
func (*ReturnStatement) statementNode()     {}
func (*ThrowStatement) statementNode()      {}
func (*TryStatement) statementNode()        {}
func (*SwitchStatement) statementNode()     {}
func (*LabeledStatement) statementNode()    {}
