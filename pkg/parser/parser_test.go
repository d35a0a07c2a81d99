package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nooga/cadence/pkg/source"
)

func parse(t *testing.T, src string) *Program {
	t.Helper()
	prog, err := ParseString(src)
	require.NoError(t, err, src)
	return prog
}

func expr(t *testing.T, src string) Expression {
	t.Helper()
	prog := parse(t, src)
	require.Len(t, prog.Body, 1)
	es, ok := prog.Body[0].(*ExpressionStatement)
	require.True(t, ok, "expected an expression statement, got %T", prog.Body[0])
	return es.Expression
}

func TestOperatorPrecedence(t *testing.T) {
	e := expr(t, "1 + 2 * 3 ** 2 ** 1;")
	add, ok := e.(*BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, "+", add.Operator)

	mul, ok := add.Right.(*BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, "*", mul.Operator)

	// ** is right-associative.
	pow, ok := mul.Right.(*BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, "**", pow.Operator)
	inner, ok := pow.Right.(*BinaryExpression)
	require.True(t, ok)
	assert.Equal(t, "**", inner.Operator)
}

func TestLogicalAndConditional(t *testing.T) {
	e := expr(t, "a ?? b || c ? d : e;")
	cond, ok := e.(*ConditionalExpression)
	require.True(t, ok)
	assert.IsType(t, &LogicalExpression{}, cond.Test)
	assert.IsType(t, &Identifier{}, cond.Consequent)
}

func TestAutomaticSemicolonInsertion(t *testing.T) {
	prog := parse(t, "let a = 1\nlet b = a\n++b\nfunction f() { return\n42 }")
	require.Len(t, prog.Body, 4)

	// ++ after a line break starts a new statement.
	upd, ok := prog.Body[2].(*ExpressionStatement).Expression.(*UpdateExpression)
	require.True(t, ok)
	assert.True(t, upd.Prefix)

	fn := prog.Body[3].(*FunctionDeclaration).Function
	require.Len(t, fn.Body, 2)
	ret := fn.Body[0].(*ReturnStatement)
	assert.Nil(t, ret.Argument)
}

func TestFunctionForms(t *testing.T) {
	prog := parse(t, `
		async function* agen() {}
		const arrow = async (x, y = 1) => x + y;
		const obj = { *gen() {}, async method() {}, get v() { return 1; }, set v(x) {} };
	`)
	fn := prog.Body[0].(*FunctionDeclaration).Function
	assert.True(t, fn.IsAsync)
	assert.True(t, fn.IsGenerator)
	assert.Equal(t, "agen", fn.Name.Name)
	assert.Equal(t, "async function* agen() {}", fn.Source)

	arrow := prog.Body[1].(*VariableDeclaration).Declarations[0].Init.(*FunctionLiteral)
	assert.True(t, arrow.IsArrow)
	assert.True(t, arrow.IsAsync)
	require.Len(t, arrow.Params, 2)
	assert.NotNil(t, arrow.Params[1].Default)
	assert.NotNil(t, arrow.ExprBody)
	assert.False(t, HasSimpleParameterList(arrow))

	obj := prog.Body[2].(*VariableDeclaration).Declarations[0].Init.(*ObjectLiteral)
	require.Len(t, obj.Properties, 4)
	gen := obj.Properties[0].Value.(*FunctionLiteral)
	assert.True(t, gen.IsGenerator)
	assert.True(t, gen.IsMethod)
	assert.Equal(t, PropertyGet, obj.Properties[2].Kind)
	assert.Equal(t, PropertySet, obj.Properties[3].Kind)
}

func TestDestructuringDeclaration(t *testing.T) {
	prog := parse(t, "const { a, b: [c = 1, , ...d], ...e } = obj;")
	decl := prog.Body[0].(*VariableDeclaration)
	assert.Equal(t, "const", decl.Kind)
	pat, ok := decl.Declarations[0].Target.(*ObjectPattern)
	require.True(t, ok)
	require.Len(t, pat.Properties, 2)
	assert.NotNil(t, pat.Rest)

	arr, ok := pat.Properties[1].Value.Target.(*ArrayPattern)
	require.True(t, ok)
	require.Len(t, arr.Elements, 2)
	assert.NotNil(t, arr.Elements[0].Default)
	assert.Nil(t, arr.Elements[1], "elision")
	assert.NotNil(t, arr.Rest)

	assert.Equal(t, []string{"a", "c", "d", "e"}, BoundNames(pat))
}

func TestAssignmentPatternCover(t *testing.T) {
	e := expr(t, "[a, b] = [b, a];")
	assign, ok := e.(*AssignmentExpression)
	require.True(t, ok)
	_, isLiteral := assign.Left.(*ArrayLiteral)
	require.True(t, isLiteral)

	pat, err := CoverToAssignmentPattern(assign.Left)
	require.NoError(t, err)
	arr, ok := pat.(*ArrayPattern)
	require.True(t, ok)
	assert.Len(t, arr.Elements, 2)

	obj := expr(t, "({ x, y: o.y = 2 } = src);").(*ParenthesizedExpression).Expression.(*AssignmentExpression)
	pat, err = CoverToAssignmentPattern(obj.Left)
	require.NoError(t, err)
	op := pat.(*ObjectPattern)
	require.Len(t, op.Properties, 2)
	assert.IsType(t, &MemberExpression{}, op.Properties[1].Value.Target)
	assert.NotNil(t, op.Properties[1].Value.Default)
}

func TestForInOfForms(t *testing.T) {
	prog := parse(t, `
		for (const [k, v] of entries) {}
		for (key in obj) {}
		async function f() { for await (const x of src) {} }
	`)
	of := prog.Body[0].(*ForInOfStatement)
	assert.True(t, of.Of)
	assert.False(t, of.Await)
	assert.IsType(t, &VariableDeclaration{}, of.Left)

	in := prog.Body[1].(*ForInOfStatement)
	assert.False(t, in.Of)
	assert.IsType(t, &Identifier{}, in.Left)

	loop := prog.Body[2].(*FunctionDeclaration).Function.Body[0].(*ForInOfStatement)
	assert.True(t, loop.Await)
}

func TestTemplateLiteral(t *testing.T) {
	tl, ok := expr(t, "`a${1 + 1}b${`n${x}`}`;").(*TemplateLiteral)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", ""}, tl.Quasis)
	require.Len(t, tl.Expressions, 2)
	assert.IsType(t, &TemplateLiteral{}, tl.Expressions[1])
}

func TestStaticSemantics(t *testing.T) {
	prog := parse(t, `
		var a;
		let b;
		function c() { var inner; }
		if (x) { var d; let notVar; }
		for (var e of xs) {}
		try {} catch { var f; }
	`)
	assert.Equal(t, []string{"a", "d", "e", "f"}, VarDeclaredNames(prog.Body))
	assert.Equal(t, []string{"b"}, LexicallyDeclaredNames(prog.Body, false))
	assert.Equal(t, []string{"b", "c"}, LexicallyDeclaredNames(prog.Body, true))
	fns := FunctionDeclarations(prog.Body)
	require.Len(t, fns, 1)
	assert.Equal(t, "c", fns[0].Name.Name)

	assert.True(t, IsAnonymousFunctionDefinition(expr(t, "(function () {});")))
	assert.True(t, IsAnonymousFunctionDefinition(expr(t, "(() => 1);")))
	assert.False(t, IsAnonymousFunctionDefinition(expr(t, "(function named() {});")))
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"let x; var x;", "identifier 'x' has already been declared"},
		{"let y; let y;", "identifier 'y' has already been declared"},
		{"{ function g() {} let g; }", "identifier 'g' has already been declared"},
		{"const c;", "missing initializer in const declaration"},
		{"break;", "illegal break statement"},
		{"while (1) { continue nowhere; }", "undefined label 'nowhere'"},
		{"return 1;", "illegal return statement"},
		{"throw\nnew Error();", "illegal newline after throw"},
		{"try {}", "missing catch or finally after try"},
		{"switch (x) { default: default: }", "more than one default clause in switch statement"},
		{"l: l: ;", "label 'l' has already been declared"},
		{"function f(a, a) {}", "duplicate parameter name 'a'"},
		{"delete x;", "delete of an unqualified identifier"},
		{"-2 ** 2;", "unary operator used immediately before exponentiation expression"},
		{"1 = 2;", "invalid assignment target"},
		{"f() += 2;", "invalid left-hand side in assignment"},
		{"({ a = 1 });", "invalid shorthand property initializer"},
		{"tag`x`;", "tagged templates are not supported"},
		{"for await (const x of y) {}", "for await is only valid in async functions"},
		{"if (x) function f() {}", "function declarations are not allowed in statement position"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := ParseString(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "Syntax Error at ")
		})
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	_, errs := NewParser(source.NewEvalSource("var ok = 1;\nvar bad = ;")).ParseProgram()
	require.Len(t, errs, 1)
	assert.Equal(t, "Syntax", errs[0].Kind())
	assert.Equal(t, "Syntax Error at 2:11: unexpected token ';'", errs[0].Error())
}
