package interp

import (
	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/env"
	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/parser"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// statementList evaluates stmts in order. The result carries the value of
// the last statement that produced one.
func (f *frame) statementList(stmts []parser.Statement) value.Completion {
	var last value.Value
	for _, s := range stmts {
		c := f.statement(s)
		if c.IsAbrupt() {
			return value.UpdateEmpty(c, last)
		}
		if c.Value != nil {
			last = c.Value
		}
	}
	return value.NormalCompletion(last)
}

func (f *frame) statement(s parser.Statement) value.Completion {
	switch n := s.(type) {
	case *parser.ExpressionStatement:
		return f.evaluate(n.Expression)
	case *parser.VariableDeclaration:
		return f.variableDeclaration(n)
	case *parser.FunctionDeclaration, *parser.EmptyStatement:
		return value.Empty
	case *parser.BlockStatement:
		return f.block(n.Body)
	case *parser.IfStatement:
		tc := f.evaluate(n.Test)
		if tc.IsAbrupt() {
			return tc
		}
		var c value.Completion
		switch {
		case value.ToBoolean(tc.Value):
			c = f.statement(n.Consequent)
		case n.Alternate != nil:
			c = f.statement(n.Alternate)
		default:
			return value.NormalCompletion(value.Undefined)
		}
		return value.UpdateEmpty(c, value.Undefined)
	case *parser.WhileStatement, *parser.DoWhileStatement, *parser.ForStatement,
		*parser.ForInOfStatement, *parser.SwitchStatement:
		return f.breakable(n, nil)
	case *parser.LabeledStatement:
		return f.labeled(n, nil)
	case *parser.BreakStatement:
		return value.BreakCompletion(n.Label)
	case *parser.ContinueStatement:
		return value.ContinueCompletion(n.Label)
	case *parser.ReturnStatement:
		if n.Argument == nil {
			return value.ReturnCompletion(value.Undefined)
		}
		c := f.evaluate(n.Argument)
		if c.IsAbrupt() {
			return c
		}
		if f.kind() == builtins.KindAsyncGenerator {
			if c = f.await(c.Value); c.IsAbrupt() {
				return c
			}
		}
		return value.ReturnCompletion(c.Value)
	case *parser.ThrowStatement:
		c := f.evaluate(n.Argument)
		if c.IsAbrupt() {
			return c
		}
		return value.ThrowCompletion(c.Value)
	case *parser.TryStatement:
		return f.tryStatement(n)
	}
	panic(errors.Invariantf("cannot evaluate statement %T", s))
}

// labeled implements LabelledEvaluation: labels accumulate until a
// breakable statement consumes them.
func (f *frame) labeled(n *parser.LabeledStatement, labels []string) value.Completion {
	labels = append(append([]string(nil), labels...), n.Label)
	var c value.Completion
	switch body := n.Body.(type) {
	case *parser.LabeledStatement:
		c = f.labeled(body, labels)
	case *parser.WhileStatement, *parser.DoWhileStatement, *parser.ForStatement,
		*parser.ForInOfStatement, *parser.SwitchStatement:
		c = f.breakable(body, labels)
	default:
		c = f.statement(body)
	}
	if c.Kind == value.Break && c.Target == n.Label {
		c = value.NormalCompletion(c.Value)
	}
	return c
}

// breakable evaluates a loop or switch and absorbs its unlabelled break.
func (f *frame) breakable(s parser.Statement, labels []string) value.Completion {
	var c value.Completion
	switch n := s.(type) {
	case *parser.WhileStatement:
		c = f.whileLoop(n, labels)
	case *parser.DoWhileStatement:
		c = f.doWhileLoop(n, labels)
	case *parser.ForStatement:
		c = f.forLoop(n, labels)
	case *parser.ForInOfStatement:
		c = f.forInOf(n, labels)
	case *parser.SwitchStatement:
		c = f.switchStatement(n)
	}
	if c.Kind == value.Break && c.Target == "" {
		c = value.NormalCompletion(c.ValueOrUndefined())
	}
	return c
}

// loopContinues reports whether the loop with the given label set keeps
// iterating after a body completion.
func loopContinues(c value.Completion, labels []string) bool {
	switch {
	case c.Kind == value.Normal:
		return true
	case c.Kind != value.Continue:
		return false
	case c.Target == "":
		return true
	}
	for _, l := range labels {
		if l == c.Target {
			return true
		}
	}
	return false
}

func (f *frame) whileLoop(n *parser.WhileStatement, labels []string) value.Completion {
	var v value.Value = value.Undefined
	for {
		tc := f.evaluate(n.Test)
		if tc.IsAbrupt() {
			return tc
		}
		if !value.ToBoolean(tc.Value) {
			return value.NormalCompletion(v)
		}
		c := f.statement(n.Body)
		if !loopContinues(c, labels) {
			return value.UpdateEmpty(c, v)
		}
		if c.Value != nil {
			v = c.Value
		}
	}
}

func (f *frame) doWhileLoop(n *parser.DoWhileStatement, labels []string) value.Completion {
	var v value.Value = value.Undefined
	for {
		c := f.statement(n.Body)
		if !loopContinues(c, labels) {
			return value.UpdateEmpty(c, v)
		}
		if c.Value != nil {
			v = c.Value
		}
		tc := f.evaluate(n.Test)
		if tc.IsAbrupt() {
			return tc
		}
		if !value.ToBoolean(tc.Value) {
			return value.NormalCompletion(v)
		}
	}
}

func (f *frame) forLoop(n *parser.ForStatement, labels []string) value.Completion {
	switch init := n.Init.(type) {
	case nil:
	case *parser.VariableDeclaration:
		if init.Kind != "var" {
			return f.lexicalForLoop(n, init, labels)
		}
		if c := f.variableDeclaration(init); c.IsAbrupt() {
			return c
		}
	case parser.Expression:
		if c := f.evaluate(init); c.IsAbrupt() {
			return c
		}
	}
	return f.forBody(n, nil, labels)
}

// lexicalForLoop gives each iteration of a let loop its own copy of the
// loop bindings, so closures capture per-iteration values.
func (f *frame) lexicalForLoop(n *parser.ForStatement, decl *parser.VariableDeclaration, labels []string) value.Completion {
	oldEnv := f.env()
	loopEnv := env.NewDeclarative(oldEnv)
	var names []string
	for _, d := range decl.Declarations {
		names = append(names, parser.BoundNames(d.Target)...)
	}
	for _, name := range names {
		if decl.Kind == "const" {
			loopEnv.CreateImmutableBinding(name, true)
		} else {
			loopEnv.CreateMutableBinding(name, false)
		}
	}
	f.setEnv(loopEnv)
	defer f.setEnv(oldEnv)
	if c := f.variableDeclaration(decl); c.IsAbrupt() {
		return c
	}
	if decl.Kind == "const" {
		names = nil
	}
	return f.forBody(n, names, labels)
}

func (f *frame) forBody(n *parser.ForStatement, perIteration []string, labels []string) value.Completion {
	var v value.Value = value.Undefined
	if c := f.copyIterationEnv(perIteration); c.IsAbrupt() {
		return c
	}
	for {
		if n.Test != nil {
			tc := f.evaluate(n.Test)
			if tc.IsAbrupt() {
				return tc
			}
			if !value.ToBoolean(tc.Value) {
				return value.NormalCompletion(v)
			}
		}
		c := f.statement(n.Body)
		if !loopContinues(c, labels) {
			return value.UpdateEmpty(c, v)
		}
		if c.Value != nil {
			v = c.Value
		}
		if c := f.copyIterationEnv(perIteration); c.IsAbrupt() {
			return c
		}
		if n.Update != nil {
			if c := f.evaluate(n.Update); c.IsAbrupt() {
				return c
			}
		}
	}
}

// copyIterationEnv implements CreatePerIterationEnvironment.
func (f *frame) copyIterationEnv(names []string) value.Completion {
	if len(names) == 0 {
		return value.Empty
	}
	last := f.env()
	next := env.NewDeclarative(last.Outer())
	for _, name := range names {
		next.CreateMutableBinding(name, false)
		v, err := last.GetBindingValue(name, true)
		if err != nil {
			return f.realm.ThrowBindingError(err)
		}
		next.InitializeBinding(name, v)
	}
	f.setEnv(next)
	return value.Empty
}

func (f *frame) variableDeclaration(n *parser.VariableDeclaration) value.Completion {
	lexical := n.Kind != "var"
	for _, d := range n.Declarations {
		if d.Init == nil {
			if lexical {
				ref, c := f.resolveBinding(d.Target.(*parser.Identifier).Name, nil)
				if c.IsAbrupt() {
					return c
				}
				if c := InitializeReferencedBinding(f.realm, ref, value.Undefined); c.IsAbrupt() {
					return c
				}
			}
			continue
		}
		var scope env.Environment
		if lexical {
			scope = f.env()
		}
		id, ok := d.Target.(*parser.Identifier)
		if !ok {
			c := f.evaluate(d.Init)
			if c.IsAbrupt() {
				return c
			}
			if c := f.bindPattern(d.Target, c.Value, scope); c.IsAbrupt() {
				return c
			}
			continue
		}
		ref, c := f.resolveBinding(id.Name, nil)
		if c.IsAbrupt() {
			return c
		}
		vc := f.assignedValue(d.Target, d.Init, ref)
		if vc.IsAbrupt() {
			return vc
		}
		if c := f.bindReference(ref, vc.Value, scope); c.IsAbrupt() {
			return c
		}
	}
	return value.Empty
}

func (f *frame) block(body []parser.Statement) value.Completion {
	if len(parser.LexicallyDeclaredNames(body, true)) == 0 {
		return f.statementList(body)
	}
	oldEnv := f.env()
	blockEnv := env.NewDeclarative(oldEnv)
	f.blockDeclarationInstantiation(body, blockEnv)
	f.setEnv(blockEnv)
	c := f.statementList(body)
	f.setEnv(oldEnv)
	return c
}

func (f *frame) switchStatement(n *parser.SwitchStatement) value.Completion {
	dc := f.evaluate(n.Discriminant)
	if dc.IsAbrupt() {
		return dc
	}
	var all []parser.Statement
	for _, cs := range n.Cases {
		all = append(all, cs.Consequent...)
	}
	oldEnv := f.env()
	blockEnv := env.NewDeclarative(oldEnv)
	f.blockDeclarationInstantiation(all, blockEnv)
	f.setEnv(blockEnv)
	c := f.caseBlock(n.Cases, dc.Value)
	f.setEnv(oldEnv)
	return c
}

// caseBlock runs from the first clause whose selector strictly equals
// input, or from default when none does, falling through to the end.
func (f *frame) caseBlock(cases []*parser.SwitchCase, input value.Value) value.Completion {
	start, dflt := -1, -1
	for i, cs := range cases {
		if cs.Test == nil {
			dflt = i
			continue
		}
		c := f.evaluate(cs.Test)
		if c.IsAbrupt() {
			return c
		}
		if value.IsStrictlyEqual(input, c.Value) {
			start = i
			break
		}
	}
	if start < 0 {
		start = dflt
	}
	var v value.Value = value.Undefined
	if start < 0 {
		return value.NormalCompletion(v)
	}
	for _, cs := range cases[start:] {
		c := f.statementList(cs.Consequent)
		if c.Value != nil {
			v = c.Value
		}
		if c.IsAbrupt() {
			return value.UpdateEmpty(c, v)
		}
	}
	return value.NormalCompletion(v)
}

func (f *frame) tryStatement(n *parser.TryStatement) value.Completion {
	c := f.block(n.Block.Body)
	if n.Handler != nil && c.Kind == value.Throw {
		c = f.catchClause(n, c.Value)
	}
	if n.Finalizer != nil {
		if fc := f.block(n.Finalizer.Body); fc.IsAbrupt() {
			c = fc
		}
	}
	return value.UpdateEmpty(c, value.Undefined)
}

func (f *frame) catchClause(n *parser.TryStatement, thrown value.Value) value.Completion {
	if n.Param == nil {
		return f.block(n.Handler.Body)
	}
	oldEnv := f.env()
	catchEnv := env.NewDeclarative(oldEnv)
	for _, name := range parser.BoundNames(n.Param) {
		catchEnv.CreateMutableBinding(name, false)
	}
	f.setEnv(catchEnv)
	defer f.setEnv(oldEnv)
	if c := f.bindPattern(n.Param, thrown, catchEnv); c.IsAbrupt() {
		return c
	}
	return f.block(n.Handler.Body)
}

// propertyEnumerator yields the enumerable string keys of an object and its
// prototypes for for-in. Keys deleted before they are reached are skipped,
// and a key is reported once even when shadowed.
type propertyEnumerator struct {
	obj     *value.Object
	keys    []value.PropertyKey
	loaded  bool
	visited map[string]bool
}

func (e *propertyEnumerator) next() (string, bool) {
	for e.obj != nil {
		if !e.loaded {
			e.keys, e.loaded = e.obj.OwnPropertyKeys(), true
		}
		for len(e.keys) > 0 {
			k := e.keys[0]
			e.keys = e.keys[1:]
			if k.IsSymbol() || e.visited[k.Name] {
				continue
			}
			p := e.obj.GetOwnProperty(k)
			if p == nil {
				continue
			}
			e.visited[k.Name] = true
			if p.Enumerable {
				return k.Name, true
			}
		}
		e.obj, e.loaded = e.obj.Prototype(), false
	}
	return "", false
}

type iterationKind uint8

const (
	enumerate iterationKind = iota
	iterate
	asyncIterate
)

func (f *frame) forInOf(n *parser.ForInOfStatement, labels []string) value.Completion {
	r := f.realm
	decl, isDecl := n.Left.(*parser.VariableDeclaration)
	lexical := isDecl && decl.Kind != "var"

	oldEnv := f.env()
	if lexical {
		if names := parser.BoundNames(decl.Declarations[0].Target); len(names) > 0 {
			tdz := env.NewDeclarative(oldEnv)
			for _, name := range names {
				tdz.CreateMutableBinding(name, false)
			}
			f.setEnv(tdz)
		}
	}
	ec := f.evaluate(n.Right)
	f.setEnv(oldEnv)
	if ec.IsAbrupt() {
		return ec
	}

	kind := iterate
	var (
		rec   *runtime.IteratorRecord
		props *propertyEnumerator
		c     value.Completion
	)
	switch {
	case !n.Of:
		kind = enumerate
		if value.IsNullish(ec.Value) {
			return value.BreakCompletion("")
		}
		obj, c := runtime.ToObject(r, ec.Value)
		if c.IsAbrupt() {
			return c
		}
		props = &propertyEnumerator{obj: obj, visited: map[string]bool{}}
	case n.Await:
		kind = asyncIterate
		rec, c = builtins.GetAsyncIterator(r, ec.Value)
	default:
		rec, c = runtime.GetIterator(r, ec.Value)
	}
	if c.IsAbrupt() {
		return c
	}

	next := func() (value.Value, bool, value.Completion) {
		if kind == enumerate {
			key, ok := props.next()
			return value.String(key), !ok, value.Empty
		}
		if kind == iterate {
			return runtime.IteratorStepValue(r, rec)
		}
		rc := runtime.Call(r, rec.NextMethod, rec.Iterator, nil)
		if rc.IsAbrupt() {
			return nil, false, rc
		}
		if rc = f.await(rc.Value); rc.IsAbrupt() {
			return nil, false, rc
		}
		res, ok := rc.Value.(*value.Object)
		if !ok {
			return nil, false, r.ThrowTypeError("Iterator result %s is not an object", runtime.Describe(rc.Value))
		}
		done, c := runtime.IteratorComplete(res)
		if c.IsAbrupt() || done {
			return nil, done, c
		}
		vc := runtime.IteratorValue(res)
		return vc.Value, false, vc
	}
	closeIter := func(c value.Completion) value.Completion {
		switch kind {
		case iterate:
			return runtime.IteratorClose(r, rec, c)
		case asyncIterate:
			return f.asyncIteratorClose(rec, c)
		}
		return c
	}

	var v value.Value = value.Undefined
	for {
		item, done, c := next()
		if c.IsAbrupt() {
			return c
		}
		if done {
			return value.NormalCompletion(v)
		}

		var status value.Completion
		switch {
		case !isDecl:
			target := n.Left.(parser.Expression)
			status = f.bindPattern(target, item, nil)
		case !lexical:
			status = f.bindPattern(decl.Declarations[0].Target, item, nil)
		default:
			iterEnv := env.NewDeclarative(oldEnv)
			for _, name := range parser.BoundNames(decl.Declarations[0].Target) {
				if decl.Kind == "const" {
					iterEnv.CreateImmutableBinding(name, true)
				} else {
					iterEnv.CreateMutableBinding(name, false)
				}
			}
			f.setEnv(iterEnv)
			status = f.bindPattern(decl.Declarations[0].Target, item, iterEnv)
		}
		if status.IsAbrupt() {
			f.setEnv(oldEnv)
			return closeIter(status)
		}

		res := f.statement(n.Body)
		f.setEnv(oldEnv)
		if !loopContinues(res, labels) {
			return closeIter(value.UpdateEmpty(res, v))
		}
		if res.Value != nil {
			v = res.Value
		}
	}
}

// asyncIteratorClose calls the iterator's return method and awaits its
// result. A throw completion wins over anything return does.
func (f *frame) asyncIteratorClose(rec *runtime.IteratorRecord, c value.Completion) value.Completion {
	r := f.realm
	ret, inner := runtime.GetMethod(r, rec.Iterator, value.StringKey("return"))
	if !inner.IsAbrupt() {
		if value.IsUndefined(ret) {
			return c
		}
		inner = runtime.Call(r, ret, rec.Iterator, nil)
		if !inner.IsAbrupt() {
			inner = f.await(inner.Value)
		}
	}
	if c.Kind == value.Throw {
		return c
	}
	if inner.IsAbrupt() {
		return inner
	}
	if _, ok := inner.Value.(*value.Object); !ok {
		return r.ThrowTypeError("Iterator result %s is not an object", runtime.Describe(inner.Value))
	}
	return c
}
