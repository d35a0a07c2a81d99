package interp

import (
	"strings"

	"github.com/nooga/cadence/pkg/builtins"
	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/parser"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// evaluate runs an expression and returns its value. Abrupt completions
// propagate unchanged.
func (f *frame) evaluate(e parser.Expression) value.Completion {
	switch n := e.(type) {
	case *parser.Identifier:
		ref, c := f.resolveBinding(n.Name, nil)
		if c.IsAbrupt() {
			return c
		}
		return GetValue(f.realm, ref)
	case *parser.NumberLiteral:
		return value.NormalCompletion(value.Number(n.Value))
	case *parser.StringLiteral:
		return value.NormalCompletion(value.String(n.Value))
	case *parser.BooleanLiteral:
		return value.NormalCompletion(value.Bool(n.Value))
	case *parser.NullLiteral:
		return value.NormalCompletion(value.Null)
	case *parser.TemplateLiteral:
		return f.template(n)
	case *parser.RegExpLiteral:
		return builtins.CreateRegExp(f.realm, n.Pattern, n.Flags)
	case *parser.ThisExpression:
		return f.resolveThisBinding()
	case *parser.ParenthesizedExpression:
		return f.evaluate(n.Expression)
	case *parser.ArrayLiteral:
		return f.arrayLiteral(n)
	case *parser.ObjectLiteral:
		return f.objectLiteral(n)
	case *parser.FunctionLiteral:
		return value.NormalCompletion(f.functionExpression(n, nil))
	case *parser.UnaryExpression:
		return f.unary(n)
	case *parser.UpdateExpression:
		return f.update(n)
	case *parser.BinaryExpression:
		return f.binary(n)
	case *parser.LogicalExpression:
		return f.logical(n)
	case *parser.ConditionalExpression:
		tc := f.evaluate(n.Test)
		if tc.IsAbrupt() {
			return tc
		}
		if value.ToBoolean(tc.Value) {
			return f.evaluate(n.Consequent)
		}
		return f.evaluate(n.Alternate)
	case *parser.AssignmentExpression:
		return f.assignment(n)
	case *parser.SequenceExpression:
		var c value.Completion
		for _, x := range n.Expressions {
			if c = f.evaluate(x); c.IsAbrupt() {
				return c
			}
		}
		return c
	case *parser.MemberExpression:
		ref, c := f.memberReference(n)
		if c.IsAbrupt() {
			return c
		}
		return GetValue(f.realm, ref)
	case *parser.CallExpression:
		return f.call(n)
	case *parser.NewExpression:
		return f.newExpression(n)
	case *parser.AwaitExpression:
		c := f.evaluate(n.Argument)
		if c.IsAbrupt() {
			return c
		}
		return f.await(c.Value)
	case *parser.YieldExpression:
		if n.Delegate {
			return f.yieldStar(n.Argument)
		}
		v := value.Undefined
		if n.Argument != nil {
			c := f.evaluate(n.Argument)
			if c.IsAbrupt() {
				return c
			}
			v = c.Value
		}
		return f.yield(v)
	}
	panic(errors.Invariantf("cannot evaluate %T", e))
}

// reference evaluates an assignment target to a Reference.
func (f *frame) reference(e parser.Expression) (*Reference, value.Completion) {
	switch n := e.(type) {
	case *parser.Identifier:
		return f.resolveBinding(n.Name, nil)
	case *parser.MemberExpression:
		return f.memberReference(n)
	case *parser.ParenthesizedExpression:
		return f.reference(n.Expression)
	}
	panic(errors.Invariantf("%T is not a reference", e))
}

// memberReference evaluates the base and key of a property access. The key
// is converted with ToPropertyKey before the base is checked for nullish
// values, so a throwing toString on the key runs first.
func (f *frame) memberReference(n *parser.MemberExpression) (*Reference, value.Completion) {
	bc := f.evaluate(n.Object)
	if bc.IsAbrupt() {
		return nil, bc
	}
	if !n.Computed {
		return &Reference{Base: bc.Value, Name: value.StringKey(n.Name)}, value.Empty
	}
	kc := f.evaluate(n.Property)
	if kc.IsAbrupt() {
		return nil, kc
	}
	key, c := runtime.ToPropertyKey(f.realm, kc.Value)
	if c.IsAbrupt() {
		return nil, c
	}
	return &Reference{Base: bc.Value, Name: key}, value.Empty
}

func (f *frame) template(n *parser.TemplateLiteral) value.Completion {
	var sb strings.Builder
	for i, quasi := range n.Quasis {
		sb.WriteString(quasi)
		if i >= len(n.Expressions) {
			continue
		}
		c := f.evaluate(n.Expressions[i])
		if c.IsAbrupt() {
			return c
		}
		s, c := runtime.ToString(f.realm, c.Value)
		if c.IsAbrupt() {
			return c
		}
		sb.WriteString(s)
	}
	return value.NormalCompletion(value.String(sb.String()))
}

func (f *frame) arrayLiteral(n *parser.ArrayLiteral) value.Completion {
	r := f.realm
	arr := value.NewArray(r.Intrinsic("%Array.prototype%"), nil)
	index := 0
	for _, el := range n.Elements {
		switch el := el.(type) {
		case nil:
			// hole
		case *parser.SpreadElement:
			c := f.evaluate(el.Argument)
			if c.IsAbrupt() {
				return c
			}
			rec, c := runtime.GetIterator(r, c.Value)
			if c.IsAbrupt() {
				return c
			}
			for {
				v, done, c := runtime.IteratorStepValue(r, rec)
				if c.IsAbrupt() {
					return c
				}
				if done {
					break
				}
				arr.CreateDataProperty(value.IndexKey(index), v)
				index++
			}
			continue
		default:
			c := f.evaluate(el)
			if c.IsAbrupt() {
				return c
			}
			arr.CreateDataProperty(value.IndexKey(index), c.Value)
		}
		index++
	}
	arr.Set(value.StringKey("length"), value.Number(index), arr)
	return value.NormalCompletion(arr)
}

func (f *frame) objectLiteral(n *parser.ObjectLiteral) value.Completion {
	r := f.realm
	obj := value.NewObject(r.Intrinsic("%Object.prototype%"))
	for _, prop := range n.Properties {
		if prop.Kind == parser.PropertySpread {
			c := f.evaluate(prop.Value)
			if c.IsAbrupt() {
				return c
			}
			if c := copyDataProperties(r, obj, c.Value, nil); c.IsAbrupt() {
				return c
			}
			continue
		}
		key, c := f.propertyKey(prop.Key, prop.Computed)
		if c.IsAbrupt() {
			return c
		}
		switch prop.Kind {
		case parser.PropertyGet, parser.PropertySet:
			prefix := "get"
			if prop.Kind == parser.PropertySet {
				prefix = "set"
			}
			fn := f.makeFunction(prop.Value.(*parser.FunctionLiteral), f.env(), key, prefix)
			desc := value.Property{Accessor: true, Enumerable: true, Configurable: true}
			if cur := obj.GetOwnProperty(key); cur != nil && cur.Accessor {
				desc.Get, desc.Set = cur.Get, cur.Set
			}
			if prefix == "get" {
				desc.Get = fn
			} else {
				desc.Set = fn
			}
			obj.DefineOwnProperty(key, desc)
			continue
		}

		var v value.Value
		switch {
		case prop.Method:
			v = f.makeFunction(prop.Value.(*parser.FunctionLiteral), f.env(), key, "")
		case isProtoSetter(prop):
			vc := f.evaluate(prop.Value)
			if vc.IsAbrupt() {
				return vc
			}
			switch proto := vc.Value.(type) {
			case *value.Object:
				obj.SetPrototype(proto)
			case value.NullType:
				obj.SetPrototype(nil)
			}
			continue
		case !prop.Shorthand && parser.IsAnonymousFunctionDefinition(prop.Value):
			v = f.namedEvaluation(prop.Value, key)
		default:
			vc := f.evaluate(prop.Value)
			if vc.IsAbrupt() {
				return vc
			}
			v = vc.Value
		}
		obj.CreateDataProperty(key, v)
	}
	return value.NormalCompletion(obj)
}

// isProtoSetter reports whether prop is the `__proto__: v` form that sets
// the prototype of the literal instead of defining a property.
func isProtoSetter(prop *parser.Property) bool {
	if prop.Computed || prop.Shorthand || prop.Method {
		return false
	}
	switch k := prop.Key.(type) {
	case *parser.Identifier:
		return k.Name == "__proto__"
	case *parser.StringLiteral:
		return k.Value == "__proto__"
	}
	return false
}

// propertyKey evaluates the key of a literal or pattern property.
func (f *frame) propertyKey(key parser.Expression, computed bool) (value.PropertyKey, value.Completion) {
	if computed {
		c := f.evaluate(key)
		if c.IsAbrupt() {
			return value.PropertyKey{}, c
		}
		return runtime.ToPropertyKey(f.realm, c.Value)
	}
	switch k := key.(type) {
	case *parser.Identifier:
		return value.StringKey(k.Name), value.Empty
	case *parser.StringLiteral:
		return value.StringKey(k.Value), value.Empty
	case *parser.NumberLiteral:
		return value.StringKey(value.NumberToString(k.Value)), value.Empty
	}
	panic(errors.Invariantf("invalid property key %T", key))
}

// copyDataProperties copies the own enumerable properties of source onto
// target, skipping excluded keys. Nullish sources copy nothing.
func copyDataProperties(r *runtime.Realm, target *value.Object, source value.Value, excluded []value.PropertyKey) value.Completion {
	if value.IsNullish(source) {
		return value.Empty
	}
	from, c := runtime.ToObject(r, source)
	if c.IsAbrupt() {
		return c
	}
next:
	for _, key := range from.OwnPropertyKeys() {
		for _, ex := range excluded {
			if ex == key {
				continue next
			}
		}
		desc := from.GetOwnProperty(key)
		if desc == nil || !desc.Enumerable {
			continue
		}
		c := from.Get(key, from)
		if c.IsAbrupt() {
			return c
		}
		target.CreateDataProperty(key, c.ValueOrUndefined())
	}
	return value.Empty
}

// argumentList evaluates call arguments left to right, expanding spreads.
func (f *frame) argumentList(args []parser.Expression) ([]value.Value, value.Completion) {
	list := make([]value.Value, 0, len(args))
	for _, a := range args {
		if s, ok := a.(*parser.SpreadElement); ok {
			c := f.evaluate(s.Argument)
			if c.IsAbrupt() {
				return nil, c
			}
			items, c := runtime.IterableToList(f.realm, c.Value)
			if c.IsAbrupt() {
				return nil, c
			}
			list = append(list, items...)
			continue
		}
		c := f.evaluate(a)
		if c.IsAbrupt() {
			return nil, c
		}
		list = append(list, c.Value)
	}
	return list, value.Empty
}

func (f *frame) call(n *parser.CallExpression) value.Completion {
	var (
		fn   value.Value
		this value.Value = value.Undefined
	)
	switch unparen(n.Callee).(type) {
	case *parser.Identifier, *parser.MemberExpression:
		ref, c := f.reference(n.Callee)
		if c.IsAbrupt() {
			return c
		}
		c = GetValue(f.realm, ref)
		if c.IsAbrupt() {
			return c
		}
		fn = c.Value
		if ref.IsPropertyReference() {
			this = ref.Base
		}
	default:
		c := f.evaluate(n.Callee)
		if c.IsAbrupt() {
			return c
		}
		fn = c.Value
	}
	args, c := f.argumentList(n.Arguments)
	if c.IsAbrupt() {
		return c
	}
	if !value.IsCallable(fn) {
		return f.realm.ThrowTypeError("%s is not a function", calleeText(n.Callee))
	}
	return runtime.Call(f.realm, fn, this, args)
}

func (f *frame) newExpression(n *parser.NewExpression) value.Completion {
	c := f.evaluate(n.Callee)
	if c.IsAbrupt() {
		return c
	}
	ctor := c.Value
	args, c := f.argumentList(n.Arguments)
	if c.IsAbrupt() {
		return c
	}
	if !value.IsConstructor(ctor) {
		return f.realm.ThrowTypeError("%s is not a constructor", calleeText(n.Callee))
	}
	return runtime.Construct(f.realm, ctor, args, nil)
}

func unparen(e parser.Expression) parser.Expression {
	for {
		p, ok := e.(*parser.ParenthesizedExpression)
		if !ok {
			return e
		}
		e = p.Expression
	}
}

// calleeText renders a callee for error messages, as in "a.b is not a
// function".
func calleeText(e parser.Expression) string {
	switch n := unparen(e).(type) {
	case *parser.Identifier:
		return n.Name
	case *parser.ThisExpression:
		return "this"
	case *parser.MemberExpression:
		if n.Computed {
			return calleeText(n.Object) + "[...]"
		}
		return calleeText(n.Object) + "." + n.Name
	case *parser.CallExpression:
		return calleeText(n.Callee) + "(...)"
	}
	return "expression"
}
