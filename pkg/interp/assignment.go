package interp

import (
	"github.com/nooga/cadence/pkg/env"
	"github.com/nooga/cadence/pkg/parser"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

func (f *frame) assignment(n *parser.AssignmentExpression) value.Completion {
	r := f.realm
	switch n.Operator {
	case "=":
		switch n.Left.(type) {
		case *parser.ObjectLiteral, *parser.ArrayLiteral, *parser.ObjectPattern, *parser.ArrayPattern:
			pattern, err := parser.CoverToAssignmentPattern(n.Left)
			value.Assert(err == nil, "invalid assignment pattern: %v", err)
			rc := f.evaluate(n.Right)
			if rc.IsAbrupt() {
				return rc
			}
			if c := f.bindPattern(pattern, rc.Value, nil); c.IsAbrupt() {
				return c
			}
			return rc
		}
		ref, c := f.reference(n.Left)
		if c.IsAbrupt() {
			return c
		}
		rc := f.assignedValue(n.Left, n.Right, ref)
		if rc.IsAbrupt() {
			return rc
		}
		if c := PutValue(r, ref, rc.Value); c.IsAbrupt() {
			return c
		}
		return rc
	case "&&=", "||=", "??=":
		ref, c := f.reference(n.Left)
		if c.IsAbrupt() {
			return c
		}
		lc := GetValue(r, ref)
		if lc.IsAbrupt() || shortCircuits(n.Operator, lc.Value) {
			return lc
		}
		rc := f.assignedValue(n.Left, n.Right, ref)
		if rc.IsAbrupt() {
			return rc
		}
		if c := PutValue(r, ref, rc.Value); c.IsAbrupt() {
			return c
		}
		return rc
	}

	ref, c := f.reference(n.Left)
	if c.IsAbrupt() {
		return c
	}
	lc := GetValue(r, ref)
	if lc.IsAbrupt() {
		return lc
	}
	rc := f.evaluate(n.Right)
	if rc.IsAbrupt() {
		return rc
	}
	res := applyBinaryOperator(r, compoundOperators[n.Operator], lc.Value, rc.Value)
	if res.IsAbrupt() {
		return res
	}
	if c := PutValue(r, ref, res.Value); c.IsAbrupt() {
		return c
	}
	return res
}

// assignedValue evaluates the right side of an assignment, naming anonymous
// functions after a plain identifier target.
func (f *frame) assignedValue(left, right parser.Expression, ref *Reference) value.Completion {
	if parser.IsAnonymousFunctionDefinition(right) && parser.IsIdentifierRef(left) {
		return value.NormalCompletion(f.namedEvaluation(right, ref.Name))
	}
	return f.evaluate(right)
}

func isPattern(e parser.Expression) bool {
	switch e.(type) {
	case *parser.ObjectPattern, *parser.ArrayPattern:
		return true
	}
	return false
}

// bindPattern binds target to v. With a nil scope it assigns through
// PutValue; otherwise it initializes bindings found from scope.
func (f *frame) bindPattern(target parser.Expression, v value.Value, scope env.Environment) value.Completion {
	switch t := target.(type) {
	case *parser.ObjectPattern:
		return f.bindObjectPattern(t, v, scope)
	case *parser.ArrayPattern:
		return f.bindArrayPattern(t, v, scope)
	}
	ref, c := f.targetReference(target, scope)
	if c.IsAbrupt() {
		return c
	}
	return f.bindReference(ref, v, scope)
}

func (f *frame) targetReference(target parser.Expression, scope env.Environment) (*Reference, value.Completion) {
	if id, ok := target.(*parser.Identifier); ok {
		return f.resolveBinding(id.Name, scope)
	}
	return f.reference(target)
}

func (f *frame) bindReference(ref *Reference, v value.Value, scope env.Environment) value.Completion {
	if scope != nil {
		return InitializeReferencedBinding(f.realm, ref, v)
	}
	return PutValue(f.realm, ref, v)
}

// bindElement binds one pattern element. Simple targets are resolved before
// fetch produces the value; defaults apply when that value is undefined.
func (f *frame) bindElement(el *parser.BindingElement, scope env.Environment, fetch func() (value.Value, value.Completion)) value.Completion {
	var ref *Reference
	if !isPattern(el.Target) {
		var c value.Completion
		if ref, c = f.targetReference(el.Target, scope); c.IsAbrupt() {
			return c
		}
	}
	v, c := fetch()
	if c.IsAbrupt() {
		return c
	}
	if el.Default != nil && value.IsUndefined(v) {
		if ref != nil && parser.IsAnonymousFunctionDefinition(el.Default) && parser.IsIdentifierRef(el.Target) {
			v = f.namedEvaluation(el.Default, ref.Name)
		} else {
			dc := f.evaluate(el.Default)
			if dc.IsAbrupt() {
				return dc
			}
			v = dc.Value
		}
	}
	if ref == nil {
		return f.bindPattern(el.Target, v, scope)
	}
	return f.bindReference(ref, v, scope)
}

func (f *frame) bindObjectPattern(p *parser.ObjectPattern, v value.Value, scope env.Environment) value.Completion {
	r := f.realm
	if value.IsNullish(v) {
		return r.ThrowTypeError("Cannot destructure '%s' as it is %s.", runtime.Describe(v), runtime.Describe(v))
	}
	excluded := make([]value.PropertyKey, 0, len(p.Properties))
	for _, prop := range p.Properties {
		key, c := f.propertyKey(prop.Key, prop.Computed)
		if c.IsAbrupt() {
			return c
		}
		c = f.bindElement(prop.Value, scope, func() (value.Value, value.Completion) {
			c := runtime.GetV(r, v, key)
			return c.ValueOrUndefined(), c
		})
		if c.IsAbrupt() {
			return c
		}
		excluded = append(excluded, key)
	}
	if p.Rest == nil {
		return value.Empty
	}
	ref, c := f.targetReference(p.Rest, scope)
	if c.IsAbrupt() {
		return c
	}
	rest := value.NewObject(r.Intrinsic("%Object.prototype%"))
	if c := copyDataProperties(r, rest, v, excluded); c.IsAbrupt() {
		return c
	}
	return f.bindReference(ref, rest, scope)
}

func (f *frame) bindArrayPattern(p *parser.ArrayPattern, v value.Value, scope env.Environment) value.Completion {
	rec, c := runtime.GetIterator(f.realm, v)
	if c.IsAbrupt() {
		return c
	}
	c = f.iteratorBinding(p, rec, scope)
	if !rec.Done {
		return runtime.IteratorClose(f.realm, rec, c)
	}
	return c
}

func (f *frame) iteratorBinding(p *parser.ArrayPattern, rec *runtime.IteratorRecord, scope env.Environment) value.Completion {
	r := f.realm
	next := func() (value.Value, value.Completion) {
		if rec.Done {
			return value.Undefined, value.Empty
		}
		v, done, c := runtime.IteratorStepValue(r, rec)
		if c.IsAbrupt() {
			return nil, c
		}
		if done {
			return value.Undefined, value.Empty
		}
		return v, value.Empty
	}
	for _, el := range p.Elements {
		if el == nil {
			if _, c := next(); c.IsAbrupt() {
				return c
			}
			continue
		}
		if c := f.bindElement(el, scope, next); c.IsAbrupt() {
			return c
		}
	}
	if p.Rest == nil {
		return value.Empty
	}

	var ref *Reference
	if !isPattern(p.Rest) {
		var c value.Completion
		if ref, c = f.targetReference(p.Rest, scope); c.IsAbrupt() {
			return c
		}
	}
	var items []value.Value
	for !rec.Done {
		v, done, c := runtime.IteratorStepValue(r, rec)
		if c.IsAbrupt() {
			return c
		}
		if !done {
			items = append(items, v)
		}
	}
	arr := runtime.CreateArrayFromList(r, items)
	if ref == nil {
		return f.bindPattern(p.Rest, arr, scope)
	}
	return f.bindReference(ref, arr, scope)
}
