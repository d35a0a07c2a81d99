package interp

import (
	"math"

	"github.com/nooga/cadence/pkg/errors"
	"github.com/nooga/cadence/pkg/parser"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// compoundOperators maps each non-logical compound assignment operator to
// the binary operator it applies.
var compoundOperators = map[string]string{
	"+=":   "+",
	"-=":   "-",
	"*=":   "*",
	"/=":   "/",
	"%=":   "%",
	"**=":  "**",
	"<<=":  "<<",
	">>=":  ">>",
	">>>=": ">>>",
	"&=":   "&",
	"|=":   "|",
	"^=":   "^",
}

// applyBinaryOperator evaluates lval op rval on already evaluated operands.
// Both binary expressions and compound assignment go through here.
func applyBinaryOperator(r *runtime.Realm, op string, lval, rval value.Value) value.Completion {
	switch op {
	case "+":
		lprim, c := runtime.ToPrimitive(r, lval, "default")
		if c.IsAbrupt() {
			return c
		}
		rprim, c := runtime.ToPrimitive(r, rval, "default")
		if c.IsAbrupt() {
			return c
		}
		_, lstr := lprim.(value.String)
		_, rstr := rprim.(value.String)
		if lstr || rstr {
			ls, c := runtime.ToString(r, lprim)
			if c.IsAbrupt() {
				return c
			}
			rs, c := runtime.ToString(r, rprim)
			if c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.String(ls + rs))
		}
		return numericOperator(r, op, lprim, rprim)
	case "-", "*", "/", "%", "**", "<<", ">>", ">>>", "&", "|", "^":
		return numericOperator(r, op, lval, rval)
	case "<", ">", "<=", ">=":
		return relationalOperator(r, op, lval, rval)
	case "==", "!=":
		eq, c := runtime.IsLooselyEqual(r, lval, rval)
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Bool(eq == (op == "==")))
	case "===":
		return value.NormalCompletion(value.Bool(value.IsStrictlyEqual(lval, rval)))
	case "!==":
		return value.NormalCompletion(value.Bool(!value.IsStrictlyEqual(lval, rval)))
	case "instanceof":
		ok, c := runtime.InstanceofOperator(r, lval, rval)
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Bool(ok))
	case "in":
		obj, ok := rval.(*value.Object)
		if !ok {
			return r.ThrowTypeError("Cannot use 'in' operator to search for '%s' in %s", runtime.Describe(lval), runtime.Describe(rval))
		}
		key, c := runtime.ToPropertyKey(r, lval)
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.Bool(obj.HasProperty(key)))
	}
	panic(errors.Invariantf("unknown binary operator %q", op))
}

func numericOperator(r *runtime.Realm, op string, lval, rval value.Value) value.Completion {
	l, c := runtime.ToNumber(r, lval)
	if c.IsAbrupt() {
		return c
	}
	rn, c := runtime.ToNumber(r, rval)
	if c.IsAbrupt() {
		return c
	}
	var res float64
	switch op {
	case "+":
		res = l + rn
	case "-":
		res = l - rn
	case "*":
		res = l * rn
	case "/":
		res = l / rn
	case "%":
		res = math.Mod(l, rn)
	case "**":
		res = runtime.Exponentiate(l, rn)
	case "<<":
		res = float64(value.ToInt32(l) << (value.ToUint32(rn) & 31))
	case ">>":
		res = float64(value.ToInt32(l) >> (value.ToUint32(rn) & 31))
	case ">>>":
		res = float64(value.ToUint32(l) >> (value.ToUint32(rn) & 31))
	case "&":
		res = float64(value.ToInt32(l) & value.ToInt32(rn))
	case "|":
		res = float64(value.ToInt32(l) | value.ToInt32(rn))
	case "^":
		res = float64(value.ToInt32(l) ^ value.ToInt32(rn))
	}
	return value.NormalCompletion(value.Number(res))
}

func relationalOperator(r *runtime.Realm, op string, lval, rval value.Value) value.Completion {
	var (
		res value.Value
		c   value.Completion
	)
	switch op {
	case "<", ">=":
		res, c = runtime.IsLessThan(r, lval, rval, true)
	default:
		res, c = runtime.IsLessThan(r, rval, lval, false)
	}
	if c.IsAbrupt() {
		return c
	}
	switch op {
	case "<", ">":
		return value.NormalCompletion(value.Bool(res == value.True))
	}
	// <= and >= are false when the swapped comparison is true or undefined.
	return value.NormalCompletion(value.Bool(res == value.False))
}

func (f *frame) binary(n *parser.BinaryExpression) value.Completion {
	lc := f.evaluate(n.Left)
	if lc.IsAbrupt() {
		return lc
	}
	rc := f.evaluate(n.Right)
	if rc.IsAbrupt() {
		return rc
	}
	return applyBinaryOperator(f.realm, n.Operator, lc.Value, rc.Value)
}

// shortCircuits reports whether a logical operator is decided by its left
// operand alone.
func shortCircuits(op string, lval value.Value) bool {
	switch op {
	case "&&", "&&=":
		return !value.ToBoolean(lval)
	case "||", "||=":
		return value.ToBoolean(lval)
	}
	return !value.IsNullish(lval)
}

func (f *frame) logical(n *parser.LogicalExpression) value.Completion {
	lc := f.evaluate(n.Left)
	if lc.IsAbrupt() || shortCircuits(n.Operator, lc.Value) {
		return lc
	}
	return f.evaluate(n.Right)
}

func (f *frame) unary(n *parser.UnaryExpression) value.Completion {
	switch n.Operator {
	case "typeof":
		if id, ok := n.Operand.(*parser.Identifier); ok {
			ref, c := f.resolveBinding(id.Name, nil)
			if c.IsAbrupt() {
				return c
			}
			if ref.IsUnresolvable() {
				return value.NormalCompletion(value.String("undefined"))
			}
			c = GetValue(f.realm, ref)
			if c.IsAbrupt() {
				return c
			}
			return value.NormalCompletion(value.String(value.TypeOf(c.Value)))
		}
		c := f.evaluate(n.Operand)
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.String(value.TypeOf(c.Value)))
	case "delete":
		return f.deleteExpression(n.Operand)
	}

	c := f.evaluate(n.Operand)
	if c.IsAbrupt() {
		return c
	}
	v := c.Value
	switch n.Operator {
	case "void":
		return value.NormalCompletion(value.Undefined)
	case "!":
		return value.NormalCompletion(value.Bool(!value.ToBoolean(v)))
	}
	num, c := runtime.ToNumber(f.realm, v)
	if c.IsAbrupt() {
		return c
	}
	switch n.Operator {
	case "-":
		return value.NormalCompletion(value.Number(-num))
	case "+":
		return value.NormalCompletion(value.Number(num))
	case "~":
		return value.NormalCompletion(value.Number(float64(^value.ToInt32(num))))
	}
	panic(errors.Invariantf("unknown unary operator %q", n.Operator))
}

func (f *frame) deleteExpression(operand parser.Expression) value.Completion {
	for {
		p, ok := operand.(*parser.ParenthesizedExpression)
		if !ok {
			break
		}
		operand = p.Expression
	}
	member, ok := operand.(*parser.MemberExpression)
	if !ok {
		// Strict code cannot delete bindings; deleting any other
		// expression evaluates it and yields true.
		c := f.evaluate(operand)
		if c.IsAbrupt() {
			return c
		}
		return value.NormalCompletion(value.True)
	}
	ref, c := f.memberReference(member)
	if c.IsAbrupt() {
		return c
	}
	obj, c := runtime.ToObject(f.realm, ref.Base)
	if c.IsAbrupt() {
		return c
	}
	return runtime.DeletePropertyOrThrow(f.realm, obj, ref.Name)
}

func (f *frame) update(n *parser.UpdateExpression) value.Completion {
	ref, c := f.reference(n.Operand)
	if c.IsAbrupt() {
		return c
	}
	c = GetValue(f.realm, ref)
	if c.IsAbrupt() {
		return c
	}
	old, c := runtime.ToNumber(f.realm, c.Value)
	if c.IsAbrupt() {
		return c
	}
	next := old + 1
	if n.Operator == "--" {
		next = old - 1
	}
	if c := PutValue(f.realm, ref, value.Number(next)); c.IsAbrupt() {
		return c
	}
	if n.Prefix {
		return value.NormalCompletion(value.Number(next))
	}
	return value.NormalCompletion(value.Number(old))
}
