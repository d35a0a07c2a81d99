package runtime

import (
	"math"
	"unicode/utf16"

	"github.com/nooga/cadence/pkg/value"
)

// Type conversion, property access and call operations. Each returns the
// result alongside a completion; callers check c.IsAbrupt() before using
// the result.

// ToPrimitive converts v with a "default", "number" or "string" hint.
func ToPrimitive(r *Realm, v value.Value, hint string) (value.Value, value.Completion) {
	obj, ok := v.(*value.Object)
	if !ok {
		return v, value.NormalCompletion(v)
	}
	exotic, c := GetMethod(r, obj, value.SymbolKey(value.SymbolToPrimitive))
	if c.IsAbrupt() {
		return nil, c
	}
	if !value.IsUndefined(exotic) {
		c = Call(r, exotic, obj, []value.Value{value.String(hint)})
		if c.IsAbrupt() {
			return nil, c
		}
		if _, isObj := c.Value.(*value.Object); isObj {
			return nil, r.ThrowTypeError("Cannot convert object to primitive value")
		}
		return c.ValueOrUndefined(), c
	}
	if hint == "default" {
		hint = "number"
	}
	return OrdinaryToPrimitive(r, obj, hint)
}

// OrdinaryToPrimitive tries valueOf/toString in hint order.
func OrdinaryToPrimitive(r *Realm, obj *value.Object, hint string) (value.Value, value.Completion) {
	names := [2]string{"valueOf", "toString"}
	if hint == "string" {
		names = [2]string{"toString", "valueOf"}
	}
	for _, name := range names {
		c := obj.Get(value.StringKey(name), obj)
		if c.IsAbrupt() {
			return nil, c
		}
		if value.IsCallable(c.Value) {
			res := Call(r, c.Value, obj, nil)
			if res.IsAbrupt() {
				return nil, res
			}
			if _, isObj := res.Value.(*value.Object); !isObj {
				return res.ValueOrUndefined(), res
			}
		}
	}
	return nil, r.ThrowTypeError("Cannot convert object to primitive value")
}

// ToNumber implements ToNumber (and ToNumeric, since there is no BigInt).
func ToNumber(r *Realm, v value.Value) (float64, value.Completion) {
	switch t := v.(type) {
	case value.UndefinedType:
		return math.NaN(), value.Empty
	case value.NullType:
		return 0, value.Empty
	case value.Boolean:
		if t {
			return 1, value.Empty
		}
		return 0, value.Empty
	case value.Number:
		return float64(t), value.Empty
	case value.String:
		return value.StringToNumber(string(t)), value.Empty
	case *value.Symbol:
		return 0, r.ThrowTypeError("Cannot convert a Symbol value to a number")
	}
	prim, c := ToPrimitive(r, v, "number")
	if c.IsAbrupt() {
		return 0, c
	}
	return ToNumber(r, prim)
}

// ToString implements ToString.
func ToString(r *Realm, v value.Value) (string, value.Completion) {
	switch t := v.(type) {
	case value.UndefinedType:
		return "undefined", value.Empty
	case value.NullType:
		return "null", value.Empty
	case value.Boolean:
		if t {
			return "true", value.Empty
		}
		return "false", value.Empty
	case value.Number:
		return value.NumberToString(float64(t)), value.Empty
	case value.String:
		return string(t), value.Empty
	case *value.Symbol:
		return "", r.ThrowTypeError("Cannot convert a Symbol value to a string")
	}
	prim, c := ToPrimitive(r, v, "string")
	if c.IsAbrupt() {
		return "", c
	}
	return ToString(r, prim)
}

// ToPropertyKey implements ToPropertyKey.
func ToPropertyKey(r *Realm, v value.Value) (value.PropertyKey, value.Completion) {
	switch t := v.(type) {
	case value.String:
		return value.StringKey(string(t)), value.Empty
	case *value.Symbol:
		return value.SymbolKey(t), value.Empty
	}
	prim, c := ToPrimitive(r, v, "string")
	if c.IsAbrupt() {
		return value.PropertyKey{}, c
	}
	if sym, ok := prim.(*value.Symbol); ok {
		return value.SymbolKey(sym), value.Empty
	}
	s, c := ToString(r, prim)
	if c.IsAbrupt() {
		return value.PropertyKey{}, c
	}
	return value.StringKey(s), value.Empty
}

// primitivePrototype returns the prototype used for property lookups on a
// primitive value.
func primitivePrototype(r *Realm, v value.Value) *value.Object {
	switch v.(type) {
	case value.String:
		return r.Intrinsic("%String.prototype%")
	case value.Number:
		return r.Intrinsic("%Number.prototype%")
	case value.Boolean:
		return r.Intrinsic("%Boolean.prototype%")
	case *value.Symbol:
		return r.Intrinsic("%Symbol.prototype%")
	}
	return nil
}

// ToObject wraps primitives; undefined and null throw.
func ToObject(r *Realm, v value.Value) (*value.Object, value.Completion) {
	switch t := v.(type) {
	case *value.Object:
		return t, value.Empty
	case value.UndefinedType, value.NullType:
		return nil, r.ThrowTypeError("Cannot convert undefined or null to object")
	}
	wrapper := value.NewObject(primitivePrototype(r, v))
	wrapper.Internal = v
	switch v.(type) {
	case value.String:
		wrapper.Class = "String"
	case value.Number:
		wrapper.Class = "Number"
	case value.Boolean:
		wrapper.Class = "Boolean"
	case *value.Symbol:
		wrapper.Class = "Symbol"
	}
	return wrapper, value.Empty
}

// StringUnits returns the UTF-16 code units of s.
func StringUnits(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// GetV reads a property of any value, looking primitives up on their
// prototype with the primitive itself as receiver.
func GetV(r *Realm, v value.Value, key value.PropertyKey) value.Completion {
	switch t := v.(type) {
	case *value.Object:
		return t.Get(key, v)
	case value.UndefinedType, value.NullType:
		return r.ThrowTypeError("Cannot read properties of %s (reading '%s')", v.Type(), key)
	case value.String:
		if !key.IsSymbol() {
			units := StringUnits(string(t))
			if key.Name == "length" {
				return value.NormalCompletion(value.Number(len(units)))
			}
			if idx, ok := value.ArrayIndex(key); ok && int(idx) < len(units) {
				return value.NormalCompletion(value.String(string(utf16.Decode(units[idx : idx+1]))))
			}
		}
	}
	return primitivePrototype(r, v).Get(key, v)
}

// Get reads a property of an object.
func Get(o *value.Object, key value.PropertyKey) value.Completion {
	return o.Get(key, o)
}

// Set writes a property; a failed write throws a TypeError when throw is
// set, which is always the case in strict code.
func Set(r *Realm, o *value.Object, key value.PropertyKey, v value.Value, throw bool) value.Completion {
	c := o.Set(key, v, o)
	if c.IsAbrupt() {
		return c
	}
	if c.Value == value.False && throw {
		return r.ThrowTypeError("Cannot assign to read only property '%s' of object", key)
	}
	return value.Empty
}

// SetV writes a property on any value with the value itself as receiver.
func SetV(r *Realm, base value.Value, key value.PropertyKey, v value.Value) value.Completion {
	obj, c := ToObject(r, base)
	if c.IsAbrupt() {
		return r.ThrowTypeError("Cannot set properties of %s (setting '%s')", base.Type(), key)
	}
	c = obj.Set(key, v, base)
	if c.IsAbrupt() {
		return c
	}
	if c.Value == value.False {
		return r.ThrowTypeError("Cannot assign to read only property '%s' of %s", key, value.TypeOf(base))
	}
	return value.Empty
}

// CreateDataPropertyOrThrow defines a data property or throws a TypeError.
func CreateDataPropertyOrThrow(r *Realm, o *value.Object, key value.PropertyKey, v value.Value) value.Completion {
	if !o.CreateDataProperty(key, v) {
		return r.ThrowTypeError("Cannot define property '%s'", key)
	}
	return value.Empty
}

// DeletePropertyOrThrow deletes a property or throws a TypeError.
func DeletePropertyOrThrow(r *Realm, o *value.Object, key value.PropertyKey) value.Completion {
	if !o.Delete(key) {
		return r.ThrowTypeError("Cannot delete property '%s'", key)
	}
	return value.NormalCompletion(value.True)
}

// GetMethod returns undefined for a missing method and throws for a
// non-callable one.
func GetMethod(r *Realm, v value.Value, key value.PropertyKey) (value.Value, value.Completion) {
	c := GetV(r, v, key)
	if c.IsAbrupt() {
		return nil, c
	}
	fn := c.ValueOrUndefined()
	if value.IsNullish(fn) {
		return value.Undefined, value.Empty
	}
	if !value.IsCallable(fn) {
		return nil, r.ThrowTypeError("%s is not a function", key)
	}
	return fn, value.Empty
}

// Call invokes f; a non-callable f throws a TypeError.
func Call(r *Realm, f, this value.Value, args []value.Value) value.Completion {
	obj, ok := f.(*value.Object)
	if !ok || obj.CallFn == nil {
		return r.ThrowTypeError("%s is not a function", Describe(f))
	}
	return obj.CallFn(this, args)
}

// Construct invokes f as a constructor; newTarget defaults to f.
func Construct(r *Realm, f value.Value, args []value.Value, newTarget *value.Object) value.Completion {
	obj, ok := f.(*value.Object)
	if !ok || obj.ConstructFn == nil {
		return r.ThrowTypeError("%s is not a constructor", Describe(f))
	}
	if newTarget == nil {
		newTarget = obj
	}
	return obj.ConstructFn(args, newTarget)
}

// Invoke calls the method key of v with v as this.
func Invoke(r *Realm, v value.Value, key value.PropertyKey, args []value.Value) value.Completion {
	c := GetV(r, v, key)
	if c.IsAbrupt() {
		return c
	}
	return Call(r, c.ValueOrUndefined(), v, args)
}

// GetPrototypeFromConstructor reads newTarget.prototype, falling back to
// the named intrinsic when it is not an object.
func GetPrototypeFromConstructor(r *Realm, newTarget *value.Object, intrinsic string) (*value.Object, value.Completion) {
	c := newTarget.Get(value.StringKey("prototype"), newTarget)
	if c.IsAbrupt() {
		return nil, c
	}
	if proto, ok := c.Value.(*value.Object); ok {
		return proto, value.Empty
	}
	return r.Intrinsic(intrinsic), value.Empty
}

// OrdinaryCreateFromConstructor creates an object whose prototype comes
// from newTarget.
func OrdinaryCreateFromConstructor(r *Realm, newTarget *value.Object, intrinsic string) (*value.Object, value.Completion) {
	proto, c := GetPrototypeFromConstructor(r, newTarget, intrinsic)
	if c.IsAbrupt() {
		return nil, c
	}
	return value.NewObject(proto), value.Empty
}

// SpeciesConstructor reads o.constructor[@@species], defaulting when either
// is undefined. A species that is not a constructor is a TypeError.
func SpeciesConstructor(r *Realm, o *value.Object, defaultConstructor *value.Object) (*value.Object, value.Completion) {
	c := o.Get(value.StringKey("constructor"), o)
	if c.IsAbrupt() {
		return nil, c
	}
	ctor := c.ValueOrUndefined()
	if value.IsUndefined(ctor) {
		return defaultConstructor, value.Empty
	}
	ctorObj, ok := ctor.(*value.Object)
	if !ok {
		return nil, r.ThrowTypeError("object.constructor is not an object")
	}
	c = ctorObj.Get(value.SymbolKey(value.SymbolSpecies), ctorObj)
	if c.IsAbrupt() {
		return nil, c
	}
	species := c.ValueOrUndefined()
	if value.IsNullish(species) {
		return defaultConstructor, value.Empty
	}
	if value.IsConstructor(species) {
		return species.(*value.Object), value.Empty
	}
	return nil, r.ThrowTypeError("object.constructor[Symbol.species] is not a constructor")
}

// OrdinaryHasInstance walks o's prototype chain looking for c.prototype.
func OrdinaryHasInstance(r *Realm, c, o value.Value) (bool, value.Completion) {
	if !value.IsCallable(c) {
		return false, value.Empty
	}
	obj, ok := o.(*value.Object)
	if !ok {
		return false, value.Empty
	}
	ctor := c.(*value.Object)
	pc := ctor.Get(value.StringKey("prototype"), ctor)
	if pc.IsAbrupt() {
		return false, pc
	}
	proto, ok := pc.Value.(*value.Object)
	if !ok {
		return false, r.ThrowTypeError("Function has non-object prototype in instanceof check")
	}
	for p := obj.Prototype(); p != nil; p = p.Prototype() {
		if p == proto {
			return true, value.Empty
		}
	}
	return false, value.Empty
}

// InstanceofOperator implements `v instanceof target`.
func InstanceofOperator(r *Realm, v, target value.Value) (bool, value.Completion) {
	if _, ok := target.(*value.Object); !ok {
		return false, r.ThrowTypeError("Right-hand side of 'instanceof' is not an object")
	}
	handler, c := GetMethod(r, target, value.SymbolKey(value.SymbolHasInstance))
	if c.IsAbrupt() {
		return false, c
	}
	if !value.IsUndefined(handler) {
		res := Call(r, handler, target, []value.Value{v})
		if res.IsAbrupt() {
			return false, res
		}
		return value.ToBoolean(res.ValueOrUndefined()), value.Empty
	}
	if !value.IsCallable(target) {
		return false, r.ThrowTypeError("Right-hand side of 'instanceof' is not callable")
	}
	return OrdinaryHasInstance(r, target, v)
}

// IsLooselyEqual implements ==.
func IsLooselyEqual(r *Realm, x, y value.Value) (bool, value.Completion) {
	if x.Type() == y.Type() {
		return value.IsStrictlyEqual(x, y), value.Empty
	}
	if value.IsNullish(x) && value.IsNullish(y) {
		return true, value.Empty
	}
	switch xv := x.(type) {
	case value.Number:
		if ys, ok := y.(value.String); ok {
			return float64(xv) == value.StringToNumber(string(ys)), value.Empty
		}
	case value.String:
		if yn, ok := y.(value.Number); ok {
			return value.StringToNumber(string(xv)) == float64(yn), value.Empty
		}
	case value.Boolean:
		n, _ := ToNumber(r, xv)
		return IsLooselyEqual(r, value.Number(n), y)
	}
	if yb, ok := y.(value.Boolean); ok {
		n, _ := ToNumber(r, yb)
		return IsLooselyEqual(r, x, value.Number(n))
	}
	_, xObj := x.(*value.Object)
	_, yObj := y.(*value.Object)
	if yObj && !xObj && !value.IsNullish(x) {
		prim, c := ToPrimitive(r, y, "default")
		if c.IsAbrupt() {
			return false, c
		}
		return IsLooselyEqual(r, x, prim)
	}
	if xObj && !yObj && !value.IsNullish(y) {
		prim, c := ToPrimitive(r, x, "default")
		if c.IsAbrupt() {
			return false, c
		}
		return IsLooselyEqual(r, prim, y)
	}
	return false, value.Empty
}

// IsLessThan implements the abstract relational comparison. The result is
// True, False or Undefined (when either operand is NaN).
func IsLessThan(r *Realm, x, y value.Value, leftFirst bool) (value.Value, value.Completion) {
	var px, py value.Value
	var c value.Completion
	if leftFirst {
		if px, c = ToPrimitive(r, x, "number"); c.IsAbrupt() {
			return nil, c
		}
		if py, c = ToPrimitive(r, y, "number"); c.IsAbrupt() {
			return nil, c
		}
	} else {
		if py, c = ToPrimitive(r, y, "number"); c.IsAbrupt() {
			return nil, c
		}
		if px, c = ToPrimitive(r, x, "number"); c.IsAbrupt() {
			return nil, c
		}
	}
	if sx, ok := px.(value.String); ok {
		if sy, ok := py.(value.String); ok {
			return value.Bool(compareUnits(StringUnits(string(sx)), StringUnits(string(sy))) < 0), value.Empty
		}
	}
	nx, c := ToNumber(r, px)
	if c.IsAbrupt() {
		return nil, c
	}
	ny, c := ToNumber(r, py)
	if c.IsAbrupt() {
		return nil, c
	}
	if math.IsNaN(nx) || math.IsNaN(ny) {
		return value.Undefined, value.Empty
	}
	return value.Bool(nx < ny), value.Empty
}

func compareUnits(a, b []uint16) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

// CreateArrayFromList builds an array in the realm.
func CreateArrayFromList(r *Realm, elements []value.Value) *value.Object {
	return value.NewArray(r.Intrinsic("%Array.prototype%"), elements)
}

// Describe renders a value for error messages without running user code.
func Describe(v value.Value) string {
	switch t := v.(type) {
	case value.String:
		return "\"" + string(t) + "\""
	case *value.Symbol:
		return t.String()
	case *value.Object:
		if t.CallFn != nil {
			if p := t.GetOwnProperty(value.StringKey("name")); p != nil && !p.Accessor {
				if name, ok := p.Value.(value.String); ok && name != "" {
					return string(name)
				}
			}
			return "function"
		}
		return "object"
	case value.Number:
		return value.NumberToString(float64(t))
	case value.Boolean:
		if t {
			return "true"
		}
		return "false"
	}
	return v.Type().String()
}

// Exponentiate is Number::exponentiate. It differs from math.Pow when the
// base is ±1 and the exponent is infinite, which yields NaN.
func Exponentiate(base, exponent float64) float64 {
	if math.IsNaN(exponent) {
		return math.NaN()
	}
	if math.IsInf(exponent, 0) && math.Abs(base) == 1 {
		return math.NaN()
	}
	return math.Pow(base, exponent)
}
