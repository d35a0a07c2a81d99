package runtime

import "github.com/nooga/cadence/pkg/value"

// IteratorRecord tracks an iterator, its cached next method and whether it
// is exhausted.
type IteratorRecord struct {
	Iterator   *value.Object
	NextMethod value.Value
	Done       bool
}

// GetIteratorFromMethod calls method on obj and validates the result.
func GetIteratorFromMethod(r *Realm, obj, method value.Value) (*IteratorRecord, value.Completion) {
	c := Call(r, method, obj, nil)
	if c.IsAbrupt() {
		return nil, c
	}
	it, ok := c.Value.(*value.Object)
	if !ok {
		return nil, r.ThrowTypeError("Result of the Symbol.iterator method is not an object")
	}
	next := it.Get(value.StringKey("next"), it)
	if next.IsAbrupt() {
		return nil, next
	}
	return &IteratorRecord{Iterator: it, NextMethod: next.ValueOrUndefined()}, value.Empty
}

// GetIterator returns the sync iterator of obj.
func GetIterator(r *Realm, obj value.Value) (*IteratorRecord, value.Completion) {
	method, c := GetMethod(r, obj, value.SymbolKey(value.SymbolIterator))
	if c.IsAbrupt() {
		return nil, c
	}
	if value.IsUndefined(method) {
		return nil, r.ThrowTypeError("%s is not iterable", Describe(obj))
	}
	return GetIteratorFromMethod(r, obj, method)
}

// IteratorNext calls next, passing v unless it is nil.
func IteratorNext(r *Realm, rec *IteratorRecord, v value.Value) (*value.Object, value.Completion) {
	var args []value.Value
	if v != nil {
		args = []value.Value{v}
	}
	c := Call(r, rec.NextMethod, rec.Iterator, args)
	if c.IsAbrupt() {
		return nil, c
	}
	res, ok := c.Value.(*value.Object)
	if !ok {
		return nil, r.ThrowTypeError("Iterator result %s is not an object", Describe(c.ValueOrUndefined()))
	}
	return res, value.Empty
}

// IteratorComplete reads result.done.
func IteratorComplete(res *value.Object) (bool, value.Completion) {
	c := res.Get(value.StringKey("done"), res)
	if c.IsAbrupt() {
		return false, c
	}
	return value.ToBoolean(c.ValueOrUndefined()), value.Empty
}

// IteratorValue reads result.value.
func IteratorValue(res *value.Object) value.Completion {
	return res.Get(value.StringKey("value"), res)
}

// IteratorStepValue advances the iterator. done reports exhaustion; any
// abrupt completion or exhaustion marks the record done.
func IteratorStepValue(r *Realm, rec *IteratorRecord) (v value.Value, done bool, c value.Completion) {
	res, c := IteratorNext(r, rec, nil)
	if c.IsAbrupt() {
		rec.Done = true
		return nil, true, c
	}
	finished, c := IteratorComplete(res)
	if c.IsAbrupt() {
		rec.Done = true
		return nil, true, c
	}
	if finished {
		rec.Done = true
		return nil, true, value.Empty
	}
	c = IteratorValue(res)
	if c.IsAbrupt() {
		rec.Done = true
		return nil, true, c
	}
	return c.ValueOrUndefined(), false, value.Empty
}

// IteratorClose calls the iterator's return method on early exit. The
// original completion wins over errors from return, except that a normal
// completion is replaced by a throw from return.
func IteratorClose(r *Realm, rec *IteratorRecord, completion value.Completion) value.Completion {
	it := rec.Iterator
	ret, inner := GetMethod(r, it, value.StringKey("return"))
	if !inner.IsAbrupt() {
		if value.IsUndefined(ret) {
			return completion
		}
		inner = Call(r, ret, it, nil)
	}
	if completion.IsThrow() {
		return completion
	}
	if inner.IsAbrupt() {
		return inner
	}
	if _, ok := inner.Value.(*value.Object); !ok {
		return r.ThrowTypeError("Iterator result %s is not an object", Describe(inner.ValueOrUndefined()))
	}
	return completion
}

// IterableToList drains an iterable into a slice.
func IterableToList(r *Realm, v value.Value) ([]value.Value, value.Completion) {
	rec, c := GetIterator(r, v)
	if c.IsAbrupt() {
		return nil, c
	}
	var out []value.Value
	for {
		item, done, c := IteratorStepValue(r, rec)
		if c.IsAbrupt() {
			return nil, c
		}
		if done {
			return out, value.Empty
		}
		out = append(out, item)
	}
}

// CreateIterResultObject builds {value, done}.
func CreateIterResultObject(r *Realm, v value.Value, done bool) *value.Object {
	obj := value.NewObject(r.Intrinsic("%Object.prototype%"))
	obj.CreateDataProperty(value.StringKey("value"), v)
	obj.CreateDataProperty(value.StringKey("done"), value.Bool(done))
	return obj
}
