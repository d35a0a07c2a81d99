package value

import (
	"fmt"
	"math"
)

// Type tags the language-level type of a Value.
type Type uint8

const (
	TypeUndefined Type = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeString
	TypeSymbol
	TypeObject
)

func (t Type) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeObject:
		return "object"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Value is a closed sum of the language's value kinds: UndefinedType,
// NullType, Boolean, Number, String, *Symbol and *Object.
type Value interface {
	Type() Type
	isValue()
}

type UndefinedType struct{}
type NullType struct{}
type Boolean bool
type Number float64
type String string

// Symbol values compare by identity.
type Symbol struct {
	Description    string
	HasDescription bool
}

var (
	Undefined Value = UndefinedType{}
	Null      Value = NullType{}
	True      Value = Boolean(true)
	False     Value = Boolean(false)
	NaN       Value = Number(math.NaN())
)

func (UndefinedType) Type() Type { return TypeUndefined }
func (NullType) Type() Type      { return TypeNull }
func (Boolean) Type() Type       { return TypeBoolean }
func (Number) Type() Type        { return TypeNumber }
func (String) Type() Type        { return TypeString }
func (*Symbol) Type() Type       { return TypeSymbol }
func (*Object) Type() Type       { return TypeObject }

func (UndefinedType) isValue() {}
func (NullType) isValue()      {}
func (Boolean) isValue()       {}
func (Number) isValue()        {}
func (String) isValue()        {}
func (*Symbol) isValue()       {}
func (*Object) isValue()       {}

// NewSymbol creates a symbol with a description.
func NewSymbol(description string) *Symbol {
	return &Symbol{Description: description, HasDescription: true}
}

func (s *Symbol) String() string {
	return "Symbol(" + s.Description + ")"
}

// Well-known symbols are shared by every realm of an agent.
var (
	SymbolIterator      = NewSymbol("Symbol.iterator")
	SymbolAsyncIterator = NewSymbol("Symbol.asyncIterator")
	SymbolSpecies       = NewSymbol("Symbol.species")
	SymbolToPrimitive   = NewSymbol("Symbol.toPrimitive")
	SymbolToStringTag   = NewSymbol("Symbol.toStringTag")
	SymbolHasInstance   = NewSymbol("Symbol.hasInstance")
)

// Bool converts a Go bool.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func IsUndefined(v Value) bool { return v.Type() == TypeUndefined }
func IsNull(v Value) bool      { return v.Type() == TypeNull }

// IsNullish reports whether v is undefined or null.
func IsNullish(v Value) bool {
	t := v.Type()
	return t == TypeUndefined || t == TypeNull
}

// AsObject returns v as an object, or nil.
func AsObject(v Value) *Object {
	o, _ := v.(*Object)
	return o
}

// IsCallable reports whether v has a [[Call]] internal method.
func IsCallable(v Value) bool {
	o, ok := v.(*Object)
	return ok && o.CallFn != nil
}

// IsConstructor reports whether v has a [[Construct]] internal method.
func IsConstructor(v Value) bool {
	o, ok := v.(*Object)
	return ok && o.ConstructFn != nil
}

// ToBoolean never fails.
func ToBoolean(v Value) bool {
	switch t := v.(type) {
	case UndefinedType, NullType:
		return false
	case Boolean:
		return bool(t)
	case Number:
		f := float64(t)
		return f != 0 && !math.IsNaN(f)
	case String:
		return t != ""
	}
	return true
}

// TypeOf implements the typeof operator.
func TypeOf(v Value) string {
	if o, ok := v.(*Object); ok {
		if o.CallFn != nil {
			return "function"
		}
		return "object"
	}
	if v.Type() == TypeNull {
		return "object"
	}
	return v.Type().String()
}

// SameValue distinguishes +0/-0 and equates NaN with itself.
func SameValue(x, y Value) bool {
	if nx, ok := x.(Number); ok {
		ny, ok := y.(Number)
		if !ok {
			return false
		}
		a, b := float64(nx), float64(ny)
		if math.IsNaN(a) && math.IsNaN(b) {
			return true
		}
		return a == b && math.Signbit(a) == math.Signbit(b)
	}
	return sameValueNonNumber(x, y)
}

// SameValueZero is SameValue with +0 and -0 equal.
func SameValueZero(x, y Value) bool {
	if nx, ok := x.(Number); ok {
		ny, ok := y.(Number)
		if !ok {
			return false
		}
		a, b := float64(nx), float64(ny)
		return a == b || (math.IsNaN(a) && math.IsNaN(b))
	}
	return sameValueNonNumber(x, y)
}

// IsStrictlyEqual implements ===.
func IsStrictlyEqual(x, y Value) bool {
	if nx, ok := x.(Number); ok {
		ny, ok := y.(Number)
		return ok && float64(nx) == float64(ny)
	}
	return sameValueNonNumber(x, y)
}

func sameValueNonNumber(x, y Value) bool {
	if x.Type() != y.Type() {
		return false
	}
	switch a := x.(type) {
	case UndefinedType, NullType:
		return true
	case Boolean:
		return a == y.(Boolean)
	case String:
		return a == y.(String)
	case *Symbol:
		return a == y.(*Symbol)
	case *Object:
		return a == y.(*Object)
	}
	return false
}
