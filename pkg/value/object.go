package value

import (
	"math"
	"sort"
	"strconv"
)

// PropertyKey is a string or symbol key. The zero Symbol field means a
// string key. PropertyKey is comparable and used directly as a map key.
type PropertyKey struct {
	Name   string
	Symbol *Symbol
}

func StringKey(name string) PropertyKey  { return PropertyKey{Name: name} }
func SymbolKey(sym *Symbol) PropertyKey  { return PropertyKey{Symbol: sym} }
func (k PropertyKey) IsSymbol() bool     { return k.Symbol != nil }
func (k PropertyKey) IsArrayIndex() bool { _, ok := ArrayIndex(k); return ok }

// ToValue converts the key back to a language value.
func (k PropertyKey) ToValue() Value {
	if k.Symbol != nil {
		return k.Symbol
	}
	return String(k.Name)
}

// FunctionName renders the key the way SetFunctionName does.
func (k PropertyKey) FunctionName() string {
	if k.Symbol == nil {
		return k.Name
	}
	if !k.Symbol.HasDescription {
		return ""
	}
	return "[" + k.Symbol.Description + "]"
}

func (k PropertyKey) String() string {
	if k.Symbol != nil {
		return k.Symbol.String()
	}
	return k.Name
}

// ArrayIndex parses a canonical array index (0 .. 2^32-2).
func ArrayIndex(k PropertyKey) (uint32, bool) {
	if k.Symbol != nil || k.Name == "" {
		return 0, false
	}
	s := k.Name
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < '0' || ch > '9' {
			return 0, false
		}
		n = n*10 + uint64(ch-'0')
		if n > math.MaxUint32-1 {
			return 0, false
		}
	}
	return uint32(n), true
}

// IndexKey formats an array index as a key.
func IndexKey(i int) PropertyKey {
	return PropertyKey{Name: strconv.Itoa(i)}
}

// Property is a data or accessor property. For accessors Get and Set are
// callable objects or Undefined.
type Property struct {
	Value        Value
	Get          Value
	Set          Value
	Accessor     bool
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// DataProperty builds a writable, enumerable, configurable data property.
func DataProperty(v Value) Property {
	return Property{Value: v, Writable: true, Enumerable: true, Configurable: true}
}

// MethodProperty builds a writable, non-enumerable, configurable property,
// the shape of builtin methods.
func MethodProperty(v Value) Property {
	return Property{Value: v, Writable: true, Configurable: true}
}

// NativeFunction implements [[Call]].
type NativeFunction func(this Value, args []Value) Completion

// NativeConstructor implements [[Construct]].
type NativeConstructor func(args []Value, newTarget *Object) Completion

// Object is an ordinary object. Arrays are ordinary objects with Class
// "Array" whose length tracks index writes. Builtins and the evaluator keep
// their internal slots in Internal.
type Object struct {
	proto      *Object
	props      map[PropertyKey]*Property
	keys       []PropertyKey
	extensible bool

	Class       string
	CallFn      NativeFunction
	ConstructFn NativeConstructor
	Internal    any
}

// NewObject creates an extensible ordinary object.
func NewObject(proto *Object) *Object {
	return &Object{
		proto:      proto,
		props:      make(map[PropertyKey]*Property),
		extensible: true,
		Class:      "Object",
	}
}

// NewArray creates an array holding elements.
func NewArray(proto *Object, elements []Value) *Object {
	a := NewObject(proto)
	a.Class = "Array"
	a.setOwn(StringKey("length"), &Property{Value: Number(0), Writable: true})
	for i, el := range elements {
		a.CreateDataProperty(IndexKey(i), el)
	}
	return a
}

func (o *Object) IsArray() bool { return o.Class == "Array" }

func (o *Object) Prototype() *Object { return o.proto }

// SetPrototype implements OrdinarySetPrototypeOf.
func (o *Object) SetPrototype(proto *Object) bool {
	if proto == o.proto {
		return true
	}
	if !o.extensible {
		return false
	}
	for p := proto; p != nil; p = p.proto {
		if p == o {
			return false
		}
	}
	o.proto = proto
	return true
}

func (o *Object) Extensible() bool { return o.extensible }

func (o *Object) PreventExtensions() { o.extensible = false }

// GetOwnProperty returns the own property for key, or nil.
func (o *Object) GetOwnProperty(key PropertyKey) *Property {
	if p, ok := o.props[key]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (o *Object) HasOwnProperty(key PropertyKey) bool {
	_, ok := o.props[key]
	return ok
}

// HasProperty walks the prototype chain.
func (o *Object) HasProperty(key PropertyKey) bool {
	for obj := o; obj != nil; obj = obj.proto {
		if _, ok := obj.props[key]; ok {
			return true
		}
	}
	return false
}

func (o *Object) setOwn(key PropertyKey, p *Property) {
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = p
}

// DefineOwnProperty installs desc under key. It fails when an existing
// non-configurable property would change shape or flags, when the object is
// not extensible, or when an array index lies beyond a frozen length.
func (o *Object) DefineOwnProperty(key PropertyKey, desc Property) bool {
	if desc.Accessor {
		if desc.Get == nil {
			desc.Get = Undefined
		}
		if desc.Set == nil {
			desc.Set = Undefined
		}
		desc.Value, desc.Writable = nil, false
	} else if desc.Value == nil {
		desc.Value = Undefined
	}

	current, exists := o.props[key]
	if !exists && !o.extensible {
		return false
	}
	if exists && !current.Configurable {
		if desc.Configurable || desc.Enumerable != current.Enumerable || desc.Accessor != current.Accessor {
			return false
		}
		if current.Accessor {
			if !SameValue(desc.Get, current.Get) || !SameValue(desc.Set, current.Set) {
				return false
			}
		} else if !current.Writable && (desc.Writable || !SameValue(desc.Value, current.Value)) {
			return false
		}
	}

	if o.IsArray() {
		return o.defineArrayProperty(key, desc)
	}
	o.setOwn(key, &desc)
	return true
}

func (o *Object) defineArrayProperty(key PropertyKey, desc Property) bool {
	lengthProp := o.props[StringKey("length")]
	length := uint32(float64(lengthProp.Value.(Number)))
	if key.Name == "length" && key.Symbol == nil {
		n, ok := desc.Value.(Number)
		if !ok || float64(n) != math.Trunc(float64(n)) || n < 0 || float64(n) > math.MaxUint32 {
			return false
		}
		newLen := uint32(n)
		if newLen < length {
			if !lengthProp.Writable {
				return false
			}
			for _, k := range o.indexKeys() {
				if idx, _ := ArrayIndex(k); idx >= newLen {
					o.Delete(k)
				}
			}
		}
		lengthProp.Value = Number(newLen)
		lengthProp.Writable = desc.Writable
		return true
	}
	if idx, ok := ArrayIndex(key); ok {
		if idx >= length && !lengthProp.Writable {
			return false
		}
		o.setOwn(key, &desc)
		if idx >= length {
			lengthProp.Value = Number(float64(idx) + 1)
		}
		return true
	}
	o.setOwn(key, &desc)
	return true
}

func (o *Object) indexKeys() []PropertyKey {
	var out []PropertyKey
	for _, k := range o.keys {
		if _, ok := ArrayIndex(k); ok {
			out = append(out, k)
		}
	}
	return out
}

// CreateDataProperty defines an ordinary enumerable data property.
func (o *Object) CreateDataProperty(key PropertyKey, v Value) bool {
	return o.DefineOwnProperty(key, DataProperty(v))
}

// SetMethod installs a non-enumerable data property, the way builtin
// methods are installed.
func (o *Object) SetMethod(key PropertyKey, v Value) {
	o.DefineOwnProperty(key, MethodProperty(v))
}

// Delete removes an own configurable property.
func (o *Object) Delete(key PropertyKey) bool {
	p, ok := o.props[key]
	if !ok {
		return true
	}
	if !p.Configurable {
		return false
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return true
}

// OwnPropertyKeys lists integer indices ascending, then other string keys in
// insertion order, then symbols in insertion order.
func (o *Object) OwnPropertyKeys() []PropertyKey {
	var indices []PropertyKey
	var strs []PropertyKey
	var syms []PropertyKey
	for _, k := range o.keys {
		switch {
		case k.Symbol != nil:
			syms = append(syms, k)
		case k.IsArrayIndex():
			indices = append(indices, k)
		default:
			strs = append(strs, k)
		}
	}
	sort.Slice(indices, func(i, j int) bool {
		a, _ := ArrayIndex(indices[i])
		b, _ := ArrayIndex(indices[j])
		return a < b
	})
	out := make([]PropertyKey, 0, len(o.keys))
	out = append(out, indices...)
	out = append(out, strs...)
	return append(out, syms...)
}

// Get implements OrdinaryGet; getters are called with receiver as this.
func (o *Object) Get(key PropertyKey, receiver Value) Completion {
	for obj := o; obj != nil; obj = obj.proto {
		p, ok := obj.props[key]
		if !ok {
			continue
		}
		if !p.Accessor {
			return NormalCompletion(p.Value)
		}
		getter, ok := p.Get.(*Object)
		if !ok || getter.CallFn == nil {
			return NormalCompletion(Undefined)
		}
		return getter.CallFn(receiver, nil)
	}
	return NormalCompletion(Undefined)
}

// Set implements OrdinarySet. The completion carries a Boolean success flag
// unless a setter completed abruptly.
func (o *Object) Set(key PropertyKey, v Value, receiver Value) Completion {
	var own *Property
	for obj := o; obj != nil; obj = obj.proto {
		if p, ok := obj.props[key]; ok {
			own = p
			break
		}
	}
	if own == nil {
		own = &Property{Value: Undefined, Writable: true, Enumerable: true, Configurable: true}
	}
	if own.Accessor {
		setter, ok := own.Set.(*Object)
		if !ok || setter.CallFn == nil {
			return NormalCompletion(False)
		}
		if c := setter.CallFn(receiver, []Value{v}); c.IsAbrupt() {
			return c
		}
		return NormalCompletion(True)
	}
	if !own.Writable {
		return NormalCompletion(False)
	}
	recv, ok := receiver.(*Object)
	if !ok {
		return NormalCompletion(False)
	}
	if existing, ok := recv.props[key]; ok {
		if existing.Accessor || !existing.Writable {
			return NormalCompletion(False)
		}
		desc := *existing
		desc.Value = v
		return NormalCompletion(Bool(recv.DefineOwnProperty(key, desc)))
	}
	return NormalCompletion(Bool(recv.CreateDataProperty(key, v)))
}

// Length returns the length of an array object.
func (o *Object) Length() int {
	if p, ok := o.props[StringKey("length")]; ok && !p.Accessor {
		if n, ok := p.Value.(Number); ok {
			return int(n)
		}
	}
	return 0
}
