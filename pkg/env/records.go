package env

import (
	"errors"

	"github.com/nooga/cadence/pkg/value"
)

// ErrReadOnly reports a strict-mode write to a non-writable global property.
var ErrReadOnly = errors.New("cannot assign to read only property")

type binding struct {
	value       value.Value
	mutable     bool
	initialized bool
	deletable   bool
}

// Declarative holds bindings created by let/const/var, parameters and
// function declarations.
type Declarative struct {
	outer    Environment
	bindings map[string]*binding
}

func NewDeclarative(outer Environment) *Declarative {
	return &Declarative{outer: outer, bindings: make(map[string]*binding)}
}

func (d *Declarative) Outer() Environment          { return d.outer }
func (d *Declarative) HasThisBinding() bool        { return false }
func (d *Declarative) WithBaseObject() value.Value { return value.Undefined }

func (d *Declarative) HasBinding(name string) (bool, error) {
	_, ok := d.bindings[name]
	return ok, nil
}

func (d *Declarative) CreateMutableBinding(name string, deletable bool) error {
	if _, ok := d.bindings[name]; ok {
		return bindingError(name, ErrAlreadyDeclared)
	}
	d.bindings[name] = &binding{mutable: true, deletable: deletable}
	return nil
}

func (d *Declarative) CreateImmutableBinding(name string, strict bool) error {
	if _, ok := d.bindings[name]; ok {
		return bindingError(name, ErrAlreadyDeclared)
	}
	d.bindings[name] = &binding{}
	return nil
}

func (d *Declarative) InitializeBinding(name string, v value.Value) error {
	b, ok := d.bindings[name]
	if !ok {
		return bindingError(name, ErrNotDefined)
	}
	if b.initialized {
		return bindingError(name, ErrAlreadyInitialized)
	}
	b.value = v
	b.initialized = true
	return nil
}

func (d *Declarative) SetMutableBinding(name string, v value.Value, strict bool) error {
	b, ok := d.bindings[name]
	if !ok {
		if strict {
			return bindingError(name, ErrNotDefined)
		}
		if err := d.CreateMutableBinding(name, true); err != nil {
			return err
		}
		return d.InitializeBinding(name, v)
	}
	if !b.initialized {
		return bindingError(name, ErrUninitialized)
	}
	if !b.mutable {
		return bindingError(name, ErrConstAssignment)
	}
	b.value = v
	return nil
}

func (d *Declarative) GetBindingValue(name string, strict bool) (value.Value, error) {
	b, ok := d.bindings[name]
	if !ok {
		return nil, bindingError(name, ErrNotDefined)
	}
	if !b.initialized {
		return nil, bindingError(name, ErrUninitialized)
	}
	return b.value, nil
}

func (d *Declarative) DeleteBinding(name string) (bool, error) {
	b, ok := d.bindings[name]
	if !ok {
		return true, nil
	}
	if !b.deletable {
		return false, nil
	}
	delete(d.bindings, name)
	return true, nil
}

// ThisStatus tracks the this binding of a function environment.
type ThisStatus uint8

const (
	ThisLexical ThisStatus = iota
	ThisInitialized
	ThisUninitialized
)

// Function is the environment of a function activation. Arrow functions
// get a lexical this status and resolve this through their outer scopes.
type Function struct {
	*Declarative
	thisValue      value.Value
	thisStatus     ThisStatus
	FunctionObject *value.Object
	NewTarget      value.Value
}

func NewFunction(outer Environment, fn *value.Object, lexicalThis bool, newTarget value.Value) *Function {
	status := ThisUninitialized
	if lexicalThis {
		status = ThisLexical
	}
	if newTarget == nil {
		newTarget = value.Undefined
	}
	return &Function{
		Declarative:    NewDeclarative(outer),
		thisStatus:     status,
		FunctionObject: fn,
		NewTarget:      newTarget,
	}
}

func (f *Function) HasThisBinding() bool { return f.thisStatus != ThisLexical }

// BindThisValue initializes this exactly once.
func (f *Function) BindThisValue(v value.Value) error {
	if f.thisStatus == ThisLexical {
		return ErrNoThisBinding
	}
	if f.thisStatus == ThisInitialized {
		return bindingError("this", ErrAlreadyInitialized)
	}
	f.thisValue = v
	f.thisStatus = ThisInitialized
	return nil
}

func (f *Function) GetThisBinding() (value.Value, error) {
	switch f.thisStatus {
	case ThisLexical:
		return nil, ErrNoThisBinding
	case ThisUninitialized:
		return nil, bindingError("this", ErrThisUninitialized)
	}
	return f.thisValue, nil
}

// Global combines an object record over the global object with a
// declarative record for lexical declarations.
type Global struct {
	object      *value.Object
	declarative *Declarative
	thisValue   *value.Object
	varNames    map[string]bool
}

func NewGlobal(globalObject, thisValue *value.Object) *Global {
	return &Global{
		object:      globalObject,
		declarative: NewDeclarative(nil),
		thisValue:   thisValue,
		varNames:    make(map[string]bool),
	}
}

func (g *Global) Outer() Environment          { return nil }
func (g *Global) HasThisBinding() bool        { return true }
func (g *Global) WithBaseObject() value.Value { return value.Undefined }
func (g *Global) GlobalObject() *value.Object { return g.object }

func (g *Global) GetThisBinding() (value.Value, error) { return g.thisValue, nil }

func (g *Global) HasBinding(name string) (bool, error) {
	if ok, _ := g.declarative.HasBinding(name); ok {
		return true, nil
	}
	return g.object.HasProperty(value.StringKey(name)), nil
}

func (g *Global) CreateMutableBinding(name string, deletable bool) error {
	if ok, _ := g.declarative.HasBinding(name); ok {
		return bindingError(name, ErrAlreadyDeclared)
	}
	return g.declarative.CreateMutableBinding(name, deletable)
}

func (g *Global) CreateImmutableBinding(name string, strict bool) error {
	if ok, _ := g.declarative.HasBinding(name); ok {
		return bindingError(name, ErrAlreadyDeclared)
	}
	return g.declarative.CreateImmutableBinding(name, strict)
}

func (g *Global) InitializeBinding(name string, v value.Value) error {
	if ok, _ := g.declarative.HasBinding(name); ok {
		return g.declarative.InitializeBinding(name, v)
	}
	return g.setObjectBinding(name, v, false)
}

func (g *Global) SetMutableBinding(name string, v value.Value, strict bool) error {
	if ok, _ := g.declarative.HasBinding(name); ok {
		return g.declarative.SetMutableBinding(name, v, strict)
	}
	if strict && !g.object.HasProperty(value.StringKey(name)) {
		return bindingError(name, ErrNotDefined)
	}
	return g.setObjectBinding(name, v, strict)
}

func (g *Global) setObjectBinding(name string, v value.Value, strict bool) error {
	c := g.object.Set(value.StringKey(name), v, g.object)
	if c.IsAbrupt() {
		return &ThrowError{Completion: c}
	}
	if c.Value == value.False && strict {
		return bindingError(name, ErrReadOnly)
	}
	return nil
}

func (g *Global) GetBindingValue(name string, strict bool) (value.Value, error) {
	if ok, _ := g.declarative.HasBinding(name); ok {
		return g.declarative.GetBindingValue(name, strict)
	}
	key := value.StringKey(name)
	if !g.object.HasProperty(key) {
		return nil, bindingError(name, ErrNotDefined)
	}
	c := g.object.Get(key, g.object)
	if c.IsAbrupt() {
		return nil, &ThrowError{Completion: c}
	}
	return c.ValueOrUndefined(), nil
}

func (g *Global) DeleteBinding(name string) (bool, error) {
	if ok, _ := g.declarative.HasBinding(name); ok {
		return g.declarative.DeleteBinding(name)
	}
	key := value.StringKey(name)
	if g.object.HasOwnProperty(key) {
		if !g.object.Delete(key) {
			return false, nil
		}
		delete(g.varNames, name)
	}
	return true, nil
}

func (g *Global) HasVarDeclaration(name string) bool { return g.varNames[name] }

func (g *Global) HasLexicalDeclaration(name string) bool {
	ok, _ := g.declarative.HasBinding(name)
	return ok
}

// HasRestrictedGlobalProperty reports a non-configurable own property of
// the global object, which a lexical declaration may not shadow.
func (g *Global) HasRestrictedGlobalProperty(name string) bool {
	p := g.object.GetOwnProperty(value.StringKey(name))
	return p != nil && !p.Configurable
}

func (g *Global) CanDeclareGlobalVar(name string) bool {
	return g.object.HasOwnProperty(value.StringKey(name)) || g.object.Extensible()
}

func (g *Global) CanDeclareGlobalFunction(name string) bool {
	p := g.object.GetOwnProperty(value.StringKey(name))
	if p == nil {
		return g.object.Extensible()
	}
	return p.Configurable || (!p.Accessor && p.Writable && p.Enumerable)
}

func (g *Global) CreateGlobalVarBinding(name string, deletable bool) error {
	key := value.StringKey(name)
	if !g.object.HasOwnProperty(key) && g.object.Extensible() {
		g.object.DefineOwnProperty(key, value.Property{
			Value: value.Undefined, Writable: true, Enumerable: true, Configurable: deletable,
		})
	}
	g.varNames[name] = true
	return nil
}

func (g *Global) CreateGlobalFunctionBinding(name string, v value.Value, deletable bool) error {
	key := value.StringKey(name)
	p := g.object.GetOwnProperty(key)
	desc := value.Property{Value: v, Writable: true, Enumerable: true, Configurable: deletable}
	if p != nil && !p.Configurable {
		desc = value.Property{Value: v, Writable: p.Writable, Enumerable: p.Enumerable}
	}
	if !g.object.DefineOwnProperty(key, desc) {
		return bindingError(name, ErrNotConfigurable)
	}
	g.varNames[name] = true
	return nil
}
