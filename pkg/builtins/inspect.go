package builtins

import (
	"fmt"
	"strings"

	"github.com/nooga/cadence/pkg/promise"
	"github.com/nooga/cadence/pkg/value"
)

// inspectDepth is how many object levels Inspect expands before printing
// [Object] or [Array].
const inspectDepth = 2

// Inspect renders v the way console.log prints it. It reads data
// properties directly and never runs user code: accessors print as
// [Getter], [Setter] or [Getter/Setter].
func Inspect(v value.Value) string {
	in := &inspector{seen: make(map[*value.Object]bool)}
	return in.inspect(v, false, 0)
}

// ErrorSummary renders a thrown value for uncaught-exception reports:
// "Name: message" for error objects, the Inspect form otherwise.
func ErrorSummary(v value.Value) string {
	obj, ok := v.(*value.Object)
	if !ok || obj.Class != "Error" {
		return Inspect(v)
	}
	return errorLine(obj)
}

type inspector struct {
	seen map[*value.Object]bool
}

// dataProperty looks key up along the prototype chain, reporting only data
// properties.
func dataProperty(obj *value.Object, key value.PropertyKey) (value.Value, bool) {
	for o := obj; o != nil; o = o.Prototype() {
		if p := o.GetOwnProperty(key); p != nil {
			if p.Accessor {
				return nil, false
			}
			return p.Value, true
		}
	}
	return nil, false
}

func dataString(obj *value.Object, key, fallback string) string {
	if v, ok := dataProperty(obj, value.StringKey(key)); ok {
		if s, ok := v.(value.String); ok {
			return string(s)
		}
	}
	return fallback
}

func errorLine(obj *value.Object) string {
	name := dataString(obj, "name", "Error")
	msg := dataString(obj, "message", "")
	switch {
	case msg == "":
		return name
	case name == "":
		return msg
	}
	return name + ": " + msg
}

func quote(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, "\"") {
		return "\"" + s + "\""
	}
	return "`" + s + "`"
}

func isIdentifierName(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		switch {
		case ch == '_' || ch == '$' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z':
		case i > 0 && ch >= '0' && ch <= '9':
		default:
			return false
		}
	}
	return true
}

func (in *inspector) inspect(v value.Value, nested bool, depth int) string {
	switch t := v.(type) {
	case value.UndefinedType:
		return "undefined"
	case value.NullType:
		return "null"
	case value.Boolean:
		if t {
			return "true"
		}
		return "false"
	case value.Number:
		if t == 0 && isNegativeZero(float64(t)) {
			return "-0"
		}
		return value.NumberToString(float64(t))
	case value.String:
		if nested {
			return quote(string(t))
		}
		return string(t)
	case *value.Symbol:
		return t.String()
	case *value.Object:
		return in.inspectObject(t, depth)
	}
	return fmt.Sprintf("<%T>", v)
}

func isNegativeZero(f float64) bool {
	return 1/f < 0
}

// constructorName returns the name of the constructor found on the
// prototype chain, "" when there is none.
func constructorName(obj *value.Object) string {
	for o := obj.Prototype(); o != nil; o = o.Prototype() {
		if p := o.GetOwnProperty(value.StringKey("constructor")); p != nil && !p.Accessor {
			if fn, ok := p.Value.(*value.Object); ok && fn.CallFn != nil {
				return functionName(fn)
			}
			return ""
		}
	}
	return ""
}

func (in *inspector) functionTag(fn *value.Object) string {
	kind := "Function"
	if sf, ok := fn.Internal.(ScriptFunction); ok {
		kind = sf.Kind().String()
	}
	name := functionName(fn)
	if name == "" {
		return "[" + kind + " (anonymous)]"
	}
	return "[" + kind + ": " + name + "]"
}

func (in *inspector) inspectObject(obj *value.Object, depth int) string {
	if in.seen[obj] {
		return "[Circular]"
	}

	var head string
	switch internal := obj.Internal.(type) {
	case *regExp:
		head = "/" + internal.source + "/" + internal.flags
	case value.String:
		head = "[String: " + quote(string(internal)) + "]"
	case value.Number:
		head = "[Number: " + in.inspect(internal, true, depth) + "]"
	case value.Boolean:
		head = "[Boolean: " + in.inspect(internal, true, depth) + "]"
	case *value.Symbol:
		head = "[Symbol: " + internal.String() + "]"
	}
	switch {
	case head != "":
	case obj.CallFn != nil:
		head = in.functionTag(obj)
	case obj.Class == "Error":
		head = "[" + errorLine(obj) + "]"
	}

	isArray := obj.IsArray()
	keys := in.visibleKeys(obj, isArray)
	if head != "" && len(keys) == 0 {
		return head
	}
	if depth > inspectDepth {
		if isArray {
			return "[Array]"
		}
		if head != "" {
			return head
		}
		if name := constructorName(obj); name != "" {
			return "[" + name + "]"
		}
		return "[Object]"
	}

	in.seen[obj] = true
	defer delete(in.seen, obj)

	var parts []string
	if slots, ok := promise.GetSlots(obj); ok {
		switch slots.State {
		case promise.Pending:
			parts = append(parts, "<pending>")
		case promise.Fulfilled:
			parts = append(parts, in.inspect(slots.Result, true, depth+1))
		case promise.Rejected:
			parts = append(parts, "<rejected> "+in.inspect(slots.Result, true, depth+1))
		}
	}
	if isArray {
		parts = append(parts, in.arrayElements(obj, depth)...)
	}
	for _, key := range keys {
		parts = append(parts, in.formatKey(key)+": "+in.propertyValue(obj.GetOwnProperty(key), depth))
	}

	if isArray {
		if len(parts) == 0 {
			return "[]"
		}
		return "[ " + strings.Join(parts, ", ") + " ]"
	}
	prefix := in.objectPrefix(obj, head)
	if len(parts) == 0 {
		return prefix + "{}"
	}
	return prefix + "{ " + strings.Join(parts, ", ") + " }"
}

// objectPrefix names the object before its braces: the head for
// functions, errors and wrappers, else the constructor and toStringTag.
func (in *inspector) objectPrefix(obj *value.Object, head string) string {
	if head != "" {
		return head + " "
	}
	if obj.Prototype() == nil {
		return "[Object: null prototype] "
	}
	name := constructorName(obj)
	tagName := ""
	if t, ok := dataProperty(obj, value.SymbolKey(value.SymbolToStringTag)); ok {
		if s, ok := t.(value.String); ok {
			tagName = string(s)
		}
	}
	switch {
	case tagName != "" && tagName != name:
		if name == "" {
			name = "Object"
		}
		return name + " [" + tagName + "] "
	case name == "Object":
		return ""
	case name != "":
		return name + " "
	}
	return ""
}

// visibleKeys lists enumerable own keys, leaving array indices and length
// to arrayElements.
func (in *inspector) visibleKeys(obj *value.Object, isArray bool) []value.PropertyKey {
	var keys []value.PropertyKey
	for _, key := range obj.OwnPropertyKeys() {
		p := obj.GetOwnProperty(key)
		if p == nil || !p.Enumerable {
			continue
		}
		if isArray && key.IsArrayIndex() {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func (in *inspector) arrayElements(arr *value.Object, depth int) []string {
	var parts []string
	holes := 0
	flush := func() {
		if holes == 0 {
			return
		}
		if holes == 1 {
			parts = append(parts, "<1 empty item>")
		} else {
			parts = append(parts, fmt.Sprintf("<%d empty items>", holes))
		}
		holes = 0
	}
	for i := 0; i < arr.Length(); i++ {
		p := arr.GetOwnProperty(value.IndexKey(i))
		if p == nil {
			holes++
			continue
		}
		flush()
		parts = append(parts, in.propertyValue(p, depth))
	}
	flush()
	return parts
}

func (in *inspector) propertyValue(p *value.Property, depth int) string {
	if !p.Accessor {
		return in.inspect(p.Value, true, depth+1)
	}
	hasGet := p.Get != nil && !value.IsUndefined(p.Get)
	hasSet := p.Set != nil && !value.IsUndefined(p.Set)
	switch {
	case hasGet && hasSet:
		return "[Getter/Setter]"
	case hasGet:
		return "[Getter]"
	}
	return "[Setter]"
}

func (in *inspector) formatKey(key value.PropertyKey) string {
	if key.IsSymbol() {
		return "[" + key.Symbol.String() + "]"
	}
	if isIdentifierName(key.Name) || key.IsArrayIndex() {
		return key.Name
	}
	return quote(key.Name)
}
