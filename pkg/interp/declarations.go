package interp

import (
	"strings"

	"github.com/nooga/cadence/pkg/env"
	"github.com/nooga/cadence/pkg/parser"
	"github.com/nooga/cadence/pkg/runtime"
	"github.com/nooga/cadence/pkg/value"
)

// globalDeclarationInstantiation hoists the declarations of a script into
// the global environment. Conflicts with earlier scripts throw before any
// binding is created.
func (f *frame) globalDeclarationInstantiation(body []parser.Statement) value.Completion {
	r := f.realm
	g := r.GlobalEnv
	lexNames := parser.LexicallyDeclaredNames(body, false)
	varNames := parser.VarDeclaredNames(body)
	functions := parser.FunctionDeclarations(body)

	for _, name := range lexNames {
		if g.HasVarDeclaration(name) || g.HasLexicalDeclaration(name) || g.HasRestrictedGlobalProperty(name) {
			return r.Throw("SyntaxError", "Identifier '%s' has already been declared", name)
		}
	}
	for _, name := range varNames {
		if g.HasLexicalDeclaration(name) {
			return r.Throw("SyntaxError", "Identifier '%s' has already been declared", name)
		}
	}
	for _, fn := range functions {
		if g.HasLexicalDeclaration(fn.Name.Name) {
			return r.Throw("SyntaxError", "Identifier '%s' has already been declared", fn.Name.Name)
		}
	}

	// The last declaration of a name wins.
	declared := make(map[string]bool)
	var toInitialize []*parser.FunctionLiteral
	for i := len(functions) - 1; i >= 0; i-- {
		fn := functions[i]
		name := fn.Name.Name
		if declared[name] {
			continue
		}
		if !g.CanDeclareGlobalFunction(name) {
			return r.ThrowTypeError("Cannot redefine global function '%s'", name)
		}
		declared[name] = true
		toInitialize = append([]*parser.FunctionLiteral{fn}, toInitialize...)
	}
	var declaredVars []string
	for _, name := range varNames {
		if declared[name] {
			continue
		}
		if !g.CanDeclareGlobalVar(name) {
			return r.ThrowTypeError("Cannot define global variable '%s'", name)
		}
		declared[name] = true
		declaredVars = append(declaredVars, name)
	}

	for _, decl := range parser.LexicalDeclarations(body) {
		for _, d := range decl.Declarations {
			for _, name := range parser.BoundNames(d.Target) {
				var err error
				if decl.Kind == "const" {
					err = g.CreateImmutableBinding(name, true)
				} else {
					err = g.CreateMutableBinding(name, false)
				}
				if err != nil {
					return r.ThrowBindingError(err)
				}
			}
		}
	}
	for _, fn := range toInitialize {
		fo := f.instantiateFunctionObject(fn, g)
		if err := g.CreateGlobalFunctionBinding(fn.Name.Name, fo, false); err != nil {
			return r.ThrowBindingError(err)
		}
	}
	for _, name := range declaredVars {
		if err := g.CreateGlobalVarBinding(name, false); err != nil {
			return r.ThrowBindingError(err)
		}
	}
	return value.Empty
}

// blockDeclarationInstantiation creates the let, const and function
// bindings of a block or case block in scope.
func (f *frame) blockDeclarationInstantiation(body []parser.Statement, scope *env.Declarative) {
	for _, decl := range parser.LexicalDeclarations(body) {
		for _, d := range decl.Declarations {
			for _, name := range parser.BoundNames(d.Target) {
				if decl.Kind == "const" {
					scope.CreateImmutableBinding(name, true)
				} else {
					scope.CreateMutableBinding(name, false)
				}
			}
		}
	}
	for _, fn := range parser.FunctionDeclarations(body) {
		name := fn.Name.Name
		if ok, _ := scope.HasBinding(name); !ok {
			scope.CreateMutableBinding(name, false)
			scope.InitializeBinding(name, f.instantiateFunctionObject(fn, scope))
			continue
		}
		scope.SetMutableBinding(name, f.instantiateFunctionObject(fn, scope), false)
	}
}

// functionDeclarationInstantiation binds parameters, the arguments object,
// hoisted vars and functions, and top-level lexical declarations of the
// running function. Code is always strict, so arguments is unmapped.
func (f *frame) functionDeclarationInstantiation(args []value.Value) value.Completion {
	r := f.realm
	n := f.fn.node
	fnEnv := f.env()

	paramNames := parser.ParameterNames(n)
	hasParamExprs := !parser.HasSimpleParameterList(n)
	functions := parser.FunctionDeclarations(n.Body)
	lexNames := parser.LexicallyDeclaredNames(n.Body, false)

	params := make(map[string]bool, len(paramNames))
	for _, name := range paramNames {
		params[name] = true
	}
	functionNames := make(map[string]bool, len(functions))
	for _, fn := range functions {
		functionNames[fn.Name.Name] = true
	}
	argumentsNeeded := !n.IsArrow && !params["arguments"] && strings.Contains(n.Source, "arguments")
	if !hasParamExprs && (functionNames["arguments"] || contains(lexNames, "arguments")) {
		argumentsNeeded = false
	}

	for _, name := range paramNames {
		if ok, _ := fnEnv.HasBinding(name); !ok {
			fnEnv.CreateMutableBinding(name, false)
		}
	}
	if argumentsNeeded {
		fnEnv.CreateImmutableBinding("arguments", false)
		fnEnv.InitializeBinding("arguments", f.createArgumentsObject(args))
		params["arguments"] = true
	}

	for i, p := range n.Params {
		i := i
		c := f.bindElement(p, fnEnv, func() (value.Value, value.Completion) {
			return runtime.Arg(args, i), value.Empty
		})
		if c.IsAbrupt() {
			return c
		}
	}
	if n.Rest != nil {
		var rest []value.Value
		if len(args) > len(n.Params) {
			rest = args[len(n.Params):]
		}
		if c := f.bindPattern(n.Rest, runtime.CreateArrayFromList(r, rest), fnEnv); c.IsAbrupt() {
			return c
		}
	}

	varNames := parser.VarDeclaredNames(n.Body)
	for _, fn := range functions {
		varNames = append(varNames, fn.Name.Name)
	}
	var varEnv env.Environment = fnEnv
	if hasParamExprs {
		varEnv = env.NewDeclarative(fnEnv)
		f.ec.VariableEnvironment = varEnv
	}
	instantiated := make(map[string]bool)
	for _, name := range varNames {
		if instantiated[name] || (!hasParamExprs && params[name]) {
			continue
		}
		instantiated[name] = true
		var initial value.Value = value.Undefined
		if hasParamExprs && params[name] && !functionNames[name] {
			v, err := fnEnv.GetBindingValue(name, false)
			if err != nil {
				return r.ThrowBindingError(err)
			}
			initial = v
		}
		varEnv.CreateMutableBinding(name, false)
		varEnv.InitializeBinding(name, initial)
	}

	lexEnv := varEnv
	f.setEnv(lexEnv)
	for _, decl := range parser.LexicalDeclarations(n.Body) {
		for _, d := range decl.Declarations {
			for _, name := range parser.BoundNames(d.Target) {
				if decl.Kind == "const" {
					lexEnv.CreateImmutableBinding(name, true)
				} else {
					lexEnv.CreateMutableBinding(name, false)
				}
			}
		}
	}
	seen := make(map[string]bool)
	for i := len(functions) - 1; i >= 0; i-- {
		fn := functions[i]
		if seen[fn.Name.Name] {
			continue
		}
		seen[fn.Name.Name] = true
		if err := varEnv.SetMutableBinding(fn.Name.Name, f.instantiateFunctionObject(fn, lexEnv), false); err != nil {
			return r.ThrowBindingError(err)
		}
	}
	return value.Empty
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// createArgumentsObject builds an unmapped arguments object.
func (f *frame) createArgumentsObject(args []value.Value) *value.Object {
	r := f.realm
	obj := value.NewObject(r.Intrinsic("%Object.prototype%"))
	obj.Class = "Arguments"
	obj.SetMethod(value.StringKey("length"), value.Number(len(args)))
	for i, a := range args {
		obj.CreateDataProperty(value.IndexKey(i), a)
	}
	obj.SetMethod(value.SymbolKey(value.SymbolIterator), r.Intrinsic("%Array.prototype.values%"))
	thrower := f.in.throwTypeError()
	obj.DefineOwnProperty(value.StringKey("callee"), value.Property{Accessor: true, Get: thrower, Set: thrower})
	return obj
}

// throwTypeError returns the realm's %ThrowTypeError% function, creating it
// on first use.
func (in *Interpreter) throwTypeError() *value.Object {
	if in.thrower == nil {
		r := in.realm
		in.thrower = runtime.CreateBuiltinFunction(r, "", 0, func(value.Value, []value.Value) value.Completion {
			return r.ThrowTypeError("'caller', 'callee', and 'arguments' properties may not be accessed on strict mode functions or the arguments objects for calls to them")
		})
		in.thrower.PreventExtensions()
	}
	return in.thrower
}
