package parser

import "fmt"

// CoverToAssignmentPattern reinterprets an object or array literal parsed in
// expression position as the assignment pattern it covers.
func CoverToAssignmentPattern(e Expression) (Expression, error) {
	return toPattern(e, false)
}

// toPattern converts a cover expression into a pattern. Binding patterns
// (binding == true) only admit identifiers as leaves; assignment patterns
// also admit member expressions.
func toPattern(e Expression, binding bool) (Expression, error) {
	switch t := e.(type) {
	case *Identifier:
		if t.Name == "eval" || t.Name == "arguments" {
			return nil, fmt.Errorf("'%s' cannot be assigned in strict mode", t.Name)
		}
		return t, nil
	case *MemberExpression:
		if binding {
			return nil, fmt.Errorf("invalid destructuring target")
		}
		return t, nil
	case *ParenthesizedExpression:
		if binding || !isSimpleAssignmentTarget(t.Expression) {
			return nil, fmt.Errorf("invalid destructuring target")
		}
		return toPattern(t.Expression, binding)
	case *ObjectPattern, *ArrayPattern:
		return t, nil
	case *ObjectLiteral:
		pat := &ObjectPattern{}
		for i, prop := range t.Properties {
			switch {
			case prop.Kind == PropertySpread:
				if i != len(t.Properties)-1 {
					return nil, fmt.Errorf("rest element must be last element")
				}
				rest, err := toPattern(prop.Value, binding)
				if err != nil {
					return nil, err
				}
				if _, ok := rest.(*Identifier); !ok && binding {
					return nil, fmt.Errorf("`...` must be followed by an identifier in declaration contexts")
				}
				pat.Rest = rest
			case prop.Kind != PropertyInit || prop.Method:
				return nil, fmt.Errorf("invalid destructuring target")
			case prop.Shorthand:
				id := prop.Value.(*Identifier)
				target, err := toPattern(id, binding)
				if err != nil {
					return nil, err
				}
				pat.Properties = append(pat.Properties, &PatternProperty{
					Key:   prop.Key,
					Value: &BindingElement{Target: target, Default: prop.CoverInitializer},
				})
			default:
				el, err := toBindingElement(prop.Value, binding)
				if err != nil {
					return nil, err
				}
				pat.Properties = append(pat.Properties, &PatternProperty{Key: prop.Key, Computed: prop.Computed, Value: el})
			}
		}
		return pat, nil
	case *ArrayLiteral:
		pat := &ArrayPattern{}
		for i, el := range t.Elements {
			if el == nil {
				pat.Elements = append(pat.Elements, nil)
				continue
			}
			if spread, ok := el.(*SpreadElement); ok {
				if i != len(t.Elements)-1 {
					return nil, fmt.Errorf("rest element must be last element")
				}
				rest, err := toPattern(spread.Argument, binding)
				if err != nil {
					return nil, err
				}
				pat.Rest = rest
				continue
			}
			be, err := toBindingElement(el, binding)
			if err != nil {
				return nil, err
			}
			pat.Elements = append(pat.Elements, be)
		}
		return pat, nil
	}
	return nil, fmt.Errorf("invalid destructuring target")
}

func toBindingElement(e Expression, binding bool) (*BindingElement, error) {
	if assign, ok := e.(*AssignmentExpression); ok && assign.Operator == "=" {
		target, err := toPattern(assign.Left, binding)
		if err != nil {
			return nil, err
		}
		return &BindingElement{Target: target, Default: assign.Right}, nil
	}
	target, err := toPattern(e, binding)
	if err != nil {
		return nil, err
	}
	return &BindingElement{Target: target}, nil
}

// IsAnonymousFunctionDefinition reports whether e is a function or arrow
// expression without its own name, looking through parentheses.
func IsAnonymousFunctionDefinition(e Expression) bool {
	switch t := e.(type) {
	case *ParenthesizedExpression:
		return IsAnonymousFunctionDefinition(t.Expression)
	case *FunctionLiteral:
		return t.Name == nil
	}
	return false
}

// IsIdentifierRef reports whether e is a bare identifier reference.
func IsIdentifierRef(e Expression) bool {
	_, ok := e.(*Identifier)
	return ok
}

// BoundNames collects the identifiers a binding target declares.
func BoundNames(target Expression) []string {
	var names []string
	collectBoundNames(target, &names)
	return names
}

func collectBoundNames(target Expression, names *[]string) {
	switch t := target.(type) {
	case *Identifier:
		*names = append(*names, t.Name)
	case *ObjectPattern:
		for _, prop := range t.Properties {
			collectBoundNames(prop.Value.Target, names)
		}
		if t.Rest != nil {
			collectBoundNames(t.Rest, names)
		}
	case *ArrayPattern:
		for _, el := range t.Elements {
			if el != nil {
				collectBoundNames(el.Target, names)
			}
		}
		if t.Rest != nil {
			collectBoundNames(t.Rest, names)
		}
	}
}

// ParameterNames returns the bound names of a function's formal parameters.
func ParameterNames(fn *FunctionLiteral) []string {
	var names []string
	for _, p := range fn.Params {
		collectBoundNames(p.Target, &names)
	}
	if fn.Rest != nil {
		collectBoundNames(fn.Rest, &names)
	}
	return names
}

// HasSimpleParameterList reports whether every parameter is a plain
// identifier without a default and there is no rest parameter.
func HasSimpleParameterList(fn *FunctionLiteral) bool {
	if fn.Rest != nil {
		return false
	}
	for _, p := range fn.Params {
		if _, ok := p.Target.(*Identifier); !ok || p.Default != nil {
			return false
		}
	}
	return true
}

// VarDeclaredNames returns the names declared with `var` anywhere in body,
// without descending into nested functions.
func VarDeclaredNames(body []Statement) []string {
	var names []string
	seen := make(map[string]bool)
	for _, decl := range VarDeclarations(body) {
		for _, d := range decl.Declarations {
			for _, n := range BoundNames(d.Target) {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
		}
	}
	return names
}

// VarDeclarations returns every `var` declaration reachable from body
// without crossing a function boundary.
func VarDeclarations(body []Statement) []*VariableDeclaration {
	var out []*VariableDeclaration
	for _, s := range body {
		collectVarDeclarations(s, &out)
	}
	return out
}

func collectVarDeclarations(s Statement, out *[]*VariableDeclaration) {
	switch t := s.(type) {
	case *VariableDeclaration:
		if t.Kind == "var" {
			*out = append(*out, t)
		}
	case *BlockStatement:
		for _, inner := range t.Body {
			collectVarDeclarations(inner, out)
		}
	case *IfStatement:
		collectVarDeclarations(t.Consequent, out)
		if t.Alternate != nil {
			collectVarDeclarations(t.Alternate, out)
		}
	case *WhileStatement:
		collectVarDeclarations(t.Body, out)
	case *DoWhileStatement:
		collectVarDeclarations(t.Body, out)
	case *ForStatement:
		if decl, ok := t.Init.(*VariableDeclaration); ok {
			collectVarDeclarations(decl, out)
		}
		collectVarDeclarations(t.Body, out)
	case *ForInOfStatement:
		if decl, ok := t.Left.(*VariableDeclaration); ok {
			collectVarDeclarations(decl, out)
		}
		collectVarDeclarations(t.Body, out)
	case *TryStatement:
		collectVarDeclarations(t.Block, out)
		if t.Handler != nil {
			collectVarDeclarations(t.Handler, out)
		}
		if t.Finalizer != nil {
			collectVarDeclarations(t.Finalizer, out)
		}
	case *SwitchStatement:
		for _, c := range t.Cases {
			for _, inner := range c.Consequent {
				collectVarDeclarations(inner, out)
			}
		}
	case *LabeledStatement:
		collectVarDeclarations(t.Body, out)
	}
}

// FunctionDeclarations returns the function declarations directly in body.
// At script and function top level these are var-scoped.
func FunctionDeclarations(body []Statement) []*FunctionLiteral {
	var out []*FunctionLiteral
	for _, s := range body {
		if fd, ok := s.(*FunctionDeclaration); ok {
			out = append(out, fd.Function)
		}
	}
	return out
}

// LexicalDeclarations returns the let/const declarations directly in body.
func LexicalDeclarations(body []Statement) []*VariableDeclaration {
	var out []*VariableDeclaration
	for _, s := range body {
		if decl, ok := s.(*VariableDeclaration); ok && decl.Kind != "var" {
			out = append(out, decl)
		}
	}
	return out
}

// LexicallyDeclaredNames returns the names of let/const declarations in
// body, plus function declarations when body is a nested block.
func LexicallyDeclaredNames(body []Statement, includeFunctions bool) []string {
	var names []string
	for _, decl := range LexicalDeclarations(body) {
		for _, d := range decl.Declarations {
			names = append(names, BoundNames(d.Target)...)
		}
	}
	if includeFunctions {
		for _, fn := range FunctionDeclarations(body) {
			names = append(names, fn.Name.Name)
		}
	}
	return names
}

// ValidateDeclarations reports a redeclaration conflict between lexical
// names and other lexical or var names of the same scope.
func ValidateDeclarations(body []Statement, topLevel bool) error {
	lexical := make(map[string]bool)
	for _, n := range LexicallyDeclaredNames(body, !topLevel) {
		if lexical[n] {
			return fmt.Errorf("identifier '%s' has already been declared", n)
		}
		lexical[n] = true
	}
	for _, n := range VarDeclaredNames(body) {
		if lexical[n] {
			return fmt.Errorf("identifier '%s' has already been declared", n)
		}
	}
	if topLevel {
		for _, fn := range FunctionDeclarations(body) {
			if lexical[fn.Name.Name] {
				return fmt.Errorf("identifier '%s' has already been declared", fn.Name.Name)
			}
		}
	}
	return nil
}
