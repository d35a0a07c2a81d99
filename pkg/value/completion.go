package value

import "github.com/nooga/cadence/pkg/errors"

// CompletionKind tags the outcome of evaluating a construct.
type CompletionKind uint8

const (
	Normal CompletionKind = iota
	Return
	Throw
	Break
	Continue
)

func (k CompletionKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Return:
		return "return"
	case Throw:
		return "throw"
	case Break:
		return "break"
	case Continue:
		return "continue"
	}
	return "unknown"
}

// Completion is the result of every evaluator-facing operation. A nil Value
// on a Normal, Break or Continue completion means "empty". Target names the
// label of a Break or Continue; an empty Target is unlabelled.
type Completion struct {
	Kind   CompletionKind
	Value  Value
	Target string
}

// Empty is a normal completion without a value.
var Empty = Completion{Kind: Normal}

func NormalCompletion(v Value) Completion { return Completion{Kind: Normal, Value: v} }
func ThrowCompletion(v Value) Completion  { return Completion{Kind: Throw, Value: v} }
func ReturnCompletion(v Value) Completion { return Completion{Kind: Return, Value: v} }

func BreakCompletion(target string) Completion {
	return Completion{Kind: Break, Target: target}
}

func ContinueCompletion(target string) Completion {
	return Completion{Kind: Continue, Target: target}
}

// IsAbrupt reports whether c is anything but a normal completion.
func (c Completion) IsAbrupt() bool { return c.Kind != Normal }

func (c Completion) IsThrow() bool { return c.Kind == Throw }

// IsEmpty reports whether c carries no value.
func (c Completion) IsEmpty() bool { return c.Value == nil }

// ValueOrUndefined returns the carried value, mapping empty to undefined.
func (c Completion) ValueOrUndefined() Value {
	if c.Value == nil {
		return Undefined
	}
	return c.Value
}

// UpdateEmpty fills the value of c with v when c is empty. Return and throw
// completions always carry a value and are left untouched.
func UpdateEmpty(c Completion, v Value) Completion {
	if c.Value != nil || c.Kind == Return || c.Kind == Throw {
		return c
	}
	c.Value = v
	return c
}

// MustNormal returns the value of a completion that cannot be abrupt. An
// abrupt completion here is an engine defect and panics with an
// InvariantError.
func MustNormal(c Completion) Value {
	if c.IsAbrupt() {
		panic(errors.Invariantf("expected normal completion, got %s", c.Kind))
	}
	return c.ValueOrUndefined()
}

// Assert panics with an InvariantError when cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(errors.Invariantf(format, args...))
	}
}
