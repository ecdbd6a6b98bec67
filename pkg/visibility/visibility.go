// Package visibility defines the contract for deciding whether a field is
// shown. Schemas declared in code attach a schema.ShowFunc directly; schemas
// loaded from documents declare a showWhen rule that an Evaluator compiles
// into one.
package visibility

// Evaluator determines whether the field at fieldPath is visible according to
// rule.
type Evaluator interface {
	Eval(fieldPath, rule string, ctx Context) (bool, error)
}

// Context carries the inputs of a visibility decision. Value is the field's
// own current value and Values the whole form value tree.
type Context struct {
	Value  any
	Values map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(fieldPath, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(fieldPath, rule string, ctx Context) (bool, error) {
	return fn(fieldPath, rule, ctx)
}

// ShowFunc returns a predicate matching schema.ShowFunc that evaluates rule
// with eval. Evaluation errors keep the field visible so a broken rule
// surfaces in the UI instead of silently hiding input.
func ShowFunc(eval Evaluator, fieldPath, rule string) func(value any, values map[string]any) bool {
	return func(value any, values map[string]any) bool {
		if eval == nil {
			return true
		}
		ok, err := eval.Eval(fieldPath, rule, Context{Value: value, Values: values})
		if err != nil {
			return true
		}
		return ok
	}
}

// Checker is implemented by evaluators that can reject a malformed rule
// before it is evaluated.
type Checker interface {
	Check(rule string) error
}

// Predicate checks rule when eval supports it and returns the compiled
// predicate. Empty rules and nil evaluators produce a nil predicate.
func Predicate(eval Evaluator, fieldPath, rule string) (func(value any, values map[string]any) bool, error) {
	if eval == nil || rule == "" {
		return nil, nil
	}
	if checker, ok := eval.(Checker); ok {
		if err := checker.Check(rule); err != nil {
			return nil, err
		}
	}
	return ShowFunc(eval, fieldPath, rule), nil
}
