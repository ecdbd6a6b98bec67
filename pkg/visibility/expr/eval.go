package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-schemaform/pkg/keypath"
	"github.com/goliatone/go-schemaform/pkg/visibility"
)

// SelfIdentifier refers to the value of the field the rule is attached to.
const SelfIdentifier = "value"

// Evaluator is a small, dependency-free visibility evaluator.
//
// Supported syntax:
//   - bare operands are truthiness checks: `enabled`, `value`
//   - comparisons: `status == "draft"`, `count != 3`, `age >= 18`
//   - composition: `a && !b`, `(a || b) && c`
//
// Identifiers are full keys into visibility.Context.Values (`author.email`,
// `items[0].name`); `value` reads visibility.Context.Value.
type Evaluator struct{}

// New constructs an Evaluator.
func New() *Evaluator { return &Evaluator{} }

var _ visibility.Evaluator = (*Evaluator)(nil)

// Eval compiles and evaluates rule. Empty rules are always visible.
func (e *Evaluator) Eval(fieldPath, rule string, ctx visibility.Context) (bool, error) {
	program, err := Compile(rule)
	if err != nil {
		return false, err
	}
	return program.Eval(ctx)
}

// Program is a compiled rule that can be evaluated repeatedly.
type Program struct {
	source string
	root   node
}

// Compile parses rule once so callers can evaluate it per render.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	tokens, err := lex(trimmed)
	if err != nil {
		return nil, err
	}
	root, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	return &Program{source: trimmed, root: root}, nil
}

// Source returns the trimmed rule text.
func (p *Program) Source() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Eval evaluates the compiled rule against ctx.
func (p *Program) Eval(ctx visibility.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

type node interface {
	eval(ctx visibility.Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type truthyNode struct{ operand operand }

func (n truthyNode) eval(ctx visibility.Context) (bool, error) {
	return truthy(n.operand.resolve(ctx)), nil
}

type compareNode struct {
	left  operand
	op    tokenKind
	right operand
}

func (n compareNode) eval(ctx visibility.Context) (bool, error) {
	left := n.left.resolve(ctx)
	right := n.right.resolve(ctx)

	switch n.op {
	case tokenEq:
		return equal(left, right), nil
	case tokenNeq:
		return !equal(left, right), nil
	}

	l, lok := toNumber(left)
	r, rok := toNumber(right)
	if !lok || !rok {
		return false, nil
	}
	switch n.op {
	case tokenLt:
		return l < r, nil
	case tokenLte:
		return l <= r, nil
	case tokenGt:
		return l > r, nil
	case tokenGte:
		return l >= r, nil
	default:
		return false, fmt.Errorf("visibility/expr: unsupported operator")
	}
}

type operand struct {
	ref      string
	literal  any
	constant bool
}

func (o operand) resolve(ctx visibility.Context) any {
	if o.constant {
		return o.literal
	}
	if o.ref == SelfIdentifier {
		return ctx.Value
	}
	value, _ := Lookup(ctx.Values, o.ref)
	return value
}

// Lookup resolves a full key (a.b, items[0].name, items.0.name) inside a
// value tree. Exact top-level matches win so flat value maps keyed by full
// key also resolve.
func Lookup(values map[string]any, fullKey string) (any, bool) {
	if len(values) == 0 {
		return nil, false
	}
	if v, ok := values[fullKey]; ok {
		return v, true
	}
	if path, err := keypath.Parse(fullKey); err == nil {
		if v, ok := path.Lookup(values); ok {
			return v, true
		}
	}
	path, err := keypath.ParseDotted(fullKey)
	if err != nil {
		return nil, false
	}
	return path.Lookup(values)
}

func parseNumber(text string) float64 {
	f, _ := strconv.ParseFloat(text, 64)
	return f
}

func equal(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if lb, ok := left.(bool); ok {
		rb, ok := toBool(right)
		return ok && lb == rb
	}
	if rb, ok := right.(bool); ok {
		lb, ok := toBool(left)
		return ok && lb == rb
	}
	if l, ok := toNumber(left); ok {
		if r, ok := toNumber(right); ok {
			return l == r
		}
	}
	return fmt.Sprint(left) == fmt.Sprint(right)
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if n, ok := toNumber(value); ok {
		return n != 0
	}
	return true
}

func toBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return parsed, err == nil
	}
	return false, false
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Check reports whether rule compiles. Decoders call it to reject malformed
// rules before any value is rendered.
func (e *Evaluator) Check(rule string) error {
	_, err := Compile(rule)
	return err
}
