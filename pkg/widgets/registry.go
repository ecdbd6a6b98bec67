package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-schemaform/pkg/schema"
)

// Built-in control identifiers exposed by the registry.
const (
	ControlInput    = "input"
	ControlTextarea = "textarea"
	ControlNumber   = "number"
	ControlCheckbox = "checkbox"
	ControlSelect   = "select"
	ControlPassword = "password"
)

// Matcher decides whether a control should handle the supplied field.
type Matcher func(field schema.Descriptor) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects controls for scalar descriptors that do not name one.
// Higher priority wins; ties fall back to registration order. Object and
// array descriptors never receive a control.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher with the provided name and priority. Higher priority
// values take precedence. Callers should avoid duplicate names; the latest
// registration wins during resolution.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Known reports whether name was registered.
func (r *Registry) Known(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.rules {
		if entry.name == name {
			return true
		}
	}
	return false
}

// Resolve returns the control for a field. An explicit Control is honoured
// before matcher evaluation.
func (r *Registry) Resolve(field schema.Descriptor) (string, bool) {
	if explicit := strings.TrimSpace(field.Control); explicit != "" {
		return explicit, true
	}
	if r == nil || field.Kind.HasChildren() {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Decorate returns a copy of fields with empty controls filled on every
// scalar descriptor, including the children of objects and array rows.
func (r *Registry) Decorate(fields []schema.Descriptor) []schema.Descriptor {
	if len(fields) == 0 {
		return fields
	}
	decorated := make([]schema.Descriptor, len(fields))
	for idx, field := range fields {
		decorated[idx] = r.decorateField(field)
	}
	return decorated
}

func (r *Registry) decorateField(field schema.Descriptor) schema.Descriptor {
	if !field.Kind.HasChildren() && field.Control == "" {
		if control, ok := r.Resolve(field); ok {
			field.Control = control
		}
	}
	if len(field.Children) > 0 {
		field.Children = r.Decorate(field.Children)
	}
	return field
}

func (r *Registry) registerBuiltins() {
	r.Register(ControlSelect, 80, func(field schema.Descriptor) bool {
		_, ok := field.ControlProps["options"]
		return ok
	})

	r.Register(ControlCheckbox, 70, func(field schema.Descriptor) bool {
		_, ok := field.InitValue.(bool)
		return ok
	})

	r.Register(ControlNumber, 60, func(field schema.Descriptor) bool {
		switch field.InitValue.(type) {
		case int, int32, int64, float32, float64, uint, uint32, uint64:
			return true
		}
		return false
	})

	r.Register(ControlPassword, 50, func(field schema.Descriptor) bool {
		key := strings.ToLower(field.Key)
		return strings.Contains(key, "password") || strings.Contains(key, "secret")
	})

	r.Register(ControlTextarea, 40, func(field schema.Descriptor) bool {
		if _, ok := field.ControlProps["rows"]; ok {
			return true
		}
		text, ok := field.InitValue.(string)
		return ok && strings.Contains(text, "\n")
	})

	r.Register(ControlInput, 0, func(schema.Descriptor) bool {
		return true
	})
}
