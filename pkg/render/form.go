package render

import (
	"github.com/goliatone/go-schemaform/pkg/initvalue"
	"github.com/goliatone/go-schemaform/pkg/schema"
)

// Form is what renderers consume: descriptors for one mode plus the default
// value tree synthesized from them.
type Form struct {
	Name        string
	Title       string
	Description string
	Mode        schema.Mode
	Fields      []schema.Descriptor
	Defaults    initvalue.Values
}

// NewForm transforms s for mode and synthesizes its defaults.
func NewForm(name string, s schema.Schema, mode schema.Mode) Form {
	fields := schema.Transform(s, mode)
	return Form{
		Name:     name,
		Mode:     mode,
		Fields:   fields,
		Defaults: initvalue.FromDescriptors(fields),
	}
}

// State returns the value tree a renderer should display: a copy of the
// defaults with values layered on top. Rows supplied in values replace the
// default rows wholesale.
func (f Form) State(values map[string]any) map[string]any {
	state := deepCopyMap(f.Defaults)
	if state == nil {
		state = map[string]any{}
	}
	overlay(state, values)
	return state
}

func overlay(dst, src map[string]any) {
	for key, value := range src {
		if nested, ok := value.(map[string]any); ok {
			if existing, ok := dst[key].(map[string]any); ok {
				overlay(existing, nested)
				continue
			}
		}
		dst[key] = deepCopy(value)
	}
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return deepCopyMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}

func deepCopyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = deepCopy(value)
	}
	return out
}
