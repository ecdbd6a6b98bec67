// Package initvalue synthesizes the default value tree that seeds a form-state
// layer. The tree mirrors the schema: objects become nested maps, arrays
// become a single-element list holding one item template, and scalars take
// their initValue. Every declared key is present, even when its value is nil.
package initvalue

import "github.com/goliatone/go-schemaform/pkg/schema"

// Values is a default value tree keyed by property name.
type Values = map[string]any

// Synthesize builds the default value tree for s. Override blocks are not
// applied; callers that need mode-specific defaults synthesize from the
// transformed descriptors instead.
func Synthesize(s schema.Schema) Values {
	out := make(Values, len(s))
	for _, entry := range s {
		node := entry.Node
		switch {
		case schema.IsObjectField(node):
			out[entry.Key] = Synthesize(node.Children)
		case schema.IsArrayField(node):
			out[entry.Key] = []any{Synthesize(node.Children)}
		default:
			out[entry.Key] = scalarValue(node.InitValue)
		}
	}
	return out
}

// FromDescriptors builds the default value tree for already transformed
// descriptors. Keys come from Descriptor.Key, so a list of array children
// yields one item template.
func FromDescriptors(fields []schema.Descriptor) Values {
	out := make(Values, len(fields))
	for _, field := range fields {
		switch {
		case field.IsObject():
			out[field.Key] = FromDescriptors(field.Children)
		case field.IsArray():
			out[field.Key] = []any{FromDescriptors(field.Children)}
		default:
			out[field.Key] = scalarValue(field.InitValue)
		}
	}
	return out
}

// ItemTemplate returns a freshly synthesized item for an array descriptor,
// used when a row is appended. Each call allocates a new tree so appended rows
// never share values with earlier rows.
func ItemTemplate(field schema.Descriptor) Values {
	return FromDescriptors(field.Children)
}

// scalarValue keeps falsy initial values (0, false, "") and only falls back
// to nil when no value was declared. Containers are copied so the tree never
// aliases the schema.
func scalarValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, value := range typed {
			out[key] = scalarValue(value)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, value := range typed {
			out[i] = scalarValue(value)
		}
		return out
	default:
		return typed
	}
}
