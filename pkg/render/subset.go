package render

import (
	"strings"

	"github.com/goliatone/go-schemaform/pkg/keypath"
	"github.com/goliatone/go-schemaform/pkg/schema"
)

// FieldSubset selects the fields a renderer should emit. Keys are templated
// full keys ("tags[index].name") or their dotted forms ("tags.name").
type FieldSubset struct {
	Keys []string
}

// Empty reports whether the subset selects everything.
func (s FieldSubset) Empty() bool {
	for _, key := range s.Keys {
		if strings.TrimSpace(key) != "" {
			return false
		}
	}
	return true
}

// ApplySubset prunes fields to those named by subset. Ancestors of a selected
// field are kept so paths stay intact, and every descendant of a selected
// container is kept with it. An empty subset returns fields unchanged.
func ApplySubset(fields []schema.Descriptor, subset FieldSubset) []schema.Descriptor {
	if subset.Empty() {
		return fields
	}
	wanted := make(map[string]struct{}, len(subset.Keys))
	for _, key := range subset.Keys {
		if normalized := normalizeSubsetKey(key); normalized != "" {
			wanted[normalized] = struct{}{}
		}
	}
	return pruneFields(fields, wanted)
}

func pruneFields(fields []schema.Descriptor, wanted map[string]struct{}) []schema.Descriptor {
	var out []schema.Descriptor
	for _, field := range fields {
		if _, ok := wanted[normalizeSubsetKey(field.FullKey)]; ok {
			out = append(out, field)
			continue
		}
		if len(field.Children) == 0 {
			continue
		}
		children := pruneFields(field.Children, wanted)
		if len(children) == 0 {
			continue
		}
		field.Children = children
		out = append(out, field)
	}
	return out
}

// normalizeSubsetKey drops row markers so "tags[index].name", "tags[0].name"
// and "tags.name" compare equal.
func normalizeSubsetKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	path, err := keypath.Parse(key)
	if err != nil {
		return key
	}
	names := make([]string, len(path))
	for i, segment := range path {
		names[i] = segment.Name
	}
	return strings.Join(names, ".")
}
