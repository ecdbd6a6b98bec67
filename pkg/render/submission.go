package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-schemaform/pkg/schema"
)

// ModeFieldName is the hidden input that tells a submit handler which mode the
// form was rendered in.
const ModeFieldName = "_mode"

// HiddenField is a hidden input emitted alongside the fields.
type HiddenField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{
		Name:  strings.TrimSpace(name),
		Value: fmt.Sprint(value),
	}
}

// CSRFToken carries a CSRF token under the input name the backend expects
// ("_csrf", "csrf_token").
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// VersionField carries a record version for optimistic locking.
func VersionField(name string, version any) HiddenField {
	return Hidden(name, version)
}

// ModeField records the render mode. ModeNone produces no field.
func ModeField(mode schema.Mode) (HiddenField, bool) {
	if mode == schema.ModeNone {
		return HiddenField{}, false
	}
	return Hidden(ModeFieldName, string(mode)), true
}

// MergeHiddenFields folds fields into a copy of base. Empty names are
// ignored and later fields win on collisions.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	out := make(map[string]string, len(base)+len(fields))
	for name, value := range base {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = value
		}
	}
	for _, field := range fields {
		if name := strings.TrimSpace(field.Name); name != "" {
			out[name] = field.Value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields lists hidden fields by name for deterministic output.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]HiddenField, 0, len(names))
	for _, name := range names {
		out = append(out, HiddenField{Name: strings.TrimSpace(name), Value: fields[name]})
	}
	return out
}

// HiddenFor collects the hidden inputs a renderer should emit for form:
// options.Hidden plus the mode marker, deduplicated and sorted.
func HiddenFor(form Form, options RenderOptions) []HiddenField {
	fields := append([]HiddenField(nil), options.Hidden...)
	if mode, ok := ModeField(form.Mode); ok {
		fields = append([]HiddenField{mode}, fields...)
	}
	return SortedHiddenFields(MergeHiddenFields(nil, fields...))
}
