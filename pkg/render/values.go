package render

import (
	"fmt"

	"github.com/goliatone/go-schemaform/pkg/keypath"
	"github.com/goliatone/go-schemaform/pkg/schema"
)

// GetValue reads the value stored at a resolved full key ("tags[0].name").
// Templated keys never resolve.
func GetValue(values map[string]any, fullKey string) (any, bool) {
	path, err := keypath.Parse(fullKey)
	if err != nil {
		return nil, false
	}
	return path.Lookup(values)
}

// SetValue writes v at a resolved full key, creating intermediate objects and
// rows.
func SetValue(values map[string]any, fullKey string, v any) error {
	path, err := keypath.Parse(fullKey)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := path.Assign(values, v); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// RowCount reports how many rows the array at arrayFullKey holds. Missing or
// non-list values count as zero rows.
func RowCount(values map[string]any, arrayFullKey string) int {
	value, ok := GetValue(values, arrayFullKey)
	if !ok {
		return 0
	}
	rows, _ := value.([]any)
	return len(rows)
}

// Visible evaluates the descriptor's show predicate against the field's own
// value and the whole tree. Fields without a predicate are always shown.
func Visible(field schema.Descriptor, values map[string]any) bool {
	if field.Show == nil {
		return true
	}
	var value any
	if len(field.Path) > 0 {
		value, _ = field.Path.Lookup(values)
	} else {
		value, _ = GetValue(values, field.FullKey)
	}
	return field.Show(value, values)
}
