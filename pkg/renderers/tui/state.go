package tui

import (
	"github.com/goliatone/go-schemaform/pkg/render"
)

// State tracks collected values and server-provided errors keyed by resolved
// full keys ("tags[0].name").
type State struct {
	values map[string]any
	errors map[string][]string
}

// NewState seeds the state with values and errors. values is used as is;
// callers pass a tree they own, such as render.Form.State. errs is copied.
func NewState(values map[string]any, errs map[string][]string) *State {
	if values == nil {
		values = make(map[string]any)
	}
	return &State{
		values: values,
		errors: cloneErrors(errs),
	}
}

// Values returns the current value tree (mutable).
func (s *State) Values() map[string]any {
	if s == nil {
		return nil
	}
	return s.values
}

// ErrorsFor returns the errors attached to a resolved full key.
func (s *State) ErrorsFor(fullKey string) []string {
	if s == nil || len(s.errors) == 0 {
		return nil
	}
	return s.errors[fullKey]
}

// GetValue reads the value at a resolved full key.
func (s *State) GetValue(fullKey string) (any, bool) {
	if s == nil {
		return nil, false
	}
	return render.GetValue(s.values, fullKey)
}

// SetValue writes a value at a resolved full key, creating intermediate
// objects and rows as needed.
func (s *State) SetValue(fullKey string, value any) error {
	if s == nil {
		return errNilState
	}
	return render.SetValue(s.values, fullKey, value)
}

// RowCount reports the rows currently held by the array at fullKey.
func (s *State) RowCount(fullKey string) int {
	if s == nil {
		return 0
	}
	return render.RowCount(s.values, fullKey)
}

func cloneErrors(src map[string][]string) map[string][]string {
	out := make(map[string][]string, len(src))
	for k, v := range src {
		out[k] = append([]string(nil), v...)
	}
	return out
}
