package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-schemaform/pkg/keypath"
)

var (
	// ErrEmptyKey reports a property declared without a name.
	ErrEmptyKey = errors.New("schema: empty property key")
	// ErrDuplicateKey reports a property declared twice in one mapping.
	ErrDuplicateKey = errors.New("schema: duplicate property key")
	// ErrInvalidKey reports a property name that would corrupt full keys.
	ErrInvalidKey = errors.New("schema: property key contains path separators")
	// ErrArrayItemShape reports an array whose item is not object shaped.
	// Scalar array items are not supported.
	ErrArrayItemShape = errors.New("schema: array item schema must be object shaped")
)

// ConfigError ties a configuration problem to the full key it was found at.
type ConfigError struct {
	FullKey string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.FullKey == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (at %q)", e.Err.Error(), e.FullKey)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Validate reports every configuration error found in s, including the
// children supplied by mode override blocks. A nil result means the schema
// transforms into well-formed paths for every mode.
func Validate(s Schema) error {
	var errs []error
	validateSchema(s, "", KindScalar, &errs)
	return errors.Join(errs...)
}

func validateSchema(s Schema, parent string, parentKind Kind, errs *[]error) {
	seen := make(map[string]struct{}, len(s))
	for _, entry := range s {
		key := entry.Key
		full := keypath.BuildFullKey(key, parent, parentKind.Container())
		switch {
		case strings.TrimSpace(key) == "":
			*errs = append(*errs, &ConfigError{FullKey: parent, Err: ErrEmptyKey})
			continue
		case strings.ContainsAny(key, ".[]"):
			*errs = append(*errs, &ConfigError{FullKey: full, Err: ErrInvalidKey})
		}
		if _, dup := seen[key]; dup {
			*errs = append(*errs, &ConfigError{FullKey: full, Err: ErrDuplicateKey})
		}
		seen[key] = struct{}{}

		node := entry.Node
		if !node.Kind.HasChildren() {
			continue
		}
		validateSchema(node.Children, full, node.Kind, errs)
		for _, mode := range []Mode{ModeCreate, ModeEdit, ModeReadonly} {
			if block, ok := node.Override(mode); ok && block.Children != nil {
				validateSchema(block.Children, full, node.Kind, errs)
			}
		}
	}
}

