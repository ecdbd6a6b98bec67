package orchestrator

import (
	"strings"

	"github.com/goliatone/go-schemaform/pkg/schema"
	"github.com/goliatone/go-schemaform/pkg/visibility"
)

// bindVisibility compiles showWhen rules on descriptors that carry a rule but
// no predicate. Predicates already present (decoded documents, code-declared
// Show funcs) are kept.
func bindVisibility(fields []schema.Descriptor, evaluator visibility.Evaluator) []schema.Descriptor {
	if evaluator == nil || len(fields) == 0 {
		return fields
	}
	out := make([]schema.Descriptor, len(fields))
	for i, field := range fields {
		if field.Show == nil && strings.TrimSpace(field.ShowWhen) != "" {
			field.Show = visibility.ShowFunc(evaluator, field.FullKey, field.ShowWhen)
		}
		if len(field.Children) > 0 {
			field.Children = bindVisibility(field.Children, evaluator)
		}
		out[i] = field
	}
	return out
}
