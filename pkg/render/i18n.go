package render

import (
	"errors"
	"strings"

	"github.com/goliatone/go-schemaform/pkg/schema"
)

// Control props naming translation keys. The translated string replaces the
// matching attribute (or the placeholder prop) when localizing.
const (
	LabelKeyProp       = "labelKey"
	DescriptionKeyProp = "descriptionKey"
	PlaceholderKeyProp = "placeholderKey"
)

// ErrMissingTranslator is reported to MissingTranslationHandler when a key is
// present but no Translator was configured.
var ErrMissingTranslator = errors.New("render: translator not configured")

// Translator resolves a message key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate delegates to the underlying function.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler decides the string to use when a key cannot be
// translated. args carries {"default": fallback}.
type MissingTranslationHandler func(locale, key string, args []any, err error) string

// Localize returns a copy of fields with label, description and placeholder
// translated from their *Key control props. Fields without keys are returned
// untouched. Failures fall back to the existing text, then to the key itself,
// unless opts.OnMissing decides otherwise.
func Localize(fields []schema.Descriptor, opts RenderOptions) []schema.Descriptor {
	if len(fields) == 0 {
		return fields
	}
	out := make([]schema.Descriptor, len(fields))
	for i, field := range fields {
		out[i] = localizeField(field, opts)
	}
	return out
}

func localizeField(field schema.Descriptor, opts RenderOptions) schema.Descriptor {
	if key := propString(field.ControlProps, LabelKeyProp); key != "" {
		field.Label = translate(opts, key, field.Label)
	}
	if key := propString(field.ControlProps, DescriptionKeyProp); key != "" {
		field.Description = translate(opts, key, field.Description)
	}
	if key := propString(field.ControlProps, PlaceholderKeyProp); key != "" {
		props := make(map[string]any, len(field.ControlProps))
		for k, v := range field.ControlProps {
			props[k] = v
		}
		props["placeholder"] = translate(opts, key, propString(field.ControlProps, "placeholder"))
		field.ControlProps = props
	}
	if len(field.Children) > 0 {
		field.Children = Localize(field.Children, opts)
	}
	return field
}

func translate(opts RenderOptions, key, fallback string) string {
	args := []any{map[string]any{"default": fallback}}
	if opts.Translator == nil {
		return missingTranslation(opts, key, fallback, args, ErrMissingTranslator)
	}

	result, err := opts.Translator.Translate(opts.Locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	return missingTranslation(opts, key, fallback, args, err)
}

func missingTranslation(opts RenderOptions, key, fallback string, args []any, err error) string {
	if opts.OnMissing != nil {
		return opts.OnMissing(opts.Locale, key, args, err)
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}

func propString(props map[string]any, key string) string {
	if props == nil {
		return ""
	}
	value, _ := props[key].(string)
	return strings.TrimSpace(value)
}
