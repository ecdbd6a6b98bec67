package render

// RenderOptions describe per-request data that renderers can use to customise
// their output without mutating the form.
type RenderOptions struct {
	// Values pre-populates controls. The tree is nested the same way as the
	// form defaults; rows are lists of objects.
	Values map[string]any
	// Errors surfaces server-side validation feedback keyed by resolved full
	// key ("tags[0].name"). MapErrorPayload normalises foreign payloads.
	Errors map[string][]string
	// FormErrors are messages not tied to a field.
	FormErrors []string
	// ThemeName and ThemeVariant select design tokens for renderers that
	// support theming.
	ThemeName    string
	ThemeVariant string
	// Hidden inputs emitted alongside the fields (CSRF tokens, versions).
	Hidden []HiddenField
	// Locale and Translator resolve labelKey/descriptionKey/placeholderKey
	// control props. See Localize.
	Locale     string
	Translator Translator
	OnMissing  MissingTranslationHandler
}
