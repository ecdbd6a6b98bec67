package html

import (
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-schemaform/pkg/render/template"
	"github.com/goliatone/go-schemaform/pkg/widgets"
)

// Option configures the HTML renderer.
type Option func(*Renderer)

// WithTemplateDir layers templates from dir over the embedded set. Files with
// the same name replace the built-ins; new files can back custom controls
// ("fields/<control>.tpl") or theme partials.
func WithTemplateDir(dir string) Option {
	return func(r *Renderer) {
		r.templateDir = strings.TrimSpace(dir)
	}
}

// WithTemplateRenderer replaces the built-in pongo2 engine. The engine must
// provide the form, fields/object, fields/array, fields/row and
// fields/input templates; WithTemplateDir is ignored.
func WithTemplateRenderer(engine template.TemplateRenderer) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithThemeSelector resolves RenderOptions.ThemeName/ThemeVariant into design
// tokens and partial overrides.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(r *Renderer) {
		r.themes = selector
	}
}

// WithWidgetRegistry resolves controls for descriptors that do not name one.
func WithWidgetRegistry(reg *widgets.Registry) Option {
	return func(r *Renderer) {
		if reg != nil {
			r.widgets = reg
		}
	}
}

// WithSanitizer replaces the policy applied to descriptions.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(r *Renderer) {
		if policy != nil {
			r.policy = policy
		}
	}
}

// WithAction sets the form method and action attributes.
func WithAction(method, action string) Option {
	return func(r *Renderer) {
		if method = strings.TrimSpace(method); method != "" {
			r.method = strings.ToLower(method)
		}
		r.action = strings.TrimSpace(action)
	}
}

// WithLabels overrides the submit and append button labels.
func WithLabels(submit, appendRow string) Option {
	return func(r *Renderer) {
		if submit != "" {
			r.submitLabel = submit
		}
		if appendRow != "" {
			r.appendLabel = appendRow
		}
	}
}
