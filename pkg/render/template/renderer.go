package template

import (
	"io"
)

// TemplateRenderer is what the HTML renderer needs from a template engine.
// Engine is the pongo2 implementation; renderers accept any other through
// their options.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
	// Exists reports whether name resolves to a loadable template.
	Exists(name string) bool
}
