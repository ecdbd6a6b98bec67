// Package schemaform turns declarative form schemas into per-mode field
// descriptors and default values, and renders them through pluggable
// renderers. The root package re-exports the common entry points; the
// building blocks live under pkg/.
package schemaform

import (
	"context"
	"io/fs"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-schemaform/pkg/document"
	"github.com/goliatone/go-schemaform/pkg/initvalue"
	"github.com/goliatone/go-schemaform/pkg/orchestrator"
	"github.com/goliatone/go-schemaform/pkg/render"
	"github.com/goliatone/go-schemaform/pkg/renderers/html"
	"github.com/goliatone/go-schemaform/pkg/schema"
)

// RenderOptions describes per-request values, errors and theme selection.
type RenderOptions = render.RenderOptions

// FieldSubset aliases render.FieldSubset for partial rendering.
type FieldSubset = render.FieldSubset

// Request aliases orchestrator.Request.
type Request = orchestrator.Request

// Transform composes s for mode and annotates every field with its full key.
func Transform(s schema.Schema, mode schema.Mode) []schema.Descriptor {
	return schema.Transform(s, mode)
}

// Defaults synthesizes the default value tree of s.
func Defaults(s schema.Schema) initvalue.Values {
	return initvalue.Synthesize(s)
}

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// GenerateHTML renders a schema declared in code with the HTML renderer.
func GenerateHTML(ctx context.Context, name string, s schema.Schema, mode schema.Mode, renderOptions RenderOptions, options ...orchestrator.Option) ([]byte, error) {
	doc := document.Document{Name: name, Fields: s}
	return orchestrator.New(options...).Generate(ctx, orchestrator.Request{
		Document:      &doc,
		Mode:          mode,
		Renderer:      "html",
		RenderOptions: renderOptions,
	})
}

// GenerateFromOpenAPI imports the request body of operationID and renders it
// with the named renderer (the default renderer when empty).
func GenerateFromOpenAPI(ctx context.Context, data []byte, operationID, rendererName string, mode schema.Mode, options ...orchestrator.Option) ([]byte, error) {
	return orchestrator.New(options...).Generate(ctx, orchestrator.Request{
		OpenAPI:   data,
		Operation: operationID,
		Mode:      mode,
		Renderer:  rendererName,
	})
}

// WithThemeSelector registers an HTML renderer resolving tokens and partials
// through selector. It replaces the orchestrator's renderer registry.
func WithThemeSelector(selector theme.ThemeSelector, htmlOptions ...html.Option) (orchestrator.Option, error) {
	renderer, err := html.New(append([]html.Option{html.WithThemeSelector(selector)}, htmlOptions...)...)
	if err != nil {
		return nil, err
	}
	return orchestrator.WithRegistry(render.NewRegistry(renderer)), nil
}

// EmbeddedTemplates exposes the built-in HTML templates so callers can copy
// or extend them.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}
