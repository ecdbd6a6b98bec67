package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-schemaform/pkg/document"
	"github.com/goliatone/go-schemaform/pkg/initvalue"
	"github.com/goliatone/go-schemaform/pkg/openapi"
	"github.com/goliatone/go-schemaform/pkg/render"
	"github.com/goliatone/go-schemaform/pkg/renderers/html"
	"github.com/goliatone/go-schemaform/pkg/schema"
	"github.com/goliatone/go-schemaform/pkg/store"
	"github.com/goliatone/go-schemaform/pkg/visibility"
	"github.com/goliatone/go-schemaform/pkg/visibility/expr"
	"github.com/goliatone/go-schemaform/pkg/widgets"
)

const defaultRendererName = "html"

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithStore sets the store used to resolve Request.Name.
func WithStore(s store.Store) Option {
	return func(o *Orchestrator) {
		o.store = s
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request omits an
// explicit Renderer field.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithWidgetRegistry resolves empty controls on built descriptors.
func WithWidgetRegistry(registry *widgets.Registry) Option {
	return func(o *Orchestrator) {
		o.widgets = registry
	}
}

// WithTransformer appends descriptor transformers. They run in registration
// order after the schema is composed for the request mode.
func WithTransformer(transformers ...Transformer) Option {
	return func(o *Orchestrator) {
		for _, t := range transformers {
			if t != nil {
				o.transformers = append(o.transformers, t)
			}
		}
	}
}

// WithEvaluator compiles showWhen rules that reach Build without a predicate,
// such as schemas declared in code or rules set by a preset.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(o *Orchestrator) {
		o.evaluator = eval
	}
}

// WithImporter swaps the OpenAPI importer used for Request.OpenAPI.
func WithImporter(importer *openapi.Importer) Option {
	return func(o *Orchestrator) {
		o.importer = importer
	}
}

// Orchestrator resolves documents, builds descriptors for a mode and hands
// them to a renderer. It is safe for concurrent use once constructed.
type Orchestrator struct {
	store           store.Store
	registry        *render.Registry
	defaultRenderer string
	widgets         *widgets.Registry
	transformers    []Transformer
	evaluator       visibility.Evaluator
	importer        *openapi.Importer
	initialiseErr   error
}

// New constructs an Orchestrator applying any provided options. A missing
// registry is filled with the HTML renderer.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		evaluator:       expr.New(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

// Request describes one form to build or render. Exactly one source is used,
// in order: Document, OpenAPI, Name.
type Request struct {
	// Name looks the document up in the configured store.
	Name string

	// Document bypasses the store.
	Document *document.Document

	// OpenAPI holds a raw OpenAPI document; Operation selects the request
	// body to import. An empty Operation picks the only operation with a body.
	OpenAPI   []byte
	Operation string

	// Mode selects the override blocks. Unknown modes compose to the base
	// attributes.
	Mode schema.Mode

	// Renderer names the renderer to use. If empty, the orchestrator falls back
	// to the configured default renderer.
	Renderer string

	// Subset restricts the emitted fields.
	Subset render.FieldSubset

	// RenderOptions carries values, errors and theme selection through to
	// the renderer.
	RenderOptions render.RenderOptions
}

// Registry exposes the renderer registry so callers can list renderers.
func (o *Orchestrator) Registry() *render.Registry {
	return o.registry
}

// Store exposes the configured store; nil when none was set.
func (o *Orchestrator) Store() store.Store {
	return o.store
}

// Build resolves the request document and returns the form a renderer would
// receive. Any failure aborts the call without a partial form.
func (o *Orchestrator) Build(ctx context.Context, req Request) (render.Form, error) {
	if ctx == nil {
		return render.Form{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return render.Form{}, err
	}
	if err := o.initialiseErr; err != nil {
		return render.Form{}, err
	}

	doc, err := o.resolveDocument(ctx, req)
	if err != nil {
		return render.Form{}, err
	}

	form := render.NewForm(doc.Name, doc.Fields, req.Mode)
	form.Title = doc.Title
	form.Description = doc.Description

	if err := o.applyTransformers(ctx, &form); err != nil {
		return render.Form{}, err
	}
	form.Fields = bindVisibility(form.Fields, o.evaluator)
	form.Fields = render.ApplySubset(form.Fields, req.Subset)
	if o.widgets != nil {
		form.Fields = o.widgets.Decorate(form.Fields)
	}
	form.Defaults = initvalue.FromDescriptors(form.Fields)
	return form, nil
}

// Generate builds the form and renders it with the requested renderer.
func (o *Orchestrator) Generate(ctx context.Context, req Request) ([]byte, error) {
	form, err := o.Build(ctx, req)
	if err != nil {
		return nil, err
	}

	renderer, err := o.rendererFor(req.Renderer)
	if err != nil {
		return nil, err
	}

	output, err := renderer.Render(ctx, form, req.RenderOptions)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

func (o *Orchestrator) resolveDocument(ctx context.Context, req Request) (document.Document, error) {
	switch {
	case req.Document != nil:
		return *req.Document, nil
	case len(req.OpenAPI) > 0:
		doc, err := o.importer.ImportDocument(ctx, req.OpenAPI, req.Operation)
		if err != nil {
			return document.Document{}, fmt.Errorf("orchestrator: import openapi: %w", err)
		}
		return doc, nil
	case req.Name != "":
		if o.store == nil {
			return document.Document{}, errors.New("orchestrator: store is not configured")
		}
		doc, err := o.store.Get(ctx, req.Name)
		if err != nil {
			return document.Document{}, fmt.Errorf("orchestrator: load document: %w", err)
		}
		return doc, nil
	default:
		return document.Document{}, errors.New("orchestrator: name, document or openapi source is required")
	}
}

func (o *Orchestrator) rendererFor(name string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}

	target := name
	if target == "" {
		target = o.defaultRenderer
	}

	if target != "" {
		renderer, err := o.registry.Get(target)
		if err == nil {
			return renderer, nil
		}
		if name != "" {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
	}

	names := o.registry.List()
	if len(names) == 0 {
		return nil, errors.New("orchestrator: no renderers registered")
	}

	renderer, err := o.registry.Get(names[0])
	if err != nil {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", names[0], err)
	}
	return renderer, nil
}

func (o *Orchestrator) applyTransformers(ctx context.Context, form *render.Form) error {
	for _, t := range o.transformers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Transform(ctx, form); err != nil {
			return fmt.Errorf("orchestrator: transform form: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) applyDefaults() {
	if o.importer == nil {
		o.importer = openapi.New(openapi.WithEvaluator(o.evaluator))
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := html.New(html.WithWidgetRegistry(o.widgets))
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
		} else {
			o.registry.MustRegister(renderer)
		}
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
}
