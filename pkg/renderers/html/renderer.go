package html

import (
	"context"
	"errors"
	"fmt"
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-schemaform/pkg/initvalue"
	"github.com/goliatone/go-schemaform/pkg/render"
	"github.com/goliatone/go-schemaform/pkg/render/template"
	"github.com/goliatone/go-schemaform/pkg/schema"
	"github.com/goliatone/go-schemaform/pkg/widgets"
)

const (
	formTemplate   = "form"
	objectTemplate = "fields/object"
	arrayTemplate  = "fields/array"
	rowTemplate    = "fields/row"
	fieldsDir      = "fields/"
)

// Renderer renders forms as server-side HTML through a pongo2 template set.
// Each control has its own partial; object, array and row partials receive
// their children already rendered.
type Renderer struct {
	engine      template.TemplateRenderer
	widgets     *widgets.Registry
	themes      theme.ThemeSelector
	policy      *bluemonday.Policy
	templateDir string
	method      string
	action      string
	submitLabel string
	appendLabel string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the renderer over the embedded templates.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		widgets:     widgets.NewRegistry(),
		policy:      bluemonday.UGCPolicy(),
		method:      "post",
		submitLabel: "Save",
		appendLabel: "Add",
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}

	if r.engine != nil {
		return r, nil
	}
	engineOpts := []template.Option{template.WithFS(TemplatesFS())}
	if r.templateDir != "" {
		engineOpts = append(engineOpts, template.WithBaseDir(r.templateDir))
	}
	engine, err := template.New(engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("html: %w", err)
	}
	r.engine = engine
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "html"
}

// ContentType reports the media type produced by Render.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render produces a complete <form> element.
func (r *Renderer) Render(ctx context.Context, form render.Form, options render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("html: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	th, err := resolveTheme(r.themes, options.ThemeName, options.ThemeVariant)
	if err != nil {
		return nil, err
	}

	values := form.State(options.Values)
	p := &pass{
		r:        r,
		ctx:      ctx,
		options:  options,
		values:   values,
		theme:    th,
		readonly: form.Mode == schema.ModeReadonly,
	}
	fields := r.widgets.Decorate(render.Localize(form.Fields, options))
	body, err := p.fields(fields, values, nil)
	if err != nil {
		return nil, err
	}

	hidden := render.HiddenFor(form, options)
	hiddenData := make([]map[string]any, len(hidden))
	for i, field := range hidden {
		hiddenData[i] = map[string]any{"name": field.Name, "value": field.Value}
	}

	out, err := r.engine.RenderTemplate(formTemplate, map[string]any{
		"name":         form.Name,
		"title":        form.Title,
		"description":  r.policy.Sanitize(form.Description),
		"mode":         string(form.Mode),
		"method":       r.method,
		"action":       r.action,
		"style":        th.style(),
		"stylesheet":   th.Stylesheet,
		"form_errors":  render.MergeFormErrors(options.FormErrors),
		"hidden":       hiddenData,
		"fields":       body,
		"readonly":     p.readonly,
		"submit_label": r.submitLabel,
	})
	if err != nil {
		return nil, fmt.Errorf("html: render form %q: %w", form.Name, err)
	}
	return []byte(out), nil
}

// pass holds the per-render state shared by the recursive walk.
type pass struct {
	r        *Renderer
	ctx      context.Context
	options  render.RenderOptions
	values   map[string]any
	theme    themeContext
	readonly bool
}

// fields renders descriptors against scope, the value map of their parent
// (the whole tree at the top level, a row or nested object below).
func (p *pass) fields(fields []schema.Descriptor, scope map[string]any, index *int) (string, error) {
	var b strings.Builder
	for _, field := range fields {
		if err := p.ctx.Err(); err != nil {
			return "", err
		}
		var value any
		if scope != nil {
			value = scope[field.Key]
		}
		out, err := p.field(field, value, index)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

func (p *pass) field(field schema.Descriptor, value any, index *int) (string, error) {
	if field.Show != nil && !field.Show(value, p.values) {
		return "", nil
	}
	if field.Render != nil {
		if out := field.Render(field, index); out != nil {
			return fmt.Sprint(out), nil
		}
		return "", nil
	}

	switch field.Kind {
	case schema.KindObject:
		nested, _ := value.(map[string]any)
		children, err := p.fields(field.Children, nested, index)
		if err != nil {
			return "", err
		}
		return p.partial(objectTemplate, map[string]any{
			"field":    p.fieldData(field, value),
			"children": children,
		})
	case schema.KindArray:
		return p.array(field, value)
	default:
		return p.partial(p.controlTemplate(field.Control), map[string]any{
			"field": p.fieldData(field, value),
		})
	}
}

// array renders one row per value with resolved keys, plus a hidden template
// row built from a fresh item template. Arrays nested inside a template row
// still carry an unresolved marker in their own path and render no rows.
func (p *pass) array(field schema.Descriptor, value any) (string, error) {
	var rows []string
	if !field.Path.Templated() {
		list, _ := value.([]any)
		for i, item := range list {
			row, _ := item.(map[string]any)
			bound := make([]schema.Descriptor, len(field.Children))
			for j, child := range field.Children {
				bound[j] = child.AtRow(i)
			}
			index := i
			children, err := p.fields(bound, row, &index)
			if err != nil {
				return "", err
			}
			out, err := p.partial(rowTemplate, map[string]any{"index": i, "children": children})
			if err != nil {
				return "", err
			}
			rows = append(rows, out)
		}
	}

	templateChildren, err := p.fields(field.Children, initvalue.ItemTemplate(field), nil)
	if err != nil {
		return "", err
	}
	templateRow, err := p.partial(rowTemplate, map[string]any{"index": "index", "children": templateChildren})
	if err != nil {
		return "", err
	}

	return p.partial(arrayTemplate, map[string]any{
		"field":     p.fieldData(field, value),
		"rows":      rows,
		"template":  templateRow,
		"add_label": p.r.appendLabel,
	})
}

// controlTemplate picks the partial for a control: a theme override first,
// then fields/<control>, falling back to the text input.
func (p *pass) controlTemplate(control string) string {
	if override := p.theme.partial(control); override != "" && p.r.engine.Exists(override) {
		return override
	}
	if control != "" {
		if name := fieldsDir + control; p.r.engine.Exists(name) {
			return name
		}
	}
	return fieldsDir + widgets.ControlInput
}

func (p *pass) partial(name string, data map[string]any) (string, error) {
	out, err := p.r.engine.RenderTemplate(name, data)
	if err != nil {
		return "", fmt.Errorf("html: render %s: %w", name, err)
	}
	return out, nil
}

func (p *pass) fieldData(field schema.Descriptor, value any) map[string]any {
	label := field.Label
	if label == "" {
		label = field.Key
	}
	rows := 4
	if n, ok := toInt(field.ControlProps["rows"]); ok && n > 0 {
		rows = n
	}
	return map[string]any{
		"key":         field.Key,
		"full_key":    field.FullKey,
		"name":        field.FullKey,
		"id":          fieldID(field.FullKey),
		"label":       label,
		"description": p.r.policy.Sanitize(field.Description),
		"required":    field.Required,
		"readonly":    p.readonly,
		"control":     field.Control,
		"errors":      p.options.Errors[field.FullKey],
		"value":       formatValue(value),
		"checked":     value == true,
		"placeholder": stringProp(field.ControlProps, "placeholder"),
		"rows":        rows,
		"attrs":       constraintAttrs(field.ControlProps),
		"options":     selectOptions(field.ControlProps, value),
	}
}

func fieldID(fullKey string) string {
	var b strings.Builder
	b.WriteString("field-")
	dash := false
	for _, r := range fullKey {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// constraintAttrs maps constraint props onto HTML attributes in a fixed order.
func constraintAttrs(props map[string]any) []map[string]string {
	mapping := []struct{ prop, attr string }{
		{"min", "min"},
		{"max", "max"},
		{"step", "step"},
		{"minLength", "minlength"},
		{"maxLength", "maxlength"},
		{"pattern", "pattern"},
	}
	var attrs []map[string]string
	for _, m := range mapping {
		value, ok := props[m.prop]
		if !ok || value == nil {
			continue
		}
		attrs = append(attrs, map[string]string{"name": m.attr, "value": fmt.Sprint(value)})
	}
	return attrs
}

// selectOptions accepts scalars or {value, label} maps.
func selectOptions(props map[string]any, current any) []map[string]any {
	var raw []any
	switch options := props["options"].(type) {
	case []any:
		raw = options
	case []string:
		for _, option := range options {
			raw = append(raw, option)
		}
	}
	selected := ""
	if current != nil {
		selected = fmt.Sprint(current)
	}

	out := make([]map[string]any, 0, len(raw))
	for _, option := range raw {
		value, label := fmt.Sprint(option), ""
		if m, ok := option.(map[string]any); ok {
			value = fmt.Sprint(m["value"])
			label, _ = m["label"].(string)
		}
		if label == "" {
			label = value
		}
		out = append(out, map[string]any{
			"value":    value,
			"label":    label,
			"selected": current != nil && value == selected,
		})
	}
	return out
}

func stringProp(props map[string]any, key string) string {
	value, _ := props[key].(string)
	return value
}

func toInt(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
