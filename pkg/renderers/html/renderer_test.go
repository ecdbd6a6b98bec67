package html

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-schemaform/pkg/render"
	"github.com/goliatone/go-schemaform/pkg/schema"
)

func articleSchema() schema.Schema {
	return schema.New(
		schema.Field("title", schema.Scalar(schema.Attributes{
			Label:        "Title",
			Required:     true,
			InitValue:    "Untitled",
			Description:  `Shown <b>everywhere</b><script>alert(1)</script>`,
			ControlProps: map[string]any{"maxLength": 120},
		})),
		schema.Field("status", schema.Scalar(schema.Attributes{
			Label:        "Status",
			Control:      "select",
			InitValue:    "draft",
			ControlProps: map[string]any{"options": []any{"draft", map[string]any{"value": "published", "label": "Published"}}},
		})),
		schema.Field("featured", schema.Scalar(schema.Attributes{Label: "Featured", InitValue: false})),
		schema.Field("headline", schema.Scalar(schema.Attributes{
			Label: "Headline",
			Show:  func(_ any, values map[string]any) bool { return values["featured"] == true },
		})),
		schema.Field("author", schema.Object(schema.Attributes{Label: "Author"},
			schema.Field("email", schema.Scalar(schema.Attributes{Label: "Email"})),
		)),
		schema.Field("tags", schema.Array(schema.Attributes{Label: "Tags"},
			schema.Field("name", schema.Scalar(schema.Attributes{Label: "Tag", InitValue: "x"})),
		)),
	)
}

func newRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(opts...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func renderString(t *testing.T, r *Renderer, form render.Form, opts render.RenderOptions) string {
	t.Helper()
	out, err := r.Render(context.Background(), form, opts)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func assertContains(t *testing.T, html string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(html, fragment) {
			t.Fatalf("expected %q in output:\n%s", fragment, html)
		}
	}
}

func assertNotContains(t *testing.T, html string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if strings.Contains(html, fragment) {
			t.Fatalf("unexpected %q in output:\n%s", fragment, html)
		}
	}
}

func TestRender_Controls(t *testing.T) {
	r := newRenderer(t, WithAction("POST", "/articles"))
	form := render.NewForm("article", articleSchema(), schema.ModeCreate)

	html := renderString(t, r, form, render.RenderOptions{
		Values: map[string]any{"status": "published"},
		Hidden: []render.HiddenField{render.CSRFToken("_csrf", "tok")},
	})

	assertContains(t, html,
		`<form class="schemaform schemaform--create" method="post" action="/articles" data-form="article"`,
		`<input type="hidden" name="_csrf" value="tok">`,
		`<input type="hidden" name="_mode" value="create">`,
		`<input type="text" id="field-title" name="title" value="Untitled" maxlength="120" required>`,
		`<option value="published" selected>Published</option>`,
		`<option value="draft">draft</option>`,
		`<input type="checkbox" id="field-featured" name="featured" value="true">`,
		`<legend>Author</legend>`,
		`name="author.email"`,
		`<button type="submit" class="schemaform-submit">Save</button>`,
	)
	assertNotContains(t, html, "<script>", `name="headline"`)
	assertContains(t, html, "Shown <b>everywhere</b>")
}

func TestRender_EveryScalarControl(t *testing.T) {
	s := schema.New(
		schema.Field("title", schema.Scalar(schema.Attributes{Label: "Title"})),
		schema.Field("body", schema.Scalar(schema.Attributes{Label: "Body", Control: "textarea"})),
		schema.Field("views", schema.Scalar(schema.Attributes{Label: "Views", Control: "number"})),
		schema.Field("secret", schema.Scalar(schema.Attributes{Label: "Secret", Control: "password"})),
		schema.Field("draft", schema.Scalar(schema.Attributes{Label: "Draft", Control: "checkbox"})),
		schema.Field("status", schema.Scalar(schema.Attributes{
			Label:        "Status",
			Control:      "select",
			ControlProps: map[string]any{"options": []any{"draft"}},
		})),
	)
	form := render.NewForm("f", s, schema.ModeNone)

	for name, r := range map[string]*Renderer{
		"embedded":     newRenderer(t),
		"template dir": newRenderer(t, WithTemplateDir(t.TempDir())),
	} {
		html := renderString(t, r, form, render.RenderOptions{})
		assertContains(t, html,
			`<label for="field-title">Title</label>`,
			`<input type="text" id="field-title" name="title" value="">`,
			`<textarea id="field-body" name="body" rows="4">`,
			`<input type="number" id="field-views" name="views" value="">`,
			`<input type="password" id="field-secret" name="secret"`,
			`<input type="checkbox" id="field-draft" name="draft" value="true">`,
			`<select id="field-status" name="status">`,
		)
		if strings.Count(html, `class="schemaform-field`) != 6 {
			t.Fatalf("%s: expected six field wrappers:\n%s", name, html)
		}
	}
}

type stubEngine struct {
	calls []string
}

func (s *stubEngine) Render(name string, data any, out ...io.Writer) (string, error) {
	return s.RenderTemplate(name, data, out...)
}

func (s *stubEngine) RenderTemplate(name string, data any, _ ...io.Writer) (string, error) {
	s.calls = append(s.calls, name)
	values, _ := data.(map[string]any)
	if name == formTemplate {
		return fmt.Sprintf("<form>%v</form>", values["fields"]), nil
	}
	field, _ := values["field"].(map[string]any)
	return fmt.Sprintf("[%s %v]", name, field["full_key"]), nil
}

func (s *stubEngine) RenderString(content string, _ any, _ ...io.Writer) (string, error) {
	return content, nil
}

func (s *stubEngine) RegisterFilter(string, func(any, any) (any, error)) error { return nil }

func (s *stubEngine) GlobalContext(any) error { return nil }

func (s *stubEngine) Exists(name string) bool {
	return name == "fields/input"
}

func TestRender_CustomTemplateRenderer(t *testing.T) {
	engine := &stubEngine{}
	r := newRenderer(t, WithTemplateRenderer(engine))
	s := schema.New(
		schema.Field("title", schema.Scalar(schema.Attributes{})),
		schema.Field("rating", schema.Scalar(schema.Attributes{Control: "stars"})),
	)

	html := renderString(t, r, render.NewForm("f", s, schema.ModeNone), render.RenderOptions{})
	if html != "<form>[fields/input title][fields/input rating]</form>" {
		t.Fatalf("unexpected output %q", html)
	}
	want := []string{"fields/input", "fields/input", "form"}
	if strings.Join(engine.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected template calls %v", engine.calls)
	}
}

func TestRender_ArrayRowsAndTemplate(t *testing.T) {
	r := newRenderer(t)
	form := render.NewForm("article", articleSchema(), schema.ModeEdit)

	html := renderString(t, r, form, render.RenderOptions{
		Values: map[string]any{"tags": []any{
			map[string]any{"name": "go"},
			map[string]any{"name": "ui"},
		}},
		Errors: map[string][]string{"tags[1].name": {"Too short"}},
	})

	assertContains(t, html,
		`data-rows="2"`,
		`<div class="schemaform-row" data-row="0">`,
		`name="tags[0].name" value="go"`,
		`name="tags[1].name" value="ui"`,
		`<p class="schemaform-error">Too short</p>`,
		`<template data-row-template="tags"><div class="schemaform-row" data-row="index">`,
		`name="tags[index].name" value="x"`,
		`data-append="tags"`,
	)
}

func TestRender_NestedArrayTemplateHasNoRows(t *testing.T) {
	s := schema.New(schema.Field("orders", schema.Array(schema.Attributes{},
		schema.Field("lines", schema.Array(schema.Attributes{},
			schema.Field("sku", schema.Scalar(schema.Attributes{InitValue: "A-1"})),
		)),
	)))
	r := newRenderer(t)
	html := renderString(t, r, render.NewForm("orders", s, schema.ModeNone), render.RenderOptions{
		Values: map[string]any{"orders": []any{map[string]any{"lines": []any{map[string]any{"sku": "B-2"}}}}},
	})

	assertContains(t, html,
		`name="orders[0].lines[0].sku" value="B-2"`,
		`name="orders[0].lines[index].sku" value="A-1"`,
		`name="orders[index].lines[index].sku" value="A-1"`,
	)
	assertNotContains(t, html, `name="orders[index].lines[0].sku"`, `name="orders[0].lines[1]`)
}

func TestRender_ShowAndCustomRender(t *testing.T) {
	s := schema.New(
		schema.Field("featured", schema.Scalar(schema.Attributes{Control: "checkbox"})),
		schema.Field("headline", schema.Scalar(schema.Attributes{
			Show: func(_ any, values map[string]any) bool { return values["featured"] == true },
		})),
		schema.Field("banner", schema.Scalar(schema.Attributes{
			Render: func(field schema.Descriptor, _ *int) any { return `<aside>` + field.FullKey + `</aside>` },
		})),
	)
	r := newRenderer(t)
	html := renderString(t, r, render.NewForm("x", s, schema.ModeNone), render.RenderOptions{
		Values: map[string]any{"featured": true},
	})
	assertContains(t, html, `name="headline"`, `<aside>banner</aside>`, `value="true" checked`)
}

func TestRender_ReadonlyMode(t *testing.T) {
	r := newRenderer(t)
	html := renderString(t, r, render.NewForm("article", articleSchema(), schema.ModeReadonly), render.RenderOptions{})
	assertContains(t, html, `readonly>`, `disabled>`)
	assertNotContains(t, html, `type="submit"`, `data-append=`)
}

func TestRender_Theme(t *testing.T) {
	manifest := &theme.Manifest{
		Name:    "acme",
		Version: "1.0.0",
		Tokens:  map[string]string{"brand": "#123456", "radius": "4px"},
		Assets: theme.Assets{
			Prefix: "/assets/acme",
			Files:  map[string]string{StylesheetAsset: "form.css"},
		},
		Variants: map[string]theme.Variant{
			"dark": {Tokens: map[string]string{"brand": "#654321"}},
		},
	}
	r := newRenderer(t, WithThemeSelector(NewThemes("acme", "", manifest)))
	form := render.NewForm("x", schema.New(schema.Field("a", schema.Scalar(schema.Attributes{}))), schema.ModeNone)

	html := renderString(t, r, form, render.RenderOptions{ThemeVariant: "dark", ThemeName: "acme"})
	assertContains(t, html,
		`style="--brand: #654321; --radius: 4px;"`,
		`<link rel="stylesheet" href="/assets/acme/form.css">`,
	)

	html = renderString(t, r, form, render.RenderOptions{})
	assertContains(t, html, `style="--brand: #123456; --radius: 4px;"`)

	if _, err := r.Render(context.Background(), form, render.RenderOptions{ThemeName: "missing"}); err == nil {
		t.Fatalf("expected unknown theme error")
	}
}

type stubSelector struct {
	selection *theme.Selection
	err       error
	calls     [][2]string
}

func (s *stubSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, [2]string{name, variant})
	return s.selection, s.err
}

func TestRender_ThemePartialOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "acme"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	partial := `<input class="acme" name="{{ field.name }}">`
	if err := os.WriteFile(filepath.Join(dir, "acme", "input.tpl"), []byte(partial), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	selector := &stubSelector{selection: &theme.Selection{
		Theme: "acme",
		Manifest: &theme.Manifest{
			Name:      "acme",
			Templates: map[string]string{"forms.input": "acme/input.tpl"},
		},
	}}
	r := newRenderer(t, WithTemplateDir(dir), WithThemeSelector(selector))
	form := render.NewForm("x", schema.New(schema.Field("a", schema.Scalar(schema.Attributes{}))), schema.ModeNone)

	html := renderString(t, r, form, render.RenderOptions{ThemeName: "acme", ThemeVariant: "light"})
	assertContains(t, html, `<input class="acme" name="a">`)
	if len(selector.calls) != 1 || selector.calls[0] != [2]string{"acme", "light"} {
		t.Fatalf("unexpected selector calls %v", selector.calls)
	}

	selector.err = errors.New("boom")
	if _, err := r.Render(context.Background(), form, render.RenderOptions{}); err == nil {
		t.Fatalf("expected selector error")
	}
}

func TestRender_Localize(t *testing.T) {
	s := schema.New(schema.Field("title", schema.Scalar(schema.Attributes{
		Label:        "Title",
		ControlProps: map[string]any{"labelKey": "fields.title"},
	})))
	translator := render.TranslatorFunc(func(_, key string, _ ...any) (string, error) {
		return "Titre", nil
	})
	r := newRenderer(t)
	html := renderString(t, r, render.NewForm("x", s, schema.ModeNone), render.RenderOptions{Locale: "fr", Translator: translator})
	assertContains(t, html, `<label for="field-title">Titre</label>`)
}

func TestFieldID(t *testing.T) {
	cases := map[string]string{
		"title":            "field-title",
		"tags[0].name":     "field-tags-0-name",
		"tags[index].name": "field-tags-index-name",
	}
	for in, want := range cases {
		if got := fieldID(in); got != want {
			t.Fatalf("fieldID(%q) = %q, want %q", in, got, want)
		}
	}
}
