package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schemaform/pkg/document"
	"github.com/goliatone/go-schemaform/pkg/orchestrator"
	"github.com/goliatone/go-schemaform/pkg/render"
	"github.com/goliatone/go-schemaform/pkg/schema"
	"github.com/goliatone/go-schemaform/pkg/store"
	"github.com/goliatone/go-schemaform/pkg/testsupport"
	"github.com/goliatone/go-schemaform/pkg/widgets"
)

type stubRenderer struct {
	name    string
	last    render.Form
	options render.RenderOptions
	err     error
}

func (s *stubRenderer) Name() string        { return s.name }
func (s *stubRenderer) ContentType() string { return "text/plain" }

func (s *stubRenderer) Render(_ context.Context, form render.Form, options render.RenderOptions) ([]byte, error) {
	s.last = form
	s.options = options
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.name + ":" + form.Name), nil
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "article.yaml"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	s, err := store.NewFSStore(fstest.MapFS{"article.yaml": {Data: data}})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func stubRegistry(renderers ...*stubRenderer) *render.Registry {
	registry := render.NewRegistry()
	for _, r := range renderers {
		registry.MustRegister(r)
	}
	return registry
}

func TestOrchestrator_GenerateDefaultHTML(t *testing.T) {
	orch := orchestrator.New(orchestrator.WithStore(newStore(t)))

	out, err := orch.Generate(testsupport.Context(), orchestrator.Request{Name: "article", Mode: schema.ModeEdit})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	html := string(out)
	for _, want := range []string{
		`data-form="article"`,
		`schemaform--edit`,
		`Rename article`,
		`name="title" value="Untitled"`,
		`data-row-template`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in output:\n%s", want, html)
		}
	}
}

func TestOrchestrator_Build(t *testing.T) {
	orch := orchestrator.New(
		orchestrator.WithStore(newStore(t)),
		orchestrator.WithWidgetRegistry(widgets.NewRegistry()),
	)

	form, err := orch.Build(testsupport.Context(), orchestrator.Request{Name: "article", Mode: schema.ModeCreate})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if form.Name != "article" || form.Title != "Article" || form.Mode != schema.ModeCreate {
		t.Fatalf("unexpected form header: %+v", form)
	}

	var controls []string
	for _, field := range schema.Flatten(form.Fields) {
		controls = append(controls, field.FullKey+"="+field.Control)
	}
	want := []string{"title=input", "status=select", "tags=", "tags[index].name=input"}
	if diff := cmp.Diff(want, controls); diff != "" {
		t.Fatalf("controls mismatch (-want +got):\n%s", diff)
	}

	wantDefaults := map[string]any{
		"title":  "Untitled",
		"status": "draft",
		"tags":   []any{map[string]any{"name": "news"}},
	}
	if diff := cmp.Diff(wantDefaults, map[string]any(form.Defaults)); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestOrchestrator_RendererSelection(t *testing.T) {
	alpha := &stubRenderer{name: "alpha"}
	beta := &stubRenderer{name: "beta"}
	orch := orchestrator.New(
		orchestrator.WithStore(newStore(t)),
		orchestrator.WithRegistry(stubRegistry(alpha, beta)),
		orchestrator.WithDefaultRenderer("beta"),
	)
	ctx := testsupport.Context()

	out, err := orch.Generate(ctx, orchestrator.Request{Name: "article"})
	if err != nil {
		t.Fatalf("generate default: %v", err)
	}
	if string(out) != "beta:article" {
		t.Fatalf("expected default renderer, got %q", out)
	}

	out, err = orch.Generate(ctx, orchestrator.Request{Name: "article", Renderer: "alpha"})
	if err != nil {
		t.Fatalf("generate explicit: %v", err)
	}
	if string(out) != "alpha:article" {
		t.Fatalf("expected explicit renderer, got %q", out)
	}

	if _, err := orch.Generate(ctx, orchestrator.Request{Name: "article", Renderer: "gamma"}); !errors.Is(err, render.ErrRendererNotFound) {
		t.Fatalf("expected ErrRendererNotFound, got %v", err)
	}

	fallback := orchestrator.New(
		orchestrator.WithStore(newStore(t)),
		orchestrator.WithRegistry(stubRegistry(alpha)),
		orchestrator.WithDefaultRenderer("missing"),
	)
	out, err = fallback.Generate(ctx, orchestrator.Request{Name: "article"})
	if err != nil {
		t.Fatalf("generate fallback: %v", err)
	}
	if string(out) != "alpha:article" {
		t.Fatalf("expected first registered renderer, got %q", out)
	}
}

func TestOrchestrator_PassesRenderOptions(t *testing.T) {
	stub := &stubRenderer{name: "stub"}
	orch := orchestrator.New(orchestrator.WithStore(newStore(t)), orchestrator.WithRegistry(stubRegistry(stub)))

	options := render.RenderOptions{
		Values: map[string]any{"title": "Hello"},
		Errors: map[string][]string{"title": {"too short"}},
	}
	if _, err := orch.Generate(testsupport.Context(), orchestrator.Request{Name: "article", RenderOptions: options}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if diff := cmp.Diff(options.Errors, stub.options.Errors); diff != "" {
		t.Fatalf("errors not forwarded (-want +got):\n%s", diff)
	}
	if stub.options.Values["title"] != "Hello" {
		t.Fatalf("values not forwarded: %+v", stub.options.Values)
	}
}

func TestOrchestrator_Errors(t *testing.T) {
	ctx := testsupport.Context()
	stub := &stubRenderer{name: "stub", err: errors.New("boom")}
	orch := orchestrator.New(orchestrator.WithStore(newStore(t)), orchestrator.WithRegistry(stubRegistry(stub)))

	if _, err := orch.Generate(ctx, orchestrator.Request{}); err == nil {
		t.Fatalf("expected error for empty request")
	}
	if _, err := orch.Generate(ctx, orchestrator.Request{Name: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	out, err := orch.Generate(ctx, orchestrator.Request{Name: "article"})
	if err == nil || out != nil {
		t.Fatalf("expected render failure without output, got %q, %v", out, err)
	}

	failing := orchestrator.New(
		orchestrator.WithStore(newStore(t)),
		orchestrator.WithRegistry(stubRegistry(&stubRenderer{name: "ok"})),
		orchestrator.WithTransformer(orchestrator.TransformerFunc(func(context.Context, *render.Form) error {
			return errors.New("nope")
		})),
	)
	if _, err := failing.Build(ctx, orchestrator.Request{Name: "article"}); err == nil {
		t.Fatalf("expected transformer failure")
	}

	noStore := orchestrator.New()
	if _, err := noStore.Build(ctx, orchestrator.Request{Name: "article"}); err == nil {
		t.Fatalf("expected missing store error")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := orch.Build(cancelled, orchestrator.Request{Name: "article"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOrchestrator_InlineDocumentAndSubset(t *testing.T) {
	doc := testsupport.LoadDocument(t, filepath.Join("testdata", "article.yaml"))
	orch := orchestrator.New()

	form, err := orch.Build(testsupport.Context(), orchestrator.Request{
		Document: &doc,
		Subset:   render.FieldSubset{Keys: []string{"tags.name"}},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var keys []string
	for _, field := range schema.Flatten(form.Fields) {
		keys = append(keys, field.FullKey)
	}
	if diff := cmp.Diff([]string{"tags", "tags[index].name"}, keys); diff != "" {
		t.Fatalf("subset mismatch (-want +got):\n%s", diff)
	}
	if _, ok := form.Defaults["title"]; ok {
		t.Fatalf("defaults should follow the subset: %+v", form.Defaults)
	}
}

const petsAPI = `
openapi: 3.0.3
info: {title: Pets, version: "1"}
paths:
  /pets:
    post:
      operationId: createPet
      summary: Create pet
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                name: {type: string}
                age: {type: integer}
      responses:
        "201": {description: created}
`

func TestOrchestrator_OpenAPIRequest(t *testing.T) {
	stub := &stubRenderer{name: "stub"}
	orch := orchestrator.New(orchestrator.WithRegistry(stubRegistry(stub)))

	if _, err := orch.Generate(testsupport.Context(), orchestrator.Request{OpenAPI: []byte(petsAPI), Operation: "createPet"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	name, ok := schema.Find(stub.last.Fields, "name")
	if !ok || !name.Required {
		t.Fatalf("expected required name field: %+v", stub.last.Fields)
	}
	if _, ok := schema.Find(stub.last.Fields, "age"); !ok {
		t.Fatalf("expected age field")
	}

	if _, err := orch.Build(testsupport.Context(), orchestrator.Request{OpenAPI: []byte(petsAPI), Operation: "missing"}); err == nil {
		t.Fatalf("expected unknown operation error")
	}
}

func TestPresetTransformer(t *testing.T) {
	preset, err := orchestrator.NewPresetTransformerFromFS(os.DirFS("testdata"), "preset.yaml")
	if err != nil {
		t.Fatalf("load preset: %v", err)
	}
	orch := orchestrator.New(
		orchestrator.WithStore(newStore(t)),
		orchestrator.WithTransformer(preset),
	)

	form, err := orch.Build(testsupport.Context(), orchestrator.Request{Name: "article"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if form.Title != "Story" {
		t.Fatalf("title not patched: %q", form.Title)
	}

	got := testsupport.Summarize(form.Fields)
	want := []testsupport.FieldSummary{
		{FullKey: "title", Level: 1, Label: "Headline", Required: true, Props: map[string]any{"placeholder": "Say something"}},
		{FullKey: "status", Level: 1, Label: "Status", Props: map[string]any{"options": []any{"draft", "published"}}},
		{FullKey: "tags", Level: 1, Kind: schema.KindArray, Label: "Tags"},
		{FullKey: "tags[index].name", Level: 2, Label: "Tag", Required: true, ShowWhen: "status == 'published'", HasShow: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("preset mismatch (-want +got):\n%s", diff)
	}

	tag, _ := schema.Find(form.Fields, "tags[0].name")
	if tag.Show(nil, map[string]any{"status": "draft"}) {
		t.Fatalf("patched rule should hide tags for drafts")
	}
	if !tag.Show(nil, map[string]any{"status": "published"}) {
		t.Fatalf("patched rule should show tags once published")
	}
}

func TestPresetTransformer_Errors(t *testing.T) {
	if _, err := orchestrator.NewPresetTransformer(nil); err == nil {
		t.Fatalf("expected empty document error")
	}
	if _, err := orchestrator.NewPresetTransformer([]byte("fields: {title: {colour: red}}")); err == nil {
		t.Fatalf("expected unknown patch key error")
	}

	preset, err := orchestrator.NewPresetTransformer([]byte(`{"fields": {"tags[2].missing": {"label": "x"}}}`))
	if err != nil {
		t.Fatalf("json preset: %v", err)
	}
	orch := orchestrator.New(orchestrator.WithStore(newStore(t)), orchestrator.WithTransformer(preset))
	if _, err := orch.Build(testsupport.Context(), orchestrator.Request{Name: "article"}); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestBindVisibilityKeepsExistingPredicates(t *testing.T) {
	called := false
	s := schema.New(
		schema.Field("a", schema.Scalar(schema.Attributes{})),
		schema.Field("b", schema.Scalar(schema.Attributes{
			ShowWhen: "a",
			Show: func(any, map[string]any) bool {
				called = true
				return true
			},
		})),
		schema.Field("c", schema.Scalar(schema.Attributes{ShowWhen: "a"})),
	)
	doc := document.Document{Name: "inline", Fields: s}
	form, err := orchestrator.New().Build(testsupport.Context(), orchestrator.Request{Document: &doc})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, _ := schema.Find(form.Fields, "b")
	b.Show(nil, nil)
	if !called {
		t.Fatalf("code-declared predicate was replaced")
	}
	c, _ := schema.Find(form.Fields, "c")
	if c.Show == nil || c.Show(nil, map[string]any{"a": false}) {
		t.Fatalf("expected compiled rule hiding c")
	}
}

type formSnapshot struct {
	Mode     string                     `json:"mode"`
	Title    string                     `json:"title"`
	Fields   []testsupport.FieldSummary `json:"fields"`
	Defaults map[string]any             `json:"defaults"`
}

func TestOrchestrator_BuildGolden(t *testing.T) {
	doc := testsupport.LoadDocument(t, filepath.Join("testdata", "article.yaml"))
	orch := orchestrator.New(orchestrator.WithWidgetRegistry(widgets.NewRegistry()))

	var snapshots []formSnapshot
	for _, tc := range []struct {
		name string
		mode schema.Mode
	}{
		{name: "base", mode: schema.ModeNone},
		{name: "edit", mode: schema.ModeEdit},
	} {
		form, err := orch.Build(testsupport.Context(), orchestrator.Request{Document: &doc, Mode: tc.mode})
		if err != nil {
			t.Fatalf("%s: build: %v", tc.name, err)
		}
		snapshots = append(snapshots, formSnapshot{
			Mode:     tc.name,
			Title:    form.Title,
			Fields:   testsupport.Summarize(form.Fields),
			Defaults: form.Defaults,
		})
	}

	testsupport.AssertGoldenJSON(t, filepath.Join("testdata", "article.golden.json"), snapshots)
}
