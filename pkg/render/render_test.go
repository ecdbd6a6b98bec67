package render_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-schemaform/pkg/render"
	"github.com/goliatone/go-schemaform/pkg/schema"
)

func articleForm(mode schema.Mode) render.Form {
	s := schema.New(
		schema.Field("name", schema.Scalar(schema.Attributes{Label: "Name", InitValue: "anon"})),
		schema.Field("owner", schema.Object(schema.Attributes{Label: "Owner"},
			schema.Field("email", schema.Scalar(schema.Attributes{Label: "Email"})),
			schema.Field("phone", schema.Scalar(schema.Attributes{Label: "Phone"})),
		)),
		schema.Field("tags", schema.Array(schema.Attributes{Label: "Tags"},
			schema.Field("name", schema.Scalar(schema.Attributes{Label: "Tag", InitValue: "x"})),
		)),
		schema.Field("notes", schema.Scalar(schema.Attributes{
			Label: "Notes",
			Show: func(_ any, values map[string]any) bool {
				return values["name"] != "anon"
			},
		})),
	)
	return render.NewForm("article", s, mode)
}

func TestMapErrorPayload(t *testing.T) {
	form := articleForm(schema.ModeNone)

	payload := map[string][]string{
		"/body/name":                 {"Name is required"},
		"body.owner.email":           {"Email invalid"},
		"$.body.tags[0]":             {"Tags must be unique"},
		"/data/tags/1/name":          {"Tag too long", " Tag too long "},
		"request.payload.owner":      {"Owner missing"},
		"non_field_errors":           {"Form level error"},
		"body/owner/phone/~1number":  {"Phone malformed"},
		"request/body/unknown-field": {"Should fall back to form errors"},
		"":                           {"Unscoped form error"},
		"owner.email.":               {"   "},
	}

	mapped := render.MapErrorPayload(form.Fields, payload)

	wantFields := map[string][]string{
		"name":         {"Name is required"},
		"owner.email":  {"Email invalid"},
		"tags":         {"Tags must be unique"},
		"tags[1].name": {"Tag too long"},
		"owner":        {"Owner missing"},
		"owner.phone":  {"Phone malformed"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Form level error", "Should fall back to form errors", "Unscoped form error"}
	if diff := cmp.Diff(wantForm, mapped.Form, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMapErrorPayload_Empty(t *testing.T) {
	mapped := render.MapErrorPayload(articleForm(schema.ModeNone).Fields, nil)
	if mapped.Fields != nil || mapped.Form != nil {
		t.Fatalf("expected empty mapping, got %+v", mapped)
	}
}

func TestMergeFormErrors(t *testing.T) {
	merged := render.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	if diff := cmp.Diff([]string{"First", "Second", "third"}, merged); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestFormState(t *testing.T) {
	form := articleForm(schema.ModeNone)

	state := form.State(map[string]any{
		"owner": map[string]any{"email": "a@example.com"},
		"tags":  []any{map[string]any{"name": "go"}, map[string]any{"name": "ui"}},
	})
	want := map[string]any{
		"name":  "anon",
		"owner": map[string]any{"email": "a@example.com", "phone": nil},
		"tags":  []any{map[string]any{"name": "go"}, map[string]any{"name": "ui"}},
		"notes": nil,
	}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	state["owner"].(map[string]any)["phone"] = "555"
	if form.Defaults["owner"].(map[string]any)["phone"] != nil {
		t.Fatalf("state aliases the form defaults")
	}
}

func TestValues(t *testing.T) {
	values := map[string]any{}
	if err := render.SetValue(values, "tags[1].name", "ui"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := render.RowCount(values, "tags"); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}
	if got, ok := render.GetValue(values, "tags[1].name"); !ok || got != "ui" {
		t.Fatalf("unexpected value %v (%v)", got, ok)
	}
	if _, ok := render.GetValue(values, "tags[index].name"); ok {
		t.Fatalf("templated keys must not resolve")
	}
	if err := render.SetValue(values, "tags[index].name", "x"); err == nil {
		t.Fatalf("expected error writing a templated key")
	}
	if got := render.RowCount(values, "missing"); got != 0 {
		t.Fatalf("expected zero rows for a missing array, got %d", got)
	}
}

func TestValues_NumericAndIndexPropertyNames(t *testing.T) {
	s := schema.New(schema.Field("meta", schema.Object(schema.Attributes{},
		schema.Field("2", schema.Scalar(schema.Attributes{})),
		schema.Field("index", schema.Scalar(schema.Attributes{
			Show: func(value any, _ map[string]any) bool { return value == "on" },
		})),
	)))
	if err := schema.Validate(s); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	values := map[string]any{}
	if err := render.SetValue(values, "meta.2", "two"); err != nil {
		t.Fatalf("set meta.2: %v", err)
	}
	if err := render.SetValue(values, "meta.index", "on"); err != nil {
		t.Fatalf("set meta.index: %v", err)
	}
	want := map[string]any{"meta": map[string]any{"2": "two", "index": "on"}}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("value tree mismatch (-want +got):\n%s", diff)
	}
	if got, ok := render.GetValue(values, "meta.2"); !ok || got != "two" {
		t.Fatalf("unexpected value %v (%v)", got, ok)
	}

	field, ok := schema.Find(schema.Transform(s, schema.ModeNone), "meta.index")
	if !ok {
		t.Fatalf("meta.index descriptor missing")
	}
	if !render.Visible(field, values) {
		t.Fatalf("show should receive the field's own value")
	}
}

func TestVisible(t *testing.T) {
	form := articleForm(schema.ModeNone)
	notes, ok := schema.Find(form.Fields, "notes")
	if !ok {
		t.Fatalf("notes descriptor missing")
	}
	if render.Visible(notes, form.State(nil)) {
		t.Fatalf("notes should be hidden for the default name")
	}
	if !render.Visible(notes, form.State(map[string]any{"name": "Ada"})) {
		t.Fatalf("notes should be shown once the name changes")
	}
	name, _ := schema.Find(form.Fields, "name")
	if !render.Visible(name, nil) {
		t.Fatalf("fields without a predicate are always visible")
	}
}

func TestApplySubset(t *testing.T) {
	form := articleForm(schema.ModeNone)

	got := render.ApplySubset(form.Fields, render.FieldSubset{Keys: []string{"owner.email", "tags[index].name"}})
	var keys []string
	for _, field := range schema.Flatten(got) {
		keys = append(keys, field.FullKey)
	}
	want := []string{"owner", "owner.email", "tags", "tags[index].name"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("subset mismatch (-want +got):\n%s", diff)
	}

	whole := render.ApplySubset(form.Fields, render.FieldSubset{Keys: []string{"owner"}})
	if len(whole) != 1 || len(whole[0].Children) != 2 {
		t.Fatalf("selecting a container should keep its children: %+v", whole)
	}
	if len(form.Fields[1].Children) != 2 {
		t.Fatalf("subset mutated the input descriptors")
	}

	if all := render.ApplySubset(form.Fields, render.FieldSubset{}); len(all) != len(form.Fields) {
		t.Fatalf("empty subset should keep every field")
	}
}

func TestHiddenFor(t *testing.T) {
	form := articleForm(schema.ModeEdit)
	got := render.HiddenFor(form, render.RenderOptions{Hidden: []render.HiddenField{
		render.CSRFToken("_csrf", "tok"),
		render.VersionField("version", 3),
		render.Hidden(" ", "ignored"),
	}})
	want := []render.HiddenField{
		{Name: "_csrf", Value: "tok"},
		{Name: "_mode", Value: "edit"},
		{Name: "version", Value: "3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
	}

	if _, ok := render.ModeField(schema.ModeNone); ok {
		t.Fatalf("mode none should not emit a marker")
	}
}

func TestLocalize(t *testing.T) {
	s := schema.New(
		schema.Field("title", schema.Scalar(schema.Attributes{
			Label: "Title",
			ControlProps: map[string]any{
				"labelKey":       "fields.title",
				"placeholderKey": "fields.title.placeholder",
			},
		})),
		schema.Field("author", schema.Object(schema.Attributes{Label: "Author"},
			schema.Field("name", schema.Scalar(schema.Attributes{
				Description:  "Who wrote it",
				ControlProps: map[string]any{"descriptionKey": "fields.author.missing"},
			})),
		)),
	)
	fields := schema.Transform(s, schema.ModeNone)

	catalog := map[string]string{
		"fields.title":             "Titre",
		"fields.title.placeholder": "Votre titre",
	}
	translator := render.TranslatorFunc(func(locale, key string, _ ...any) (string, error) {
		if locale != "fr" {
			return "", errors.New("unsupported locale")
		}
		if msg, ok := catalog[key]; ok {
			return msg, nil
		}
		return "", errors.New("missing")
	})

	got := render.Localize(fields, render.RenderOptions{Locale: "fr", Translator: translator})
	if got[0].Label != "Titre" {
		t.Fatalf("label not translated: %q", got[0].Label)
	}
	if got[0].ControlProps["placeholder"] != "Votre titre" {
		t.Fatalf("placeholder not translated: %v", got[0].ControlProps["placeholder"])
	}
	if got[1].Children[0].Description != "Who wrote it" {
		t.Fatalf("missing key should keep the fallback: %q", got[1].Children[0].Description)
	}
	if _, ok := fields[0].ControlProps["placeholder"]; ok {
		t.Fatalf("localize mutated the input descriptors")
	}

	var missing []string
	got = render.Localize(fields, render.RenderOptions{
		Locale: "fr",
		OnMissing: func(_ string, key string, _ []any, err error) string {
			if !errors.Is(err, render.ErrMissingTranslator) {
				t.Fatalf("expected ErrMissingTranslator, got %v", err)
			}
			missing = append(missing, key)
			return strings.ToUpper(key)
		},
	})
	if got[0].Label != "FIELDS.TITLE" {
		t.Fatalf("handler result not used: %q", got[0].Label)
	}
	if len(missing) != 3 {
		t.Fatalf("expected 3 missing keys, got %v", missing)
	}
}

type stubRenderer struct{ name string }

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return "text/plain" }
func (s stubRenderer) Render(_ context.Context, _ render.Form, _ render.RenderOptions) ([]byte, error) {
	return []byte(s.name), nil
}

func TestRegistry(t *testing.T) {
	reg := render.NewRegistry(stubRenderer{name: "tui"}, stubRenderer{name: "html"})

	if diff := cmp.Diff([]string{"html", "tui"}, reg.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if !reg.Has("tui") {
		t.Fatalf("expected tui to be registered")
	}
	if _, err := reg.Get("pdf"); !errors.Is(err, render.ErrRendererNotFound) {
		t.Fatalf("expected ErrRendererNotFound, got %v", err)
	}
	if err := reg.Register(stubRenderer{name: "html"}); !errors.Is(err, render.ErrDuplicateRenderer) {
		t.Fatalf("expected ErrDuplicateRenderer, got %v", err)
	}
	if err := reg.Register(stubRenderer{name: " "}); err == nil {
		t.Fatalf("expected error for blank name")
	}
}
