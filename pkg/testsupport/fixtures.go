// Package testsupport holds fixture and golden helpers shared by package
// tests.
package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schemaform/pkg/document"
	"github.com/goliatone/go-schemaform/pkg/schema"
)

// LoadDocument decodes a YAML, JSON or CUE fixture with a file source,
// failing the test on error.
func LoadDocument(t *testing.T, path string) document.Document {
	t.Helper()

	doc, err := LoadDocumentFromPath(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	return doc
}

// LoadDocumentFromPath returns a Document without requiring testing.T, allowing
// callers to wire fixtures in setup functions.
func LoadDocumentFromPath(path string) (document.Document, error) {
	if path == "" {
		return document.Document{}, errors.New("testsupport: document path is required")
	}
	format, ok := document.FormatFromPath(path)
	if !ok {
		return document.Document{}, fmt.Errorf("testsupport: unsupported document %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, fmt.Errorf("testsupport: read document: %w", err)
	}
	doc, err := document.NewDecoder().Decode(data, format, document.SourceFromFile(path))
	if err != nil {
		return document.Document{}, fmt.Errorf("testsupport: decode document: %w", err)
	}
	return doc, nil
}

// FieldSummary is the JSON-friendly projection of a descriptor used in
// goldens. Predicates are reduced to whether one is bound.
type FieldSummary struct {
	FullKey  string         `json:"fullKey"`
	Level    int            `json:"level"`
	Kind     schema.Kind    `json:"type,omitempty"`
	Label    string         `json:"label,omitempty"`
	Control  string         `json:"control,omitempty"`
	Required bool           `json:"required,omitempty"`
	ShowWhen string         `json:"showWhen,omitempty"`
	HasShow  bool           `json:"hasShow,omitempty"`
	Props    map[string]any `json:"controlProps,omitempty"`
}

// Summarize flattens descriptors into summaries, parents first.
func Summarize(fields []schema.Descriptor) []FieldSummary {
	flat := schema.Flatten(fields)
	out := make([]FieldSummary, len(flat))
	for i, field := range flat {
		out[i] = FieldSummary{
			FullKey:  field.FullKey,
			Level:    field.Level,
			Kind:     field.Kind,
			Label:    field.Label,
			Control:  field.Control,
			Required: field.Required,
			ShowWhen: field.ShowWhen,
			HasShow:  field.Show != nil,
			Props:    field.ControlProps,
		}
	}
	return out
}

// WriteGolden writes value to a golden file as indented JSON when
// UPDATE_GOLDENS is set. Returns true if the golden was written.
func WriteGolden(t *testing.T, path string, value any) bool {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	return WriteMaybeGolden(t, path, append(payload, '\n'))
}

// AssertGoldenJSON compares value with the JSON golden at path. Both sides
// are decoded into plain maps and slices first, so key order and numeric
// types do not matter. Set UPDATE_GOLDENS to rewrite the file instead.
func AssertGoldenJSON(t *testing.T, path string, value any) {
	t.Helper()

	if WriteGolden(t, path, value) {
		return
	}
	var want any
	if err := json.Unmarshal(MustReadGolden(t, path), &want); err != nil {
		t.Fatalf("decode golden %s: %v", path, err)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal value: %v", err)
	}
	var got any
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("golden %s mismatch (-want +got):\n%s", path, diff)
	}
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
