package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schemaform/pkg/document"
	"github.com/goliatone/go-schemaform/pkg/store"
)

func openSQLite(t *testing.T) *store.SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "forms.db")
	s, err := store.OpenSQLite(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	if err := s.Put(ctx, "contact", document.FormatYAML, []byte(contactYAML)); err != nil {
		t.Fatalf("put: %v", err)
	}
	doc, err := s.Get(ctx, "contact")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Name != "contact" || doc.Title != "Contact" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Source.Kind() != document.SourceKindSQL {
		t.Fatalf("unexpected source kind %q", doc.Source.Kind())
	}
	if diff := cmp.Diff([]string{"email", "message"}, fullKeys(doc)); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	if string(doc.Raw()) != contactYAML {
		t.Fatalf("raw body not preserved")
	}
}

func TestSQLStore_PutReplacesAndRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	if err := s.Put(ctx, "contact", document.FormatYAML, []byte(contactYAML)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "contact", document.FormatJSON, []byte(contactJSON)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	doc, err := s.Get(ctx, "contact")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Format != document.FormatJSON {
		t.Fatalf("expected replaced JSON body, got %s", doc.Format)
	}

	if err := s.Put(ctx, "broken", document.FormatYAML, []byte("fields: [1]")); err == nil {
		t.Fatalf("expected invalid document to be rejected")
	}
	if err := s.Put(ctx, " ", document.FormatYAML, []byte(contactYAML)); err == nil {
		t.Fatalf("expected blank name to be rejected")
	}
	if _, err := s.Get(ctx, "broken"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("rejected document was stored: %v", err)
	}
}

func TestSQLStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.Put(ctx, name, document.FormatJSON, []byte(feedbackJSON)); err != nil {
			t.Fatalf("put %s: %v", name, err)
		}
	}
	names, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "mid", "zeta"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	if err := s.Delete(ctx, "mid"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "mid"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	// Row names win over names declared in the body.
	doc, err := s.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Name != "alpha" {
		t.Fatalf("unexpected name %q", doc.Name)
	}
}

func TestSQLStore_ImportEmbedded(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	src, err := store.NewFSStore(store.EmbeddedFS())
	if err != nil {
		t.Fatalf("embedded store: %v", err)
	}
	if err := s.Import(ctx, src); err != nil {
		t.Fatalf("import: %v", err)
	}
	names, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"article", "signup"}, names); diff != "" {
		t.Fatalf("imported names mismatch (-want +got):\n%s", diff)
	}
	doc, err := s.Get(ctx, "signup")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Format != document.FormatCUE {
		t.Fatalf("expected cue format, got %s", doc.Format)
	}
}
