package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-schemaform/pkg/document"
)

var (
	// ErrNotFound is returned when no document has the requested name.
	ErrNotFound = errors.New("store: document not found")
	// ErrDuplicateName is returned when two documents share a name.
	ErrDuplicateName = errors.New("store: duplicate document name")
)

// Store resolves documents by name.
type Store interface {
	Get(ctx context.Context, name string) (document.Document, error)
	List(ctx context.Context) ([]string, error)
}
