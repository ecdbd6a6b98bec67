package store

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/goliatone/go-schemaform/pkg/document"
)

// Option configures stores.
type Option func(*config)

type config struct {
	decoder *document.Decoder
}

// WithDecoder overrides the decoder used to parse documents, for example to
// plug a custom visibility evaluator.
func WithDecoder(decoder *document.Decoder) Option {
	return func(cfg *config) {
		if decoder != nil {
			cfg.decoder = decoder
		}
	}
}

func newConfig(options []Option) config {
	cfg := config{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.decoder == nil {
		cfg.decoder = document.NewDecoder()
	}
	return cfg
}

// FSStore serves documents decoded from an fs.FS. Files are read once by
// NewFSStore; Reload picks up changes.
type FSStore struct {
	mu        sync.RWMutex
	fsys      fs.FS
	cfg       config
	documents map[string]document.Document
}

var _ Store = (*FSStore)(nil)

// NewFSStore walks fsys and decodes every .yaml, .yml, .json and .cue file.
// A nil fsys yields an empty store.
func NewFSStore(fsys fs.FS, options ...Option) (*FSStore, error) {
	s := &FSStore{fsys: fsys, cfg: newConfig(options)}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the filesystem. The previous documents stay in place when
// loading fails.
func (s *FSStore) Reload() error {
	documents, err := loadFS(s.fsys, s.cfg.decoder)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.documents = documents
	s.mu.Unlock()
	return nil
}

// Get returns the named document.
func (s *FSStore) Get(ctx context.Context, name string) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[name]
	if !ok {
		return document.Document{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return doc, nil
}

// List returns document names sorted alphabetically.
func (s *FSStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.documents))
	for name := range s.documents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func loadFS(fsys fs.FS, decoder *document.Decoder) (map[string]document.Document, error) {
	documents := make(map[string]document.Document)
	if fsys == nil {
		return documents, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		format, ok := document.FormatFromPath(path)
		if !ok {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("store: read %s: %w", path, err)
		}
		doc, err := decoder.Decode(data, format, document.SourceFromFS(path))
		if err != nil {
			return fmt.Errorf("store: decode %s: %w", path, err)
		}
		if existing, exists := documents[doc.Name]; exists {
			return fmt.Errorf("%w %q (%s and %s)", ErrDuplicateName, doc.Name, existing.Location(), path)
		}
		documents[doc.Name] = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}
