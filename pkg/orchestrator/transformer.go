package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-schemaform/pkg/keypath"
	"github.com/goliatone/go-schemaform/pkg/render"
	"github.com/goliatone/go-schemaform/pkg/schema"
)

// Transformer rewrites a built form before visibility rules are bound and the
// subset is applied. Implementations can relabel fields, inject control
// props, or perform arbitrary rewrites.
type Transformer interface {
	Transform(ctx context.Context, form *render.Form) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, form *render.Form) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, form *render.Form) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, form)
}

// PresetTransformer applies declarative patches keyed by full key. Documents
// are YAML or JSON:
//
//	title: Custom title
//	fields:
//	  title:
//	    label: Headline
//	    controlProps: {placeholder: "Say something"}
//	  tags[index].name:
//	    required: true
//
// Keys may be templated (tags[index].name) or carry a concrete row index
// (tags[0].name); both patch the templated descriptor.
type PresetTransformer struct {
	document presetDocument
	keys     []string
}

type presetDocument struct {
	Title       *string                `yaml:"title"`
	Description *string                `yaml:"description"`
	Fields      map[string]presetPatch `yaml:"fields"`
}

type presetPatch struct {
	Label        *string        `yaml:"label"`
	Description  *string        `yaml:"description"`
	Placeholder  *string        `yaml:"placeholder"`
	Control      *string        `yaml:"control"`
	Required     *bool          `yaml:"required"`
	ShowWhen     *string        `yaml:"showWhen"`
	InitValue    any            `yaml:"initValue"`
	ControlProps map[string]any `yaml:"controlProps"`
}

// NewPresetTransformer constructs a transformer from YAML or JSON bytes.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var doc presetDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}

	keys := make([]string, 0, len(doc.Fields))
	for key := range doc.Fields {
		if _, err := keypath.Parse(key); err != nil {
			return nil, fmt.Errorf("preset transformer: field %q: %w", key, err)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return &PresetTransformer{document: doc, keys: keys}, nil
}

// NewPresetTransformerFromFS loads a preset document from the provided
// filesystem path.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the patches onto form. A key naming no descriptor is an
// error so stale presets surface early.
func (t *PresetTransformer) Transform(ctx context.Context, form *render.Form) error {
	if form == nil {
		return errors.New("preset transformer: form is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.document.Title != nil {
		form.Title = *t.document.Title
	}
	if t.document.Description != nil {
		form.Description = *t.document.Description
	}

	for _, key := range t.keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		field := locate(form.Fields, key)
		if field == nil {
			return fmt.Errorf("preset transformer: field %q not found", key)
		}
		applyPatch(field, t.document.Fields[key])
	}
	return nil
}

func applyPatch(field *schema.Descriptor, patch presetPatch) {
	if patch.Label != nil {
		field.Label = *patch.Label
	}
	if patch.Description != nil {
		field.Description = *patch.Description
	}
	if patch.Control != nil {
		field.Control = *patch.Control
	}
	if patch.Required != nil {
		field.Required = *patch.Required
	}
	if patch.ShowWhen != nil {
		field.ShowWhen = *patch.ShowWhen
		field.Show = nil
	}
	if patch.InitValue != nil {
		field.InitValue = patch.InitValue
	}
	if len(patch.ControlProps) > 0 || patch.Placeholder != nil {
		props := make(map[string]any, len(field.ControlProps)+len(patch.ControlProps)+1)
		for key, value := range field.ControlProps {
			props[key] = value
		}
		for key, value := range patch.ControlProps {
			props[key] = value
		}
		if patch.Placeholder != nil {
			props["placeholder"] = *patch.Placeholder
		}
		field.ControlProps = props
	}
}

// locate returns a pointer into fields for the descriptor named by fullKey,
// matching resolved row indexes against templated descriptors.
func locate(fields []schema.Descriptor, fullKey string) *schema.Descriptor {
	target, err := keypath.Parse(fullKey)
	if err != nil {
		return nil
	}
	for i, seg := range target {
		if seg.Item {
			target[i].Index = keypath.Unresolved
		}
	}
	return walkDescriptors(fields, target)
}

func walkDescriptors(fields []schema.Descriptor, target keypath.Path) *schema.Descriptor {
	for idx := range fields {
		field := &fields[idx]
		if field.Path.Equal(target) {
			return field
		}
		// An array descriptor's own path carries no item marker.
		if field.IsArray() && len(target) > 0 && target[len(target)-1].Item && field.Path.Item().Equal(target) {
			return field
		}
		if len(field.Children) > 0 {
			if found := walkDescriptors(field.Children, target); found != nil {
				return found
			}
		}
	}
	return nil
}
