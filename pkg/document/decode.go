package document

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-schemaform/pkg/keypath"
	"github.com/goliatone/go-schemaform/pkg/schema"
	"github.com/goliatone/go-schemaform/pkg/visibility"
	"github.com/goliatone/go-schemaform/pkg/visibility/expr"
)

// ErrUnknownKey reports an attribute the decoder does not recognise.
var ErrUnknownKey = errors.New("document: unknown key")

// Option customises a Decoder.
type Option func(*Decoder)

// WithEvaluator swaps the evaluator used to compile showWhen rules. Passing
// nil keeps the rules as plain strings without a compiled predicate.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(d *Decoder) {
		d.evaluator = eval
	}
}

// Decoder turns YAML, JSON, or CUE bytes into a Document.
type Decoder struct {
	evaluator visibility.Evaluator
}

// NewDecoder constructs a Decoder that compiles showWhen rules with the
// expression evaluator unless overridden.
func NewDecoder(options ...Option) *Decoder {
	d := &Decoder{evaluator: expr.New()}
	for _, opt := range options {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode parses data with a default Decoder.
func Decode(data []byte, format Format) (Document, error) {
	return NewDecoder().Decode(data, format, Inline())
}

// Decode parses data in the given format. src is recorded on the result and
// used to derive a name when the document does not declare one.
func (d *Decoder) Decode(data []byte, format Format, src Source) (Document, error) {
	var (
		root tree
		err  error
	)
	switch format {
	case FormatYAML:
		root, err = parseYAML(data)
	case FormatJSON:
		root, err = parseJSON(data)
	case FormatCUE:
		root, err = parseCUE(data)
	default:
		return Document{}, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return Document{}, err
	}
	if src == nil {
		src = Inline()
	}

	doc := Document{Format: format, Source: src, raw: append([]byte(nil), data...)}
	if root.isNull() {
		root = tree{kind: treeMap}
	}
	if root.kind != treeMap {
		return Document{}, fmt.Errorf("document: top level must be a mapping, got %s", root.kind)
	}
	for _, m := range root.members {
		switch m.key {
		case "name":
			doc.Name, err = topLevelString(m)
		case "title":
			doc.Title, err = topLevelString(m)
		case "description":
			doc.Description, err = topLevelString(m)
		case "fields":
			doc.Fields, err = d.decodeSchema(m.value, nil, schema.KindScalar)
		default:
			err = fmt.Errorf("document: %s: %w %q", m.pos, ErrUnknownKey, m.key)
		}
		if err != nil {
			return Document{}, err
		}
	}

	if doc.Name == "" && src.Kind() != SourceKindInline {
		doc.Name = NameFromPath(src.Location())
	}
	if err := schema.Validate(doc.Fields); err != nil {
		return Document{}, fmt.Errorf("document: invalid fields: %w", err)
	}
	return doc, nil
}

func (d *Decoder) decodeSchema(t tree, parent keypath.Path, parentKind schema.Kind) (schema.Schema, error) {
	if t.isNull() {
		return schema.Schema{}, nil
	}
	if t.kind != treeMap {
		return nil, fmt.Errorf("document: %s: fields must be a mapping, got %s", t.pos, t.kind)
	}
	out := make(schema.Schema, 0, len(t.members))
	for _, m := range t.members {
		path := keypath.Build(m.key, parent, parentKind.Container())
		node, err := d.decodeNode(m, path)
		if err != nil {
			return nil, err
		}
		out = append(out, schema.Field(m.key, node))
	}
	return out, nil
}

func (d *Decoder) decodeNode(m member, path keypath.Path) (schema.Node, error) {
	var node schema.Node
	if m.value.isNull() {
		return node, nil
	}
	if m.value.kind != treeMap {
		return node, fieldError(path, m.pos, fmt.Errorf("field must be a mapping, got %s", m.value.kind))
	}

	// type decides how children paths are built, so read it first.
	for _, attr := range m.value.members {
		if attr.key != "type" {
			continue
		}
		kind, err := kindValue(attr)
		if err != nil {
			return node, fieldError(path, attr.pos, err)
		}
		node.Kind = kind
	}

	for _, attr := range m.value.members {
		var err error
		switch attr.key {
		case "type":
		case "children":
			node.Children, err = d.decodeChildren(attr, path, node.Kind)
		case "create":
			node.Create, err = d.decodeOverrides(attr, path, node.Kind)
		case "edit":
			node.Edit, err = d.decodeOverrides(attr, path, node.Kind)
		case "readonly":
			node.Readonly, err = d.decodeOverrides(attr, path, node.Kind)
		default:
			var fields attributeSet
			if err = d.readAttribute(&fields, attr, path); err == nil {
				fields.applyTo(&node.Attributes)
			}
		}
		if err != nil {
			return node, err
		}
	}
	return node, nil
}

func (d *Decoder) decodeChildren(attr member, path keypath.Path, kind schema.Kind) (schema.Schema, error) {
	if kind == schema.KindArray && !attr.value.isNull() && attr.value.kind != treeMap {
		return nil, fieldError(path, attr.pos, schema.ErrArrayItemShape)
	}
	children, err := d.decodeSchema(attr.value, path, kind)
	if err != nil {
		return nil, err
	}
	return children, nil
}

func (d *Decoder) decodeOverrides(attr member, path keypath.Path, kind schema.Kind) (*schema.Overrides, error) {
	if attr.value.isNull() {
		return nil, nil
	}
	if attr.value.kind != treeMap {
		return nil, fieldError(path, attr.pos, fmt.Errorf("%s block must be a mapping, got %s", attr.key, attr.value.kind))
	}

	var fields attributeSet
	block := &schema.Overrides{}
	for _, entry := range attr.value.members {
		if entry.key == "children" {
			children, err := d.decodeChildren(entry, path, kind)
			if err != nil {
				return nil, err
			}
			block.Children = children
			continue
		}
		if err := d.readAttribute(&fields, entry, path); err != nil {
			return nil, err
		}
	}
	fields.applyToOverrides(block)
	return block, nil
}

// attributeSet collects the attributes present in one mapping. Nil pointers
// mean the key was not declared.
type attributeSet struct {
	label        *string
	description  *string
	initValue    any
	hasInit      bool
	required     *bool
	showWhen     *string
	show         schema.ShowFunc
	control      *string
	controlProps map[string]any
}

func (d *Decoder) readAttribute(set *attributeSet, attr member, path keypath.Path) error {
	var err error
	switch attr.key {
	case "label":
		set.label, err = stringPtr(attr)
	case "description":
		set.description, err = stringPtr(attr)
	case "control":
		set.control, err = stringPtr(attr)
	case "initValue":
		set.initValue = attr.value.plain()
		set.hasInit = true
	case "required":
		b, ok := attr.value.scalar.(bool)
		if attr.value.kind != treeScalar || !ok {
			err = errors.New("required must be a boolean")
		} else {
			set.required = &b
		}
	case "controlProps":
		if attr.value.isNull() {
			break
		}
		props, ok := attr.value.plain().(map[string]any)
		if !ok {
			err = fmt.Errorf("controlProps must be a mapping, got %s", attr.value.kind)
		} else {
			set.controlProps = props
		}
	case "showWhen":
		set.showWhen, err = stringPtr(attr)
		if err == nil {
			set.show, err = d.compileRule(path, *set.showWhen)
		}
	default:
		err = fmt.Errorf("%w %q", ErrUnknownKey, attr.key)
	}
	if err != nil {
		return fieldError(path, attr.pos, err)
	}
	return nil
}

func (d *Decoder) compileRule(path keypath.Path, rule string) (schema.ShowFunc, error) {
	show, err := visibility.Predicate(d.evaluator, path.String(), rule)
	if err != nil {
		return nil, fmt.Errorf("showWhen: %w", err)
	}
	return show, nil
}

func (s attributeSet) applyTo(attrs *schema.Attributes) {
	if s.label != nil {
		attrs.Label = *s.label
	}
	if s.description != nil {
		attrs.Description = *s.description
	}
	if s.hasInit {
		attrs.InitValue = s.initValue
	}
	if s.required != nil {
		attrs.Required = *s.required
	}
	if s.showWhen != nil {
		attrs.ShowWhen = *s.showWhen
		attrs.Show = s.show
	}
	if s.control != nil {
		attrs.Control = *s.control
	}
	if s.controlProps != nil {
		attrs.ControlProps = s.controlProps
	}
}

func (s attributeSet) applyToOverrides(block *schema.Overrides) {
	block.Label = s.label
	block.Description = s.description
	if s.hasInit {
		block.InitValue = s.initValue
		block.HasInitValue = true
	}
	block.Required = s.required
	block.ShowWhen = s.showWhen
	block.Show = s.show
	block.Control = s.control
	block.ControlProps = s.controlProps
}

func fieldError(path keypath.Path, pos string, err error) error {
	return &schema.ConfigError{
		FullKey: path.String(),
		Err:     fmt.Errorf("document: %s: %w", pos, err),
	}
}

// kindValue carries unrecognised types through; they classify as scalars and
// transform into inert leaves.
func kindValue(attr member) (schema.Kind, error) {
	raw, err := stringValue(attr)
	if err != nil {
		return schema.KindScalar, err
	}
	return schema.Kind(raw), nil
}

func stringValue(attr member) (string, error) {
	if attr.value.isNull() {
		return "", nil
	}
	s, ok := attr.value.scalar.(string)
	if attr.value.kind != treeScalar || !ok {
		return "", fmt.Errorf("%s must be a string", attr.key)
	}
	return s, nil
}

func topLevelString(attr member) (string, error) {
	s, err := stringValue(attr)
	if err != nil {
		return "", fmt.Errorf("document: %s: %w", attr.pos, err)
	}
	return s, nil
}

func stringPtr(attr member) (*string, error) {
	s, ok := attr.value.scalar.(string)
	if attr.value.kind != treeScalar || !ok {
		return nil, fmt.Errorf("%s must be a string", attr.key)
	}
	return &s, nil
}
