package schema

import "github.com/goliatone/go-schemaform/pkg/keypath"

// Kind is the field discriminator. The zero value is a scalar field.
type Kind string

const (
	KindScalar Kind = ""
	KindObject Kind = "object"
	KindArray  Kind = "array"
)

// HasChildren reports whether the kind carries a child schema.
func (k Kind) HasChildren() bool {
	return k == KindObject || k == KindArray
}

// Container maps the kind onto the key path container used for its children.
func (k Kind) Container() keypath.Container {
	switch k {
	case KindObject:
		return keypath.ContainerObject
	case KindArray:
		return keypath.ContainerArray
	default:
		return keypath.ContainerNone
	}
}

// Mode selects which override block applies when composing a field.
type Mode string

const (
	ModeNone     Mode = ""
	ModeCreate   Mode = "create"
	ModeEdit     Mode = "edit"
	ModeReadonly Mode = "readonly"
)

// ParseMode maps a raw string onto a known mode. Unknown values report false
// and return ModeNone, which composes to the base attributes.
func ParseMode(raw string) (Mode, bool) {
	switch Mode(raw) {
	case ModeCreate, ModeEdit, ModeReadonly:
		return Mode(raw), true
	default:
		return ModeNone, false
	}
}

// ShowFunc decides whether a field is displayed given its own value and the
// whole form value tree.
type ShowFunc func(value any, values map[string]any) bool

// RenderFunc replaces the default rendering of a descriptor. index is nil
// outside array rows. The returned value is renderer specific.
type RenderFunc func(field Descriptor, index *int) any

// Attributes is the closed set of per-field settings that mode overrides can
// replace.
type Attributes struct {
	Label        string         `json:"label,omitempty"`
	Description  string         `json:"description,omitempty"`
	InitValue    any            `json:"initValue,omitempty"`
	Required     bool           `json:"required,omitempty"`
	ShowWhen     string         `json:"showWhen,omitempty"`
	Show         ShowFunc       `json:"-"`
	Render       RenderFunc     `json:"-"`
	Control      string         `json:"control,omitempty"`
	ControlProps map[string]any `json:"controlProps,omitempty"`
}

// Overrides is a partial copy of Attributes. Nil fields are absent and leave
// the base attribute untouched; present fields replace it wholesale.
// HasInitValue marks InitValue as present even when it is nil, which resets
// the base init value.
type Overrides struct {
	Label        *string
	Description  *string
	InitValue    any
	HasInitValue bool
	Required     *bool
	ShowWhen     *string
	Show         ShowFunc
	Render       RenderFunc
	Control      *string
	ControlProps map[string]any
	Children     Schema
}

// Node is one field declaration.
type Node struct {
	Kind Kind
	Attributes
	Children Schema

	Create   *Overrides
	Edit     *Overrides
	Readonly *Overrides
}

// Entry pairs a property name with its node.
type Entry struct {
	Key  string
	Node Node
}

// Schema is an ordered property mapping. Declaration order is render order.
type Schema []Entry

// New builds a schema from entries.
func New(entries ...Entry) Schema {
	return Schema(entries)
}

// Field is a convenience constructor for a schema entry.
func Field(key string, node Node) Entry {
	return Entry{Key: key, Node: node}
}

// Object builds an object node.
func Object(attrs Attributes, children ...Entry) Node {
	return Node{Kind: KindObject, Attributes: attrs, Children: Schema(children)}
}

// Array builds an array node whose item shape is described by children.
func Array(attrs Attributes, children ...Entry) Node {
	return Node{Kind: KindArray, Attributes: attrs, Children: Schema(children)}
}

// Scalar builds a scalar node.
func Scalar(attrs Attributes) Node {
	return Node{Attributes: attrs}
}

// Keys lists the property names in declaration order.
func (s Schema) Keys() []string {
	keys := make([]string, len(s))
	for i, entry := range s {
		keys[i] = entry.Key
	}
	return keys
}

// Lookup returns the first node declared under key.
func (s Schema) Lookup(key string) (Node, bool) {
	for _, entry := range s {
		if entry.Key == key {
			return entry.Node, true
		}
	}
	return Node{}, false
}

// Len reports the number of entries.
func (s Schema) Len() int {
	return len(s)
}

// String is a small helper for building Overrides literals.
func String(v string) *string {
	return &v
}

// Bool is a small helper for building Overrides literals.
func Bool(v bool) *bool {
	return &v
}
