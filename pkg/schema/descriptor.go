package schema

import "github.com/goliatone/go-schemaform/pkg/keypath"

// Descriptor is the mode-composed, path-annotated form of a node that renderers
// consume. Children is only set for object and array descriptors.
type Descriptor struct {
	Attributes
	Key      string       `json:"key"`
	FullKey  string       `json:"fullKey"`
	Path     keypath.Path `json:"-"`
	Level    int          `json:"level"`
	Kind     Kind         `json:"type,omitempty"`
	Children []Descriptor `json:"children,omitempty"`
}

// IsObject reports whether the descriptor is an object field.
func (d Descriptor) IsObject() bool {
	return d.Kind == KindObject
}

// IsArray reports whether the descriptor is an array field.
func (d Descriptor) IsArray() bool {
	return d.Kind == KindArray
}

// AtRow returns a copy of d and its descendants with the first unresolved
// array marker of every path bound to index. Rows of nested arrays are bound
// one level at a time as the renderer descends.
func (d Descriptor) AtRow(index int) Descriptor {
	out := d
	out.Path = d.Path.Resolve(index)
	out.FullKey = keypath.SubstituteIndex(d.FullKey, index)
	if len(d.Children) > 0 {
		out.Children = make([]Descriptor, len(d.Children))
		for i, child := range d.Children {
			out.Children[i] = child.AtRow(index)
		}
	}
	return out
}

// Flatten lists descriptors depth first, parents before their children.
func Flatten(fields []Descriptor) []Descriptor {
	var out []Descriptor
	var walk func([]Descriptor)
	walk = func(list []Descriptor) {
		for _, field := range list {
			out = append(out, field)
			if len(field.Children) > 0 {
				walk(field.Children)
			}
		}
	}
	walk(fields)
	return out
}

// Find locates a descriptor by its full key. Templated keys match descriptors
// directly; resolved keys (a[2].b) match their templated descriptor.
func Find(fields []Descriptor, fullKey string) (Descriptor, bool) {
	flat := Flatten(fields)
	for _, field := range flat {
		if field.FullKey == fullKey {
			return field, true
		}
	}
	target, err := keypath.Parse(fullKey)
	if err != nil {
		return Descriptor{}, false
	}
	template := make(keypath.Path, len(target))
	for i, seg := range target {
		if seg.Item {
			seg.Index = keypath.Unresolved
		}
		template[i] = seg
	}
	for _, field := range flat {
		if field.Path.Equal(template) {
			return field, true
		}
		// An array descriptor's own path carries no item marker.
		if len(template) > 0 && template[len(template)-1].Item && field.IsArray() {
			if field.Path.Item().Equal(template) {
				return field, true
			}
		}
	}
	return Descriptor{}, false
}
