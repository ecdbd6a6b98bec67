package schema

import "github.com/goliatone/go-schemaform/pkg/keypath"

// Transform composes every node of s for mode and returns the descriptor tree
// in declaration order. Object and array descriptors carry their children;
// scalars are terminal. Malformed nodes are never rejected here: they degrade
// to inert leaf descriptors and the renderer decides what to do with them.
func Transform(s Schema, mode Mode) []Descriptor {
	return TransformAt(s, mode, nil, KindScalar)
}

// TransformAt transforms s as the children of the node at parent. parentKind
// decides whether child paths use the object form (parent.key) or the array
// item form (parent[index].key). A nil parent transforms s as a root schema.
func TransformAt(s Schema, mode Mode, parent keypath.Path, parentKind Kind) []Descriptor {
	if len(s) == 0 {
		return nil
	}
	out := make([]Descriptor, 0, len(s))
	for _, entry := range s {
		out = append(out, transformEntry(entry, mode, parent, parentKind))
	}
	return out
}

func transformEntry(entry Entry, mode Mode, parent keypath.Path, parentKind Kind) Descriptor {
	composed := Compose(entry.Node, mode)
	path := keypath.Build(entry.Key, parent, parentKind.Container())

	field := Descriptor{
		Attributes: composed.Attributes,
		Key:        entry.Key,
		FullKey:    path.String(),
		Path:       path,
		Level:      levelOf(path),
		Kind:       composed.Kind,
	}
	if field.ControlProps != nil {
		field.ControlProps = cloneProps(field.ControlProps)
	}

	if composed.Kind.HasChildren() && len(composed.Children) > 0 {
		field.Children = TransformAt(composed.Children, mode, path, composed.Kind)
	}
	return field
}

func levelOf(path keypath.Path) int {
	if depth := path.Depth(); depth > 0 {
		return depth
	}
	return 1
}

func cloneProps(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
