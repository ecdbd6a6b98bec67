package document

// tree is the encoding-neutral shape both parsers produce. Mappings keep
// their declaration order, which is the render order of the fields.
type treeKind int

const (
	treeScalar treeKind = iota
	treeMap
	treeList
)

type tree struct {
	kind    treeKind
	pos     string
	scalar  any
	members []member
	items   []tree
}

type member struct {
	key   string
	pos   string
	value tree
}

func (t tree) isNull() bool {
	return t.kind == treeScalar && t.scalar == nil
}

// plain converts the tree into the map/slice/scalar values used for
// initValue and controlProps.
func (t tree) plain() any {
	switch t.kind {
	case treeMap:
		out := make(map[string]any, len(t.members))
		for _, m := range t.members {
			out[m.key] = m.value.plain()
		}
		return out
	case treeList:
		out := make([]any, len(t.items))
		for i, item := range t.items {
			out[i] = item.plain()
		}
		return out
	default:
		return t.scalar
	}
}

func (k treeKind) String() string {
	switch k {
	case treeMap:
		return "mapping"
	case treeList:
		return "list"
	default:
		return "scalar"
	}
}
