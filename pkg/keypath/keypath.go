package keypath

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholder marks an array item whose index is unknown at schema definition
// time. Row renderers replace it with the concrete row index.
const Placeholder = "[index]"

// Unresolved is the Index value carried by array item markers that have not
// been bound to a row yet.
const Unresolved = -1

// Container identifies the kind of parent a key is nested under.
type Container int

const (
	ContainerNone Container = iota
	ContainerObject
	ContainerArray
)

// Segment is one named step in a path. Item reports whether the named field is
// an array whose item is addressed next; Index holds the row index or
// Unresolved while the path is still a template.
type Segment struct {
	Name  string
	Item  bool
	Index int
}

// Path is the structured form of a full key. Paths are values: every method
// returns a new slice and never mutates the receiver.
type Path []Segment

// BuildFullKey derives the full key for key nested under parentFullKey. Keys
// under an array parent get the templated form parent[index].key.
func BuildFullKey(key, parentFullKey string, parent Container) string {
	if parentFullKey == "" {
		return key
	}
	if parent == ContainerArray {
		return parentFullKey + Placeholder + "." + key
	}
	return parentFullKey + "." + key
}

// SubstituteIndex replaces the first placeholder in templated with index. Keys
// without a placeholder are returned unchanged. Nested arrays are resolved one
// level at a time by repeated calls.
func SubstituteIndex(templated string, index int) string {
	if !strings.Contains(templated, Placeholder) {
		return templated
	}
	return strings.Replace(templated, Placeholder, "["+strconv.Itoa(index)+"]", 1)
}

// Root returns a single segment path.
func Root(key string) Path {
	return Path{{Name: key, Index: Unresolved}}
}

// Build appends key to parent, marking the parent's last segment as an array
// item when parent is ContainerArray.
func Build(key string, parent Path, container Container) Path {
	if len(parent) == 0 {
		return Root(key)
	}
	if container == ContainerArray {
		return parent.Item().Child(key)
	}
	return parent.Child(key)
}

// Child returns a copy of p extended with a named segment.
func (p Path) Child(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Name: key, Index: Unresolved})
}

// Item returns a copy of p whose last segment addresses an unresolved array
// item. Calling Item on an item path is a no-op.
func (p Path) Item() Path {
	out := p.clone()
	if len(out) == 0 {
		return out
	}
	last := &out[len(out)-1]
	if !last.Item {
		last.Item = true
		last.Index = Unresolved
	}
	return out
}

// Resolve binds the first unresolved array marker to index.
func (p Path) Resolve(index int) Path {
	out := p.clone()
	for i := range out {
		if out[i].Item && out[i].Index == Unresolved {
			out[i].Index = index
			return out
		}
	}
	return out
}

// Templated reports whether any array marker is still unresolved.
func (p Path) Templated() bool {
	for _, seg := range p {
		if seg.Item && seg.Index == Unresolved {
			return true
		}
	}
	return false
}

// Depth is the number of named segments, which is the nesting level of the
// field the path points at.
func (p Path) Depth() int {
	return len(p)
}

// Key returns the last named segment.
func (p Path) Key() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1].Name
}

// Parent drops the last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1].clone()
}

// String serialises the path into the bracketed full key form used by form
// state layers (a[index].b, a[2].b).
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Name)
		if seg.Item {
			if seg.Index == Unresolved {
				b.WriteString(Placeholder)
			} else {
				b.WriteByte('[')
				b.WriteString(strconv.Itoa(seg.Index))
				b.WriteByte(']')
			}
		}
	}
	return b.String()
}

// Dotted serialises the path with numeric segments (a.2.b). Unresolved markers
// are rendered as the literal "index".
func (p Path) Dotted() string {
	parts := make([]string, 0, len(p)*2)
	for _, seg := range p {
		parts = append(parts, seg.Name)
		if seg.Item {
			if seg.Index == Unresolved {
				parts = append(parts, "index")
			} else {
				parts = append(parts, strconv.Itoa(seg.Index))
			}
		}
	}
	return strings.Join(parts, ".")
}

// Equal reports whether both paths address the same location.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

func (p Path) clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Parse reads a full key in bracketed form ("a[index].b", "a[2].b"). Every
// dot separated segment is a field name, so properties named "2" or "index"
// stay addressable.
func Parse(raw string) (Path, error) {
	return parse(raw, false)
}

// ParseDotted reads the looser form accepted by expressions, where dotted
// numeric segments ("a.2.b") and a dotted "index" address array items.
// Bracketed segments are accepted too.
func ParseDotted(raw string) (Path, error) {
	return parse(raw, true)
}

func parse(raw string, dotted bool) (Path, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("keypath: empty path")
	}

	var out Path
	for _, part := range strings.Split(trimmed, ".") {
		if part == "" {
			return nil, fmt.Errorf("keypath: empty segment in %q", raw)
		}
		if dotted {
			if idx, err := strconv.Atoi(part); err == nil {
				if idx < 0 || len(out) == 0 || out[len(out)-1].Item {
					return nil, fmt.Errorf("keypath: unexpected index %q in %q", part, raw)
				}
				out[len(out)-1].Item = true
				out[len(out)-1].Index = idx
				continue
			}
			if part == "index" && len(out) > 0 && !out[len(out)-1].Item {
				out[len(out)-1].Item = true
				out[len(out)-1].Index = Unresolved
				continue
			}
		}

		seg := Segment{Name: part, Index: Unresolved}
		if open := strings.IndexByte(part, '['); open >= 0 {
			if !strings.HasSuffix(part, "]") || open == 0 {
				return nil, fmt.Errorf("keypath: malformed segment %q in %q", part, raw)
			}
			seg.Name = part[:open]
			inner := part[open+1 : len(part)-1]
			seg.Item = true
			if inner != "index" {
				idx, err := strconv.Atoi(inner)
				if err != nil || idx < 0 {
					return nil, fmt.Errorf("keypath: invalid index %q in %q", inner, raw)
				}
				seg.Index = idx
			}
		}
		if strings.ContainsAny(seg.Name, "[]") {
			return nil, fmt.Errorf("keypath: malformed segment %q in %q", part, raw)
		}
		out = append(out, seg)
	}
	return out, nil
}

// MustParse panics when raw is not a valid path. Intended for tests and
// package-level fixtures.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}
