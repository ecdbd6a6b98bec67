package keypath

import "fmt"

// Lookup walks a nested value tree along p. Unresolved item markers never
// match a row.
func (p Path) Lookup(values map[string]any) (any, bool) {
	if len(p) == 0 || values == nil {
		return nil, false
	}
	var current any = values
	for _, seg := range p {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[seg.Name]; !ok {
			return nil, false
		}
		if !seg.Item {
			continue
		}
		list, ok := current.([]any)
		if !ok || seg.Index < 0 || seg.Index >= len(list) {
			return nil, false
		}
		current = list[seg.Index]
	}
	return current, true
}

// Assign writes value at p inside values, creating intermediate objects and
// growing row lists with empty objects as needed. p must be fully resolved.
func (p Path) Assign(values map[string]any, value any) error {
	if len(p) == 0 {
		return fmt.Errorf("keypath: empty path")
	}
	if values == nil {
		return fmt.Errorf("keypath: nil value tree")
	}
	if p.Templated() {
		return fmt.Errorf("keypath: cannot assign to unresolved path %s", p)
	}

	m := values
	for i, seg := range p {
		last := i == len(p)-1
		if !seg.Item {
			if last {
				m[seg.Name] = value
				return nil
			}
			next, err := childObject(m, seg.Name, p)
			if err != nil {
				return err
			}
			m = next
			continue
		}

		var list []any
		if existing, ok := m[seg.Name]; ok && existing != nil {
			if list, ok = existing.([]any); !ok {
				return fmt.Errorf("keypath: %s is not a list in %s", seg.Name, p)
			}
		}
		for len(list) <= seg.Index {
			list = append(list, map[string]any{})
		}
		m[seg.Name] = list
		if last {
			list[seg.Index] = value
			return nil
		}
		row, ok := list[seg.Index].(map[string]any)
		if !ok {
			if list[seg.Index] != nil {
				return fmt.Errorf("keypath: row %d of %s is not an object in %s", seg.Index, seg.Name, p)
			}
			row = map[string]any{}
			list[seg.Index] = row
		}
		m = row
	}
	return nil
}

func childObject(m map[string]any, name string, p Path) (map[string]any, error) {
	existing, ok := m[name]
	if !ok || existing == nil {
		next := map[string]any{}
		m[name] = next
		return next, nil
	}
	next, ok := existing.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("keypath: %s is not an object in %s", name, p)
	}
	return next, nil
}
