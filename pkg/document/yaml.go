package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

func parseJSON(data []byte) (tree, error) {
	if !json.Valid(data) {
		var syntaxErr *json.SyntaxError
		var probe any
		if err := json.Unmarshal(data, &probe); errors.As(err, &syntaxErr) {
			return tree{}, fmt.Errorf("document: parse json at offset %d: %w", syntaxErr.Offset, err)
		}
		return tree{}, errors.New("document: parse json: invalid document")
	}
	// JSON is a YAML subset; the node API keeps object key order.
	return parseYAML(data)
}

func parseYAML(data []byte) (tree, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return tree{}, fmt.Errorf("document: parse yaml: %w", err)
	}
	if root.Kind == 0 {
		return tree{kind: treeMap}, nil
	}
	return fromYAML(&root)
}

func fromYAML(n *yaml.Node) (tree, error) {
	pos := fmt.Sprintf("line %d", n.Line)
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return tree{kind: treeMap, pos: pos}, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return tree{}, fmt.Errorf("document: %s: dangling alias", pos)
		}
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		out := tree{kind: treeMap, pos: pos}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Kind != yaml.ScalarNode {
				return tree{}, fmt.Errorf("document: line %d: mapping keys must be scalars", key.Line)
			}
			child, err := fromYAML(val)
			if err != nil {
				return tree{}, err
			}
			out.members = append(out.members, member{
				key:   key.Value,
				pos:   fmt.Sprintf("line %d", key.Line),
				value: child,
			})
		}
		return out, nil
	case yaml.SequenceNode:
		out := tree{kind: treeList, pos: pos, items: make([]tree, 0, len(n.Content))}
		for _, item := range n.Content {
			child, err := fromYAML(item)
			if err != nil {
				return tree{}, err
			}
			out.items = append(out.items, child)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return tree{}, fmt.Errorf("document: %s: %w", pos, err)
		}
		return tree{kind: treeScalar, pos: pos, scalar: v}, nil
	default:
		return tree{}, fmt.Errorf("document: %s: unsupported yaml node kind %d", pos, n.Kind)
	}
}
