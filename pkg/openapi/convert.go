package openapi

import (
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-schemaform/pkg/keypath"
	"github.com/goliatone/go-schemaform/pkg/schema"
	"github.com/goliatone/go-schemaform/pkg/visibility"
)

// Vendor extensions read from property schemas.
const (
	ExtensionControl      = "x-formgen-control"
	ExtensionControlProps = "x-formgen-control-props"
	ExtensionShowWhen     = "x-formgen-show-when"
	ExtensionOrder        = "x-formgen-order"
	ExtensionCreate       = "x-formgen-create"
	ExtensionEdit         = "x-formgen-edit"
	ExtensionReadonly     = "x-formgen-readonly"
)

type converter struct {
	evaluator visibility.Evaluator
	// active holds the schemas on the current property path, merging the
	// allOf hosts being folded.
	active  map[*openapi3.Schema]bool
	merging map[*openapi3.Schema]bool
}

// resolve dereferences ref and folds allOf members into one schema. Members
// contribute properties, required names, and extensions the host lacks.
func (c *converter) resolve(ref *openapi3.SchemaRef, path keypath.Path) (*openapi3.Schema, error) {
	if ref == nil || ref.Value == nil {
		name := "<nil>"
		if ref != nil && ref.Ref != "" {
			name = ref.Ref
		}
		return nil, configError(path, fmt.Errorf("%w %s", ErrUnresolvedRef, name))
	}
	src := ref.Value
	if len(src.AllOf) == 0 {
		return src, nil
	}
	if c.merging[src] {
		return nil, configError(path, ErrRecursiveSchema)
	}
	c.merging[src] = true
	defer delete(c.merging, src)

	merged := *src
	merged.AllOf = nil
	merged.Properties = make(openapi3.Schemas, len(src.Properties))
	for name, prop := range src.Properties {
		merged.Properties[name] = prop
	}
	merged.Required = append([]string(nil), src.Required...)
	merged.Extensions = make(map[string]any, len(src.Extensions))
	for key, value := range src.Extensions {
		merged.Extensions[key] = value
	}

	for _, member := range src.AllOf {
		part, err := c.resolve(member, path)
		if err != nil {
			return nil, err
		}
		if merged.Type == nil || len(merged.Type.Slice()) == 0 {
			merged.Type = part.Type
		}
		if merged.Title == "" {
			merged.Title = part.Title
		}
		if merged.Description == "" {
			merged.Description = part.Description
		}
		if merged.Default == nil {
			merged.Default = part.Default
		}
		if merged.Items == nil {
			merged.Items = part.Items
		}
		for name, prop := range part.Properties {
			if _, exists := merged.Properties[name]; !exists {
				merged.Properties[name] = prop
			}
		}
		merged.Required = append(merged.Required, part.Required...)
		for key, value := range part.Extensions {
			if _, exists := merged.Extensions[key]; !exists {
				merged.Extensions[key] = value
			}
		}
	}
	return &merged, nil
}

func (c *converter) properties(s *openapi3.Schema, parent keypath.Path, parentKind schema.Kind) (schema.Schema, error) {
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	names := propertyOrder(s)
	out := make(schema.Schema, 0, len(names))
	for _, name := range names {
		path := keypath.Build(name, parent, parentKind.Container())
		node, err := c.node(s.Properties[name], path, required[name])
		if err != nil {
			return nil, err
		}
		out = append(out, schema.Field(name, node))
	}
	return out, nil
}

func (c *converter) node(ref *openapi3.SchemaRef, path keypath.Path, required bool) (schema.Node, error) {
	var node schema.Node
	if ref != nil && ref.Value != nil {
		if c.active[ref.Value] {
			return node, configError(path, ErrRecursiveSchema)
		}
		c.active[ref.Value] = true
		defer delete(c.active, ref.Value)
	}

	s, err := c.resolve(ref, path)
	if err != nil {
		return node, err
	}

	node.Label = s.Title
	node.Description = s.Description
	node.InitValue = s.Default
	node.Required = required

	switch typ := schemaType(s); {
	case isObject(s):
		node.Kind = schema.KindObject
		node.Children, err = c.properties(s, path, schema.KindObject)
	case typ == openapi3.TypeArray:
		node.Kind = schema.KindArray
		node.Children, err = c.arrayItem(s, path)
	default:
		node.Control, node.ControlProps = inferControl(s, typ)
	}
	if err != nil {
		return node, err
	}

	if err := c.applyExtensions(&node, s.Extensions, path); err != nil {
		return node, err
	}
	return node, nil
}

func (c *converter) arrayItem(s *openapi3.Schema, path keypath.Path) (schema.Schema, error) {
	if s.Items == nil {
		return nil, configError(path, schema.ErrArrayItemShape)
	}
	if s.Items.Value != nil {
		if c.active[s.Items.Value] {
			return nil, configError(path, ErrRecursiveSchema)
		}
		c.active[s.Items.Value] = true
		defer delete(c.active, s.Items.Value)
	}
	item, err := c.resolve(s.Items, path)
	if err != nil {
		return nil, err
	}
	if !isObject(item) {
		return nil, configError(path, fmt.Errorf("%w (items are %q)", schema.ErrArrayItemShape, schemaType(item)))
	}
	return c.properties(item, path, schema.KindArray)
}

func (c *converter) applyExtensions(node *schema.Node, ext map[string]any, path keypath.Path) error {
	if len(ext) == 0 {
		return nil
	}
	if raw, ok := ext[ExtensionControl]; ok {
		control, ok := raw.(string)
		if !ok {
			return configError(path, fmt.Errorf("%s must be a string", ExtensionControl))
		}
		node.Control = control
	}
	if raw, ok := ext[ExtensionControlProps]; ok {
		props, ok := raw.(map[string]any)
		if !ok {
			return configError(path, fmt.Errorf("%s must be an object", ExtensionControlProps))
		}
		merged := make(map[string]any, len(node.ControlProps)+len(props))
		for k, v := range node.ControlProps {
			merged[k] = v
		}
		for k, v := range props {
			merged[k] = v
		}
		node.ControlProps = merged
	}
	if raw, ok := ext[ExtensionShowWhen]; ok {
		rule, ok := raw.(string)
		if !ok {
			return configError(path, fmt.Errorf("%s must be a string", ExtensionShowWhen))
		}
		show, err := visibility.Predicate(c.evaluator, path.String(), rule)
		if err != nil {
			return configError(path, fmt.Errorf("%s: %w", ExtensionShowWhen, err))
		}
		node.ShowWhen = rule
		node.Show = show
	}

	blocks := []struct {
		key    string
		target **schema.Overrides
	}{
		{key: ExtensionCreate, target: &node.Create},
		{key: ExtensionEdit, target: &node.Edit},
		{key: ExtensionReadonly, target: &node.Readonly},
	}
	for _, block := range blocks {
		raw, ok := ext[block.key]
		if !ok || raw == nil {
			continue
		}
		overrides, err := c.overrides(raw, path)
		if err != nil {
			return configError(path, fmt.Errorf("%s: %w", block.key, err))
		}
		*block.target = overrides
	}
	return nil
}

var errOverrideShape = errors.New("override must be an object")

// overrides reads a mode block. Children cannot be overridden from OpenAPI;
// the property schema stays the single source of structure.
func (c *converter) overrides(raw any, path keypath.Path) (*schema.Overrides, error) {
	values, ok := raw.(map[string]any)
	if !ok {
		return nil, errOverrideShape
	}
	block := &schema.Overrides{}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := values[key]
		switch key {
		case "label":
			s, err := stringOverride(key, value)
			if err != nil {
				return nil, err
			}
			block.Label = s
		case "description":
			s, err := stringOverride(key, value)
			if err != nil {
				return nil, err
			}
			block.Description = s
		case "control":
			s, err := stringOverride(key, value)
			if err != nil {
				return nil, err
			}
			block.Control = s
		case "initValue":
			block.InitValue = value
			block.HasInitValue = true
		case "required":
			b, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("required must be a boolean")
			}
			block.Required = &b
		case "controlProps":
			props, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("controlProps must be an object")
			}
			block.ControlProps = props
		case "showWhen":
			s, err := stringOverride(key, value)
			if err != nil {
				return nil, err
			}
			show, err := visibility.Predicate(c.evaluator, path.String(), *s)
			if err != nil {
				return nil, fmt.Errorf("showWhen: %w", err)
			}
			block.ShowWhen = s
			block.Show = show
		default:
			return nil, fmt.Errorf("unknown override key %q", key)
		}
	}
	return block, nil
}

func stringOverride(key string, value any) (*string, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string", key)
	}
	return &s, nil
}

// propertyOrder lists names from x-formgen-order first, then the remaining
// properties sorted by name.
func propertyOrder(s *openapi3.Schema) []string {
	seen := make(map[string]bool, len(s.Properties))
	names := make([]string, 0, len(s.Properties))

	var preferred []string
	switch raw := s.Extensions[ExtensionOrder].(type) {
	case []any:
		for _, item := range raw {
			if name, ok := item.(string); ok {
				preferred = append(preferred, name)
			}
		}
	case []string:
		preferred = raw
	}
	for _, name := range preferred {
		if _, ok := s.Properties[name]; ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	rest := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func inferControl(s *openapi3.Schema, typ string) (string, map[string]any) {
	props := constraintProps(s, typ)
	if len(s.Enum) > 0 {
		props["options"] = append([]any(nil), s.Enum...)
		return "select", props
	}
	control := "input"
	switch {
	case typ == openapi3.TypeBoolean:
		control = "checkbox"
	case typ == openapi3.TypeInteger || typ == openapi3.TypeNumber:
		control = "number"
	case s.Format == "password":
		control = "password"
	}
	if len(props) == 0 {
		return control, nil
	}
	return control, props
}

// constraintProps carries the validation keywords renderers understand as
// control props.
func constraintProps(s *openapi3.Schema, typ string) map[string]any {
	props := map[string]any{}
	if s.Min != nil {
		props["min"] = *s.Min
	}
	if s.Max != nil {
		props["max"] = *s.Max
	}
	if s.MinLength > 0 {
		props["minLength"] = int(s.MinLength)
	}
	if s.MaxLength != nil {
		props["maxLength"] = int(*s.MaxLength)
	}
	if s.Pattern != "" {
		props["pattern"] = s.Pattern
	}
	if typ == openapi3.TypeInteger {
		props["step"] = 1
	}
	return props
}

func isObject(s *openapi3.Schema) bool {
	typ := schemaType(s)
	return typ == openapi3.TypeObject || (typ == "" && len(s.Properties) > 0)
}

func schemaType(s *openapi3.Schema) string {
	if s == nil || s.Type == nil {
		return ""
	}
	for _, typ := range s.Type.Slice() {
		if typ != openapi3.TypeNull {
			return typ
		}
	}
	return ""
}

func configError(path keypath.Path, err error) error {
	return &schema.ConfigError{FullKey: path.String(), Err: err}
}
