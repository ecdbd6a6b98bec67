package schema

// Compose merges the override block matching mode into the node's base
// attributes and strips every override block from the result. Overrides are
// shallow: a present attribute replaces the base value wholesale, so
// ControlProps and Children are never combined key by key. An unknown or empty
// mode returns the base attributes unchanged.
func Compose(node Node, mode Mode) Node {
	base := node
	base.Create, base.Edit, base.Readonly = nil, nil, nil

	var override *Overrides
	switch mode {
	case ModeCreate:
		override = node.Create
	case ModeEdit:
		override = node.Edit
	case ModeReadonly:
		override = node.Readonly
	}
	if override == nil {
		return base
	}
	return applyOverrides(base, *override)
}

// Override returns the override block declared for mode, if any.
func (n Node) Override(mode Mode) (*Overrides, bool) {
	var block *Overrides
	switch mode {
	case ModeCreate:
		block = n.Create
	case ModeEdit:
		block = n.Edit
	case ModeReadonly:
		block = n.Readonly
	}
	return block, block != nil
}

func applyOverrides(base Node, o Overrides) Node {
	if o.Label != nil {
		base.Label = *o.Label
	}
	if o.Description != nil {
		base.Description = *o.Description
	}
	if o.HasInitValue || o.InitValue != nil {
		base.InitValue = o.InitValue
	}
	if o.Required != nil {
		base.Required = *o.Required
	}
	if o.ShowWhen != nil {
		base.ShowWhen = *o.ShowWhen
	}
	if o.Show != nil {
		base.Show = o.Show
	}
	if o.Render != nil {
		base.Render = o.Render
	}
	if o.Control != nil {
		base.Control = *o.Control
	}
	if o.ControlProps != nil {
		base.ControlProps = o.ControlProps
	}
	if o.Children != nil {
		base.Children = o.Children
	}
	return base
}
