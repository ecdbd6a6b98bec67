package schema

// IsObjectField reports whether the node is declared with the object
// discriminator.
func IsObjectField(node Node) bool {
	return node.Kind == KindObject
}

// IsArrayField reports whether the node is declared with the array
// discriminator.
func IsArrayField(node Node) bool {
	return node.Kind == KindArray
}

// IsScalarField reports whether the node classifies as a scalar. Unknown
// discriminators classify as scalars.
func IsScalarField(node Node) bool {
	return !node.Kind.HasChildren()
}
