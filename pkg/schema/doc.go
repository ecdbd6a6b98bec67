// Package schema declares form fields as ordered, mode-aware nodes and turns
// them into the descriptor tree renderers consume. Nodes are tagged by Kind
// (scalar, object, array); object and array nodes carry a child Schema, where
// an array's children describe the shape of one item. Each node may declare
// create, edit and readonly override blocks that Compose merges shallowly for
// the active mode. Transform applies Compose at every level and annotates the
// result with full keys (see pkg/keypath) and 1-based nesting levels.
package schema
