// Package orchestrator wires the document store, schema transformer,
// descriptor transformers and renderer registry behind a single entry point.
// Callers name a stored document (or pass one) and receive rendered bytes or
// the prepared render.Form.
package orchestrator
