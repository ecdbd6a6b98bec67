// Package openapi imports the JSON request body of an OpenAPI 3 operation as
// a form schema. Property order, controls, and per-mode overrides come from
// x-formgen-* vendor extensions.
package openapi
