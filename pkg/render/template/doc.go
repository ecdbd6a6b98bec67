// Package template holds the pongo2 template engine renderers build markup
// with, behind a small TemplateRenderer contract.
package template
