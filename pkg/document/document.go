package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-schemaform/pkg/schema"
)

// Format names a supported document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// ErrUnknownFormat is returned for encodings the decoder cannot read.
var ErrUnknownFormat = errors.New("document: unknown format")

// ParseFormat normalises a format name ("yml" is accepted for YAML).
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownFormat, raw)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", false
	}
	format, err := ParseFormat(ext)
	return format, err == nil
}

// NameFromPath derives a document name from a file path by dropping the
// directory and extension.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Document is a decoded form definition.
type Document struct {
	Name        string
	Title       string
	Description string
	Fields      schema.Schema

	Format Format
	Source Source
	raw    []byte
}

// Raw returns a copy of the bytes the document was decoded from.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location reports where the document came from.
func (d Document) Location() string {
	if d.Source == nil {
		return ""
	}
	return d.Source.Location()
}
