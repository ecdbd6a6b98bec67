package document

import (
	"path/filepath"
)

// Source identifies where a document originated so stores can report
// locations without leaking implementation details.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindInline  SourceKind = "inline"
	SourceKindFile    SourceKind = "file"
	SourceKindFS      SourceKind = "fs"
	SourceKindSQL     SourceKind = "sql"
	SourceKindOpenAPI SourceKind = "openapi"
)

type source struct {
	kind     SourceKind
	location string
}

func (s source) Kind() SourceKind { return s.kind }
func (s source) Location() string { return s.location }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return source{kind: SourceKindFile, location: filepath.Clean(path)}
}

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return source{kind: SourceKindFS, location: name}
}

// SourceFromSQL identifies a document row by name.
func SourceFromSQL(name string) Source {
	return source{kind: SourceKindSQL, location: name}
}

// Inline marks a document decoded from bytes supplied by the caller.
func Inline() Source {
	return source{kind: SourceKindInline, location: "<inline>"}
}

// SourceFromOpenAPI identifies a document imported from an OpenAPI
// operation.
func SourceFromOpenAPI(operationID string) Source {
	return source{kind: SourceKindOpenAPI, location: operationID}
}
