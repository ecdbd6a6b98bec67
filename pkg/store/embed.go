package store

import (
	"embed"
	"io/fs"
)

//go:embed schemas/*
var embeddedSchemas embed.FS

// EmbeddedFS returns the bundled sample documents. Pass it to NewFSStore to
// serve them.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedSchemas, "schemas")
	if err != nil {
		panic(err)
	}
	return sub
}
