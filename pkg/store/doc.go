// Package store resolves form documents by name. FSStore reads YAML, JSON and
// CUE files from an fs.FS; SQLStore keeps documents in a SQL database (SQLite
// through modernc.org/sqlite by default).
package store
