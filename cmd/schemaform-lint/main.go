package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-schemaform/pkg/document"
	"github.com/goliatone/go-schemaform/pkg/openapi"
)

func main() {
	flag.Usage = func() {
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [paths...]\n", filepath.Base(os.Args[0])); err != nil {
			panic(err)
		}
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "\nLint form documents and OpenAPI x-formgen extensions.\n"); err != nil {
			panic(err)
		}
	}
	openapiPaths := flag.Bool("openapi", false, "treat every path as an OpenAPI document")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	importer := openapi.New()
	decoder := document.NewDecoder()

	failed := false
	for _, path := range paths {
		problems, err := lintFile(ctx, importer, decoder, path, *openapiPaths)
		if err != nil {
			fmt.Fprintf(os.Stderr, "lint %s: %v\n", path, err)
			os.Exit(1)
		}
		for _, problem := range problems {
			fmt.Fprintf(os.Stderr, "%s: %s\n", path, problem)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func lintFile(ctx context.Context, importer *openapi.Importer, decoder *document.Decoder, path string, forceOpenAPI bool) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	if forceOpenAPI || looksLikeOpenAPI(raw) {
		findings, err := importer.Lint(ctx, raw)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(findings))
		for i, f := range findings {
			out[i] = f.String()
		}
		return out, nil
	}

	format, ok := document.FormatFromPath(path)
	if !ok {
		return nil, fmt.Errorf("unsupported extension %q", filepath.Ext(path))
	}
	if _, err := decoder.Decode(raw, format, document.SourceFromFile(path)); err != nil {
		return []string{err.Error()}, nil
	}
	return nil, nil
}

func looksLikeOpenAPI(raw []byte) bool {
	head := string(raw)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "openapi:") || strings.Contains(head, `"openapi"`)
}
