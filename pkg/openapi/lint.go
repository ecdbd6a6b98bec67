package openapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const extensionPrefix = "x-formgen"

var knownExtensions = map[string]bool{
	ExtensionControl:      true,
	ExtensionControlProps: true,
	ExtensionShowWhen:     true,
	ExtensionOrder:        true,
	ExtensionCreate:       true,
	ExtensionEdit:         true,
	ExtensionReadonly:     true,
}

// KnownExtensions lists the vendor extensions the importer understands.
func KnownExtensions() []string {
	out := make([]string, 0, len(knownExtensions))
	for key := range knownExtensions {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Finding is one lint result.
type Finding struct {
	Operation string
	Location  string
	Message   string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s -> %s", f.Operation, f.Location, f.Message)
}

// Lint reports unknown x-formgen extensions on request body schemas and
// operations whose request body fails to import. Findings are ordered by
// operation then location.
func (im *Importer) Lint(ctx context.Context, data []byte) ([]Finding, error) {
	spec, err := im.load(ctx, data)
	if err != nil {
		return nil, err
	}

	var findings []Finding
	walkOperations(spec, func(op *openapi3.Operation, info Operation) bool {
		if !info.HasRequestBody {
			return true
		}
		body, _ := requestSchema(op)
		visited := make(map[*openapi3.Schema]bool)
		findings = append(findings, lintSchema(info.ID, []string{"requestBody"}, body, visited)...)

		if _, err := im.ImportDocument(ctx, data, info.ID); err != nil {
			findings = append(findings, Finding{Operation: info.ID, Location: "requestBody", Message: err.Error()})
		}
		return ctx.Err() == nil
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Operation == findings[j].Operation {
			return findings[i].Location < findings[j].Location
		}
		return findings[i].Operation < findings[j].Operation
	})
	return findings, nil
}

func lintSchema(operation string, path []string, ref *openapi3.SchemaRef, visited map[*openapi3.Schema]bool) []Finding {
	if ref == nil || ref.Value == nil || visited[ref.Value] {
		return nil
	}
	s := ref.Value
	visited[s] = true
	defer delete(visited, s)

	result := lintExtensions(operation, path, s.Extensions)

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		result = append(result, lintSchema(operation, appendPath(path, "properties."+name), s.Properties[name], visited)...)
	}
	if s.Items != nil {
		result = append(result, lintSchema(operation, appendPath(path, "items"), s.Items, visited)...)
	}
	for i, member := range s.AllOf {
		result = append(result, lintSchema(operation, appendPath(path, fmt.Sprintf("allOf[%d]", i)), member, visited)...)
	}
	return result
}

func lintExtensions(operation string, path []string, extensions map[string]any) []Finding {
	keys := make([]string, 0, len(extensions))
	for key := range extensions {
		if strings.HasPrefix(key, extensionPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var result []Finding
	for _, key := range keys {
		if knownExtensions[key] {
			continue
		}
		result = append(result, Finding{
			Operation: operation,
			Location:  strings.Join(path, " > "),
			Message:   fmt.Sprintf("unsupported extension %q (supported: %s)", key, strings.Join(KnownExtensions(), ", ")),
		})
	}
	return result
}

func appendPath(path []string, segment string) []string {
	next := append([]string(nil), path...)
	return append(next, segment)
}
