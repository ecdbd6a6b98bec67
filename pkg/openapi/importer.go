package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-schemaform/pkg/document"
	"github.com/goliatone/go-schemaform/pkg/schema"
	"github.com/goliatone/go-schemaform/pkg/visibility"
	"github.com/goliatone/go-schemaform/pkg/visibility/expr"
)

var (
	// ErrOperationNotFound is returned when no operation matches the id.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestBody is returned for operations without a request schema.
	ErrNoRequestBody = errors.New("openapi: operation has no request body schema")
	// ErrRecursiveSchema is returned when a schema references itself.
	ErrRecursiveSchema = errors.New("openapi: recursive schema")
	// ErrUnresolvedRef is returned for references the loader could not resolve.
	ErrUnresolvedRef = errors.New("openapi: unresolved reference")
)

// preferredMediaTypes are tried in order before any other request content.
var preferredMediaTypes = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
}

// Operation summarises one operation of a document.
type Operation struct {
	ID             string
	Method         string
	Path           string
	Summary        string
	HasRequestBody bool
}

// Option customises an Importer.
type Option func(*Importer)

// WithEvaluator swaps the evaluator used for x-formgen-show-when rules.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(im *Importer) {
		im.evaluator = eval
	}
}

// WithValidation runs the kin-openapi document validator before importing.
func WithValidation(enabled bool) Option {
	return func(im *Importer) {
		im.validate = enabled
	}
}

// WithExternalRefs allows $ref pointers to other documents.
func WithExternalRefs(enabled bool) Option {
	return func(im *Importer) {
		im.externalRefs = enabled
	}
}

// Importer converts OpenAPI request bodies into form schemas.
type Importer struct {
	evaluator    visibility.Evaluator
	validate     bool
	externalRefs bool
}

// New constructs an Importer.
func New(options ...Option) *Importer {
	im := &Importer{evaluator: expr.New()}
	for _, opt := range options {
		if opt != nil {
			opt(im)
		}
	}
	return im
}

// Import converts the request body of operationID with a default Importer.
func Import(ctx context.Context, data []byte, operationID string) (schema.Schema, error) {
	return New().Import(ctx, data, operationID)
}

// Import converts the request body of operationID. An empty id selects the
// only operation carrying a request body.
func (im *Importer) Import(ctx context.Context, data []byte, operationID string) (schema.Schema, error) {
	doc, err := im.ImportDocument(ctx, data, operationID)
	if err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

// ImportDocument is Import plus the operation metadata as document header.
func (im *Importer) ImportDocument(ctx context.Context, data []byte, operationID string) (document.Document, error) {
	spec, err := im.load(ctx, data)
	if err != nil {
		return document.Document{}, err
	}
	op, info, err := findOperation(spec, operationID)
	if err != nil {
		return document.Document{}, err
	}
	body, err := requestSchema(op)
	if err != nil {
		return document.Document{}, fmt.Errorf("%w: %s", err, info.ID)
	}

	c := &converter{
		evaluator: im.evaluator,
		active:    make(map[*openapi3.Schema]bool),
		merging:   make(map[*openapi3.Schema]bool),
	}
	if body.Value != nil {
		c.active[body.Value] = true
	}
	root, err := c.resolve(body, nil)
	if err != nil {
		return document.Document{}, err
	}
	if !isObject(root) {
		return document.Document{}, fmt.Errorf("openapi: request body of %s must be an object schema", info.ID)
	}
	fields, err := c.properties(root, nil, schema.KindScalar)
	if err != nil {
		return document.Document{}, err
	}
	if err := schema.Validate(fields); err != nil {
		return document.Document{}, fmt.Errorf("openapi: invalid fields: %w", err)
	}

	description := op.Description
	if description == "" {
		description = root.Description
	}
	title := op.Summary
	if title == "" {
		title = root.Title
	}
	return document.Document{
		Name:        info.ID,
		Title:       title,
		Description: description,
		Fields:      fields,
		Source:      document.SourceFromOpenAPI(info.ID),
	}, nil
}

// Operations lists every operation of the document ordered by path and
// method.
func (im *Importer) Operations(ctx context.Context, data []byte) ([]Operation, error) {
	spec, err := im.load(ctx, data)
	if err != nil {
		return nil, err
	}
	var out []Operation
	walkOperations(spec, func(op *openapi3.Operation, info Operation) bool {
		out = append(out, info)
		return true
	})
	return out, nil
}

func (im *Importer) load(ctx context.Context, data []byte) (*openapi3.T, error) {
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: im.externalRefs,
	}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if im.validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate: %w", err)
		}
	}
	return spec, nil
}

func walkOperations(spec *openapi3.T, visit func(*openapi3.Operation, Operation) bool) {
	if spec.Paths == nil {
		return
	}
	items := spec.Paths.Map()
	paths := make([]string, 0, len(items))
	for path := range items {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := items[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for method := range ops {
			methods = append(methods, method)
		}
		sort.Strings(methods)
		for _, method := range methods {
			op := ops[method]
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			_, bodyErr := requestSchema(op)
			info := Operation{
				ID:             id,
				Method:         strings.ToUpper(method),
				Path:           path,
				Summary:        op.Summary,
				HasRequestBody: bodyErr == nil,
			}
			if !visit(op, info) {
				return
			}
		}
	}
}

func findOperation(spec *openapi3.T, operationID string) (*openapi3.Operation, Operation, error) {
	var (
		found     *openapi3.Operation
		foundInfo Operation
		withBody  int
	)
	walkOperations(spec, func(op *openapi3.Operation, info Operation) bool {
		if operationID == "" {
			if info.HasRequestBody {
				withBody++
				found, foundInfo = op, info
			}
			return true
		}
		if info.ID == operationID {
			found, foundInfo = op, info
			return false
		}
		return true
	})

	switch {
	case operationID == "" && withBody == 1:
		return found, foundInfo, nil
	case operationID == "" && withBody > 1:
		return nil, Operation{}, fmt.Errorf("%w: operation id required, %d operations accept a request body", ErrOperationNotFound, withBody)
	case found == nil:
		return nil, Operation{}, fmt.Errorf("%w: %q", ErrOperationNotFound, operationID)
	}
	return found, foundInfo, nil
}

func requestSchema(op *openapi3.Operation) (*openapi3.SchemaRef, error) {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil, ErrNoRequestBody
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range preferredMediaTypes {
		if mt, ok := content[mediaType]; ok && mt != nil && mt.Schema != nil {
			return mt.Schema, nil
		}
	}
	names := make([]string, 0, len(content))
	for name := range content {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if mt := content[name]; mt != nil && mt.Schema != nil {
			return mt.Schema, nil
		}
	}
	return nil, ErrNoRequestBody
}
