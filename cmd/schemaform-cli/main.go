package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/goliatone/go-schemaform/pkg/document"
	"github.com/goliatone/go-schemaform/pkg/openapi"
	"github.com/goliatone/go-schemaform/pkg/orchestrator"
	"github.com/goliatone/go-schemaform/pkg/render"
	"github.com/goliatone/go-schemaform/pkg/renderers/html"
	"github.com/goliatone/go-schemaform/pkg/renderers/tui"
	"github.com/goliatone/go-schemaform/pkg/schema"
	"github.com/goliatone/go-schemaform/pkg/widgets"
)

const (
	emitDescriptors = "descriptors"
	emitDefaults    = "defaults"
	emitHTML        = "html"
	emitTUI         = "tui"
)

func main() {
	schemaPath := flag.String("schema", "", "form document (.yaml, .yml, .json or .cue)")
	openapiSource := flag.String("openapi", "", "OpenAPI document path or URL")
	operation := flag.String("operation", "", "operation ID to import (optional when only one operation has a body)")
	mode := flag.String("mode", "", "mode: create, edit or readonly")
	output := flag.String("output", "", "output file (stdout if empty)")
	emit := flag.String("emit", emitDescriptors, "what to emit: descriptors, defaults, html or tui")
	presetPath := flag.String("preset", "", "optional preset file patching descriptors by full key")
	valuesPath := flag.String("values", "", "optional JSON file with values to prefill")
	tuiFormat := flag.String("tui-format", string(tui.OutputFormatJSON), "tui output format: json, form or pretty")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if (*schemaPath == "") == (*openapiSource == "") {
		log.Fatalf("exactly one of -schema or -openapi is required")
	}
	formMode, ok := schema.ParseMode(*mode)
	if !ok && *mode != "" {
		log.Printf("unknown mode %q, using base attributes", *mode)
	}

	controls := widgets.NewRegistry()
	htmlRenderer, err := html.New(html.WithWidgetRegistry(controls))
	if err != nil {
		log.Fatalf("html renderer: %v", err)
	}
	registry := render.NewRegistry(
		htmlRenderer,
		tui.New(tui.WithWidgetRegistry(controls), tui.WithOutputFormat(tui.OutputFormat(*tuiFormat))),
	)

	options := []orchestrator.Option{
		orchestrator.WithRegistry(registry),
		orchestrator.WithWidgetRegistry(controls),
	}
	if *presetPath != "" {
		preset, err := orchestrator.NewPresetTransformerFromFS(os.DirFS(filepath.Dir(*presetPath)), filepath.Base(*presetPath))
		if err != nil {
			log.Fatalf("load preset: %v", err)
		}
		options = append(options, orchestrator.WithTransformer(preset))
	}
	gen := orchestrator.New(options...)

	req := orchestrator.Request{Mode: formMode}
	if *schemaPath != "" {
		doc, err := loadDocument(*schemaPath)
		if err != nil {
			log.Fatalf("load schema: %v", err)
		}
		req.Document = &doc
	} else {
		loader := openapi.NewLoader(openapi.WithHTTPFallback(30 * time.Second))
		data, err := loader.Load(ctx, *openapiSource)
		if err != nil {
			log.Fatalf("load openapi: %v", err)
		}
		req.OpenAPI = data
		req.Operation = *operation
	}
	if *valuesPath != "" {
		values, err := loadValues(*valuesPath)
		if err != nil {
			log.Fatalf("load values: %v", err)
		}
		req.RenderOptions.Values = values
	}

	out, err := generate(ctx, gen, req, *emit)
	if err != nil {
		log.Fatalf("Failed to generate form: %v", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, out, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Form written to %s\n", *output)
		return
	}
	fmt.Println(string(out))
}

func generate(ctx context.Context, gen *orchestrator.Orchestrator, req orchestrator.Request, emit string) ([]byte, error) {
	switch emit {
	case emitDescriptors, emitDefaults:
		form, err := gen.Build(ctx, req)
		if err != nil {
			return nil, err
		}
		if emit == emitDefaults {
			return json.MarshalIndent(form.Defaults, "", "  ")
		}
		return json.MarshalIndent(form.Fields, "", "  ")
	case emitHTML, emitTUI:
		req.Renderer = emit
		return gen.Generate(ctx, req)
	default:
		return nil, fmt.Errorf("unknown -emit %q", emit)
	}
}

func loadDocument(path string) (document.Document, error) {
	format, ok := document.FormatFromPath(path)
	if !ok {
		return document.Document{}, fmt.Errorf("unsupported document extension: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, err
	}
	return document.NewDecoder().Decode(data, format, document.SourceFromFile(path))
}

func loadValues(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}
