package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-schemaform/pkg/initvalue"
	"github.com/goliatone/go-schemaform/pkg/render"
	"github.com/goliatone/go-schemaform/pkg/schema"
	"github.com/goliatone/go-schemaform/pkg/widgets"
)

// Renderer implements render.Renderer for terminal-driven sessions. It walks
// the form's descriptors, prompts for every visible scalar and returns the
// collected value tree.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	widgets           *widgets.Registry
	submitTransformer SubmitTransformer
	theme             Theme
}

// New constructs a TUI renderer with defaults (survey driver on the process
// terminal, JSON output, built-in controls).
func New(options ...Option) *Renderer {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		widgets:      widgets.NewRegistry(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = newSurveyDriver()
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render prompts for the form and serializes the collected values. Prompts
// start from the form defaults overlaid with options.Values.
func (r *Renderer) Render(ctx context.Context, form render.Form, options render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values, err := r.Collect(ctx, form, options)
	if err != nil {
		return nil, err
	}
	if r.submitTransformer != nil {
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return r.serialize(values)
}

// Collect runs the prompt session and returns the value tree without
// serializing it.
func (r *Renderer) Collect(ctx context.Context, form render.Form, options render.RenderOptions) (map[string]any, error) {
	state := NewState(form.State(options.Values), options.Errors)

	for _, message := range options.FormErrors {
		if err := r.warn(ctx, message); err != nil {
			return nil, err
		}
	}

	fields := r.widgets.Decorate(render.Localize(form.Fields, options))
	if err := r.promptFields(ctx, fields, state, nil); err != nil {
		return nil, err
	}
	return state.Values(), nil
}

func (r *Renderer) promptFields(ctx context.Context, fields []schema.Descriptor, state *State, index *int) error {
	for _, field := range fields {
		if err := r.promptField(ctx, field, state, index); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) promptField(ctx context.Context, field schema.Descriptor, state *State, index *int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !render.Visible(field, state.Values()) {
		return nil
	}
	if field.Render != nil {
		if out := field.Render(field, index); out != nil {
			return r.driver.Info(ctx, fmt.Sprint(out))
		}
		return nil
	}
	for _, message := range state.ErrorsFor(field.FullKey) {
		if err := r.warn(ctx, fmt.Sprintf("%s: %s", displayLabel(field), message)); err != nil {
			return err
		}
	}

	switch field.Kind {
	case schema.KindObject:
		if field.Label != "" {
			if err := r.info(ctx, field.Label); err != nil {
				return err
			}
		}
		return r.promptFields(ctx, field.Children, state, index)
	case schema.KindArray:
		return r.promptArray(ctx, field, state)
	}

	switch field.Control {
	case widgets.ControlCheckbox:
		return r.promptBoolean(ctx, field, state)
	case widgets.ControlNumber:
		return r.promptNumber(ctx, field, state)
	case widgets.ControlSelect:
		return r.promptSelect(ctx, field, state)
	default:
		return r.promptString(ctx, field, state)
	}
}

func (r *Renderer) promptString(ctx context.Context, field schema.Descriptor, state *State) error {
	label := displayLabel(field)
	rules := collectValidationRules(field)
	defaultVal := currentString(state, field.FullKey)

	for {
		cfg := InputConfig{
			Message:     label,
			Default:     defaultVal,
			Help:        field.Description,
			Placeholder: propString(field.ControlProps, "placeholder"),
		}

		var (
			response string
			err      error
		)
		switch field.Control {
		case widgets.ControlPassword:
			response, err = r.driver.Password(ctx, cfg)
		case widgets.ControlTextarea:
			response, err = r.driver.TextArea(ctx, TextAreaConfig{
				Message: label,
				Default: defaultVal,
				Help:    field.Description,
			})
		default:
			response, err = r.driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}

		if !rules.required && strings.TrimSpace(response) == "" {
			return state.SetValue(field.FullKey, response)
		}
		if err := rules.validateString(response); err != nil {
			if werr := r.warn(ctx, fmt.Sprintf("Invalid %s: %v", field.FullKey, err)); werr != nil {
				return werr
			}
			continue
		}
		return state.SetValue(field.FullKey, response)
	}
}

func (r *Renderer) promptBoolean(ctx context.Context, field schema.Descriptor, state *State) error {
	defaultVal := false
	if v, ok := state.GetValue(field.FullKey); ok {
		defaultVal, _ = v.(bool)
	}
	resp, err := r.driver.Confirm(ctx, ConfirmConfig{
		Message: displayLabel(field),
		Default: defaultVal,
		Help:    field.Description,
	})
	if err != nil {
		return err
	}
	return state.SetValue(field.FullKey, resp)
}

func (r *Renderer) promptNumber(ctx context.Context, field schema.Descriptor, state *State) error {
	rules := collectValidationRules(field)
	integer := isIntegerField(field, state)

	defaultStr := ""
	if v, ok := state.GetValue(field.FullKey); ok && v != nil {
		defaultStr = fmt.Sprint(v)
	}

	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message: displayLabel(field),
			Default: defaultStr,
			Help:    field.Description,
		})
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			if rules.required {
				if err := r.warn(ctx, fmt.Sprintf("Invalid %s: required", field.FullKey)); err != nil {
					return err
				}
				continue
			}
			return state.SetValue(field.FullKey, nil)
		}

		var parsed any
		if integer {
			i, err := strconv.ParseInt(input, 10, 64)
			if err != nil {
				if werr := r.warn(ctx, fmt.Sprintf("Invalid %s: %v", field.FullKey, err)); werr != nil {
					return werr
				}
				continue
			}
			parsed = i
		} else {
			f, err := strconv.ParseFloat(input, 64)
			if err != nil {
				if werr := r.warn(ctx, fmt.Sprintf("Invalid %s: %v", field.FullKey, err)); werr != nil {
					return werr
				}
				continue
			}
			parsed = f
		}

		if err := rules.validateNumber(parsed); err != nil {
			if werr := r.warn(ctx, fmt.Sprintf("Invalid %s: %v", field.FullKey, err)); werr != nil {
				return werr
			}
			continue
		}
		return state.SetValue(field.FullKey, parsed)
	}
}

func (r *Renderer) promptSelect(ctx context.Context, field schema.Descriptor, state *State) error {
	raw := selectOptions(field)
	if len(raw) == 0 {
		return fmt.Errorf("%w: %s", ErrNoOptions, field.FullKey)
	}
	options := make([]string, len(raw))
	for i, option := range raw {
		options[i] = fmt.Sprint(option)
	}

	defaultIdx := -1
	if v, ok := state.GetValue(field.FullKey); ok && v != nil {
		defaultIdx = indexOf(options, fmt.Sprint(v))
	}

	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      displayLabel(field),
			Options:      options,
			DefaultIndex: defaultIdx,
			Help:         field.Description,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(options) {
			if err := r.warn(ctx, fmt.Sprintf("Invalid %s selection", field.FullKey)); err != nil {
				return err
			}
			continue
		}
		// Store the declared option so numbers stay numbers.
		return state.SetValue(field.FullKey, raw[idx])
	}
}

// promptArray revisits existing rows, then offers to append rows seeded from
// a fresh item template. Children are bound to each row index before they are
// prompted.
func (r *Renderer) promptArray(ctx context.Context, field schema.Descriptor, state *State) error {
	label := displayLabel(field)
	rules := collectValidationRules(field)

	if _, ok := state.GetValue(field.FullKey); !ok {
		if err := state.SetValue(field.FullKey, []any{}); err != nil {
			return err
		}
	}

	for row := 0; row < state.RowCount(field.FullKey); row++ {
		if err := r.promptRow(ctx, field, state, row); err != nil {
			return err
		}
	}

	for {
		count := state.RowCount(field.FullKey)
		message := fmt.Sprintf("Add row to %s?", label)
		if rules.minLen != nil && count < *rules.minLen {
			if err := r.info(ctx, fmt.Sprintf("%s needs at least %d rows", label, *rules.minLen)); err != nil {
				return err
			}
		} else if rules.maxLen != nil && count >= *rules.maxLen {
			return nil
		} else {
			add, err := r.driver.Confirm(ctx, ConfirmConfig{Message: message})
			if err != nil {
				return err
			}
			if !add {
				return nil
			}
		}

		rowKey := fmt.Sprintf("%s[%d]", field.FullKey, count)
		if err := state.SetValue(rowKey, initvalue.ItemTemplate(field)); err != nil {
			return err
		}
		if err := r.promptRow(ctx, field, state, count); err != nil {
			return err
		}
	}
}

func (r *Renderer) promptRow(ctx context.Context, field schema.Descriptor, state *State, row int) error {
	if err := r.info(ctx, fmt.Sprintf("%s%s #%d", r.theme.RowPrefix, displayLabel(field), row+1)); err != nil {
		return err
	}
	index := row
	for _, child := range field.Children {
		if err := r.promptField(ctx, child.AtRow(row), state, &index); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	if err := r.driver.Info(ctx, r.theme.InfoPrefix+msg); err != nil {
		return fmt.Errorf("tui: write message: %w", err)
	}
	return nil
}

func (r *Renderer) warn(ctx context.Context, msg string) error {
	if err := r.driver.Info(ctx, r.theme.ErrorPrefix+msg); err != nil {
		return fmt.Errorf("tui: write message: %w", err)
	}
	return nil
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func displayLabel(field schema.Descriptor) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Key
}

func currentString(state *State, fullKey string) string {
	if v, ok := state.GetValue(fullKey); ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

// isIntegerField treats a number control as integral when it declares a whole
// step or its current value is an integer.
func isIntegerField(field schema.Descriptor, state *State) bool {
	if step, ok := toFloat(field.ControlProps["step"]); ok {
		return step == float64(int64(step))
	}
	if v, ok := state.GetValue(field.FullKey); ok {
		switch v.(type) {
		case int, int32, int64:
			return true
		}
	}
	return false
}

func selectOptions(field schema.Descriptor) []any {
	switch options := field.ControlProps["options"].(type) {
	case []any:
		return options
	case []string:
		out := make([]any, len(options))
		for i, option := range options {
			out[i] = option
		}
		return out
	}
	return nil
}

func propString(props map[string]any, key string) string {
	value, _ := props[key].(string)
	return value
}

type validationRules struct {
	required bool
	min      *float64
	max      *float64
	minLen   *int
	maxLen   *int
	pattern  *regexp.Regexp
}

// collectValidationRules reads the constraint control props (min, max,
// minLength, maxLength, pattern) shared with the OpenAPI importer.
func collectValidationRules(field schema.Descriptor) validationRules {
	rules := validationRules{required: field.Required}
	props := field.ControlProps
	if v, ok := toFloat(props["min"]); ok {
		rules.min = &v
	}
	if v, ok := toFloat(props["max"]); ok {
		rules.max = &v
	}
	if v, ok := toFloat(props["minLength"]); ok {
		n := int(v)
		rules.minLen = &n
	}
	if v, ok := toFloat(props["maxLength"]); ok {
		n := int(v)
		rules.maxLen = &n
	}
	if expr := propString(props, "pattern"); expr != "" {
		if re, err := regexp.Compile(expr); err == nil {
			rules.pattern = re
		}
	}
	return rules
}

func (r validationRules) validateString(value string) error {
	if r.required && strings.TrimSpace(value) == "" {
		return errors.New("required")
	}
	if r.minLen != nil && len(value) < *r.minLen {
		return fmt.Errorf("min length %d", *r.minLen)
	}
	if r.maxLen != nil && len(value) > *r.maxLen {
		return fmt.Errorf("max length %d", *r.maxLen)
	}
	if r.pattern != nil && !r.pattern.MatchString(value) {
		return errors.New("does not match required pattern")
	}
	return nil
}

func (r validationRules) validateNumber(value any) error {
	v, ok := toFloat(value)
	if !ok {
		return fmt.Errorf("expected number, got %T", value)
	}
	if r.min != nil && v < *r.min {
		return fmt.Errorf("min %v", *r.min)
	}
	if r.max != nil && v > *r.max {
		return fmt.Errorf("max %v", *r.max)
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

// flatten writes scalars keyed by resolved full key ("tags[0].name").
func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, v[key], out)
		}
	case []any:
		for idx, val := range v {
			flatten(fmt.Sprintf("%s[%d]", prefix, idx), val, out)
		}
	case nil:
		out.Set(prefix, "")
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	writePretty(&b, "", values)
	return b.String()
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(v) {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			writePretty(b, next, v[key])
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
