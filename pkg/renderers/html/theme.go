package html

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
)

// StylesheetAsset is the theme asset key linked from the rendered form.
const StylesheetAsset = "html.stylesheet"

// PartialPrefix prefixes theme template keys that replace a control partial
// ("forms.input", "forms.select").
const PartialPrefix = "forms."

type themeContext struct {
	Name       string
	Variant    string
	Tokens     map[string]string
	Partials   map[string]string
	Stylesheet string
}

func resolveTheme(selector theme.ThemeSelector, name, variant string) (themeContext, error) {
	if selector == nil {
		return themeContext{}, nil
	}
	selection, err := selector.Select(name, variant)
	if err != nil {
		return themeContext{}, fmt.Errorf("html: select theme %q: %w", name, err)
	}
	if selection == nil || selection.Manifest == nil {
		return themeContext{}, nil
	}

	manifest := selection.Manifest
	ctx := themeContext{
		Name:     selection.Theme,
		Variant:  selection.Variant,
		Tokens:   mergeStrings(manifest.Tokens, nil),
		Partials: mergeStrings(manifest.Templates, nil),
	}
	prefix := manifest.Assets.Prefix
	files := mergeStrings(manifest.Assets.Files, nil)

	if v, ok := manifest.Variants[selection.Variant]; ok {
		ctx.Tokens = mergeStrings(ctx.Tokens, v.Tokens)
		ctx.Partials = mergeStrings(ctx.Partials, v.Templates)
		files = mergeStrings(files, v.Assets.Files)
		if v.Assets.Prefix != "" {
			prefix = v.Assets.Prefix
		}
	}
	if file := files[StylesheetAsset]; file != "" {
		ctx.Stylesheet = joinAsset(prefix, file)
	}
	return ctx, nil
}

// cssVars maps tokens to custom properties ("brand" becomes "--brand").
func (t themeContext) cssVars() map[string]string {
	if len(t.Tokens) == 0 {
		return nil
	}
	vars := make(map[string]string, len(t.Tokens))
	for key, value := range t.Tokens {
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		if !strings.HasPrefix(name, "--") {
			name = "--" + strings.ReplaceAll(name, ".", "-")
		}
		vars[name] = value
	}
	return vars
}

// style renders the custom properties as a deterministic inline style.
func (t themeContext) style() string {
	vars := t.cssVars()
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s;", key, vars[key]))
	}
	return strings.Join(parts, " ")
}

func (t themeContext) partial(control string) string {
	return t.Partials[PartialPrefix+control]
}

func mergeStrings(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func joinAsset(prefix, file string) string {
	if prefix == "" || strings.Contains(file, "://") || strings.HasPrefix(file, "/") {
		return file
	}
	return strings.TrimRight(prefix, "/") + "/" + file
}

// Themes is a fixed set of manifests served as a theme.ThemeSelector. Empty
// names and variants fall back to the defaults.
type Themes struct {
	mu             sync.RWMutex
	manifests      map[string]*theme.Manifest
	defaultTheme   string
	defaultVariant string
}

var _ theme.ThemeSelector = (*Themes)(nil)

// NewThemes registers manifests by name.
func NewThemes(defaultTheme, defaultVariant string, manifests ...*theme.Manifest) *Themes {
	t := &Themes{
		manifests:      make(map[string]*theme.Manifest, len(manifests)),
		defaultTheme:   defaultTheme,
		defaultVariant: defaultVariant,
	}
	for _, manifest := range manifests {
		t.Add(manifest)
	}
	return t
}

// Add registers or replaces a manifest.
func (t *Themes) Add(manifest *theme.Manifest) {
	if manifest == nil || manifest.Name == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.manifests[manifest.Name] = manifest
}

// Select implements theme.ThemeSelector.
func (t *Themes) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name == "" {
		name = t.defaultTheme
		if variant == "" {
			variant = t.defaultVariant
		}
	}
	if name == "" {
		return nil, nil
	}

	t.mu.RLock()
	manifest, ok := t.manifests[name]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("html: unknown theme %q", name)
	}
	if variant != "" {
		if _, ok := manifest.Variants[variant]; !ok {
			return nil, fmt.Errorf("html: theme %q has no variant %q", name, variant)
		}
	}
	return &theme.Selection{Theme: name, Variant: variant, Manifest: manifest}, nil
}
