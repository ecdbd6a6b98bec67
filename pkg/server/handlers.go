package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-schemaform/pkg/initvalue"
	"github.com/goliatone/go-schemaform/pkg/orchestrator"
	"github.com/goliatone/go-schemaform/pkg/render"
	"github.com/goliatone/go-schemaform/pkg/schema"
	"github.com/goliatone/go-schemaform/pkg/store"
)

// errNotArray is reported when a row template is requested for a non-array.
var errNotArray = errors.New("server: field is not an array")

// FormPayload is the JSON shape of a built form.
type FormPayload struct {
	Name        string              `json:"name"`
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Mode        string              `json:"mode"`
	Fields      []schema.Descriptor `json:"fields"`
	Defaults    initvalue.Values    `json:"defaults"`
}

// RowPayload carries a fresh item template for an array.
type RowPayload struct {
	FullKey  string           `json:"fullKey"`
	Template initvalue.Values `json:"template"`
}

func newFormPayload(form render.Form) FormPayload {
	fields := form.Fields
	if fields == nil {
		fields = []schema.Descriptor{}
	}
	defaults := form.Defaults
	if defaults == nil {
		defaults = initvalue.Values{}
	}
	return FormPayload{
		Name:        form.Name,
		Title:       form.Title,
		Description: form.Description,
		Mode:        string(form.Mode),
		Fields:      fields,
		Defaults:    defaults,
	}
}

// parseMode maps ?mode= onto a mode. Unknown values fall back to the base
// attributes.
func parseMode(r *http.Request) schema.Mode {
	mode, _ := schema.ParseMode(r.URL.Query().Get("mode"))
	return mode
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	st := s.orch.Store()
	if st == nil {
		writeJSON(w, http.StatusOK, map[string]any{"forms": []string{}})
		return
	}
	names, err := st.List(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"forms": names})
}

func (s *Server) handleDescriptors(w http.ResponseWriter, r *http.Request) {
	form, err := s.orch.Build(r.Context(), orchestrator.Request{
		Name: chi.URLParam(r, "name"),
		Mode: parseMode(r),
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFormPayload(form))
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	form, err := s.orch.Build(r.Context(), orchestrator.Request{
		Name: chi.URLParam(r, "name"),
		Mode: parseMode(r),
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	defaults := form.Defaults
	if defaults == nil {
		defaults = initvalue.Values{}
	}
	writeJSON(w, http.StatusOK, defaults)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "renderer")
	renderer, err := s.orch.Registry().Get(name)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	query := r.URL.Query()
	out, err := s.orch.Generate(r.Context(), orchestrator.Request{
		Name:     chi.URLParam(r, "name"),
		Mode:     parseMode(r),
		Renderer: name,
		RenderOptions: render.RenderOptions{
			ThemeName:    query.Get("theme"),
			ThemeVariant: query.Get("variant"),
			Locale:       query.Get("locale"),
		},
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

func (s *Server) handleRow(w http.ResponseWriter, r *http.Request) {
	fullKey, err := url.PathUnescape(chi.URLParam(r, "fullKey"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_KEY", err.Error())
		return
	}
	form, err := s.orch.Build(r.Context(), orchestrator.Request{
		Name: chi.URLParam(r, "name"),
		Mode: parseMode(r),
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	row, err := rowTemplate(form, fullKey)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// rowTemplate returns a fresh item template for the array at fullKey. Keys may
// carry concrete row indexes for nested arrays.
func rowTemplate(form render.Form, fullKey string) (RowPayload, error) {
	field, ok := schema.Find(form.Fields, fullKey)
	if !ok {
		return RowPayload{}, fmt.Errorf("%w: field %q", store.ErrNotFound, fullKey)
	}
	if !field.IsArray() {
		return RowPayload{}, fmt.Errorf("%w: %q", errNotArray, fullKey)
	}
	return RowPayload{FullKey: fullKey, Template: initvalue.ItemTemplate(field)}, nil
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, render.ErrRendererNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, errNotArray):
		return http.StatusBadRequest, "NOT_ARRAY"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}
