package template

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/avasilyev/mailsmith/internal/api"
	"github.com/avasilyev/mailsmith/internal/identity"
	"github.com/go-chi/chi/v5"
)

// Handler serves the template catalog over HTTP.
type Handler struct {
	catalog *Catalog
}

// NewHandler creates a template handler.
func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// RegisterRoutes registers catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/templates", h.ListTemplates)
	r.Post("/api/templates", h.RegisterTemplate)
	r.Get("/templates/{name}", h.ServeTemplate)
}

// ListTemplates handles GET /api/templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	entries, err := h.catalog.List(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to list templates", "user_id", userID, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to list templates")
		return
	}

	api.JSON(w, http.StatusOK, entries)
}

type registerTemplateRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RegisterTemplate handles POST /api/templates.
func (h *Handler) RegisterTemplate(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	var req registerTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tpl, err := h.catalog.Register(r.Context(), userID, req.Name, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, ErrNameTaken):
			api.Error(w, http.StatusConflict, err.Error())
		default:
			api.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	api.JSON(w, http.StatusCreated, tpl)
}

// ServeTemplate handles GET /templates/{name}: stock templates are served
// inline, custom templates redirect to their registered URL.
func (h *Handler) ServeTemplate(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	name := chi.URLParam(r, "name")
	// Stock names contain spaces; the router hands back the escaped segment.
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	resolved, err := h.catalog.Resolve(r.Context(), userID, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			api.Error(w, http.StatusNotFound, "template not found")
			return
		}
		slog.Error("Failed to resolve template", "name", name, "error", err)
		api.Error(w, http.StatusInternalServerError, "failed to resolve template")
		return
	}

	if !resolved.Stock() {
		http.Redirect(w, r, resolved.URL, http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resolved.Content); err != nil {
		slog.Debug("Failed to write template body", "name", name, "error", err)
	}
}
