package template

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avasilyev/mailsmith/internal/identity"
	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T, repo *fakeRepo, userID string) *chi.Mux {
	t.Helper()
	cat, err := NewCatalog(testAssets(), repo)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	h := NewHandler(cat)

	r := chi.NewRouter()
	if userID != "" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(identity.WithIdentity(req.Context(), userID, "tab-1")))
			})
		})
	}
	h.RegisterRoutes(r)
	return r
}

func TestListTemplatesEndpoint(t *testing.T) {
	r := newTestRouter(t, &fakeRepo{}, "u1")

	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var entries []Entry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Source != SourceStock {
		t.Errorf("first entry source = %q", entries[0].Source)
	}
}

func TestListTemplatesUnauthorized(t *testing.T) {
	r := newTestRouter(t, &fakeRepo{}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRegisterTemplateEndpoint(t *testing.T) {
	r := newTestRouter(t, &fakeRepo{}, "u1")

	body := `{"name": "Promo.html", "url": "https://cdn.example/p.html"}`
	req := httptest.NewRequest(http.MethodPost, "/api/templates", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	// Registering the same name again conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/templates", strings.NewReader(body))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestRegisterTemplateStockNameConflicts(t *testing.T) {
	r := newTestRouter(t, &fakeRepo{}, "u1")

	body := `{"name": "Alpha.html", "url": "https://cdn.example/a.html"}`
	req := httptest.NewRequest(http.MethodPost, "/api/templates", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestServeStockTemplate(t *testing.T) {
	r := newTestRouter(t, &fakeRepo{}, "u1")

	req := httptest.NewRequest(http.MethodGet, "/templates/Beta%20Launch.html", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if w.Body.String() != "<html>beta</html>" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestServeCustomTemplateRedirects(t *testing.T) {
	repo := &fakeRepo{}
	r := newTestRouter(t, repo, "u1")

	body := `{"name": "Promo.html", "url": "https://cdn.example/p.html"}`
	req := httptest.NewRequest(http.MethodPost, "/api/templates", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/templates/Promo.html", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://cdn.example/p.html" {
		t.Errorf("location = %q", loc)
	}
}

func TestServeUnknownTemplate(t *testing.T) {
	r := newTestRouter(t, &fakeRepo{}, "u1")

	req := httptest.NewRequest(http.MethodGet, "/templates/Missing.html", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
