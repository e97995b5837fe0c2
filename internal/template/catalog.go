// Package template manages the email template catalog: the stock templates
// embedded in the binary plus per-user custom uploads registered by URL.
package template

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/avasilyev/mailsmith/internal/domain"
	"github.com/avasilyev/mailsmith/internal/store"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const manifestFile = "manifest.yaml"

var (
	// ErrNotFound indicates no stock or custom template matches the name.
	ErrNotFound = errors.New("template not found")

	// ErrNameTaken indicates a custom upload reuses a name already present
	// in the catalog, either a stock template or an earlier upload.
	ErrNameTaken = errors.New("template name already in use")
)

// Entry is one catalog listing. Stock entries are served from the embedded
// assets; custom entries resolve to the URL the user registered.
type Entry struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	URL    string `json:"url,omitempty"`
}

const (
	SourceStock  = "stock"
	SourceCustom = "custom"
)

type manifest struct {
	Templates []manifestEntry `yaml:"templates"`
}

type manifestEntry struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// Catalog lists and resolves templates. Stock entries come from an embedded
// filesystem described by a YAML manifest; custom entries live in the store.
type Catalog struct {
	assets fs.FS
	stock  []manifestEntry
	byName map[string]string
	repo   store.Repository
}

// NewCatalog parses the manifest from assets and verifies every listed file
// exists. The manifest order is the listing order.
func NewCatalog(assets fs.FS, repo store.Repository) (*Catalog, error) {
	raw, err := fs.ReadFile(assets, manifestFile)
	if err != nil {
		return nil, fmt.Errorf("read template manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse template manifest: %w", err)
	}
	if len(m.Templates) == 0 {
		return nil, errors.New("template manifest lists no templates")
	}

	byName := make(map[string]string, len(m.Templates))
	for _, e := range m.Templates {
		if e.Name == "" || e.File == "" {
			return nil, fmt.Errorf("template manifest entry missing name or file: %+v", e)
		}
		if _, dup := byName[e.Name]; dup {
			return nil, fmt.Errorf("template manifest lists %q twice", e.Name)
		}
		if _, err := fs.Stat(assets, e.File); err != nil {
			return nil, fmt.Errorf("template %q: %w", e.Name, err)
		}
		byName[e.Name] = e.File
	}

	return &Catalog{assets: assets, stock: m.Templates, byName: byName, repo: repo}, nil
}

// StockNames returns the stock template names in manifest order.
func (c *Catalog) StockNames() []string {
	names := make([]string, 0, len(c.stock))
	for _, e := range c.stock {
		names = append(names, e.Name)
	}
	return names
}

// List returns the full catalog for a user: stock templates in manifest
// order, then the user's custom uploads sorted by name.
func (c *Catalog) List(ctx context.Context, userID string) ([]Entry, error) {
	entries := make([]Entry, 0, len(c.stock))
	for _, e := range c.stock {
		entries = append(entries, Entry{Name: e.Name, Source: SourceStock})
	}

	custom, err := c.repo.ListCustomTemplates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list custom templates: %w", err)
	}
	sort.Slice(custom, func(i, j int) bool { return custom[i].Name < custom[j].Name })
	for _, t := range custom {
		entries = append(entries, Entry{Name: t.Name, Source: SourceCustom, URL: t.URL})
	}
	return entries, nil
}

// Register records a custom template for a user. Names must not collide with
// a stock template or a previous upload by the same user; the store's unique
// constraint backstops concurrent registrations.
func (c *Catalog) Register(ctx context.Context, userID, name, rawURL string) (*domain.CustomTemplate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("template name is required")
	}
	if _, isStock := c.byName[name]; isStock {
		return nil, fmt.Errorf("%q is a stock template: %w", name, ErrNameTaken)
	}

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid template url %q", rawURL)
	}

	tpl := &domain.CustomTemplate{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		URL:       u.String(),
		CreatedAt: time.Now(),
	}
	if err := c.repo.CreateCustomTemplate(ctx, tpl); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%q: %w", name, ErrNameTaken)
		}
		return nil, err
	}
	return tpl, nil
}

// Resolved is the outcome of a name lookup: stock HTML content, or the
// redirect URL of a custom template.
type Resolved struct {
	Name    string
	Content []byte
	URL     string
}

// Stock reports whether the resolved template is served from embedded assets.
func (r *Resolved) Stock() bool { return r.URL == "" }

// Resolve looks a template up by exact name, stock entries first. Returns
// ErrNotFound when neither the manifest nor the user's uploads match.
func (c *Catalog) Resolve(ctx context.Context, userID, name string) (*Resolved, error) {
	if file, ok := c.byName[name]; ok {
		content, err := fs.ReadFile(c.assets, file)
		if err != nil {
			return nil, fmt.Errorf("read stock template %q: %w", name, err)
		}
		return &Resolved{Name: name, Content: content}, nil
	}

	tpl, err := c.repo.GetCustomTemplate(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("lookup custom template: %w", err)
	}
	if tpl == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return &Resolved{Name: name, URL: tpl.URL}, nil
}
