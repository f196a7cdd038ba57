// Package handler contains the HTTP handlers: the server-rendered pages and
// the JSON endpoints. Handlers parse requests, call into the services and
// stores, and write responses — business rules live a layer down.
package handler

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/gitscope/internal/format"
)

// pageNames lists the page templates; each is parsed together with base.html
// into its own template set so every page can define its own "content" block.
var pageNames = []string{"home", "dashboard", "callback"}

// Renderer holds the parsed HTML templates, one set per page. Parsing happens
// once at startup; rendering is cheap.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses the page templates from templateDir. The template
// FuncMap exposes the formatting helpers the profile card needs.
func NewRenderer(templateDir string, logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"ensureScheme": format.EnsureScheme,
		"joinDate":     format.JoinDate,
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render executes the named page template with data. Template failures are
// logged and surface as a plain 500.
func (rd *Renderer) Render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := rd.pages[name]
	if !ok {
		rd.logger.Error("unknown page template", slog.String("name", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
