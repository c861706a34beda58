package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/holdfolio/internal/auth"
	"github.com/erazemk/holdfolio/internal/money"
	"github.com/erazemk/holdfolio/internal/observability"
	webembed "github.com/erazemk/holdfolio/web"
)

// placeholder is shown for metrics that have no value.
const placeholder = "—"

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"cents":      money.FormatCents,
		"centsInput": money.FormatInput,
		"optCents": func(c *int64) string {
			if c == nil {
				return placeholder
			}
			return money.FormatCents(*c)
		},
		"optInt": func(n *int) string {
			if n == nil {
				return placeholder
			}
			return strconv.Itoa(*n)
		},
		"optDate": func(s *string) string {
			if s == nil {
				return placeholder
			}
			return *s
		},
		"dateInput": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"signup.html",
		"dashboard.html",
		"item.html",
		"import.html",
		"settings.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with an explicit status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title       string
	User        *auth.Claims
	Error       string
	Success     string
	AllowSignup bool
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB              *sql.DB
	Templates       *Templates
	JWTSecret       string
	TokenTTL        time.Duration
	AllowSignup     bool
	ImportMaxBytes  int64
	ImportBatchSize int
	DashboardDays   int
	Metrics         *observability.Provider
	Now             func() time.Time
}

// page builds the base page data for an authenticated request.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	return PageData{
		Title:   title,
		User:    GetWebClaims(r.Context()),
		Success: popFlash(w, r),
	}
}
