package web

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/justinas/alice"

	"github.com/erazemk/holdfolio/internal/importer"
	"github.com/erazemk/holdfolio/internal/observability"
	"github.com/erazemk/holdfolio/internal/store"
	webembed "github.com/erazemk/holdfolio/web"
)

// Config carries what the page handlers need.
type Config struct {
	DB              *sql.DB
	JWTSecret       string
	TokenTTL        time.Duration
	AllowSignup     bool
	ImportMaxBytes  int64
	ImportBatchSize int
	DashboardDays   int
	Metrics         *observability.Provider
	Now             func() time.Time
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(cfg Config) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:              cfg.DB,
		Templates:       templates,
		JWTSecret:       cfg.JWTSecret,
		TokenTTL:        cfg.TokenTTL,
		AllowSignup:     cfg.AllowSignup,
		ImportMaxBytes:  cfg.ImportMaxBytes,
		ImportBatchSize: cfg.ImportBatchSize,
		DashboardDays:   cfg.DashboardDays,
		Metrics:         cfg.Metrics,
		Now:             cfg.Now,
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.ImportMaxBytes <= 0 {
		s.ImportMaxBytes = 5 << 20
	}
	if s.ImportBatchSize <= 0 {
		s.ImportBatchSize = importer.DefaultBatchSize
	}
	if s.DashboardDays <= 0 {
		s.DashboardDays = store.DefaultDays
	}

	mux := http.NewServeMux()
	authed := alice.New(CookieAuthMiddleware(cfg.JWTSecret, cfg.DB))

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("GET /signup", s.SignupPage)
	mux.HandleFunc("POST /signup", s.SignupSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", authed.ThenFunc(s.Dashboard))
	mux.Handle("GET /chart.png", authed.ThenFunc(s.Chart))

	mux.Handle("POST /items", authed.ThenFunc(s.ItemCreateSubmit))
	mux.Handle("GET /items/{id}", authed.ThenFunc(s.ItemPage))
	mux.Handle("POST /items/{id}", authed.ThenFunc(s.ItemUpdateSubmit))
	mux.Handle("POST /items/{id}/delete", authed.ThenFunc(s.ItemDeleteSubmit))
	mux.Handle("POST /items/{id}/uses", authed.ThenFunc(s.ItemUseSubmit))

	mux.Handle("GET /import", authed.ThenFunc(s.ImportPage))
	mux.Handle("POST /import", authed.ThenFunc(s.ImportSubmit))

	mux.Handle("GET /settings", authed.ThenFunc(s.SettingsPage))
	mux.Handle("POST /settings", authed.ThenFunc(s.SettingsSubmit))

	return mux, nil
}
