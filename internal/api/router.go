package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/justinas/alice"
	"github.com/rs/cors"

	"github.com/erazemk/holdfolio/internal/importer"
	"github.com/erazemk/holdfolio/internal/observability"
	"github.com/erazemk/holdfolio/internal/store"
)

// Config carries what the API handlers need.
type Config struct {
	DB              *sql.DB
	JWTSecret       string
	TokenTTL        time.Duration
	AllowSignup     bool
	CORSOrigins     []string
	ImportMaxBytes  int64
	ImportBatchSize int
	DashboardDays   int
	Metrics         *observability.Provider
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ImportMaxBytes <= 0 {
		cfg.ImportMaxBytes = 5 << 20
	}
	if cfg.ImportBatchSize <= 0 {
		cfg.ImportBatchSize = importer.DefaultBatchSize
	}
	if cfg.DashboardDays <= 0 {
		cfg.DashboardDays = store.DefaultDays
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{
		DB:          cfg.DB,
		JWTSecret:   cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL,
		AllowSignup: cfg.AllowSignup,
	}
	itemsHandler := &ItemsHandler{DB: cfg.DB, Now: cfg.Now}
	dashboardHandler := &DashboardHandler{DB: cfg.DB, Days: cfg.DashboardDays, Now: cfg.Now}
	importHandler := &ImportHandler{
		DB:        cfg.DB,
		MaxBytes:  cfg.ImportMaxBytes,
		BatchSize: cfg.ImportBatchSize,
		Metrics:   cfg.Metrics,
		Now:       cfg.Now,
	}

	authed := alice.New(AuthMiddleware(cfg.JWTSecret, cfg.DB))

	// Public.
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", authed.ThenFunc(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed.ThenFunc(authHandler.ChangePassword))

	mux.Handle("GET /api/items", authed.ThenFunc(itemsHandler.List))
	mux.Handle("POST /api/items", authed.ThenFunc(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", authed.ThenFunc(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", authed.ThenFunc(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", authed.ThenFunc(itemsHandler.Delete))
	mux.Handle("POST /api/items/{id}/uses", authed.ThenFunc(itemsHandler.LogUse))

	mux.Handle("GET /api/dashboard", authed.ThenFunc(dashboardHandler.Get))
	mux.Handle("GET /api/usage/daily", authed.ThenFunc(dashboardHandler.Daily))

	mux.Handle("POST /api/import", authed.ThenFunc(importHandler.Import))
	mux.Handle("GET /api/export", authed.ThenFunc(importHandler.Export))

	chain := alice.New()
	if len(cfg.CORSOrigins) > 0 {
		chain = chain.Append(cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}).Handler)
	}
	return chain.Then(mux)
}
