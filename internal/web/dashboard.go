package web

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/holdfolio/internal/chart"
	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/metrics"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/store"
)

// asOf reads the asOf query parameter. Invalid or missing values fall back
// to today.
func (s *Server) asOf(r *http.Request) time.Time {
	if t, err := day.Parse(r.URL.Query().Get("asOf")); err == nil {
		return t
	}
	return day.Truncate(s.Now())
}

// Dashboard handles GET /.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := s.page(w, r, "Dashboard")
	asOf := s.asOf(r)

	items, err := store.ListItemsWithMetrics(r.Context(), s.DB, data.User.UserID, asOf)
	if err != nil {
		slog.Error("failed to list items for dashboard", "error", err)
		data.Error = "Could not load your items."
	}
	rows, totals := metrics.Summarize(items, asOf)

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		AsOf   string
		Today  string
		Days   int
		Rows   []model.ItemRow
		Totals model.Totals
	}{
		PageData: data,
		AsOf:     day.Format(asOf),
		Today:    day.Today(s.Now()),
		Days:     s.DashboardDays,
		Rows:     rows,
		Totals:   totals,
	})
}

// Chart handles GET /chart.png?asOf=YYYY-MM-DD.
func (s *Server) Chart(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	days, err := store.GetUsesByDay(r.Context(), s.DB, claims.UserID, s.asOf(r), s.DashboardDays)
	if err != nil {
		slog.Error("failed to load uses by day", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := chart.RenderUses(&buf, days, chart.Options{}); err != nil {
		slog.Error("failed to render chart", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to write chart response", "error", err)
	}
}
