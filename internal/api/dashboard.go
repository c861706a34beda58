package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/metrics"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/store"
)

// maxDays bounds the daily usage window a client may request.
const maxDays = 366

// DashboardHandler serves the aggregate views.
type DashboardHandler struct {
	DB   *sql.DB
	Days int
	Now  func() time.Time
}

type dashboardResponse struct {
	AsOf      string          `json:"asOf"`
	Items     []model.ItemRow `json:"items"`
	Totals    model.Totals    `json:"totals"`
	UsesByDay []model.DayUses `json:"usesByDay"`
}

// Get handles GET /api/dashboard?asOf=YYYY-MM-DD.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	asOf, ok := asOfParam(r, h.Now())
	if !ok {
		jsonError(w, http.StatusBadRequest, "asOf must be a YYYY-MM-DD date")
		return
	}

	items, err := store.ListItemsWithMetrics(r.Context(), h.DB, claims.UserID, asOf)
	if err != nil {
		slog.Error("listing item metrics", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	byDay, err := store.GetUsesByDay(r.Context(), h.DB, claims.UserID, asOf, h.Days)
	if err != nil {
		slog.Error("listing uses by day", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	rows, totals := metrics.Summarize(items, asOf)
	jsonResponse(w, http.StatusOK, dashboardResponse{
		AsOf:      day.Format(asOf),
		Items:     rows,
		Totals:    totals,
		UsesByDay: byDay,
	})
}

// Daily handles GET /api/usage/daily?asOf=YYYY-MM-DD&days=N.
func (h *DashboardHandler) Daily(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	asOf, ok := asOfParam(r, h.Now())
	if !ok {
		jsonError(w, http.StatusBadRequest, "asOf must be a YYYY-MM-DD date")
		return
	}

	days := h.Days
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxDays {
			jsonError(w, http.StatusBadRequest, "days must be between 1 and 366")
			return
		}
		days = n
	}

	byDay, err := store.GetUsesByDay(r.Context(), h.DB, claims.UserID, asOf, days)
	if err != nil {
		slog.Error("listing uses by day", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to load usage")
		return
	}
	jsonResponse(w, http.StatusOK, byDay)
}
