package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/metrics"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/money"
	"github.com/erazemk/holdfolio/internal/store"
)

// ItemsHandler handles item and usage endpoints.
type ItemsHandler struct {
	DB  *sql.DB
	Now func() time.Time
}

type itemRequest struct {
	Name       string `json:"name"`
	AcquiredAt string `json:"acquiredAt"`
	EndedAt    string `json:"endedAt"`
	// Cost is a human money string such as "$1,249.00". CostCents wins when set.
	Cost      string `json:"cost"`
	CostCents *int64 `json:"costCents"`
}

func (req itemRequest) validate() (store.ItemInput, error) {
	cost := req.Cost
	if req.CostCents != nil {
		cost = money.FormatInput(*req.CostCents)
	}
	return store.ValidateItemInput(req.Name, req.AcquiredAt, req.EndedAt, cost)
}

type logUseRequest struct {
	UsedAt   string `json:"usedAt"`
	Quantity *int   `json:"quantity"`
}

type itemsResponse struct {
	AsOf   string          `json:"asOf"`
	Items  []model.ItemRow `json:"items"`
	Totals model.Totals    `json:"totals"`
}

// List handles GET /api/items?asOf=YYYY-MM-DD.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	asOf, ok := asOfParam(r, h.Now())
	if !ok {
		jsonError(w, http.StatusBadRequest, "asOf must be a YYYY-MM-DD date")
		return
	}

	items, err := store.ListItemsWithMetrics(r.Context(), h.DB, claims.UserID, asOf)
	if err != nil {
		slog.Error("listing items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	rows, totals := metrics.Summarize(items, asOf)
	jsonResponse(w, http.StatusOK, itemsResponse{AsOf: day.Format(asOf), Items: rows, Totals: totals})
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := req.validate()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, claims.UserID, in)
	if err != nil {
		slog.Error("creating item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	slog.Info("item created", "user", claims.UserID, "item", item.ID)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	item, err := store.GetItem(r.Context(), h.DB, claims.UserID, id)
	if err != nil {
		slog.Error("getting item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	uses, err := store.ListItemUses(r.Context(), h.DB, claims.UserID, id)
	if err != nil {
		slog.Error("listing item uses", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item uses")
		return
	}
	if uses == nil {
		uses = []model.ItemUse{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"item": item,
		"uses": uses,
	})
}

// Update handles PUT /api/items/{id}. Unknown or foreign ids succeed with
// zero rows updated.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in, err := req.validate()
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := store.UpdateItem(r.Context(), h.DB, claims.UserID, id, in)
	if err != nil {
		slog.Error("updating item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	slog.Info("item updated", "user", claims.UserID, "item", id, "rows", n)
	jsonResponse(w, http.StatusOK, map[string]int64{"updated": n})
}

// Delete handles DELETE /api/items/{id}. Unknown or foreign ids succeed with
// zero rows deleted.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	n, err := store.DeleteItem(r.Context(), h.DB, claims.UserID, id)
	if err != nil {
		slog.Error("deleting item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	slog.Info("item deleted", "user", claims.UserID, "item", id, "rows", n)
	jsonResponse(w, http.StatusOK, map[string]int64{"deleted": n})
}

// LogUse handles POST /api/items/{id}/uses. usedAt defaults to today and
// quantity to 1.
func (h *ItemsHandler) LogUse(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	id := r.PathValue("id")

	var req logUseRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.UsedAt == "" {
		req.UsedAt = day.Today(h.Now())
	} else if !day.Valid(req.UsedAt) {
		jsonError(w, http.StatusBadRequest, "usedAt must be a YYYY-MM-DD date")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	use, err := store.LogUse(r.Context(), h.DB, claims.UserID, id, req.UsedAt, quantity)
	switch {
	case errors.Is(err, store.ErrInvalid):
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrUnknownItem):
		jsonError(w, http.StatusNotFound, "item not found")
		return
	case err != nil:
		slog.Error("logging use", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to log use")
		return
	}

	slog.Info("use logged", "user", claims.UserID, "item", id, "quantity", quantity)
	jsonResponse(w, http.StatusCreated, use)
}
