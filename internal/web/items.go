package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/store"
)

// ItemCreateSubmit handles POST /items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	in, err := store.ValidateItemInput(
		r.FormValue("name"),
		r.FormValue("acquired_at"),
		r.FormValue("ended_at"),
		r.FormValue("cost"),
	)
	if err != nil {
		setFlash(w, "Item not saved: "+err.Error())
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	item, err := store.CreateItem(r.Context(), s.DB, claims.UserID, in)
	if err != nil {
		slog.Error("failed to create item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("item created", "user", claims.UserID, "item", item.ID)
	setFlash(w, fmt.Sprintf("Added %s.", item.Name))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ItemPage handles GET /items/{id}.
func (s *Server) ItemPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(w, r, "Item")
	s.renderItem(w, r, http.StatusOK, data)
}

func (s *Server) renderItem(w http.ResponseWriter, r *http.Request, status int, data PageData) {
	id := r.PathValue("id")

	item, err := store.GetItem(r.Context(), s.DB, data.User.UserID, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if item == nil {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}

	uses, err := store.ListItemUses(r.Context(), s.DB, data.User.UserID, id)
	if err != nil {
		slog.Error("failed to list item uses", "error", err)
	}

	data.Title = item.Name
	s.Templates.RenderStatus(w, status, "item.html", &struct {
		PageData
		Item  *model.Item
		Uses  []model.ItemUse
		Today string
	}{
		PageData: data,
		Item:     item,
		Uses:     uses,
		Today:    day.Today(s.Now()),
	})
}

// ItemUpdateSubmit handles POST /items/{id}.
func (s *Server) ItemUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	in, err := store.ValidateItemInput(
		r.FormValue("name"),
		r.FormValue("acquired_at"),
		r.FormValue("ended_at"),
		r.FormValue("cost"),
	)
	if err != nil {
		s.renderItem(w, r, http.StatusBadRequest, PageData{User: claims, Error: err.Error()})
		return
	}

	n, err := store.UpdateItem(r.Context(), s.DB, claims.UserID, id, in)
	if err != nil {
		slog.Error("failed to update item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("item updated", "user", claims.UserID, "item", id, "rows", n)
	setFlash(w, "Item saved.")
	http.Redirect(w, r, "/items/"+id, http.StatusSeeOther)
}

// ItemDeleteSubmit handles POST /items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	n, err := store.DeleteItem(r.Context(), s.DB, claims.UserID, id)
	if err != nil {
		slog.Error("failed to delete item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("item deleted", "user", claims.UserID, "item", id, "rows", n)
	if n > 0 {
		setFlash(w, "Item deleted.")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ItemUseSubmit handles POST /items/{id}/uses. An empty date means today and
// an empty quantity means 1.
func (s *Server) ItemUseSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	usedAt := r.FormValue("used_at")
	if usedAt == "" {
		usedAt = day.Today(s.Now())
	}

	quantity := 1
	if q := r.FormValue("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			setFlash(w, "Quantity must be a whole number.")
			http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
			return
		}
		quantity = n
	}

	if !day.Valid(usedAt) {
		setFlash(w, "Date must be YYYY-MM-DD.")
		http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
		return
	}

	_, err := store.LogUse(r.Context(), s.DB, claims.UserID, id, usedAt, quantity)
	switch {
	case errors.Is(err, store.ErrInvalid):
		setFlash(w, "Use not logged: "+err.Error())
	case errors.Is(err, store.ErrUnknownItem):
		http.Error(w, "item not found", http.StatusNotFound)
		return
	case err != nil:
		slog.Error("failed to log use", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	default:
		slog.Info("use logged", "user", claims.UserID, "item", id, "quantity", quantity)
		setFlash(w, fmt.Sprintf("Logged %d use(s) on %s.", quantity, usedAt))
	}

	http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
}

// redirectTarget returns the local page a form asked to return to, or the
// dashboard.
func redirectTarget(r *http.Request) string {
	next := r.FormValue("next")
	if len(next) > 1 && next[0] == '/' && next[1] != '/' && next[1] != '\\' {
		return next
	}
	return "/"
}
