package api

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/importer"
	"github.com/erazemk/holdfolio/internal/observability"
)

// ImportHandler applies bulk JSON imports.
type ImportHandler struct {
	DB        *sql.DB
	MaxBytes  int64
	BatchSize int
	Metrics   *observability.Provider
	Now       func() time.Time
}

// Import handles POST /api/import. The body is the import document itself.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	body := http.MaxBytesReader(w, r.Body, h.MaxBytes)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		h.Metrics.RecordImport("", "invalid", 0)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, "import document too large")
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payload, err := importer.ParseBytes(data)
	if err != nil {
		h.writeImportError(w, "", err)
		return
	}

	res, err := importer.Apply(r.Context(), h.DB, claims.UserID, payload, importer.Options{
		Today:     day.Today(h.Now()),
		BatchSize: h.BatchSize,
	})
	if err != nil {
		h.writeImportError(w, string(payload.Mode), err)
		return
	}

	h.Metrics.RecordImport(string(res.Mode), "ok", res.Uses)
	slog.Info("import applied",
		"user", claims.UserID,
		"mode", res.Mode,
		"created", res.Created,
		"updated", res.Updated,
		"deleted", res.Deleted,
		"uses", res.Uses,
	)
	jsonResponse(w, http.StatusOK, res)
}

func (h *ImportHandler) writeImportError(w http.ResponseWriter, mode string, err error) {
	var verr *importer.ValidationError
	if errors.As(err, &verr) {
		h.Metrics.RecordImport(mode, "invalid", 0)
		jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":    "invalid import",
			"problems": verr.Problems,
		})
		return
	}

	h.Metrics.RecordImport(mode, "error", 0)
	slog.Error("applying import", "error", err)
	jsonError(w, http.StatusInternalServerError, "import failed")
}

// Export handles GET /api/export. The response is a replace-mode import
// document for the caller's items.
func (h *ImportHandler) Export(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	p, err := importer.Export(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("exporting items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export items")
		return
	}
	jsonResponse(w, http.StatusOK, p)
}
