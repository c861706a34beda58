package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/holdfolio/internal/day"
	"github.com/erazemk/holdfolio/internal/importer"
)

type importPage struct {
	PageData
	Mode     string
	JSON     string
	Sample   string
	Problems []string
}

// ImportPage handles GET /import.
func (s *Server) ImportPage(w http.ResponseWriter, r *http.Request) {
	mode := importer.Mode(r.URL.Query().Get("mode"))
	if mode != importer.ModeReplace {
		mode = importer.ModeMerge
	}

	data := importPage{
		PageData: s.page(w, r, "Import"),
		Mode:     string(mode),
		Sample:   importer.Sample(mode),
	}
	if r.URL.Query().Get("sample") != "" {
		data.JSON = data.Sample
	}
	s.Templates.Render(w, "import.html", &data)
}

// ImportSubmit handles POST /import. The mode selected in the form overrides
// the document's own mode.
func (s *Server) ImportSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.ImportMaxBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "import document too large", http.StatusRequestEntityTooLarge)
		return
	}

	mode := importer.Mode(r.PostFormValue("mode"))
	if mode != importer.ModeReplace {
		mode = importer.ModeMerge
	}
	doc := r.PostFormValue("json")

	data := importPage{
		PageData: PageData{Title: "Import", User: claims},
		Mode:     string(mode),
		JSON:     doc,
		Sample:   importer.Sample(mode),
	}

	if strings.TrimSpace(doc) == "" {
		doc = "{}"
	}
	payload, err := importer.ParseBytes([]byte(doc))
	if err == nil {
		payload.Mode = mode
		var res importer.Result
		res, err = importer.Apply(r.Context(), s.DB, claims.UserID, payload, importer.Options{
			Today:     day.Today(s.Now()),
			BatchSize: s.ImportBatchSize,
		})
		if err == nil {
			s.Metrics.RecordImport(string(res.Mode), "ok", res.Uses)
			slog.Info("import applied",
				"user", claims.UserID,
				"mode", res.Mode,
				"created", res.Created,
				"updated", res.Updated,
				"deleted", res.Deleted,
				"uses", res.Uses,
			)
			setFlash(w, fmt.Sprintf("Import complete: %d created, %d updated, %d uses added.",
				res.Created, res.Updated, res.Uses))
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	var verr *importer.ValidationError
	if errors.As(err, &verr) {
		s.Metrics.RecordImport(string(mode), "invalid", 0)
		data.Error = "Import failed. Check JSON format."
		data.Problems = verr.Problems
		s.Templates.RenderStatus(w, http.StatusBadRequest, "import.html", &data)
		return
	}

	s.Metrics.RecordImport(string(mode), "error", 0)
	slog.Error("failed to apply import", "error", err)
	data.Error = "Import failed."
	s.Templates.RenderStatus(w, http.StatusInternalServerError, "import.html", &data)
}
