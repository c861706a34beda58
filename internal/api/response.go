package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/holdfolio/internal/day"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// asOfParam reads the asOf query parameter, defaulting to today.
func asOfParam(r *http.Request, now time.Time) (time.Time, bool) {
	s := r.URL.Query().Get("asOf")
	if s == "" {
		return day.Truncate(now), true
	}
	t, err := day.Parse(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
