package web

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/erazemk/holdfolio/internal/auth"
	"github.com/erazemk/holdfolio/internal/store"
)

type webContextKey string

const webClaimsKey webContextKey = "webclaims"

const (
	tokenCookie = "token"
	flashCookie = "flash"
)

// CookieAuthMiddleware validates JWT from cookie, checks token revocation,
// and adds claims to context.
func CookieAuthMiddleware(secret string, db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(tokenCookie)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			claims, err := auth.ValidateToken(secret, cookie.Value)
			if err != nil {
				clearAuthCookie(w)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			revoked, err := store.IsTokenRevoked(r.Context(), db, claims.ID)
			if err != nil {
				slog.Error("failed to check token revocation", "error", err)
				clearAuthCookie(w)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if revoked {
				clearAuthCookie(w)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), webClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func setAuthCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	})
}

// clearAuthCookie clears the authentication cookie with consistent attributes.
func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetWebClaims retrieves the JWT claims from web context.
func GetWebClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(webClaimsKey).(*auth.Claims)
	return claims
}

// setFlash stores a one-shot message shown on the next rendered page.
func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// popFlash returns and clears the pending flash message.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}
