package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/holdfolio/internal/auth"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/store"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &PageData{
		Title:       "Sign in",
		Success:     popFlash(w, r),
		AllowSignup: s.AllowSignup,
	})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	fail := func(msg string) {
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "login.html", &PageData{
			Title:       "Sign in",
			Error:       msg,
			AllowSignup: s.AllowSignup,
		})
	}

	if email == "" || password == "" {
		fail("Enter your email and password.")
		return
	}

	user, err := auth.Authenticate(r.Context(), s.DB, email, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		slog.Warn("login failed", "remote", r.RemoteAddr)
		fail("Wrong email or password.")
		return
	}
	if err != nil {
		slog.Error("logging in", "error", err)
		fail("Sign-in failed.")
		return
	}

	if !s.startSession(w, user) {
		fail("Sign-in failed.")
		return
	}

	slog.Info("user logged in", "user", user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignupPage handles GET /signup.
func (s *Server) SignupPage(w http.ResponseWriter, r *http.Request) {
	if !s.AllowSignup {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.Templates.Render(w, "signup.html", &PageData{Title: "Create account", AllowSignup: true})
}

// SignupSubmit handles POST /signup.
func (s *Server) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.AllowSignup {
		http.Error(w, "sign-up is disabled", http.StatusForbidden)
		return
	}

	fail := func(status int, msg string) {
		s.Templates.RenderStatus(w, status, "signup.html", &PageData{
			Title:       "Create account",
			Error:       msg,
			AllowSignup: true,
		})
	}

	if r.FormValue("password") != r.FormValue("confirm") {
		fail(http.StatusBadRequest, "Passwords do not match.")
		return
	}

	user, err := auth.Register(r.Context(), s.DB, r.FormValue("email"), r.FormValue("password"))
	switch {
	case errors.Is(err, store.ErrInvalid):
		fail(http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrEmailTaken):
		fail(http.StatusConflict, "That email is already registered.")
		return
	case err != nil:
		slog.Error("signing up", "error", err)
		fail(http.StatusInternalServerError, "Sign-up failed.")
		return
	}

	if !s.startSession(w, user) {
		fail(http.StatusInternalServerError, "Sign-up failed.")
		return
	}

	slog.Info("user signed up", "user", user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) startSession(w http.ResponseWriter, user *model.User) bool {
	token, err := auth.GenerateToken(s.JWTSecret, s.TokenTTL, user.ID, user.Email)
	if err != nil {
		slog.Error("generating token", "error", err)
		return false
	}
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	setAuthCookie(w, token, ttl)
	return true
}

// Logout handles POST /logout. The current token is revoked when valid.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(tokenCookie); err == nil && cookie.Value != "" {
		if claims, err := auth.ValidateToken(s.JWTSecret, cookie.Value); err == nil {
			expiresAt := time.Now().Add(auth.DefaultTokenTTL)
			if claims.ExpiresAt != nil {
				expiresAt = claims.ExpiresAt.Time
			}
			if err := store.RevokeToken(r.Context(), s.DB, claims.ID, expiresAt); err != nil {
				slog.Error("revoking token", "error", err)
			}
		}
	}

	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(w, r, "Settings")
	s.Templates.Render(w, "settings.html", &data)
}

// SettingsSubmit handles POST /settings (change own password).
func (s *Server) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	data := PageData{Title: "Settings", User: claims}

	current := r.FormValue("current_password")
	next := r.FormValue("new_password")
	if current == "" || next == "" {
		data.Error = "Enter your current and new password."
		s.Templates.RenderStatus(w, http.StatusBadRequest, "settings.html", &data)
		return
	}

	err := auth.ChangePassword(r.Context(), s.DB, claims.UserID, current, next)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		data.Error = "Current password is incorrect."
		s.Templates.RenderStatus(w, http.StatusBadRequest, "settings.html", &data)
		return
	case errors.Is(err, store.ErrInvalid):
		data.Error = err.Error()
		s.Templates.RenderStatus(w, http.StatusBadRequest, "settings.html", &data)
		return
	case err != nil:
		slog.Error("changing password", "error", err)
		data.Error = "Could not update password."
		s.Templates.RenderStatus(w, http.StatusInternalServerError, "settings.html", &data)
		return
	}

	slog.Info("user changed own password", "user", claims.UserID)
	data.Success = "Password changed."
	s.Templates.Render(w, "settings.html", &data)
}
