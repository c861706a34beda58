package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/holdfolio/internal/auth"
	"github.com/erazemk/holdfolio/internal/model"
	"github.com/erazemk/holdfolio/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	DB          *sql.DB
	JWTSecret   string
	TokenTTL    time.Duration
	AllowSignup bool
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if !h.AllowSignup {
		jsonError(w, http.StatusForbidden, "sign-up is disabled")
		return
	}

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := auth.Register(r.Context(), h.DB, req.Email, req.Password)
	switch {
	case errors.Is(err, store.ErrInvalid):
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrEmailTaken):
		jsonError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		slog.Error("signing up", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, h.TokenTTL, user.ID, user.Email)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("user signed up", "user", user.ID)
	jsonResponse(w, http.StatusCreated, tokenResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := auth.Authenticate(r.Context(), h.DB, req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		slog.Warn("login failed", "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		slog.Error("logging in", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, h.TokenTTL, user.ID, user.Email)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	slog.Info("user logged in", "user", user.ID)
	jsonResponse(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	expiresAt := time.Now().Add(h.TokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, expiresAt); err != nil {
		slog.Error("revoking token", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	slog.Info("user logged out", "user", claims.UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}

	err := auth.ChangePassword(r.Context(), h.DB, claims.UserID, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	case errors.Is(err, store.ErrInvalid):
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.Error("changing password", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	slog.Info("user changed own password", "user", claims.UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
