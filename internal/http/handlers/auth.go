package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dundermifflin/dundie-api/internal/auth"
	"github.com/dundermifflin/dundie-api/internal/http/respond"
	"github.com/dundermifflin/dundie-api/internal/models/dto"
	"github.com/dundermifflin/dundie-api/internal/storage"
)

// AuthHandler owns the token-issuing endpoints.
type AuthHandler struct {
	store  storage.Store
	tokens *auth.TokenManager
	log    *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(store storage.Store, tokens *auth.TokenManager, log *slog.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, log: log}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /token", h.handleToken)
	mux.HandleFunc("POST /refresh_token", h.handleRefreshToken)
}

func (h *AuthHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	identifier := strings.TrimSpace(req.Username)
	if identifier == "" || strings.TrimSpace(req.Password) == "" {
		respond.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.store.FindByUsernameOrEmail(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		h.log.Error("token: fetch user failed", "identifier", identifier, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respond.Error(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	accessToken, err := h.tokens.Generate(user)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	refreshToken, expires, err := h.tokens.NewRefreshToken()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	if err := h.store.CreateRefreshToken(r.Context(), user.ID, refreshToken, expires); err != nil {
		h.log.Error("token: store refresh token failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	respond.JSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	})
}

func (h *AuthHandler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		respond.Error(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	stored, err := h.store.FindRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		h.log.Error("refresh: lookup failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}
	if stored.Expires.Before(time.Now()) {
		respond.Error(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}

	newRefresh, expires, err := h.tokens.NewRefreshToken()
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}
	userID, err := h.store.RotateRefreshToken(r.Context(), req.RefreshToken, newRefresh, expires)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Token was rotated by a concurrent request between lookup and here.
			respond.Error(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		h.log.Error("refresh: rotation failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	user, err := h.store.FindByID(r.Context(), userID)
	if err != nil {
		h.log.Error("refresh: fetch user failed", "user_id", userID, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}
	accessToken, err := h.tokens.Generate(user)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	respond.JSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		TokenType:    "bearer",
	})
}
