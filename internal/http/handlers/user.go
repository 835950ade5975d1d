package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/dundermifflin/dundie-api/internal/http/respond"
	"github.com/dundermifflin/dundie-api/internal/middleware"
	"github.com/dundermifflin/dundie-api/internal/models"
	"github.com/dundermifflin/dundie-api/internal/models/dto"
	"github.com/dundermifflin/dundie-api/internal/rewards"
	"github.com/dundermifflin/dundie-api/internal/storage"
)

const defaultCurrency = "USD"

// UserHandler owns the user management and balance endpoints.
type UserHandler struct {
	store   storage.UserStore
	rewards *rewards.Service
	auth    *middleware.Authenticator
	log     *slog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(store storage.UserStore, svc *rewards.Service, auth *middleware.Authenticator, log *slog.Logger) *UserHandler {
	return &UserHandler{store: store, rewards: svc, auth: auth, log: log}
}

// Register attaches user routes to the mux. Reads are public; mutations and
// the balance endpoint require authentication.
func (h *UserHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /user", h.handleList)
	mux.HandleFunc("GET /user/{username}", h.handleGet)
	mux.HandleFunc("POST /user", h.auth.RequireUser(h.handleCreate))
	mux.HandleFunc("PATCH /user/{username}", h.auth.RequireUser(h.handlePatch))
	mux.HandleFunc("POST /user/{username}/password", h.auth.RequireUser(h.handlePassword))
	mux.HandleFunc("GET /user/{username}/balance", h.auth.RequireUser(h.handleBalance))
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.log.Error("list users failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		out = append(out, dto.NewUserResponse(user))
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.FindByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("get user failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}
	respond.JSON(w, http.StatusOK, dto.NewUserResponse(user))
}

func (h *UserHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	current, _ := middleware.UserFrom(r.Context())
	if !current.Superuser() {
		respond.Error(w, http.StatusForbidden, "Not authorized")
		return
	}

	var req dto.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Dept) == "" {
		respond.Error(w, http.StatusBadRequest, "name, email, and dept are required")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = models.GenerateUsername(req.Name)
	}
	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	created, err := h.store.CreateUser(r.Context(), models.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		Name:         strings.TrimSpace(req.Name),
		Dept:         strings.TrimSpace(req.Dept),
		Currency:     currency,
		Avatar:       req.Avatar,
		Bio:          req.Bio,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusConflict, "User with that email or username already exists")
			return
		}
		h.log.Error("create user failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	respond.JSON(w, http.StatusCreated, dto.NewUserResponse(created))
}

func (h *UserHandler) handlePatch(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	current, _ := middleware.UserFrom(r.Context())
	if current.Username != username && !current.Superuser() {
		respond.Error(w, http.StatusForbidden, "Not authorized")
		return
	}

	var req dto.UserPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Avatar == nil && req.Bio == nil {
		respond.Error(w, http.StatusBadRequest, "nothing to update")
		return
	}

	updated, err := h.store.UpdateProfile(r.Context(), username, req.Avatar, req.Bio)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("patch user failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	respond.JSON(w, http.StatusOK, dto.NewUserResponse(updated))
}

func (h *UserHandler) handlePassword(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	current, _ := middleware.UserFrom(r.Context())
	if current.Username != username && !current.Superuser() {
		respond.Error(w, http.StatusForbidden, "Not authorized")
		return
	}

	var req dto.PasswordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := h.store.UpdatePassword(r.Context(), username, passwordHash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("change password failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to change password")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (h *UserHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	current, _ := middleware.UserFrom(r.Context())
	if current.Username != username && !current.Superuser() {
		respond.Error(w, http.StatusForbidden, "Not authorized")
		return
	}

	user := current
	if current.Username != username {
		var err error
		user, err = h.store.FindByUsername(r.Context(), username)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				respond.Error(w, http.StatusNotFound, "User not found")
				return
			}
			h.log.Error("balance: fetch user failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
			return
		}
	}

	balance, err := h.rewards.Balance(r.Context(), user)
	if err != nil {
		h.log.Error("balance query failed", "username", username, "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	respond.JSON(w, http.StatusOK, dto.BalanceResponse{Username: user.Username, Balance: balance})
}

func validatePassword(password string) error {
	if len(strings.TrimSpace(password)) < 8 || !utf8.ValidString(password) {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
