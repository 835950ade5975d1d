package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dundermifflin/dundie-api/internal/http/respond"
	"github.com/dundermifflin/dundie-api/internal/middleware"
	"github.com/dundermifflin/dundie-api/internal/models/dto"
	"github.com/dundermifflin/dundie-api/internal/rewards"
	"github.com/dundermifflin/dundie-api/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// TransactionHandler owns the point-transfer endpoints.
type TransactionHandler struct {
	users   storage.UserStore
	rewards *rewards.Service
	auth    *middleware.Authenticator
	log     *slog.Logger
}

// NewTransactionHandler constructs the handler.
func NewTransactionHandler(users storage.UserStore, svc *rewards.Service, auth *middleware.Authenticator, log *slog.Logger) *TransactionHandler {
	return &TransactionHandler{users: users, rewards: svc, auth: auth, log: log}
}

// Register attaches transaction routes to the mux. Both require auth.
func (h *TransactionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /transaction/{username}", h.auth.RequireUser(h.handleCreate))
	mux.HandleFunc("GET /transaction", h.auth.RequireUser(h.handleList))
}

func (h *TransactionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	sender, _ := middleware.UserFrom(r.Context())

	recipient, err := h.users.FindByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error("transaction: fetch recipient failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	var req dto.TransactionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if _, err := h.rewards.Post(r.Context(), recipient, sender, req.Value); err != nil {
		switch {
		case errors.Is(err, rewards.ErrInvalidAmount):
			respond.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrInsufficientBalance):
			respond.Error(w, http.StatusBadRequest, "Insufficient balance")
		default:
			h.log.Error("transaction post failed", "from", sender.Username, "to", recipient.Username, "error", err)
			respond.Error(w, http.StatusInternalServerError, "failed to add transaction")
		}
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{"message": "Transaction added"})
}

func (h *TransactionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	viewer, _ := middleware.UserFrom(r.Context())
	q := r.URL.Query()

	orderBy, err := parseOrderBy(q.Get("order_by"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	page := parsePositiveInt(q.Get("page"), 1)
	size := parsePositiveInt(q.Get("size"), defaultPageSize)
	if size > maxPageSize {
		size = maxPageSize
	}

	filter := storage.TransactionFilter{
		Recipient: strings.TrimSpace(q.Get("user")),
		Sender:    strings.TrimSpace(q.Get("from_user")),
		OrderBy:   orderBy,
		Limit:     size,
		Offset:    (page - 1) * size,
	}

	records, total, err := h.rewards.List(r.Context(), viewer, filter)
	if err != nil {
		h.log.Error("transaction list failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	items := make([]dto.TransactionResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, dto.TransactionResponse{
			ID:       rec.ID,
			Value:    rec.Value,
			Date:     rec.CreatedAt,
			User:     rec.User,
			FromUser: rec.FromUser,
		})
	}
	respond.JSON(w, http.StatusOK, dto.Page[dto.TransactionResponse]{
		Items: items,
		Total: total,
		Page:  page,
		Size:  size,
		Pages: (total + int64(size) - 1) / int64(size),
	})
}

// parseOrderBy parses a csv sort spec over {date,value}; a "-" prefix means
// descending, e.g. "date,-value".
func parseOrderBy(spec string) ([]storage.SortKey, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var keys []storage.SortKey
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := storage.SortKey{}
		if strings.HasPrefix(part, "-") {
			key.Desc = true
			part = part[1:]
		}
		switch storage.SortField(part) {
		case storage.SortByDate, storage.SortByValue:
			key.Field = storage.SortField(part)
		default:
			return nil, fmt.Errorf("unknown order_by field %q", part)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func parsePositiveInt(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
