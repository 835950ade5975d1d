package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dundermifflin/dundie-api/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict (email or username taken).
var ErrAlreadyExists = errors.New("record already exists")

// ErrInsufficientBalance indicates a debit would overdraw the sender. It is
// raised inside the posting transaction so the check and the insert see the
// same snapshot.
var ErrInsufficientBalance = errors.New("insufficient balance")

// SortField names a sortable transaction column.
type SortField string

const (
	SortByDate  SortField = "date"
	SortByValue SortField = "value"
)

// SortKey is one element of an order-by clause.
type SortKey struct {
	Field SortField
	Desc  bool
}

// TransactionFilter narrows and pages a transaction listing. Recipient and
// Sender filter by username when non-empty. PartyID, when non-nil, restricts
// results to transactions the given user is a party to (either side).
type TransactionFilter struct {
	Recipient string
	Sender    string
	PartyID   *int64
	OrderBy   []SortKey
	Limit     int
	Offset    int
}

// TransactionRecord is a listing row with usernames resolved on both sides.
type TransactionRecord struct {
	ID        int64
	Value     int64
	CreatedAt time.Time
	User      string
	FromUser  string
}

// RefreshToken is a server-stored opaque token enabling access-token renewal.
type RefreshToken struct {
	UserID  int64
	Token   string
	Expires time.Time
}

// UserStore captures user persistence operations needed by handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, username string, avatar, bio *string) (models.User, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
}

// TransactionStore persists point transfers and derives balances. When
// enforceSenderBalance is true, CreateTransaction must atomically verify the
// sender's balance covers the value and reject with ErrInsufficientBalance
// otherwise; the check and the insert happen in one transaction.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t models.Transaction, enforceSenderBalance bool) (models.Transaction, error)
	Balance(ctx context.Context, userID int64) (int64, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]TransactionRecord, int64, error)
}

// RefreshTokenStore persists rotating refresh tokens.
type RefreshTokenStore interface {
	CreateRefreshToken(ctx context.Context, userID int64, token string, expires time.Time) error
	// RotateRefreshToken atomically deletes the old token and stores the new
	// one; it returns ErrNotFound when the old token does not exist.
	RotateRefreshToken(ctx context.Context, oldToken, newToken string, expires time.Time) (int64, error)
	FindRefreshToken(ctx context.Context, token string) (RefreshToken, error)
}

// Store aggregates the persistence operations of the whole service.
type Store interface {
	UserStore
	TransactionStore
	RefreshTokenStore
}
