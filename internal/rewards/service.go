// Package rewards implements the point-transfer business logic: posting
// transactions between users and deriving balances from the transaction set.
package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/dundermifflin/dundie-api/internal/models"
	"github.com/dundermifflin/dundie-api/internal/storage"
)

// ErrInvalidAmount rejects zero or negative transfer values.
var ErrInvalidAmount = errors.New("transaction value must be a positive integer")

// Service posts point transfers and answers balance queries. The two share
// the same sum-over-transactions definition of balance, so write-time checks
// and read results can never diverge.
type Service struct {
	store storage.TransactionStore
}

// NewService constructs the rewards service over a transaction store.
func NewService(store storage.TransactionStore) *Service {
	return &Service{store: store}
}

// Post records a transfer of value points from sender to recipient. Both
// users are assumed resolved by the caller. Non-superuser senders must have
// a balance covering the value; that check runs atomically with the insert
// inside the store, so concurrent posts cannot both spend the same points.
// Superusers are the point-issuing authority and are exempt.
func (s *Service) Post(ctx context.Context, recipient, sender models.User, value int64) (models.Transaction, error) {
	if value <= 0 {
		return models.Transaction{}, ErrInvalidAmount
	}

	t := models.Transaction{
		UserID: recipient.ID,
		FromID: sender.ID,
		Value:  value,
	}
	created, err := s.store.CreateTransaction(ctx, t, !sender.Superuser())
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) {
			return models.Transaction{}, err
		}
		return models.Transaction{}, fmt.Errorf("post transaction: %w", err)
	}
	return created, nil
}

// Balance returns the user's net points: sum of received values minus sum of
// sent values, 0 when the user has no transactions.
func (s *Service) Balance(ctx context.Context, user models.User) (int64, error) {
	balance, err := s.store.Balance(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("balance for %s: %w", user.Username, err)
	}
	return balance, nil
}

// List returns a page of transactions matching the filter. Non-superuser
// viewers only see transactions they are a party to.
func (s *Service) List(ctx context.Context, viewer models.User, f storage.TransactionFilter) ([]storage.TransactionRecord, int64, error) {
	if !viewer.Superuser() {
		f.PartyID = &viewer.ID
	}
	return s.store.ListTransactions(ctx, f)
}
