package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dundermifflin/dundie-api/internal/models"
	"github.com/dundermifflin/dundie-api/internal/storage"
)

// memStore is an in-memory storage.Store used to test handlers without a
// database. CreateTransaction keeps the real store's atomicity: balance check
// and insert happen under one lock.
type memStore struct {
	mu            sync.Mutex
	nextUserID    int64
	nextTxID      int64
	users         map[string]models.User // by username
	transactions  []models.Transaction
	refreshTokens map[string]storage.RefreshToken
}

var _ storage.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]models.User),
		refreshTokens: make(map[string]storage.RefreshToken),
	}
}

func (m *memStore) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return models.User{}, storage.ErrAlreadyExists
		}
	}
	m.nextUserID++
	user.ID = m.nextUserID
	user.CreatedAt = time.Now()
	m.users[user.Username] = user
	return user, nil
}

func (m *memStore) FindByID(ctx context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *memStore) FindByUsername(ctx context.Context, username string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (m *memStore) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *memStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *memStore) UpdateProfile(ctx context.Context, username string, avatar, bio *string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	if avatar != nil {
		user.Avatar = *avatar
	}
	if bio != nil {
		user.Bio = *bio
	}
	m.users[username] = user
	return user, nil
}

func (m *memStore) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return storage.ErrNotFound
	}
	user.PasswordHash = passwordHash
	m.users[username] = user
	return nil
}

func (m *memStore) CreateTransaction(ctx context.Context, t models.Transaction, enforceSenderBalance bool) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enforceSenderBalance && m.balanceLocked(t.FromID) < t.Value {
		return models.Transaction{}, storage.ErrInsufficientBalance
	}
	m.nextTxID++
	t.ID = m.nextTxID
	t.CreatedAt = time.Now().Add(time.Duration(m.nextTxID) * time.Millisecond)
	m.transactions = append(m.transactions, t)
	return t, nil
}

func (m *memStore) Balance(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balanceLocked(userID), nil
}

func (m *memStore) balanceLocked(userID int64) int64 {
	var balance int64
	for _, t := range m.transactions {
		if t.UserID == userID {
			balance += t.Value
		}
		if t.FromID == userID {
			balance -= t.Value
		}
	}
	return balance
}

func (m *memStore) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]storage.TransactionRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := make(map[int64]string, len(m.users))
	for _, user := range m.users {
		byID[user.ID] = user.Username
	}

	var matched []storage.TransactionRecord
	for _, t := range m.transactions {
		rec := storage.TransactionRecord{
			ID:        t.ID,
			Value:     t.Value,
			CreatedAt: t.CreatedAt,
			User:      byID[t.UserID],
			FromUser:  byID[t.FromID],
		}
		if f.Recipient != "" && rec.User != f.Recipient {
			continue
		}
		if f.Sender != "" && rec.FromUser != f.Sender {
			continue
		}
		if f.PartyID != nil && t.UserID != *f.PartyID && t.FromID != *f.PartyID {
			continue
		}
		matched = append(matched, rec)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		for _, key := range f.OrderBy {
			var cmp int
			switch key.Field {
			case storage.SortByValue:
				cmp = int(matched[i].Value - matched[j].Value)
			default:
				cmp = strings.Compare(
					matched[i].CreatedAt.Format(time.RFC3339Nano),
					matched[j].CreatedAt.Format(time.RFC3339Nano))
			}
			if cmp == 0 {
				continue
			}
			if key.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (m *memStore) CreateRefreshToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshTokens[token] = storage.RefreshToken{UserID: userID, Token: token, Expires: expires}
	return nil
}

func (m *memStore) FindRefreshToken(ctx context.Context, token string) (storage.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.refreshTokens[token]
	if !ok {
		return storage.RefreshToken{}, storage.ErrNotFound
	}
	return rt, nil
}

func (m *memStore) RotateRefreshToken(ctx context.Context, oldToken, newToken string, expires time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.refreshTokens[oldToken]
	if !ok {
		return 0, storage.ErrNotFound
	}
	delete(m.refreshTokens, oldToken)
	m.refreshTokens[newToken] = storage.RefreshToken{UserID: rt.UserID, Token: newToken, Expires: expires}
	return rt.UserID, nil
}
