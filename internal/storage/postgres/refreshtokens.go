package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dundermifflin/dundie-api/internal/storage"
)

// CreateRefreshToken stores a server-side refresh token for the user.
func (s *Store) CreateRefreshToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, expires)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken looks up a stored refresh token.
func (s *Store) FindRefreshToken(ctx context.Context, token string) (storage.RefreshToken, error) {
	var rt storage.RefreshToken
	err := s.pool.QueryRow(ctx,
		`SELECT token, user_id, expires_at FROM refresh_tokens WHERE token = $1`, token).
		Scan(&rt.Token, &rt.UserID, &rt.Expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.RefreshToken{}, storage.ErrNotFound
		}
		return storage.RefreshToken{}, fmt.Errorf("find refresh token: %w", err)
	}
	return rt, nil
}

// RotateRefreshToken deletes the old token and stores the new one in a single
// transaction, so a token can only ever be rotated once. Returns the owning
// user id, or storage.ErrNotFound when the old token is unknown (already
// rotated or never issued).
func (s *Store) RotateRefreshToken(ctx context.Context, oldToken, newToken string, expires time.Time) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin rotation: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1 RETURNING user_id`, oldToken).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("delete refresh token: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		newToken, userID, expires)
	if err != nil {
		return 0, fmt.Errorf("insert rotated token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit rotation: %w", err)
	}
	return userID, nil
}
