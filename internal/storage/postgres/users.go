package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dundermifflin/dundie-api/internal/models"
	"github.com/dundermifflin/dundie-api/internal/storage"
)

const userColumns = `id, username, email, name, dept, currency, avatar, bio, password_hash, created_at`

// CreateUser inserts a new user row, mapping uniqueness violations on email
// or username to storage.ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
	INSERT INTO users (username, email, name, dept, currency, avatar, bio, password_hash)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.Name, user.Dept, user.Currency, user.Avatar, user.Bio, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindByID fetches a user by primary key.
func (s *Store) FindByID(ctx context.Context, id int64) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

// FindByUsername fetches a user by username.
func (s *Store) FindByUsername(ctx context.Context, username string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(s.pool.QueryRow(ctx, query, username))
}

// FindByUsernameOrEmail fetches the user matching the identifier as username
// or email, whichever hits first.
func (s *Store) FindByUsernameOrEmail(ctx context.Context, identifier string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1 LIMIT 1`
	return scanUser(s.pool.QueryRow(ctx, query, identifier))
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY username`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateProfile updates avatar and/or bio; nil fields are left untouched.
func (s *Store) UpdateProfile(ctx context.Context, username string, avatar, bio *string) (models.User, error) {
	const query = `
	UPDATE users
	SET avatar = COALESCE($2, avatar), bio = COALESCE($3, bio)
	WHERE username = $1
	RETURNING ` + userColumns
	return scanUser(s.pool.QueryRow(ctx, query, username, avatar, bio))
}

// UpdatePassword replaces the stored credential hash.
func (s *Store) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE username = $1`, username, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// EnsureAdmin inserts the seed management user if no row with the same
// username or email exists yet. Idempotent across restarts.
func (s *Store) EnsureAdmin(ctx context.Context, admin models.User) error {
	const query = `
	INSERT INTO users (username, email, name, dept, currency, password_hash)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT DO NOTHING`
	_, err := s.pool.Exec(ctx, query,
		admin.Username, admin.Email, admin.Name, admin.Dept, admin.Currency, admin.PasswordHash)
	if err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Name, &user.Dept,
		&user.Currency, &user.Avatar, &user.Bio, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
