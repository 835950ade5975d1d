package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dundermifflin/dundie-api/internal/models"
	"github.com/dundermifflin/dundie-api/internal/storage"
)

// balanceQuery is the single source of truth for a user's balance: the same
// sum backs both the read path and the write-time sufficiency check.
const balanceQuery = `
	SELECT COALESCE((SELECT SUM(value) FROM transactions WHERE user_id = $1), 0)
	     - COALESCE((SELECT SUM(value) FROM transactions WHERE from_id = $1), 0)`

// CreateTransaction inserts one immutable transfer row. With
// enforceSenderBalance set, it locks the sender's user row, recomputes the
// balance against that consistent snapshot, and rejects the insert with
// storage.ErrInsufficientBalance when the debit would overdraw. Two racing
// posts from the same sender therefore serialize on the row lock and at most
// one can spend the remaining budget.
func (s *Store) CreateTransaction(ctx context.Context, t models.Transaction, enforceSenderBalance bool) (models.Transaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if enforceSenderBalance {
		var senderID int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, t.FromID).Scan(&senderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.Transaction{}, storage.ErrNotFound
			}
			return models.Transaction{}, fmt.Errorf("lock sender: %w", err)
		}

		var balance int64
		if err := tx.QueryRow(ctx, balanceQuery, t.FromID).Scan(&balance); err != nil {
			return models.Transaction{}, fmt.Errorf("check sender balance: %w", err)
		}
		if balance < t.Value {
			return models.Transaction{}, storage.ErrInsufficientBalance
		}
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (user_id, from_id, value) VALUES ($1, $2, $3) RETURNING id, created_at`,
		t.UserID, t.FromID, t.Value).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Transaction{}, fmt.Errorf("commit transaction: %w", err)
	}
	return t, nil
}

// Balance derives the user's net points from all transactions. Users with no
// transactions have balance 0.
func (s *Store) Balance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	if err := s.pool.QueryRow(ctx, balanceQuery, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("compute balance: %w", err)
	}
	return balance, nil
}

// ListTransactions returns a page of transactions with usernames resolved on
// both sides, plus the total row count for the filter.
func (s *Store) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]storage.TransactionRecord, int64, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`
	SELECT t.id, t.value, t.created_at, u.username, f.username, COUNT(*) OVER ()
	FROM transactions t
	JOIN users u ON t.user_id = u.id
	JOIN users f ON t.from_id = f.id`)

	var conds []string
	if f.Recipient != "" {
		args = append(args, f.Recipient)
		conds = append(conds, fmt.Sprintf("u.username = $%d", len(args)))
	}
	if f.Sender != "" {
		args = append(args, f.Sender)
		conds = append(conds, fmt.Sprintf("f.username = $%d", len(args)))
	}
	if f.PartyID != nil {
		args = append(args, *f.PartyID)
		conds = append(conds, fmt.Sprintf("(t.user_id = $%d OR t.from_id = $%d)", len(args), len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString("\n\tWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	sb.WriteString("\n\tORDER BY ")
	sb.WriteString(orderClause(f.OrderBy))

	args = append(args, f.Limit)
	fmt.Fprintf(&sb, "\n\tLIMIT $%d", len(args))
	args = append(args, f.Offset)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var (
		records []storage.TransactionRecord
		total   int64
	)
	for rows.Next() {
		var rec storage.TransactionRecord
		if err := rows.Scan(&rec.ID, &rec.Value, &rec.CreatedAt, &rec.User, &rec.FromUser, &total); err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// orderClause maps sort keys to columns. Fields come from a fixed whitelist,
// never from user input directly.
func orderClause(keys []storage.SortKey) string {
	if len(keys) == 0 {
		return "t.id ASC"
	}
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		col := "t.created_at"
		if key.Field == storage.SortByValue {
			col = "t.value"
		}
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	return strings.Join(parts, ", ")
}
