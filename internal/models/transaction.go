package models

import "time"

// Transaction is an immutable record of a point transfer. UserID is the
// recipient (income side), FromID the sender (expense side). Rows are only
// ever inserted; balances are derived by summing over them.
type Transaction struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	FromID    int64     `json:"from_id"`
	Value     int64     `json:"value"`
	CreatedAt time.Time `json:"date"`
}
