package dto

import "time"

type TransactionCreateRequest struct {
	Value int64 `json:"value"`
}

// TransactionResponse carries usernames instead of raw ids, matching what
// API consumers display.
type TransactionResponse struct {
	ID       int64     `json:"id"`
	Value    int64     `json:"value"`
	Date     time.Time `json:"date"`
	User     string    `json:"user"`
	FromUser string    `json:"from_user"`
}

// Page is the pagination envelope for list endpoints.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Pages int64 `json:"pages"`
}
