package models

import (
	"strings"
	"time"
)

// DeptManagement is the department whose members act as superusers:
// they issue points and are exempt from the balance check when sending.
const DeptManagement = "management"

// User captures application-facing fields for an identity in the rewards system.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Dept         string    `json:"dept"`
	Currency     string    `json:"currency"`
	Avatar       string    `json:"avatar,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Superuser reports whether the user belongs to the management department.
func (u User) Superuser() bool {
	return u.Dept == DeptManagement
}

// GenerateUsername derives a URL-safe slug from a display name,
// e.g. "Michael Scott" -> "michael-scott".
func GenerateUsername(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
