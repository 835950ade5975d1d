package dto

import "github.com/dundermifflin/dundie-api/internal/models"

// UserRequest is the payload for creating a user. Username is optional and
// derived from Name when absent; Currency defaults to USD.
type UserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Dept     string `json:"dept"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// UserResponse is the public serializer: no email, no credential material.
type UserResponse struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Dept     string `json:"dept"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Currency string `json:"currency"`
}

// NewUserResponse projects a model onto the public serializer.
func NewUserResponse(u models.User) UserResponse {
	return UserResponse{
		Name:     u.Name,
		Username: u.Username,
		Dept:     u.Dept,
		Avatar:   u.Avatar,
		Bio:      u.Bio,
		Currency: u.Currency,
	}
}

type UserPatchRequest struct {
	Avatar *string `json:"avatar,omitempty"`
	Bio    *string `json:"bio,omitempty"`
}

type PasswordChangeRequest struct {
	Password string `json:"password"`
}

type BalanceResponse struct {
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
}
