package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dundermifflin/dundie-api/internal/auth"
	"github.com/dundermifflin/dundie-api/internal/http/respond"
	"github.com/dundermifflin/dundie-api/internal/models"
	"github.com/dundermifflin/dundie-api/internal/storage"
)

type ctxKey int

const userKey ctxKey = iota

// Authenticator resolves the acting user from a Bearer access token. The
// user is reloaded from the store on every request so department changes and
// credential resets take effect immediately.
type Authenticator struct {
	tokens *auth.TokenManager
	users  storage.UserStore
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(tokens *auth.TokenManager, users storage.UserStore) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// RequireUser wraps a handler, rejecting requests without a valid Bearer
// token and storing the resolved user in the request context.
func (a *Authenticator) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			respond.Error(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		username, err := a.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		user, err := a.users.FindByUsername(r.Context(), username)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	}
}

// UserFrom returns the authenticated user placed in the context by
// RequireUser.
func UserFrom(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}
