package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/AnshRaj112/bolt-backend/internal/logger"
	"github.com/AnshRaj112/bolt-backend/internal/models"
	"github.com/AnshRaj112/bolt-backend/internal/services"
	"github.com/AnshRaj112/bolt-backend/internal/store"
)

// SessionCookie carries the JWT for browser clients.
const SessionCookie = "bolt_token"

type ctxKey int

const (
	accountKey ctxKey = iota
	claimsKey
)

// TokenFromRequest reads the session token from the cookie, then the
// Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// Authenticator resolves the session token to a loaded account.
type Authenticator struct {
	tokens *services.TokenService
	store  store.AccountStore
	log    *logger.Logger
}

func NewAuthenticator(tokens *services.TokenService, st store.AccountStore, log *logger.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, store: st, log: log}
}

// RequireAuth rejects requests without a valid token for an existing account.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.authenticate(w, r, TokenFromRequest(r), next)
	})
}

// RequireQueryToken is RequireAuth for WebSocket upgrades, where browsers
// cannot set headers; the token comes from ?token=.
func (a *Authenticator) RequireQueryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			token = TokenFromRequest(r)
		}
		a.authenticate(w, r, token, next)
	})
}

func (a *Authenticator) authenticate(w http.ResponseWriter, r *http.Request, token string, next http.Handler) {
	if token == "" {
		writeJSONError(w, http.StatusUnauthorized, "Access token required")
		return
	}
	claims, err := a.tokens.Parse(r.Context(), token)
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		writeJSONError(w, http.StatusUnauthorized, "Token expired")
		return
	case err != nil:
		writeJSONError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	id, _ := claims.AccountID()
	acct, err := a.store.Load(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		a.log.Error("load account for token", "accountId", id.Hex(), "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Server error")
		return
	}

	ctx := context.WithValue(r.Context(), accountKey, acct)
	ctx = context.WithValue(ctx, claimsKey, claims)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// AccountFrom returns the account loaded by RequireAuth.
func AccountFrom(ctx context.Context) (*models.Account, bool) {
	acct, ok := ctx.Value(accountKey).(*models.Account)
	return acct, ok
}

// ClaimsFrom returns the verified token claims.
func ClaimsFrom(ctx context.Context) (*services.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*services.Claims)
	return c, ok
}

// WithAccount stores acct in ctx. Used by tests that bypass token parsing.
func WithAccount(ctx context.Context, acct *models.Account) context.Context {
	return context.WithValue(ctx, accountKey, acct)
}
