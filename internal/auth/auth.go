package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Rejection reasons
var (
	ErrNoToken      = errors.New("no token supplied")
	ErrUnknownToken = errors.New("unknown token")
	ErrExpired      = errors.New("token expired")
	ErrLookupFailed = errors.New("token lookup failed")
)

// Identity is what a token resolves to.
type Identity struct {
	UserID string
	// ExpiresAt is the zero time when the association never expires.
	ExpiresAt time.Time
}

// Expired reports whether the identity is past its expiry at now.
func (i *Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// TokenStore resolves tokens to identities. A miss is (nil, nil); an error
// means the store itself could not answer.
type TokenStore interface {
	Lookup(ctx context.Context, token string) (*Identity, error)
}

// Authorizer admits or rejects a handshake. On admission the identity may be
// nil when the mode resolves none.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*Identity, error)
	Mode() string
}

// AllowAll admits every client without resolving an identity.
type AllowAll struct{}

// Authorize always admits.
func (AllowAll) Authorize(context.Context, string) (*Identity, error) {
	return nil, nil
}

// Mode returns "none".
func (AllowAll) Mode() string { return "none" }

// TokenAuthorizer admits clients whose token resolves to a live identity.
type TokenAuthorizer struct {
	store   TokenStore
	timeout time.Duration
	now     func() time.Time
}

// NewTokenAuthorizer creates an authorizer backed by store. Each lookup is
// bounded by timeout.
func NewTokenAuthorizer(store TokenStore, timeout time.Duration) *TokenAuthorizer {
	return &TokenAuthorizer{store: store, timeout: timeout, now: time.Now}
}

// Mode returns "token".
func (a *TokenAuthorizer) Mode() string { return "token" }

// Authorize resolves token and rejects absent, unknown and expired tokens.
// A store result without a user id counts as unknown.
func (a *TokenAuthorizer) Authorize(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	identity, err := a.store.Lookup(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	if identity == nil || identity.UserID == "" {
		return nil, ErrUnknownToken
	}
	if identity.Expired(a.now()) {
		return nil, ErrExpired
	}

	return identity, nil
}
