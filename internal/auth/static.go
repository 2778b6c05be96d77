package auth

import (
	"context"

	"github.com/muurk/socketd/internal/config"
)

// StaticStore serves tokens listed in the configuration file.
type StaticStore struct {
	tokens map[string]Identity
}

// NewStaticStore indexes the configured tokens.
func NewStaticStore(tokens []config.StaticToken) *StaticStore {
	s := &StaticStore{tokens: make(map[string]Identity, len(tokens))}
	for _, t := range tokens {
		s.tokens[t.Token] = Identity{UserID: t.UserID, ExpiresAt: t.ExpiresAt}
	}
	return s
}

// Lookup returns the identity for token, or nil if it is not listed.
func (s *StaticStore) Lookup(_ context.Context, token string) (*Identity, error) {
	identity, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}
