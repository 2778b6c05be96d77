package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/muurk/socketd/internal/config"
)

// JWTStore treats HMAC-signed JWTs as self-contained tokens.
type JWTStore struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewJWTStore creates a store verifying tokens with the shared secret.
func NewJWTStore(cfg config.JWTStore) *JWTStore {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		// Expiry is judged by TokenAuthorizer so it is reported as ErrExpired
		jwt.WithoutClaimsValidation(),
	)
	return &JWTStore{secret: []byte(cfg.Secret), issuer: cfg.Issuer, parser: parser}
}

// Lookup verifies the signature and maps "sub" and "exp" onto an Identity.
// Tokens with a bad signature, an unexpected issuer or no subject are misses.
func (s *JWTStore) Lookup(_ context.Context, token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, nil
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, nil
	}

	if s.issuer != "" {
		if iss, err := claims.GetIssuer(); err != nil || iss != s.issuer {
			return nil, nil
		}
	}

	identity := &Identity{UserID: sub}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity, nil
}
