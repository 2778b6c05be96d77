package auth

import (
	"context"
	"fmt"

	"github.com/muurk/socketd/internal/config"
)

// New builds the authorizer described by cfg. The returned close function
// releases store resources and is never nil.
func New(ctx context.Context, cfg config.Auth) (Authorizer, func() error, error) {
	noop := func() error { return nil }

	if cfg.Mode == config.AuthNone || cfg.Mode == "" {
		return AllowAll{}, noop, nil
	}
	if cfg.Mode != config.AuthToken {
		return nil, noop, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}

	var store TokenStore
	switch cfg.Store {
	case config.StoreStatic, "":
		store = NewStaticStore(cfg.Tokens)
	case config.StoreJWT:
		store = NewJWTStore(cfg.JWT)
	case config.StoreRedis:
		rs, err := NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		store = NewBreakerStore("redis", rs, cfg.Breaker)
	case config.StorePostgres:
		ps, err := NewPostgresStore(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		store = NewBreakerStore("postgres", ps, cfg.Breaker)
	default:
		return nil, noop, fmt.Errorf("unknown token store %q", cfg.Store)
	}

	closeFn := noop
	if c, ok := store.(interface{ Close() error }); ok {
		closeFn = c.Close
	}

	return NewTokenAuthorizer(store, cfg.LookupTimeout), closeFn, nil
}
