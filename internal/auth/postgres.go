package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/muurk/socketd/internal/config"
)

// PostgresStore resolves tokens against a users table, the way web
// applications usually keep per-user API tokens:
//
//	SELECT "id" FROM "users" WHERE "api_token" = $1
//
// When an expiry column is configured it is selected too; NULL means no expiry.
type PostgresStore struct {
	db    *sql.DB
	query string
}

// NewPostgresStore opens the database and verifies the connection.
func NewPostgresStore(ctx context.Context, cfg config.PostgresStore) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &PostgresStore{db: db, query: buildLookupQuery(cfg)}, nil
}

// buildLookupQuery quotes every identifier so configured names cannot inject SQL.
func buildLookupQuery(cfg config.PostgresStore) string {
	expires := "NULL"
	if cfg.ExpiresColumn != "" {
		expires = pq.QuoteIdentifier(cfg.ExpiresColumn)
	}
	return fmt.Sprintf("SELECT %s::text, %s FROM %s WHERE %s = $1 LIMIT 1",
		pq.QuoteIdentifier(cfg.IDColumn),
		expires,
		pq.QuoteIdentifier(cfg.Table),
		pq.QuoteIdentifier(cfg.TokenColumn),
	)
}

// Lookup returns the user owning token.
func (s *PostgresStore) Lookup(ctx context.Context, token string) (*Identity, error) {
	var (
		userID  string
		expires sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, s.query, token).Scan(&userID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	identity := &Identity{UserID: userID}
	if expires.Valid {
		identity.ExpiresAt = expires.Time
	}
	return identity, nil
}

// Close closes the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
