package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Authentication modes
const (
	AuthNone  = "none"
	AuthToken = "token"
)

// Token stores used by AuthToken
const (
	StoreStatic   = "static"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreJWT      = "jwt"
)

// Broadcast recipient policies
const (
	RecipientsAll        = "all"
	RecipientsIdentified = "identified"
)

// Config is the complete server configuration.
type Config struct {
	Host       string `yaml:"host"`
	ClientPort int    `yaml:"client_port"`
	AdminPort  int    `yaml:"admin_port"` // 0 disables the push ingress
	MaxClients int    `yaml:"max_clients"`

	ReadBufferSize int           `yaml:"read_buffer_size"` // bytes per socket read
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	OutboundQueue  int           `yaml:"outbound_queue"`  // frames buffered per connection
	HandshakeLimit int           `yaml:"handshake_limit"` // max bytes buffered before the key arrives

	RateLimit RateLimit `yaml:"rate_limit"`
	Broadcast Broadcast `yaml:"broadcast"`
	Auth      Auth      `yaml:"auth"`
	Log       Log       `yaml:"log"`

	MetricsAddr string `yaml:"metrics_addr"` // empty disables the ops HTTP server
	MDNS        MDNS   `yaml:"mdns"`
}

// RateLimit is the per-connection inbound message policy.
type RateLimit struct {
	Messages   int `yaml:"messages"`
	PerSeconds int `yaml:"per_seconds"`
}

// Window returns the sliding window length.
func (r RateLimit) Window() time.Duration {
	return time.Duration(r.PerSeconds) * time.Second
}

// Broadcast selects which connections receive fanned-out messages.
type Broadcast struct {
	Recipients string `yaml:"recipients"`
}

// Auth selects how connecting clients are authorized.
type Auth struct {
	Mode          string        `yaml:"mode"`
	Store         string        `yaml:"store"`
	LookupTimeout time.Duration `yaml:"lookup_timeout"`

	Tokens   []StaticToken `yaml:"tokens,omitempty"`
	Redis    RedisStore    `yaml:"redis"`
	Postgres PostgresStore `yaml:"postgres"`
	JWT      JWTStore      `yaml:"jwt"`
	Breaker  Breaker       `yaml:"breaker"`
}

// StaticToken is one entry of the in-file token table.
type StaticToken struct {
	Token     string    `yaml:"token"`
	UserID    string    `yaml:"user_id"`
	ExpiresAt time.Time `yaml:"expires_at,omitempty"`
}

// RedisStore configures token lookups against Redis.
type RedisStore struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// PostgresStore configures token lookups against a users table.
type PostgresStore struct {
	DSN           string `yaml:"dsn"`
	Table         string `yaml:"table"`
	TokenColumn   string `yaml:"token_column"`
	IDColumn      string `yaml:"id_column"`
	ExpiresColumn string `yaml:"expires_column,omitempty"`
}

// JWTStore configures HMAC-signed token verification.
type JWTStore struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer,omitempty"`
}

// Breaker configures the circuit breaker around remote token stores.
type Breaker struct {
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// Log selects log verbosity and destination.
type Log struct {
	Level   string `yaml:"level"`
	Channel string `yaml:"channel"`
}

// MDNS controls service advertisement on the local network.
type MDNS struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:           "127.0.0.1",
		ClientPort:     9000,
		AdminPort:      9001,
		MaxClients:     200,
		ReadBufferSize: 2048,
		WriteTimeout:   5 * time.Second,
		OutboundQueue:  64,
		HandshakeLimit: 8192,
		RateLimit: RateLimit{
			Messages:   20,
			PerSeconds: 10,
		},
		Broadcast: Broadcast{Recipients: RecipientsAll},
		Auth: Auth{
			Mode:          AuthNone,
			Store:         StoreStatic,
			LookupTimeout: 2 * time.Second,
			Redis: RedisStore{
				Addr:      "127.0.0.1:6379",
				KeyPrefix: "socketd:token:",
			},
			Postgres: PostgresStore{
				Table:       "users",
				TokenColumn: "api_token",
				IDColumn:    "id",
			},
			Breaker: Breaker{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		Log: Log{
			Level:   "info",
			Channel: "stdout",
		},
		MDNS: MDNS{Instance: "socketd"},
	}
}

// ClientAddr returns the host:port the WebSocket listener binds.
func (c *Config) ClientAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.ClientPort))
}

// AdminAddr returns the host:port of the push ingress, or "" when disabled.
func (c *Config) AdminAddr() string {
	if c.AdminPort == 0 {
		return ""
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.AdminPort))
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if err := validPort("client_port", c.ClientPort, false); err != nil {
		return err
	}
	if err := validPort("admin_port", c.AdminPort, true); err != nil {
		return err
	}
	if c.AdminPort != 0 && c.AdminPort == c.ClientPort {
		return fmt.Errorf("%w: admin_port must differ from client_port", ErrInvalid)
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("%w: max_clients must be positive, got %d", ErrInvalid, c.MaxClients)
	}
	if c.ReadBufferSize < 16 {
		return fmt.Errorf("%w: read_buffer_size must be at least 16, got %d", ErrInvalid, c.ReadBufferSize)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write_timeout must be positive", ErrInvalid)
	}
	if c.OutboundQueue <= 0 {
		return fmt.Errorf("%w: outbound_queue must be positive, got %d", ErrInvalid, c.OutboundQueue)
	}
	if c.HandshakeLimit < 256 {
		return fmt.Errorf("%w: handshake_limit must be at least 256, got %d", ErrInvalid, c.HandshakeLimit)
	}
	if c.RateLimit.Messages <= 0 || c.RateLimit.PerSeconds <= 0 {
		return fmt.Errorf("%w: rate_limit messages and per_seconds must be positive, got %d/%d",
			ErrInvalid, c.RateLimit.Messages, c.RateLimit.PerSeconds)
	}

	switch c.Broadcast.Recipients {
	case RecipientsAll, RecipientsIdentified:
	default:
		return fmt.Errorf("%w: broadcast.recipients must be %q or %q, got %q",
			ErrInvalid, RecipientsAll, RecipientsIdentified, c.Broadcast.Recipients)
	}

	return c.Auth.validate()
}

func (a *Auth) validate() error {
	switch a.Mode {
	case AuthNone:
		return nil
	case AuthToken:
	default:
		return fmt.Errorf("%w: auth.mode must be %q or %q, got %q", ErrInvalid, AuthNone, AuthToken, a.Mode)
	}

	if a.LookupTimeout <= 0 {
		return fmt.Errorf("%w: auth.lookup_timeout must be positive", ErrInvalid)
	}

	switch a.Store {
	case StoreStatic:
		for i, t := range a.Tokens {
			if t.Token == "" {
				return fmt.Errorf("%w: auth.tokens[%d] has an empty token", ErrInvalid, i)
			}
			if t.UserID == "" {
				return fmt.Errorf("%w: auth.tokens[%d] has an empty user_id", ErrInvalid, i)
			}
		}
	case StoreRedis:
		if a.Redis.Addr == "" {
			return fmt.Errorf("%w: auth.redis.addr is required", ErrInvalid)
		}
	case StorePostgres:
		if a.Postgres.DSN == "" {
			return fmt.Errorf("%w: auth.postgres.dsn is required", ErrInvalid)
		}
		if a.Postgres.Table == "" || a.Postgres.TokenColumn == "" || a.Postgres.IDColumn == "" {
			return fmt.Errorf("%w: auth.postgres table, token_column and id_column are required", ErrInvalid)
		}
	case StoreJWT:
		if a.JWT.Secret == "" {
			return fmt.Errorf("%w: auth.jwt.secret is required", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown auth.store %q", ErrInvalid, a.Store)
	}

	return nil
}

func validPort(name string, port int, allowZero bool) error {
	if allowZero && port == 0 {
		return nil
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%w: %s must be between 1 and 65535, got %d", ErrInvalid, name, port)
	}
	return nil
}
