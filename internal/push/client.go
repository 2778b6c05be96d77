package push

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/muurk/socketd/internal/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultDialTimeout bounds each connection attempt
	DefaultDialTimeout = 2 * time.Second
	// DefaultRetryInterval is the first backoff delay
	DefaultRetryInterval = 200 * time.Millisecond
)

// Message types understood by the admin port.
const (
	TypePrivate   = "private"
	TypeBroadcast = "broadcast"
)

// Message is the JSON object written to the admin port.
type Message struct {
	Type    string      `json:"type"`
	UserID  string      `json:"user_id,omitempty"`
	Payload interface{} `json:"payload"`
}

// Client sends push messages to a socketd admin port.
type Client struct {
	Addr          string
	DialTimeout   time.Duration
	MaxRetries    int // 0 sends once
	RetryInterval time.Duration
}

// NewClient creates a client for the admin address addr with default timeouts.
func NewClient(addr string) *Client {
	return &Client{
		Addr:          addr,
		DialTimeout:   DefaultDialTimeout,
		RetryInterval: DefaultRetryInterval,
	}
}

// SendToUser delivers payload to the connection of userID, if it is online.
func (c *Client) SendToUser(ctx context.Context, userID string, payload interface{}) error {
	if userID == "" {
		return &Error{Type: ErrTypeValidation, Message: "user id is required for private messages", Addr: c.Addr}
	}
	return c.Send(ctx, Message{Type: TypePrivate, UserID: userID, Payload: payload})
}

// Broadcast delivers payload to every connected client.
func (c *Client) Broadcast(ctx context.Context, payload interface{}) error {
	return c.Send(ctx, Message{Type: TypeBroadcast, Payload: payload})
}

// Send writes msg, retrying retryable failures up to MaxRetries times.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.Addr == "" {
		return &Error{Type: ErrTypeValidation, Message: "admin address is required"}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return &Error{Type: ErrTypeEncode, Message: "failed to encode message", Addr: c.Addr, Err: err}
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := c.sendOnce(ctx, data)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		logging.Debug("Push attempt failed",
			zap.String("addr", c.Addr),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval()
	bo.MaxElapsedTime = 0

	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.MaxRetries)), ctx))
	if err != nil {
		var pushErr *Error
		if errors.As(err, &pushErr) {
			return pushErr
		}
		return ClassifyNetworkError(err, c.Addr)
	}

	logging.Info("Push message sent",
		zap.String("addr", c.Addr),
		zap.String("type", msg.Type),
		zap.Int("attempts", attempt),
	)
	return nil
}

func (c *Client) sendOnce(ctx context.Context, data []byte) error {
	dialer := net.Dialer{Timeout: c.dialTimeout()}

	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return ClassifyNetworkError(err, c.Addr)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetWriteDeadline(time.Now().Add(c.dialTimeout())); err != nil {
		return ClassifyNetworkError(err, c.Addr)
	}
	if _, err := conn.Write(data); err != nil {
		return ClassifyNetworkError(fmt.Errorf("write: %w", err), c.Addr)
	}
	return nil
}

func (c *Client) dialTimeout() time.Duration {
	if c.DialTimeout <= 0 {
		return DefaultDialTimeout
	}
	return c.DialTimeout
}

func (c *Client) retryInterval() time.Duration {
	if c.RetryInterval <= 0 {
		return DefaultRetryInterval
	}
	return c.RetryInterval
}
