package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/muurk/socketd/internal/auth"
	"github.com/muurk/socketd/internal/logging"
)

// Push message types accepted on the admin port.
const (
	PushPrivate   = "private"
	PushBroadcast = "broadcast"
)

const (
	maxPushSize     = 64 << 10
	pushReadTimeout = 2 * time.Second
)

// PushMessage is one request submitted on the admin port:
//
//	{"type": "private", "user_id": 42, "payload": {...}}
//	{"type": "broadcast", "payload": "hello"}
type PushMessage struct {
	Type   string
	UserID string
	// Text is what gets framed: a string payload as-is, any other payload
	// as its JSON encoding.
	Text string
}

type wirePush struct {
	Type    string              `json:"type"`
	UserID  jsoniter.RawMessage `json:"user_id"`
	Payload jsoniter.RawMessage `json:"payload"`
}

// ParsePushMessage decodes and validates a push request.
func ParsePushMessage(data []byte) (*PushMessage, error) {
	var w wirePush
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("malformed push message: %w", err)
	}

	msg := &PushMessage{Type: w.Type, UserID: auth.NormalizeUserID(w.UserID)}

	switch w.Type {
	case PushBroadcast:
	case PushPrivate:
		if msg.UserID == "" {
			return nil, errors.New("private push message without user_id")
		}
	default:
		return nil, fmt.Errorf("unknown push type %q", w.Type)
	}

	if len(w.Payload) == 0 || isNull(w.Payload) {
		return nil, errors.New("push message without payload")
	}

	var s string
	if err := json.Unmarshal(w.Payload, &s); err == nil {
		msg.Text = s
	} else {
		msg.Text = string(w.Payload)
	}

	return msg, nil
}

// acceptAdmin accepts push connections. Each is read to EOF, parsed and
// posted to the loop.
func (s *Server) acceptAdmin(ctx context.Context) error {
	for {
		conn, err := s.adminLn.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logging.Error("Failed to accept admin connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.readPush(ctx, conn)
		}()
	}
}

func (s *Server) readPush(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	remoteAddr := conn.RemoteAddr().String()

	_ = conn.SetReadDeadline(time.Now().Add(pushReadTimeout))
	data, err := io.ReadAll(io.LimitReader(conn, maxPushSize+1))
	if err != nil {
		logging.Warn("Failed to read push message",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}
	if len(data) > maxPushSize {
		logging.Warn("Push message too large, dropping",
			zap.String("remote_addr", remoteAddr),
			zap.Int("limit", maxPushSize),
		)
		s.metrics.PushMessages.WithLabelValues("unknown", "rejected").Inc()
		return
	}

	msg, err := ParsePushMessage(data)
	if err != nil {
		logging.Warn("Dropping invalid push message",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		s.metrics.PushMessages.WithLabelValues("unknown", "rejected").Inc()
		return
	}

	s.post(ctx, event{kind: evPush, push: msg})
}

// handlePush runs on the loop.
func (s *Server) handlePush(msg *PushMessage) {
	switch msg.Type {
	case PushBroadcast:
		n := s.dispatcher.Broadcast(msg.Text, "", originPush)
		s.metrics.PushMessages.WithLabelValues(msg.Type, "delivered").Inc()
		logging.Info("Push broadcast", zap.Int("recipients", n))
	case PushPrivate:
		outcome := "delivered"
		if !s.dispatcher.SendToUser(msg.UserID, msg.Text) {
			outcome = "undelivered"
		}
		s.metrics.PushMessages.WithLabelValues(msg.Type, outcome).Inc()
		logging.Info("Push to user",
			zap.String("user_id", msg.UserID),
			zap.String("outcome", outcome),
		)
	}
}
