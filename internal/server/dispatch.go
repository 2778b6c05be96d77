package server

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/muurk/socketd/internal/config"
	"github.com/muurk/socketd/internal/logging"
	"github.com/muurk/socketd/internal/metrics"
	"github.com/muurk/socketd/internal/protocol"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Frame origins, used as the metrics label.
const (
	originClient = "client"
	originPush   = "push"
)

// Dispatcher fans text messages out to registered connections.
type Dispatcher struct {
	registry   *Registry
	recipients string
	metrics    *metrics.Metrics
}

// NewDispatcher creates a dispatcher over registry. recipients is
// config.RecipientsAll or config.RecipientsIdentified.
func NewDispatcher(registry *Registry, recipients string, m *metrics.Metrics) *Dispatcher {
	if m == nil {
		m = metrics.New()
	}
	return &Dispatcher{registry: registry, recipients: recipients, metrics: m}
}

// Broadcast sends text to every recipient except excludeID and returns the
// number of connections the frame was queued to. Pass "" to exclude nobody.
// A recipient with a full queue loses the frame; delivery to the others
// continues.
func (d *Dispatcher) Broadcast(text, excludeID, origin string) int {
	var targets []*Connection
	if d.recipients == config.RecipientsIdentified {
		targets = d.registry.Identified()
	} else {
		targets = d.registry.Handshaken()
	}

	frame := protocol.EncodeText(OutboundPayload(text))

	queued := 0
	for _, c := range targets {
		if c.ID == excludeID {
			continue
		}
		if d.send(c, frame, origin) {
			queued++
		}
	}
	return queued
}

// SendToUser sends text to the connection indexed for userID. It reports
// false when the user has no live, handshaken connection or its queue is full.
func (d *Dispatcher) SendToUser(userID, text string) bool {
	c, ok := d.registry.ConnectionForUser(userID)
	if !ok || !c.handshakeDone {
		logging.Debug("No live connection for user", zap.String("user_id", userID))
		return false
	}
	return d.send(c, protocol.EncodeText(OutboundPayload(text)), originPush)
}

func (d *Dispatcher) send(c *Connection, frame []byte, origin string) bool {
	if !c.enqueue(frame) {
		d.metrics.FramesDropped.Inc()
		logging.Warn("Outbound queue full, dropping frame",
			zap.String("conn_id", c.ID),
			zap.String("remote_addr", c.RemoteAddr),
		)
		return false
	}
	d.metrics.FramesSent.WithLabelValues(origin).Inc()
	return true
}

// OutboundPayload re-wraps event messages. A JSON object with an "event" key
// (any value, null included) becomes {"event": ..., "data": ...}, where data
// is the object's "data" value or, when that key is absent, the whole object.
// Anything else is returned unchanged.
func OutboundPayload(text string) string {
	var obj map[string]jsoniter.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return text
	}

	event, ok := obj["event"]
	if !ok {
		return text
	}

	data, ok := obj["data"]
	if !ok {
		data = jsoniter.RawMessage(text)
	}

	out, err := json.Marshal(struct {
		Event jsoniter.RawMessage `json:"event"`
		Data  jsoniter.RawMessage `json:"data"`
	}{event, data})
	if err != nil {
		return text
	}
	return string(out)
}

// isNull reports whether raw is JSON null or empty.
func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
