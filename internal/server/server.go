package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/socketd/internal/auth"
	"github.com/muurk/socketd/internal/config"
	"github.com/muurk/socketd/internal/logging"
	"github.com/muurk/socketd/internal/metrics"
	"github.com/muurk/socketd/internal/protocol"
	"github.com/muurk/socketd/internal/ratelimit"
)

// ErrStopped is returned by calls that need the event loop after it exited.
var ErrStopped = errors.New("server stopped")

type eventKind int

const (
	evAccept eventKind = iota
	evData
	evClosed
	evPush
	evStats
)

// event is everything the loop reacts to. Goroutines outside the loop never
// touch the registry; they post events instead.
type event struct {
	kind  eventKind
	id    string
	conn  net.Conn
	data  []byte
	push  *PushMessage
	reply chan Stats
}

// Server is the WebSocket server. A single event-loop goroutine owns the
// registry; per-connection goroutines only move bytes.
type Server struct {
	cfg        *config.Config
	authorizer auth.Authorizer
	limiter    *ratelimit.Limiter
	registry   *Registry
	dispatcher *Dispatcher
	metrics    *metrics.Metrics

	events chan event
	ready  chan struct{}
	done   chan struct{}

	mu       sync.Mutex
	clientLn net.Listener
	adminLn  net.Listener
	opsLn    net.Listener

	wg sync.WaitGroup
}

// New creates a server from cfg. A nil authorizer admits every client.
func New(cfg *config.Config, authorizer auth.Authorizer) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limiter, err := ratelimit.New(cfg.RateLimit.Messages, cfg.RateLimit.Window())
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	if authorizer == nil {
		authorizer = auth.AllowAll{}
	}

	m := metrics.New()
	registry := NewRegistry()

	return &Server{
		cfg:        cfg,
		authorizer: authorizer,
		limiter:    limiter,
		registry:   registry,
		dispatcher: NewDispatcher(registry, cfg.Broadcast.Recipients, m),
		metrics:    m,
		events:     make(chan event, 256),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Ready is closed once every listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// ClientAddr returns the bound client listener address, or nil before Ready.
func (s *Server) ClientAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clientLn == nil {
		return nil
	}
	return s.clientLn.Addr()
}

// AdminAddr returns the bound admin listener address, or nil if disabled.
func (s *Server) AdminAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adminLn == nil {
		return nil
	}
	return s.adminLn.Addr()
}

// OpsAddr returns the bound ops HTTP address, or nil if disabled.
func (s *Server) OpsAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opsLn == nil {
		return nil
	}
	return s.opsLn.Addr()
}

// Run binds the listeners and serves until ctx is cancelled. Failing to bind
// is returned immediately; nothing that happens on a client connection ends
// the loop. On return every connection has been closed.
func (s *Server) Run(ctx context.Context) error {
	if err := s.listen(); err != nil {
		return err
	}

	logging.Info("Starting socketd WebSocket server",
		zap.String("addr", s.clientLn.Addr().String()),
		zap.String("auth_mode", s.authorizer.Mode()),
		zap.Int("rate_messages", s.limiter.Max()),
		zap.Duration("rate_window", s.limiter.Window()),
		zap.String("recipients", s.cfg.Broadcast.Recipients),
		zap.Int("max_clients", s.cfg.MaxClients),
	)

	close(s.ready)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.loop(gctx) })
	g.Go(func() error { return s.acceptClients(gctx) })

	if s.adminLn != nil {
		logging.Info("Admin push ingress listening", zap.String("addr", s.adminLn.Addr().String()))
		g.Go(func() error { return s.acceptAdmin(gctx) })
	}

	if s.opsLn != nil {
		logging.Info("Ops HTTP listening", zap.String("addr", s.opsLn.Addr().String()))
		g.Go(func() error { return s.serveOps(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		s.closeListeners()
		return nil
	})

	err := g.Wait()

	s.wg.Wait()
	if n := s.discardPending(); n > 0 {
		logging.Debug("Closed connections queued during shutdown", zap.Int("count", n))
	}
	logging.Info("Server stopped")

	return err
}

func (s *Server) listen() error {
	clientLn, err := net.Listen("tcp", s.cfg.ClientAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ClientAddr(), err)
	}

	var adminLn, opsLn net.Listener
	if addr := s.cfg.AdminAddr(); addr != "" {
		adminLn, err = net.Listen("tcp", addr)
		if err != nil {
			_ = clientLn.Close()
			return fmt.Errorf("failed to listen on admin address %s: %w", addr, err)
		}
	}

	if s.cfg.MetricsAddr != "" {
		opsLn, err = net.Listen("tcp", s.cfg.MetricsAddr)
		if err != nil {
			_ = clientLn.Close()
			if adminLn != nil {
				_ = adminLn.Close()
			}
			return fmt.Errorf("failed to listen on metrics address %s: %w", s.cfg.MetricsAddr, err)
		}
	}

	s.mu.Lock()
	s.clientLn, s.adminLn, s.opsLn = clientLn, adminLn, opsLn
	s.mu.Unlock()
	return nil
}

func (s *Server) closeListeners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ln := range []net.Listener{s.clientLn, s.adminLn, s.opsLn} {
		if ln != nil {
			_ = ln.Close()
		}
	}
}

// post hands an event to the loop. It reports false once ctx is done or the
// loop has exited. Events that still slip into the buffer during shutdown are
// released by discardPending.
func (s *Server) post(ctx context.Context, ev event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	}
}

// acceptClients accepts client connections and hands them to the loop.
func (s *Server) acceptClients(ctx context.Context) error {
	for {
		conn, err := s.clientLn.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		if !s.post(ctx, event{kind: evAccept, conn: conn}) {
			_ = conn.Close()
			return nil
		}
	}
}

// loop is the only goroutine that reads or mutates the registry.
func (s *Server) loop(ctx context.Context) error {
	defer close(s.done)
	defer func() {
		n := s.registry.RemoveAll()
		s.metrics.ConnectionsActive.Set(0)
		if n > 0 {
			logging.Info("Closed active connections", zap.Int("count", n))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.events:
			switch ev.kind {
			case evAccept:
				s.handleAccept(ctx, ev.conn)
			case evData:
				s.handleData(ctx, ev.id, ev.data)
			case evClosed:
				s.remove(ev.id, "connection_closed")
			case evPush:
				s.handlePush(ev.push)
			case evStats:
				ev.reply <- s.registry.Stats()
			}
		}
	}
}

// discardPending empties the event buffer after the loop has exited and
// closes any accepted connection it still holds. It returns how many were closed.
func (s *Server) discardPending() int {
	closed := 0
	for {
		select {
		case ev := <-s.events:
			if ev.conn != nil {
				_ = ev.conn.Close()
				closed++
			}
		default:
			return closed
		}
	}
}

func (s *Server) handleAccept(ctx context.Context, conn net.Conn) {
	s.metrics.ConnectionsTotal.Inc()

	if s.cfg.MaxClients > 0 && s.registry.Len() >= s.cfg.MaxClients {
		logging.Warn("Connection limit reached, rejecting client",
			zap.String("remote_addr", conn.RemoteAddr().String()),
			zap.Int("max_clients", s.cfg.MaxClients),
		)
		s.metrics.ConnectionsRejected.WithLabelValues("max_clients").Inc()
		_ = conn.Close()
		return
	}

	c := s.registry.Register(conn, s.cfg.OutboundQueue)
	s.metrics.ConnectionsActive.Set(float64(s.registry.Len()))
	logging.LogConnection(c.ID, c.RemoteAddr, "connection_accepted")

	s.wg.Add(2)
	go s.readPump(ctx, c)
	go s.writePump(c)
}

func (s *Server) handleData(ctx context.Context, id string, data []byte) {
	c, ok := s.registry.Get(id)
	if !ok {
		return
	}

	if !c.handshakeDone {
		s.handleHandshake(ctx, c, data)
		return
	}

	s.handleFrame(c, data)
}

// handleHandshake buffers request bytes until the key header arrives, then
// authorizes the client and either upgrades or drops the connection.
func (s *Server) handleHandshake(ctx context.Context, c *Connection, data []byte) {
	c.pending = append(c.pending, data...)

	hs, err := protocol.ParseHandshake(c.pending)
	if errors.Is(err, protocol.ErrNoKey) {
		if len(c.pending) > s.cfg.HandshakeLimit {
			logging.Warn("Handshake too large, closing connection",
				zap.String("conn_id", c.ID),
				zap.String("remote_addr", c.RemoteAddr),
				zap.Int("bytes", len(c.pending)),
			)
			s.metrics.ConnectionsRejected.WithLabelValues("handshake_too_large").Inc()
			s.remove(c.ID, "handshake_rejected")
		}
		return
	}

	logging.LogRawBytes("HTTP upgrade request", c.pending)

	identity, err := s.authorizer.Authorize(ctx, hs.Token)
	if err != nil {
		if errors.Is(err, auth.ErrLookupFailed) {
			logging.Error("Token lookup failed, rejecting client",
				zap.String("conn_id", c.ID),
				zap.String("remote_addr", c.RemoteAddr),
				zap.Error(err),
			)
			s.metrics.ConnectionsRejected.WithLabelValues("lookup_failed").Inc()
		} else {
			logging.Warn("Unauthorized connection attempt",
				zap.String("conn_id", c.ID),
				zap.String("remote_addr", c.RemoteAddr),
				zap.String("target", redactTarget(hs)),
				zap.Error(err),
			)
			s.metrics.ConnectionsRejected.WithLabelValues("unauthorized").Inc()
		}
		s.remove(c.ID, "handshake_rejected")
		return
	}

	response := protocol.SwitchingProtocols(hs.Key)
	logging.LogRawBytes("HTTP 101 Response", response)

	if err := c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err == nil {
		_, err = c.conn.Write(response)
	}
	if err != nil {
		logging.Info("Failed to send HTTP 101 response",
			zap.String("conn_id", c.ID),
			zap.String("remote_addr", c.RemoteAddr),
			zap.Error(err),
		)
		s.remove(c.ID, "connection_closed")
		return
	}

	c.handshakeDone = true
	c.pending = nil

	if identity != nil && identity.UserID != "" {
		s.registry.Identify(c.ID, identity.UserID)
	}

	logging.Info("WebSocket handshake completed",
		zap.String("conn_id", c.ID),
		zap.String("remote_addr", c.RemoteAddr),
		zap.String("user_id", c.userID),
	)
}

// handleFrame decodes one inbound frame, applies the rate limit and fans the
// message out.
func (s *Server) handleFrame(c *Connection, data []byte) {
	logging.LogRawBytes("WebSocket frame in", data)

	text, ok := protocol.DecodeText(data)
	if !ok {
		logging.Debug("Dropping undecodable frame", frameFields(c.ID, data)...)
		s.metrics.MessagesDropped.WithLabelValues("undecodable").Inc()
		return
	}
	if text == "" {
		s.metrics.MessagesDropped.WithLabelValues("empty").Inc()
		return
	}

	if !s.limiter.Allow(&c.window) {
		logging.Warn("Rate limit exceeded, closing connection",
			zap.String("conn_id", c.ID),
			zap.String("remote_addr", c.RemoteAddr),
			zap.Int("max_messages", s.limiter.Max()),
			zap.Duration("window", s.limiter.Window()),
		)
		s.metrics.MessagesDropped.WithLabelValues("rate_limited").Inc()
		s.remove(c.ID, "rate_limited")
		return
	}

	s.metrics.MessagesReceived.Inc()

	n := s.dispatcher.Broadcast(text, c.ID, originClient)
	logging.Debug("Message broadcast", append(frameFields(c.ID, data),
		zap.Int("length", len(text)),
		zap.Int("recipients", n),
	)...)
}

// frameFields describes a raw inbound chunk. A chunk shorter than its header
// declares came from a partial socket read and was decoded as-is.
func frameFields(id string, data []byte) []zap.Field {
	fields := []zap.Field{
		zap.String("conn_id", id),
		zap.Int("bytes", len(data)),
	}
	if len(data) > 0 {
		fields = append(fields, zap.String("opcode", protocol.OpcodeName(data[0]&0x0F)))
	}
	if declared, ok := protocol.DeclaredLength(data); ok {
		fields = append(fields, zap.Uint64("declared_length", declared))
	}
	if protocol.Incomplete(data) {
		fields = append(fields, zap.Bool("incomplete", true))
	}
	return fields
}

func (s *Server) remove(id, reason string) {
	c, ok := s.registry.Get(id)
	if !ok {
		return
	}
	s.registry.Remove(id)
	s.metrics.ConnectionsActive.Set(float64(s.registry.Len()))
	logging.LogConnection(id, c.RemoteAddr, reason)
}

// Stats asks the loop for a registry snapshot.
func (s *Server) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if !s.post(ctx, event{kind: evStats, reply: reply}) {
		return Stats{}, ErrStopped
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-s.done:
		return Stats{}, ErrStopped
	}
}

// redactTarget returns the request target without its query string, which
// may carry the token.
func redactTarget(hs *protocol.Handshake) string {
	path, _, _ := strings.Cut(hs.Target, "?")
	return path
}
