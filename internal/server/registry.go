package server

import (
	"net"
	"sort"

	"github.com/google/uuid"

	"github.com/muurk/socketd/internal/ratelimit"
)

// Connection is one accepted client stream. All fields are owned by the event
// loop; the reader and writer goroutines only touch conn and outbound.
type Connection struct {
	ID         string
	RemoteAddr string

	conn     net.Conn
	outbound chan []byte

	handshakeDone bool
	pending       []byte // handshake bytes received so far
	window        ratelimit.Window

	userID string
}

// HandshakeDone reports whether the 101 response has been written.
func (c *Connection) HandshakeDone() bool { return c.handshakeDone }

// UserID returns the identity resolved at handshake, or "".
func (c *Connection) UserID() string { return c.userID }

// enqueue hands a frame to the writer without blocking. It reports false when
// the outbound queue is full and the frame was dropped.
func (c *Connection) enqueue(frame []byte) bool {
	select {
	case c.outbound <- frame:
		return true
	default:
		return false
	}
}

// Registry is the set of live connections and the user index. It is not safe
// for concurrent use; only the event loop touches it.
type Registry struct {
	conns map[string]*Connection
	users map[string]string // user id -> connection id
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		users: make(map[string]string),
	}
}

// Register adds a new connection for conn with a fresh id. The connection
// starts not handshaken, with an empty rate window and no user.
func (r *Registry) Register(conn net.Conn, queueSize int) *Connection {
	c := &Connection{
		ID:       uuid.NewString(),
		conn:     conn,
		outbound: make(chan []byte, queueSize),
	}
	if addr := conn.RemoteAddr(); addr != nil {
		c.RemoteAddr = addr.String()
	}
	r.conns[c.ID] = c
	return c
}

// Get returns the live connection with id.
func (r *Registry) Get(id string) (*Connection, bool) {
	c, ok := r.conns[id]
	return c, ok
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	return len(r.conns)
}

// Identify records userID for the connection and points the user index at it.
// A later connection for the same user takes over the index entry.
func (r *Registry) Identify(id, userID string) {
	c, ok := r.conns[id]
	if !ok || userID == "" {
		return
	}
	c.userID = userID
	r.users[userID] = id
}

// ConnectionForUser returns the live connection indexed for userID.
func (r *Registry) ConnectionForUser(userID string) (*Connection, bool) {
	id, ok := r.users[userID]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// Remove closes and forgets the connection with id, along with its rate
// window and any user index entry pointing at it. Removing an unknown id is a
// no-op; the return value reports whether anything was removed.
func (r *Registry) Remove(id string) bool {
	c, ok := r.conns[id]
	if !ok {
		return false
	}

	delete(r.conns, id)
	for userID, connID := range r.users {
		if connID == id {
			delete(r.users, userID)
		}
	}

	_ = c.conn.Close()
	close(c.outbound)
	return true
}

// RemoveAll removes every connection.
func (r *Registry) RemoveAll() int {
	n := 0
	for id := range r.conns {
		if r.Remove(id) {
			n++
		}
	}
	return n
}

// Handshaken returns the connections that completed the handshake, ordered by
// id so fan-out order is stable.
func (r *Registry) Handshaken() []*Connection {
	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		if c.handshakeDone {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Identified returns the handshaken connections reachable through the user
// index, ordered by id.
func (r *Registry) Identified() []*Connection {
	out := make([]*Connection, 0, len(r.users))
	for _, id := range r.users {
		if c, ok := r.conns[id]; ok && c.handshakeDone {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Connections int `json:"connections"`
	Handshaken  int `json:"handshaken"`
	Identified  int `json:"identified"`
}

// Stats summarises the registry.
func (r *Registry) Stats() Stats {
	s := Stats{Connections: len(r.conns), Identified: len(r.users)}
	for _, c := range r.conns {
		if c.handshakeDone {
			s.Handshaken++
		}
	}
	return s
}
