package server

import (
	"net"
	"testing"
)

func pipeConn(t *testing.T) net.Conn {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return server
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	a := r.Register(pipeConn(t), 4)
	b := r.Register(pipeConn(t), 4)

	if a.ID == "" || b.ID == "" {
		t.Fatal("Register() returned empty id")
	}
	if a.ID == b.ID {
		t.Errorf("Register() reused id %q", a.ID)
	}
	if a.HandshakeDone() {
		t.Error("new connection should not be handshaken")
	}
	if a.UserID() != "" {
		t.Errorf("new connection UserID = %q, want empty", a.UserID())
	}
	if a.window.Len() != 0 {
		t.Errorf("new connection window has %d entries, want 0", a.window.Len())
	}
	if cap(a.outbound) != 4 {
		t.Errorf("outbound capacity = %d, want 4", cap(a.outbound))
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_RemoveCleansUp(t *testing.T) {
	r := NewRegistry()
	conn := pipeConn(t)
	c := r.Register(conn, 1)
	c.handshakeDone = true
	r.Identify(c.ID, "42")

	if got, ok := r.ConnectionForUser("42"); !ok || got.ID != c.ID {
		t.Fatalf("ConnectionForUser(42) = %v, %v; want %s", got, ok, c.ID)
	}

	if !r.Remove(c.ID) {
		t.Fatal("Remove() = false, want true")
	}

	if _, ok := r.Get(c.ID); ok {
		t.Error("removed connection still registered")
	}
	if _, ok := r.ConnectionForUser("42"); ok {
		t.Error("user index still points at removed connection")
	}
	if _, ok := <-c.outbound; ok {
		t.Error("outbound queue should be closed")
	}
	if _, err := conn.Write([]byte("x")); err == nil {
		t.Error("socket should be closed after Remove")
	}
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := r.Register(pipeConn(t), 1)

	if !r.Remove(c.ID) {
		t.Fatal("first Remove() = false, want true")
	}
	if r.Remove(c.ID) {
		t.Error("second Remove() = true, want false")
	}
	if r.Remove("never-registered") {
		t.Error("Remove(unknown) = true, want false")
	}
}

func TestRegistry_ReconnectKeepsNewIndexEntry(t *testing.T) {
	r := NewRegistry()

	old := r.Register(pipeConn(t), 1)
	r.Identify(old.ID, "7")

	fresh := r.Register(pipeConn(t), 1)
	r.Identify(fresh.ID, "7")

	// Removing the stale connection must not drop the user's new entry
	r.Remove(old.ID)

	got, ok := r.ConnectionForUser("7")
	if !ok || got.ID != fresh.ID {
		t.Errorf("ConnectionForUser(7) = %v, %v; want %s", got, ok, fresh.ID)
	}
}

func TestRegistry_IdentifyIgnoresUnknownAndEmpty(t *testing.T) {
	r := NewRegistry()
	c := r.Register(pipeConn(t), 1)

	r.Identify("missing", "1")
	r.Identify(c.ID, "")

	if st := r.Stats(); st.Identified != 0 {
		t.Errorf("Identified = %d, want 0", st.Identified)
	}
}

func TestRegistry_Stats(t *testing.T) {
	r := NewRegistry()
	a := r.Register(pipeConn(t), 1)
	b := r.Register(pipeConn(t), 1)
	r.Register(pipeConn(t), 1)

	a.handshakeDone = true
	b.handshakeDone = true
	r.Identify(a.ID, "1")

	want := Stats{Connections: 3, Handshaken: 2, Identified: 1}
	if got := r.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}

	if got := len(r.Handshaken()); got != 2 {
		t.Errorf("Handshaken() returned %d, want 2", got)
	}
	if got := len(r.Identified()); got != 1 {
		t.Errorf("Identified() returned %d, want 1", got)
	}

	if n := r.RemoveAll(); n != 3 {
		t.Errorf("RemoveAll() = %d, want 3", n)
	}
	if r.Len() != 0 {
		t.Errorf("Len() after RemoveAll = %d, want 0", r.Len())
	}
}
