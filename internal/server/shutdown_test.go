package server

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/muurk/socketd/internal/config"
)

func newIdleServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(config.Default(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func TestPost_RefusesAfterStop(t *testing.T) {
	tests := []struct {
		name       string
		cancelCtx  bool
		closedLoop bool
	}{
		{name: "context cancelled", cancelCtx: true},
		{name: "loop exited", closedLoop: true},
		{name: "both", cancelCtx: true, closedLoop: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newIdleServer(t)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancelCtx {
				cancel()
			}
			if tt.closedLoop {
				close(srv.done)
			}

			for i := 0; i < 200; i++ {
				if srv.post(ctx, event{kind: evAccept}) {
					t.Fatalf("post() accepted an event on attempt %d", i)
				}
			}
			if n := len(srv.events); n != 0 {
				t.Errorf("events buffered = %d, want 0", n)
			}
		})
	}
}

func TestDiscardPending_ClosesQueuedConnections(t *testing.T) {
	srv := newIdleServer(t)

	server, client := net.Pipe()
	defer client.Close()

	srv.events <- event{kind: evAccept, conn: server}
	srv.events <- event{kind: evClosed, id: "gone"}

	if n := srv.discardPending(); n != 1 {
		t.Errorf("discardPending() = %d, want 1", n)
	}
	if n := len(srv.events); n != 0 {
		t.Errorf("events buffered = %d, want 0", n)
	}

	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := client.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Read() on peer error = %v, want EOF", err)
	}
}
