package server

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/socketd/internal/logging"
)

// readPump forwards raw chunks from the socket to the event loop until the
// read fails. It never interprets bytes; framing state lives in the loop.
func (s *Server) readPump(ctx context.Context, c *Connection) {
	defer s.wg.Done()

	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !s.post(ctx, event{kind: evData, id: c.ID, data: chunk}) {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logging.Debug("Connection closed by peer",
					zap.String("conn_id", c.ID),
					zap.String("remote_addr", c.RemoteAddr),
				)
			} else {
				logging.Debug("Read error",
					zap.String("conn_id", c.ID),
					zap.String("remote_addr", c.RemoteAddr),
					zap.Error(err),
				)
			}
			s.post(ctx, event{kind: evClosed, id: c.ID})
			return
		}
		if n == 0 {
			s.post(ctx, event{kind: evClosed, id: c.ID})
			return
		}
	}
}

// writePump drains the connection's outbound queue. It exits when the loop
// closes the queue on removal. A failed write closes the socket so the read
// side reports the disconnect.
func (s *Server) writePump(c *Connection) {
	defer s.wg.Done()

	failed := false
	for frame := range c.outbound {
		if failed {
			continue
		}

		if err := c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			failed = true
			continue
		}

		logging.LogRawBytes("WebSocket frame out", frame)

		if _, err := c.conn.Write(frame); err != nil {
			logging.Debug("Write failed, closing connection",
				zap.String("conn_id", c.ID),
				zap.String("remote_addr", c.RemoteAddr),
				zap.Error(err),
			)
			failed = true
			_ = c.conn.Close()
		}
	}
}
