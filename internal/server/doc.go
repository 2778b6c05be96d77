// Package server implements the socketd WebSocket server.
//
// The server speaks a deliberately small subset of RFC 6455 over plain TCP.
// The handshake and framing are hand-rolled (see package protocol); no
// WebSocket library is involved on the server side.
//
// # Concurrency
//
// One event-loop goroutine owns the connection Registry: live connections,
// their handshake state, their rate-limit windows and the user index. Every
// other goroutine talks to it by posting events:
//
//   - the accept goroutine posts newly accepted sockets
//   - one reader goroutine per connection posts raw chunks and disconnects
//   - admin ingress goroutines post parsed push messages
//   - the ops HTTP handlers post stats requests
//
// Each connection also has a writer goroutine draining a bounded outbound
// queue, so a slow client never stalls fan-out. When a queue is full the
// frame is dropped for that client only.
//
// # Connection lifecycle
//
//	Connecting -> Handshaking -> Open -> Closed
//
// Handshake bytes accumulate until a complete Sec-WebSocket-Key line has
// arrived. The token query parameter is then passed to the configured
// auth.Authorizer. A rejected client is disconnected without a response. An
// admitted client receives the 101 response, and any identity the token
// resolved to is recorded in the user index.
//
// After the handshake every chunk read is decoded as one masked text frame.
// Frames that do not decode to valid UTF-8 are dropped and the connection
// stays open. Each accepted message counts against the connection's sliding
// rate window; exceeding it disconnects the client. Accepted messages are
// broadcast to every other handshaken connection (or, with the "identified"
// recipients policy, every other connection in the user index).
//
// # Admin push
//
// When an admin port is configured, local processes can open a TCP
// connection, write one JSON object and close:
//
//	{"type": "broadcast", "payload": {"event": "notice", "data": "hi"}}
//	{"type": "private", "user_id": 42, "payload": "hello"}
//
// # Ops
//
// With metrics_addr set, an HTTP server exposes /metrics, /healthz and /stats.
//
// # Usage Example
//
//	cfg := config.Default()
//	srv, err := server.New(cfg, auth.AllowAll{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	// Run blocks until ctx is cancelled
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
