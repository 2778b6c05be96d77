// Package logging provides structured logging for the socketd server.
//
// This package wraps a process-wide zap logger with convenience functions for
// the logging patterns used by the event loop, the admin ingress and the CLI.
//
// # Log Levels
//
//   - Debug: Dropped frames, raw handshake bytes, per-recipient write failures
//   - Info: Server start, accepted and closed connections, completed handshakes
//   - Warn: Unauthorized attempts, rate-limit violations, full outbound queues
//   - Error: Token-store lookup failures, listener failures
//
// # Channels
//
// The log channel selects where entries go:
//
//	logging.Initialize("info", "stdout")             // console format on stdout
//	logging.Initialize("debug", "stderr")            // console format on stderr
//	logging.Initialize("info", "/var/log/socketd.log") // JSON lines appended to a file
//
// An empty level falls back to the SOCKETD_LOG_LEVEL environment variable. If
// that is empty too, logging is silent.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
