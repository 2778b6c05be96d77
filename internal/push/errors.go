package push

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the dial or write timed out
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening on the admin port
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeEncode indicates the message could not be encoded
	ErrTypeEncode
	// ErrTypeValidation indicates an invalid request (missing user id, empty address)
	ErrTypeValidation
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeEncode:
		return "Encode Error"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is a failed push.
type Error struct {
	Type      ErrorType
	Message   string
	Addr      string // admin address the push was sent to
	Err       error
	Retryable bool
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps a dial or write error onto an *Error.
func ClassifyNetworkError(err error, addr string) *Error {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &Error{Type: ErrTypeTimeout, Message: "Server did not respond in time", Addr: addr, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:    ErrTypeDNS,
			Message: fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Addr:    addr,
			Err:     err,
		}
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return &Error{Type: ErrTypeConnectionRefused, Message: "Server refused connection", Addr: addr, Err: err, Retryable: true}
	case errors.Is(err, syscall.EHOSTUNREACH):
		return &Error{Type: ErrTypeNetwork, Message: "Host unreachable", Addr: addr, Err: err, Retryable: true}
	case errors.Is(err, syscall.ENETUNREACH):
		return &Error{Type: ErrTypeNetwork, Message: "Network unreachable", Addr: addr, Err: err, Retryable: true}
	}

	return &Error{Type: ErrTypeNetwork, Message: "Network error occurred", Addr: addr, Err: err, Retryable: true}
}

// IsRetryable reports whether err is a push error worth retrying.
func IsRetryable(err error) bool {
	var pushErr *Error
	if errors.As(err, &pushErr) {
		return pushErr.Retryable
	}
	return false
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var pushErr *Error
	if !errors.As(err, &pushErr) {
		return err.Error()
	}

	switch pushErr.Type {
	case ErrTypeTimeout:
		return "Server not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Connection refused - is socketd running with an admin port?"
	case ErrTypeDNS:
		return "Cannot resolve server hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	default:
		return pushErr.Message
	}
}

// GetTroubleshootingHint returns troubleshooting advice for err.
func GetTroubleshootingHint(err error) string {
	var pushErr *Error
	if !errors.As(err, &pushErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch pushErr.Type {
	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"Nothing accepted the connection on " + pushErr.Addr + ".",
			"Troubleshooting:",
			"  • Check that socketd serve is running",
			"  • Verify admin_port is set (0 disables push ingress)",
			"  • The admin port binds to the configured host only",
		}, "\n")
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The server did not respond in time.",
			"Troubleshooting:",
			"  • Check firewall rules for the admin port",
			"  • Try a longer --timeout",
		}, "\n")
	case ErrTypeDNS:
		return "Use an IP address, or try --discover to find the server on the local network."
	case ErrTypeValidation, ErrTypeEncode:
		return "Check the command arguments."
	default:
		return "Check your network connection and the server address."
	}
}
