package push

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{
			name:          "timeout",
			err:           &net.OpError{Op: "dial", Net: "tcp", Err: timeoutError{}},
			wantType:      ErrTypeTimeout,
			wantRetryable: true,
		},
		{
			name:          "connection refused",
			err:           &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			wantType:      ErrTypeConnectionRefused,
			wantRetryable: true,
		},
		{
			name:          "host unreachable",
			err:           &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH},
			wantType:      ErrTypeNetwork,
			wantRetryable: true,
		},
		{
			name:          "dns",
			err:           &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Name: "nowhere.invalid", Err: "no such host"}},
			wantType:      ErrTypeDNS,
			wantRetryable: false,
		},
		{
			name:          "wrapped refused",
			err:           fmt.Errorf("write: %w", &net.OpError{Op: "write", Net: "tcp", Err: syscall.ECONNREFUSED}),
			wantType:      ErrTypeConnectionRefused,
			wantRetryable: true,
		},
		{
			name:          "generic",
			err:           errors.New("something odd"),
			wantType:      ErrTypeNetwork,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "127.0.0.1:9001")

			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error should wrap the original")
			}
			if got.Addr != "127.0.0.1:9001" {
				t.Errorf("Addr = %q", got.Addr)
			}
		})
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if got := ClassifyNetworkError(nil, "x"); got != nil {
		t.Errorf("ClassifyNetworkError(nil) = %v, want nil", got)
	}
}

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		et   ErrorType
		want string
	}{
		{ErrTypeNetwork, "Network Error"},
		{ErrTypeTimeout, "Timeout"},
		{ErrTypeConnectionRefused, "Connection Refused"},
		{ErrTypeDNS, "DNS Error"},
		{ErrTypeEncode, "Encode Error"},
		{ErrTypeValidation, "Validation Error"},
		{ErrorType(99), "ErrorType(99)"},
	}

	for _, tt := range tests {
		if got := tt.et.String(); got != tt.want {
			t.Errorf("ErrorType(%d).String() = %q, want %q", tt.et, got, tt.want)
		}
	}
}

func TestMessages(t *testing.T) {
	refused := &Error{Type: ErrTypeConnectionRefused, Message: "refused", Addr: "127.0.0.1:9001"}

	if got := GetShortErrorMessage(refused); !strings.Contains(got, "refused") {
		t.Errorf("GetShortErrorMessage() = %q", got)
	}
	if got := GetTroubleshootingHint(refused); !strings.Contains(got, "127.0.0.1:9001") {
		t.Errorf("GetTroubleshootingHint() = %q, want address mentioned", got)
	}

	plain := errors.New("plain")
	if got := GetShortErrorMessage(plain); got != "plain" {
		t.Errorf("GetShortErrorMessage(plain) = %q", got)
	}
	if IsRetryable(plain) {
		t.Error("plain errors should not be retryable")
	}

	wrapped := fmt.Errorf("push: %w", refused)
	if got := GetShortErrorMessage(wrapped); !strings.Contains(got, "admin port") {
		t.Errorf("GetShortErrorMessage(wrapped) = %q", got)
	}
}
