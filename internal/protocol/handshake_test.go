package protocol

import (
	"errors"
	"testing"
)

func TestAcceptKey_RFCExample(t *testing.T) {
	got := AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Errorf("AcceptKey() = %s, want %s", got, want)
	}
}

func TestAcceptKey_TrimsKey(t *testing.T) {
	if AcceptKey("  dGhlIHNhbXBsZSBub25jZQ== ") != AcceptKey("dGhlIHNhbXBsZSBub25jZQ==") {
		t.Error("AcceptKey should ignore surrounding whitespace")
	}
}

func TestSwitchingProtocols(t *testing.T) {
	got := string(SwitchingProtocols("dGhlIHNhbXBsZSBub25jZQ=="))
	want := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n\r\n"
	if got != want {
		t.Errorf("SwitchingProtocols() = %q, want %q", got, want)
	}
}

func TestParseHandshake(t *testing.T) {
	tests := []struct {
		name         string
		request      string
		wantErr      error
		wantKey      string
		wantTarget   string
		wantToken    string
		wantHasToken bool
	}{
		{
			name: "token in query",
			request: "GET /ws?token=abc123&room=1 HTTP/1.1\r\n" +
				"Host: localhost:9000\r\n" +
				"Upgrade: websocket\r\n" +
				"Connection: Upgrade\r\n" +
				"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
				"Sec-WebSocket-Version: 13\r\n\r\n",
			wantKey:      "dGhlIHNhbXBsZSBub25jZQ==",
			wantTarget:   "/ws?token=abc123&room=1",
			wantToken:    "abc123",
			wantHasToken: true,
		},
		{
			name: "no token",
			request: "GET / HTTP/1.1\r\n" +
				"Sec-WebSocket-Key: abc\r\n\r\n",
			wantKey:    "abc",
			wantTarget: "/",
		},
		{
			name: "empty token is present",
			request: "GET /?token= HTTP/1.1\r\n" +
				"Sec-WebSocket-Key: abc\r\n\r\n",
			wantKey:      "abc",
			wantTarget:   "/?token=",
			wantHasToken: true,
		},
		{
			name: "escaped token",
			request: "GET /?token=a%2Bb HTTP/1.1\r\n" +
				"Sec-WebSocket-Key: abc\r\n\r\n",
			wantKey:      "abc",
			wantTarget:   "/?token=a%2Bb",
			wantToken:    "a+b",
			wantHasToken: true,
		},
		{
			name: "header name is case-insensitive",
			request: "GET / HTTP/1.1\r\n" +
				"sec-websocket-key:   padded==  \r\n",
			wantKey:    "padded==",
			wantTarget: "/",
		},
		{
			name:    "missing key",
			request: "GET / HTTP/1.1\r\nHost: x\r\n\r\n",
			wantErr: ErrNoKey,
		},
		{
			name:    "key line not yet terminated",
			request: "GET / HTTP/1.1\r\nSec-WebSocket-Key: abc",
			wantErr: ErrNoKey,
		},
		{
			name:    "empty input",
			request: "",
			wantErr: ErrNoKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs, err := ParseHandshake([]byte(tt.request))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseHandshake() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHandshake() unexpected error = %v", err)
			}
			if hs.Key != tt.wantKey {
				t.Errorf("Key = %q, want %q", hs.Key, tt.wantKey)
			}
			if hs.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", hs.Target, tt.wantTarget)
			}
			if hs.Token != tt.wantToken || hs.HasToken != tt.wantHasToken {
				t.Errorf("Token = %q/%v, want %q/%v", hs.Token, hs.HasToken, tt.wantToken, tt.wantHasToken)
			}
		})
	}
}
