package server

import (
	"strings"
	"testing"
)

func TestParsePushMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantUser string
		wantText string
		wantErr  string
	}{
		{
			name:     "broadcast string payload",
			input:    `{"type":"broadcast","payload":"hello"}`,
			wantType: PushBroadcast,
			wantText: "hello",
		},
		{
			name:     "broadcast object payload",
			input:    `{"type":"broadcast","payload":{"event":"notice","data":1}}`,
			wantType: PushBroadcast,
			wantText: `{"event":"notice","data":1}`,
		},
		{
			name:     "private with numeric user",
			input:    `{"type":"private","user_id":42,"payload":"hi"}`,
			wantType: PushPrivate,
			wantUser: "42",
			wantText: "hi",
		},
		{
			name:     "private with string user",
			input:    `{"type":"private","user_id":"abc","payload":[1,2]}`,
			wantType: PushPrivate,
			wantUser: "abc",
			wantText: "[1,2]",
		},
		{
			name:    "private without user",
			input:   `{"type":"private","payload":"hi"}`,
			wantErr: "without user_id",
		},
		{
			name:    "unknown type",
			input:   `{"type":"multicast","payload":"hi"}`,
			wantErr: "unknown push type",
		},
		{
			name:    "missing payload",
			input:   `{"type":"broadcast"}`,
			wantErr: "without payload",
		},
		{
			name:    "null payload",
			input:   `{"type":"broadcast","payload":null}`,
			wantErr: "without payload",
		},
		{
			name:    "not json",
			input:   `type=broadcast`,
			wantErr: "malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParsePushMessage([]byte(tt.input))

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ParsePushMessage() expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("ParsePushMessage() error = %q, want it to contain %q", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParsePushMessage() unexpected error: %v", err)
			}
			if msg.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", msg.Type, tt.wantType)
			}
			if msg.UserID != tt.wantUser {
				t.Errorf("UserID = %q, want %q", msg.UserID, tt.wantUser)
			}
			if msg.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", msg.Text, tt.wantText)
			}
		})
	}
}
