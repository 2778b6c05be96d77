package protocol

import (
	"bytes"
	"strings"
	"testing"
)

// clientWrap turns a server frame into the masked frame a client would send
// for the same payload.
func clientWrap(serverFrame []byte, maskKey [4]byte) []byte {
	headerLen := 2
	switch serverFrame[1] & 0x7F {
	case 126:
		headerLen = 4
	case 127:
		headerLen = 10
	}

	out := make([]byte, 0, len(serverFrame)+4)
	out = append(out, serverFrame[:headerLen]...)
	out[1] |= 0x80
	out = append(out, maskKey[:]...)
	for i, b := range serverFrame[headerLen:] {
		out = append(out, b^maskKey[i%4])
	}
	return out
}

func TestEncodeText_LengthEncoding(t *testing.T) {
	tests := []struct {
		name       string
		length     int
		wantMarker byte
		wantHeader int
	}{
		{"empty", 0, 0, 2},
		{"7-bit max", 125, 125, 2},
		{"16-bit min", 126, 126, 4},
		{"16-bit max", 65535, 126, 4},
		{"64-bit min", 65536, 127, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := EncodeText(strings.Repeat("x", tt.length))

			if frame[0] != 0x81 {
				t.Errorf("byte 0 = 0x%02x, want 0x81", frame[0])
			}
			if frame[1] != tt.wantMarker {
				t.Errorf("byte 1 = %d, want %d", frame[1], tt.wantMarker)
			}
			if frame[1]&0x80 != 0 {
				t.Error("server frames must not set the mask bit")
			}
			if got := len(frame) - tt.length; got != tt.wantHeader {
				t.Errorf("header length = %d, want %d", got, tt.wantHeader)
			}

			declared, ok := DeclaredLength(frame)
			if !ok || declared != uint64(tt.length) {
				t.Errorf("DeclaredLength() = %d, %v; want %d, true", declared, ok, tt.length)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	maskKey := [4]byte{0x37, 0xFA, 0x21, 0x3D}

	for _, n := range []int{0, 125, 126, 65535, 65536} {
		s := strings.Repeat("a", n)
		got, ok := DecodeText(clientWrap(EncodeText(s), maskKey))
		if !ok {
			t.Fatalf("DecodeText(len %d) ok = false", n)
		}
		if got != s {
			t.Errorf("round trip of len %d returned %d bytes", n, len(got))
		}
	}
}

func TestRoundTrip_MultiByte(t *testing.T) {
	s := strings.Repeat("héllo wörld ✓ ", 10)
	got, ok := DecodeText(clientWrap(EncodeText(s), [4]byte{1, 2, 3, 4}))
	if !ok || got != s {
		t.Errorf("DecodeText() = %q, %v; want %q, true", got, ok, s)
	}
}

func TestDecodeText_RFCExample(t *testing.T) {
	// Masked "Hello" from RFC 6455 section 5.7
	frame := []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58}

	got, ok := DecodeText(frame)
	if !ok || got != "Hello" {
		t.Errorf("DecodeText() = %q, %v; want \"Hello\", true", got, ok)
	}
}

func TestDecodeText_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"shorter than masked header", []byte{0x81, 0x80, 0x00, 0x00, 0x00}},
		{"16-bit marker without room for mask", []byte{0x81, 0xFE, 0x00, 0x7E, 0x01, 0x02}},
		{"64-bit marker without room for mask", []byte{0x81, 0xFF, 0, 0, 0, 0, 0, 1, 0, 0, 1, 2}},
		{"invalid utf-8", clientWrap([]byte{0x81, 0x02, 0xFF, 0xFE}, [4]byte{9, 8, 7, 6})},
		{"truncated utf-8 sequence", clientWrap([]byte{0x81, 0x02, 0xC3, 0x28}, [4]byte{0, 0, 0, 0})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeText(tt.data)
			if ok {
				t.Errorf("DecodeText() = %q, true; want dropped", got)
			}
			if got != "" {
				t.Errorf("DecodeText() text = %q, want empty", got)
			}
		})
	}
}

func TestDecodeText_IgnoresOpcode(t *testing.T) {
	// Binary opcode, FIN clear: still decoded as text
	frame := clientWrap([]byte{0x02, 0x02, 'o', 'k'}, [4]byte{5, 6, 7, 8})

	got, ok := DecodeText(frame)
	if !ok || got != "ok" {
		t.Errorf("DecodeText() = %q, %v; want \"ok\", true", got, ok)
	}
}

func TestUnmaskPayload(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	maskKey := [4]byte{0xAA, 0xBB, 0xCC, 0xDD}

	masked := unmaskPayload(payload, maskKey)
	if bytes.Equal(masked, payload) {
		t.Fatal("masking should change the payload")
	}
	if got := unmaskPayload(masked, maskKey); !bytes.Equal(got, payload) {
		t.Errorf("unmask(mask(p)) = %v, want %v", got, payload)
	}
}

func TestOpcodeName(t *testing.T) {
	tests := []struct {
		opcode byte
		want   string
	}{
		{OpcodeContinuation, "continuation"},
		{OpcodeText, "text"},
		{OpcodeBinary, "binary"},
		{OpcodeClose, "close"},
		{OpcodePing, "ping"},
		{OpcodePong, "pong"},
		{0x3, "unknown"},
	}

	for _, tt := range tests {
		if got := OpcodeName(tt.opcode); got != tt.want {
			t.Errorf("OpcodeName(0x%x) = %s, want %s", tt.opcode, got, tt.want)
		}
	}
}

func TestIncomplete(t *testing.T) {
	key := [4]byte{1, 2, 3, 4}
	short := clientWrap(EncodeText("hello"), key)
	long := clientWrap(EncodeText(strings.Repeat("x", 300)), key)

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"complete 7-bit", short, false},
		{"complete 16-bit", long, false},
		{"trailing bytes", append(append([]byte{}, short...), 0x81), false},
		{"payload cut short", short[:len(short)-2], true},
		{"16-bit payload cut short", long[:200], true},
		{"mask key cut short", long[:6], true},
		{"header only", []byte{0x81}, true},
		{"unmasked complete", EncodeText("hi"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Incomplete(tt.data); got != tt.want {
				t.Errorf("Incomplete() = %v, want %v", got, tt.want)
			}
		})
	}
}
