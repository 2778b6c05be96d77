package protocol

import (
	"encoding/binary"
	"unicode/utf8"
)

// WebSocket frame opcodes
const (
	OpcodeContinuation = 0x0
	OpcodeText         = 0x1
	OpcodeBinary       = 0x2
	OpcodeClose        = 0x8
	OpcodePing         = 0x9
	OpcodePong         = 0xA
)

const (
	// finText is byte 1 of every frame we send: FIN set, text opcode.
	finText = 0x80 | OpcodeText

	// minMaskedFrame is the smallest masked frame: 2 header bytes + 4 mask bytes.
	minMaskedFrame = 6

	lengthMarker16 = 126
	lengthMarker64 = 127
)

// DecodeText decodes one masked client frame held entirely in data and returns
// its UTF-8 payload.
//
// The opcode and FIN bit are not inspected: every inbound frame is treated as a
// single complete text message. The payload is everything after the mask key;
// the declared length is only used to locate the mask. ok is false when data is
// too short to hold a mask key or when the unmasked bytes are not valid UTF-8.
func DecodeText(data []byte) (text string, ok bool) {
	if len(data) < minMaskedFrame {
		return "", false
	}

	maskStart := lengthEnd(data[1])
	if len(data) < maskStart+4 {
		return "", false
	}

	var maskKey [4]byte
	copy(maskKey[:], data[maskStart:maskStart+4])

	payload := unmaskPayload(data[maskStart+4:], maskKey)
	if !utf8.Valid(payload) {
		return "", false
	}

	return string(payload), true
}

// lengthEnd returns the offset just past the length field, where the mask key
// (if any) starts.
func lengthEnd(b1 byte) int {
	switch b1 & 0x7F {
	case lengthMarker16:
		return 4
	case lengthMarker64:
		return 10
	default:
		return 2
	}
}

// DeclaredLength returns the payload length a frame header claims, or false
// when the header itself is truncated.
func DeclaredLength(data []byte) (uint64, bool) {
	if len(data) < 2 {
		return 0, false
	}
	switch n := data[1] & 0x7F; n {
	case lengthMarker16:
		if len(data) < 4 {
			return 0, false
		}
		return uint64(binary.BigEndian.Uint16(data[2:4])), true
	case lengthMarker64:
		if len(data) < 10 {
			return 0, false
		}
		return binary.BigEndian.Uint64(data[2:10]), true
	default:
		return uint64(n), true
	}
}

// Incomplete reports whether data holds fewer payload bytes than its header
// declares. Such a chunk is a partial read; DecodeText still decodes whatever
// arrived. Extra trailing bytes do not count as incomplete.
func Incomplete(data []byte) bool {
	declared, ok := DeclaredLength(data)
	if !ok {
		return true
	}
	header := lengthEnd(data[1])
	if data[1]&0x80 != 0 {
		header += 4
	}
	if len(data) < header {
		return true
	}
	return uint64(len(data)-header) < declared
}

// EncodeText wraps text in a single unmasked server-to-client text frame.
func EncodeText(text string) []byte {
	payloadLen := len(text)

	var frame []byte
	switch {
	case payloadLen <= 125:
		frame = make([]byte, 2, 2+payloadLen)
		frame[1] = byte(payloadLen)
	case payloadLen <= 0xFFFF:
		frame = make([]byte, 4, 4+payloadLen)
		frame[1] = lengthMarker16
		binary.BigEndian.PutUint16(frame[2:4], uint16(payloadLen))
	default:
		frame = make([]byte, 10, 10+payloadLen)
		frame[1] = lengthMarker64
		binary.BigEndian.PutUint64(frame[2:10], uint64(payloadLen))
	}
	frame[0] = finText

	return append(frame, text...)
}

// unmaskPayload applies XOR mask to payload (WebSocket unmasking algorithm)
func unmaskPayload(payload []byte, maskKey [4]byte) []byte {
	unmasked := make([]byte, len(payload))
	for i := 0; i < len(payload); i++ {
		unmasked[i] = payload[i] ^ maskKey[i%4]
	}
	return unmasked
}

// OpcodeName returns a human-readable name for the low nibble of byte 0.
func OpcodeName(opcode byte) string {
	switch opcode {
	case OpcodeContinuation:
		return "continuation"
	case OpcodeText:
		return "text"
	case OpcodeBinary:
		return "binary"
	case OpcodeClose:
		return "close"
	case OpcodePing:
		return "ping"
	case OpcodePong:
		return "pong"
	default:
		return "unknown"
	}
}
