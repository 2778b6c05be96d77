// Package protocol implements the byte-level WebSocket subset spoken by socketd.
//
// It has two halves: the opening handshake and the frame codec. Both are pure
// functions over byte slices; no I/O happens here.
//
// # Handshake
//
// The server reads raw bytes from a fresh connection and hands them to
// ParseHandshake. Once a Sec-WebSocket-Key line is present the request target is
// taken from the request line and its "token" query parameter is extracted:
//
//	GET /chat?token=abc123 HTTP/1.1\r\n
//	Host: example.com\r\n
//	Upgrade: websocket\r\n
//	Connection: Upgrade\r\n
//	Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n
//	Sec-WebSocket-Version: 13\r\n
//	\r\n
//
// SwitchingProtocols produces the response the server writes back:
//
//	HTTP/1.1 101 Switching Protocols\r\n
//	Upgrade: websocket\r\n
//	Connection: Upgrade\r\n
//	Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n
//	\r\n
//
// # Frame Codec
//
// Client frames are masked; server frames are not. DecodeText treats every
// inbound buffer as exactly one complete text frame:
//
//	byte 0     FIN/opcode (ignored)
//	byte 1     mask bit + 7-bit length (126 => 16-bit length follows, 127 => 64-bit)
//	[2 or 8]   extended length, big-endian
//	4 bytes    mask key
//	rest       payload, XOR mask[i%4]
//
// Payloads that are not valid UTF-8 after unmasking are dropped.
//
// EncodeText always emits 0x81 (FIN + text) followed by the shortest length
// encoding and the raw UTF-8 payload.
//
// # Limitations
//
// There is no reassembly: a frame split across reads, or two frames coalesced
// into one read, is decoded as whatever the buffer happens to hold. Continuation,
// close, ping and pong frames are not interpreted.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package protocol
