package protocol

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
)

// webSocketGUID is the fixed handshake GUID from RFC 6455 section 1.3.
const webSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// TokenParam is the query parameter carrying the client's bearer token.
const TokenParam = "token"

// ErrNoKey is returned while the buffered request does not yet contain a
// complete Sec-WebSocket-Key header line.
var ErrNoKey = errors.New("no Sec-WebSocket-Key header")

var crlf = []byte("\r\n")

// Handshake is the part of an HTTP upgrade request the server acts on.
type Handshake struct {
	// Key is the trimmed Sec-WebSocket-Key value.
	Key string
	// Target is the request-target from the request line, e.g. "/ws?token=abc".
	Target string
	// Token is the token query parameter, valid only if HasToken is set.
	Token    string
	HasToken bool
}

// ParseHandshake extracts the key, request target and token from the raw bytes
// of an HTTP upgrade request. Only complete CRLF-terminated lines are examined.
// It returns ErrNoKey if no Sec-WebSocket-Key line has arrived yet.
func ParseHandshake(data []byte) (*Handshake, error) {
	var (
		hs        Handshake
		firstLine = true
		found     bool
	)

	for {
		idx := bytes.Index(data, crlf)
		if idx < 0 {
			break
		}
		line := string(data[:idx])
		data = data[idx+len(crlf):]

		if firstLine {
			firstLine = false
			hs.Target = requestTarget(line)
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Sec-WebSocket-Key") {
			hs.Key = strings.TrimSpace(value)
			found = true
		}
	}

	if !found {
		return nil, ErrNoKey
	}

	hs.Token, hs.HasToken = tokenFromTarget(hs.Target)
	return &hs, nil
}

// requestTarget returns the second field of a "GET <target> HTTP/1.1" line.
func requestTarget(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

func tokenFromTarget(target string) (string, bool) {
	if target == "" {
		return "", false
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	query := u.Query()
	if !query.Has(TokenParam) {
		return "", false
	}
	return query.Get(TokenParam), true
}

// AcceptKey computes the Sec-WebSocket-Accept value for a client key.
func AcceptKey(key string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(key) + webSocketGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SwitchingProtocols builds the exact HTTP 101 response for a client key.
func SwitchingProtocols(key string) []byte {
	return []byte("HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + AcceptKey(key) + "\r\n\r\n")
}
