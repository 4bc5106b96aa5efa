// File: wsproto/handshake.go
// Package wsproto implements RFC 6455 framing and the upgrade handshake for
// a WebSocket connection riding on a connection slot.
//
// SHA-1 of the client key concatenated with the RFC 6455 magic GUID,
// Base64-encoded, is the Sec-WebSocket-Accept value. The request header is
// already parsed upstream by httpparse, so this package only computes the
// accept key and renders the upgrade response bytes.
package wsproto

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"

	"github.com/embedserve/emhttpd/api"
)

// webSocketGUID is the RFC 6455 magic value appended to the client key
// before hashing.
const webSocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// AcceptKey computes Sec-WebSocket-Accept for a given Sec-WebSocket-Key.
func AcceptKey(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey))
	h.Write([]byte(webSocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// UpgradeResponse renders the 101 Switching Protocols response for a
// validated upgrade request.
func UpgradeResponse(header *api.RequestHeader) ([]byte, error) {
	if header.WSKey == "" {
		return nil, fmt.Errorf("wsproto: missing Sec-WebSocket-Key")
	}
	accept := AcceptKey(header.WSKey)
	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + accept + "\r\n\r\n"
	return []byte(resp), nil
}
