// File: httpparse/parser.go
// Package httpparse implements a streaming, line-oriented HTTP/1.1 request
// header parser: bytes arrive incrementally off a non-blocking socket and
// the parser accumulates them into request-line and header fields as
// complete lines become available.
//
// The parser is a persistent state machine that survives across multiple
// Feed calls, since a connection slot only owns a fixed per-tick byte
// budget and must not block waiting for a full header to arrive.
package httpparse

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/embedserve/emhttpd/api"
)

// maxLineLen bounds a single accumulated header/request line to guard
// against an unbounded line buffer on a malicious or broken peer.
const maxLineLen = 8192

// ContinueResponse is the literal interim response written immediately
// when a request carries Expect: 100-continue.
const ContinueResponse = "HTTP/1.1 100 Continue\r\n\r\n"

// Parser incrementally parses an HTTP/1.1 request header from a byte
// stream. Feed must be called with newly arrived bytes; it returns the
// number of bytes consumed (always len(data) unless the header completed
// mid-buffer, in which case the remainder belongs to the body/next read).
type Parser struct {
	header      api.RequestHeader
	lineBuf     []byte
	sawRequest  bool
	continueHdr bool
	err         error
}

// NewParser returns a fresh parser ready to consume a new request.
func NewParser() *Parser {
	return &Parser{}
}

// Reset clears parser state so the owning Connection slot can reuse it for
// the next accepted socket.
func (p *Parser) Reset() {
	p.header.Reset()
	p.lineBuf = p.lineBuf[:0]
	p.sawRequest = false
	p.continueHdr = false
	p.err = nil
}

// Err returns the first malformed-request error encountered, if any.
func (p *Parser) Err() error {
	return p.err
}

// Header returns the header parsed so far; fields are only meaningful once
// IsComplete reports true except where the parser has already extracted
// them incrementally (host, content-type, etc., which are set as their
// header lines are seen).
func (p *Parser) Header() *api.RequestHeader {
	return &p.header
}

// IsComplete reports whether the terminating blank line has been seen.
func (p *Parser) IsComplete() bool {
	return p.header.IsComplete()
}

// IsContinue reports whether the client sent Expect: 100-continue, used by
// the caller to decide whether to write the 100 Continue interim response.
func (p *Parser) IsContinue() bool {
	return p.header.IsContinue
}

// Feed consumes data, dispatching complete lines as they accumulate.
// Returns the number of bytes consumed from data; once IsComplete is true
// the remaining, unconsumed bytes (if any) are the start of the request
// body and must be fed to the body/multipart/WebSocket layer directly.
func (p *Parser) Feed(data []byte) int {
	consumed := 0
	for consumed < len(data) {
		if p.IsComplete() {
			break
		}
		b := data[consumed]
		consumed++
		if b == '\n' {
			line := p.lineBuf
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line = line[:n-1]
			}
			p.dispatchLine(string(line))
			p.lineBuf = p.lineBuf[:0]
			continue
		}
		if len(p.lineBuf) >= maxLineLen {
			p.err = api.ErrMalformedRequest
			p.header.MarkComplete()
			break
		}
		p.lineBuf = append(p.lineBuf, b)
	}
	return consumed
}

func (p *Parser) dispatchLine(line string) {
	if !p.sawRequest {
		p.sawRequest = true
		p.parseRequestLine(line)
		return
	}
	if line == "" {
		p.header.MarkComplete()
		return
	}
	p.parseHeaderLine(line)
}

func (p *Parser) parseRequestLine(line string) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		p.err = api.ErrMalformedRequest
		p.header.MarkComplete()
		return
	}
	method, ok := api.ParseMethod(parts[0])
	if !ok {
		p.err = api.ErrMalformedRequest
		p.header.MarkComplete()
		return
	}
	p.header.Method = method
	p.header.Version = parts[2]

	raw := parts[1]
	p.header.RawURI = raw

	rawPath := raw
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		rawPath = raw[:idx]
		p.header.Params = raw[idx+1:]
	}
	decoded, err := url.QueryUnescape(rawPath)
	if err != nil {
		decoded = rawPath
	}
	p.header.URL = decoded
}

func (p *Parser) parseHeaderLine(line string) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	p.header.AddHeader(name, value)

	switch strings.ToLower(name) {
	case "host":
		p.header.Host = value
	case "content-type":
		ct, boundary := splitContentType(value)
		p.header.ContentType = ct
		if strings.HasPrefix(strings.ToLower(ct), "multipart/") {
			p.header.IsMultipart = true
			p.header.MultipartBoundary = boundary
		}
	case "content-length":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.header.ContentLength = n
			p.header.HasLength = true
		}
	case "expect":
		if strings.EqualFold(value, "100-continue") {
			p.header.IsContinue = true
		}
	case "authorization":
		p.header.Authorization = value
		p.header.IsDigestAuth = strings.HasPrefix(strings.ToLower(value), "digest ")
	case "upgrade":
		if strings.EqualFold(value, "websocket") {
			p.header.ConnType = api.ConnWebSocket
		}
	case "accept":
		if strings.Contains(value, "text/event-stream") {
			p.header.ConnType = api.ConnEvent
		}
	case "sec-websocket-key":
		p.header.WSKey = value
	case "sec-websocket-version":
		p.header.WSVersion = value
	}
}

// splitContentType splits "type/subtype; boundary=\"xyz\"" into the bare
// media type and (when present) the unquoted boundary token.
func splitContentType(value string) (mediaType, boundary string) {
	parts := strings.Split(value, ";")
	mediaType = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		k, v, ok := strings.Cut(p, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "boundary") {
			continue
		}
		boundary = strings.Trim(strings.TrimSpace(v), `"`)
	}
	return mediaType, boundary
}
