// File: responder/sse.go
//
// SSEResponder streams Server-Sent Events: a fixed 200 response with
// text/event-stream framing, held open indefinitely, fed by app-queued
// events rather than anything the peer sends.
package responder

import (
	"strconv"
	"strings"
	"time"

	"github.com/embedserve/emhttpd/api"
)

// SSEResponder implements Responder for a long-lived event-stream
// connection. The connection slot never expects inbound bytes on this
// responder beyond the initial request; HandleInbound is a no-op.
type SSEResponder struct {
	headerSent bool
	pending    [][]byte
	cursor     int
	closed     bool

	// now is indirected so tests can substitute a deterministic clock.
	now func() time.Time
}

// NewSSEResponder constructs an SSE responder.
func NewSSEResponder() *SSEResponder {
	return &SSEResponder{now: time.Now}
}

func (r *SSEResponder) Start(*api.RequestHeader) bool { return true }

// SetClock overrides the clock SendEvent stamps ids with; tests substitute a
// deterministic one, production code never needs to call this.
func (r *SSEResponder) SetClock(now func() time.Time) {
	r.now = now
}

// SendEvent queues an event for delivery: an "id:" line stamped with the
// current unix time, an "event:" line carrying group (omitted when group is
// empty), one "data:" line per line of content, and a blank terminator, all
// CRLF-delimited.
func (r *SSEResponder) SendEvent(content string, group string) bool {
	if r.closed {
		return false
	}
	if r.now == nil {
		r.now = time.Now
	}
	var b strings.Builder
	b.WriteString("id: ")
	b.WriteString(strconv.FormatInt(r.now().Unix(), 10))
	b.WriteString("\r\n")
	if group != "" {
		b.WriteString("event: ")
		b.WriteString(group)
		b.WriteString("\r\n")
	}
	for _, line := range strings.Split(content, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	r.pending = append(r.pending, []byte(b.String()))
	return true
}

func (r *SSEResponder) HandleInbound([]byte) bool { return true }

func (r *SSEResponder) PollNext(maxLen int) []byte {
	if !r.headerSent {
		r.headerSent = true
		return []byte(
			"HTTP/1.1 200 OK\r\n" +
				"Content-Type: text/event-stream\r\n" +
				"Cache-Control: no-cache\r\n" +
				"Connection: keep-alive\r\n\r\n")
	}
	if r.cursor >= len(r.pending) {
		r.pending = nil
		r.cursor = 0
		return []byte{}
	}
	chunk := r.pending[r.cursor]
	if len(chunk) > maxLen {
		r.pending[r.cursor] = chunk[maxLen:]
		return chunk[:maxLen]
	}
	r.cursor++
	return chunk
}

func (r *SSEResponder) ReadyToReceiveData() bool { return false }
func (r *SSEResponder) ReadyToSend() bool { return !r.headerSent || r.cursor < len(r.pending) }
func (r *SSEResponder) ContentType() string { return "text/event-stream" }
func (r *SSEResponder) ContentLength() (int64, bool) { return 0, false }
func (r *SSEResponder) ExtraHeaders() []api.HeaderField { return nil }

// LeaveConnOpen keeps the slot's idle/total-duration timeouts from tearing
// down a stream that is, by design, mostly silent.
func (r *SSEResponder) LeaveConnOpen() bool { return true }

// StdHeaderRequired is false: PollNext's first chunk already carries the
// full status line and headers, tailored to event-stream framing.
func (r *SSEResponder) StdHeaderRequired() bool { return false }
func (r *SSEResponder) ChannelID() (uint32, bool) { return 0, false }
func (r *SSEResponder) Close() { r.closed = true }

var _ Responder = (*SSEResponder)(nil)
