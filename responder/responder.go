// File: responder/responder.go
// Package responder implements the polymorphic response-producer contract:
// a Connection slot drives whichever concrete Responder its HandlerRegistry
// matched, without caring which concrete variant it is. There is no
// middleware chain — the registry picks exactly one Responder per request —
// so the interface is the whole dispatch mechanism, shared by the five
// response-producer kinds (file, data, REST, WebSocket, SSE).
package responder

import "github.com/embedserve/emhttpd/api"

// Responder is the shared contract for every response-producer variant.
type Responder interface {
	// Start prepares the responder for request. It returns false when the
	// responder could not be prepared (e.g. a WebSocket upgrade without a
	// Sec-WebSocket-Key) and must be
	// discarded by the caller.
	Start(request *api.RequestHeader) bool

	// PollNext returns up to maxLen bytes of the next outbound chunk. An
	// empty, non-nil return means "nothing ready this tick"; a nil return
	// combined with !ReadyToSend() means the responder is exhausted.
	PollNext(maxLen int) []byte

	// HandleInbound feeds newly received request-body (or WebSocket frame)
	// bytes to the responder. Returns false on a protocol violation the
	// caller should treat as a fatal connection error.
	HandleInbound(data []byte) bool

	// ReadyToReceiveData is a flow-control hint: should the connection
	// attempt a non-blocking recv and forward bytes via HandleInbound.
	ReadyToReceiveData() bool

	// ReadyToSend reports whether PollNext is likely to produce more data.
	ReadyToSend() bool

	ContentType() string
	// ContentLength returns the total response size and whether it is
	// known in advance (false for chunked/streaming responders).
	ContentLength() (int64, bool)
	ExtraHeaders() []api.HeaderField

	// LeaveConnOpen disables the slot's idle/total timeouts (WebSocket,
	// SSE).
	LeaveConnOpen() bool
	// StdHeaderRequired reports whether the Connection must emit the
	// standard status-line/header block before the first PollNext chunk.
	StdHeaderRequired() bool

	// ChannelID returns the WebSocket channel id this responder occupies,
	// if any.
	ChannelID() (uint32, bool)

	// Close releases any resources (open file, reassembly buffers,
	// channel id) the responder holds.
	Close()
}
