// File: connmgr/connection.go
//
// Connection is one slot in the fixed-size table ConnManager owns: it
// glues a netio.ClientConn, an httpparse.Parser, a responder.Responder,
// and a tail-drop transmit queue into a per-tick state machine. One struct
// owns the transport, drains its outbound queue once per tick, and feeds
// inbound bytes to the parser and responder — a single Service call
// invoked by ConnManager's cooperative tick, no per-slot goroutine. This
// server always closes after one response (Connection: close, per the
// standard header composition), so in practice a slot's life is one
// request.
package connmgr

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/control"
	"github.com/embedserve/emhttpd/httpparse"
	"github.com/embedserve/emhttpd/netio"
	"github.com/embedserve/emhttpd/pool"
	"github.com/embedserve/emhttpd/responder"
)

// Ticker is implemented by responders that need to run periodic liveness
// work (WebSocket ping scheduling) once per service tick, independent of
// whether any bytes arrived this tick.
type Ticker interface {
	Tick()
}

// continueRetryBudget bounds how long writing the 100-continue interim
// response will retry through EAGAIN before giving up silently; the
// client's body bytes will simply arrive a little later than it hoped.
const continueRetryBudget = 20 * time.Millisecond

// recvChunkSize is how much the slot tries to read off the socket in one
// non-blocking Recv call per tick.
const recvChunkSize = 4096

// Limits bundles the per-slot policy knobs a ConnManager hands every slot
// it owns, all sourced from server.Config.
type Limits struct {
	SendBufferMaxLen   int
	IdleTimeout        time.Duration
	TotalTimeout       time.Duration
	ClearPendingGrace  time.Duration
	StdResponseHeaders []api.HeaderField
	NotFoundBody       []byte
}

// byteCounters aggregates sent/received byte totals across every slot of
// one ConnManager; slots update them on each successful send or recv.
type byteCounters struct {
	sent     atomic.Int64
	received atomic.Int64
}

// Connection is one fixed slot; Empty() reports whether it currently holds
// a live client.
type Connection struct {
	id       int
	registry *HandlerRegistry
	limits   Limits
	logger   *control.Logger
	bufPool  api.BufferPool
	counters *byteCounters

	cc     netio.ClientConn
	parser *httpparse.Parser
	resp   responder.Responder

	recvBuf api.Buffer

	txBuf []byte

	createdAt      time.Time
	lastActivityAt time.Time
	clearPendingAt time.Time

	statusCode        int
	stdHeaderSent     bool
	statusOnlyEmitted bool
	clearPending      bool
}

// NewConnection constructs an empty slot identified by id.
func NewConnection(id int, registry *HandlerRegistry, limits Limits, logger *control.Logger, bufPool api.BufferPool) *Connection {
	if logger == nil {
		logger = control.Default()
	}
	if bufPool == nil {
		bufPool = pool.Default()
	}
	return &Connection{
		id:       id,
		registry: registry,
		limits:   limits,
		logger:   logger,
		bufPool:  bufPool,
		parser:   httpparse.NewParser(),
	}
}

// ID returns the slot's stable index in the owning ConnManager's table.
func (c *Connection) ID() int { return c.id }

// Empty reports whether the slot currently holds no live client.
func (c *Connection) Empty() bool { return c.cc == nil }

// SetNewConn assigns cc to this (assumed empty) slot, resetting all
// per-request state. Returns false if the slot was not actually empty.
func (c *Connection) SetNewConn(cc netio.ClientConn, now time.Time) bool {
	if !c.Empty() {
		return false
	}
	c.cc = cc
	c.parser.Reset()
	c.resp = nil
	c.recvBuf = c.bufPool.Get(recvChunkSize)
	c.txBuf = c.txBuf[:0]
	c.createdAt = now
	c.lastActivityAt = now
	c.statusCode = 0
	c.stdHeaderSent = false
	c.statusOnlyEmitted = false
	c.clearPending = false
	return true
}

// Service drives the slot one tick forward: drain the tx queue, check
// timeouts, read and dispatch any newly arrived bytes, and pump the
// responder for more outbound data, in that order.
func (c *Connection) Service(now time.Time) {
	if c.Empty() {
		return
	}

	c.drainTxQueue()
	if c.Empty() {
		return
	}

	if c.clearPending {
		if !now.Before(c.clearPendingAt) {
			c.clear()
		}
		return
	}

	if !c.leaveConnOpen() {
		if now.Sub(c.createdAt) > c.limits.TotalTimeout || now.Sub(c.lastActivityAt) > c.limits.IdleTimeout {
			c.logger.Debugf("connmgr: slot %d timed out", c.id)
			c.clear()
			return
		}
	}

	if t, ok := c.resp.(Ticker); ok {
		t.Tick()
	}

	c.serviceRecv(now)
	if c.Empty() {
		return
	}

	c.pumpResponse(now)
}

// leaveConnOpen reports whether the active responder disables the slot's
// idle/total timeouts (WebSocket, SSE). A nil responder (still parsing the
// header) never leaves the connection open indefinitely.
func (c *Connection) leaveConnOpen() bool {
	return c.resp != nil && c.resp.LeaveConnOpen()
}

func (c *Connection) serviceRecv(now time.Time) {
	wantRecv := true
	if c.resp != nil {
		wantRecv = c.resp.ReadyToReceiveData()
	}
	if !wantRecv {
		return
	}

	n, status := c.cc.Recv(c.recvBuf.Bytes())
	switch status {
	case api.RecvConnClosed, api.RecvError:
		c.clear()
		return
	}
	if n == 0 {
		return
	}
	if c.counters != nil {
		c.counters.received.Add(int64(n))
	}
	c.lastActivityAt = now
	data := c.recvBuf.Bytes()[:n]

	if !c.parser.IsComplete() {
		consumed := c.parser.Feed(data)
		if c.parser.IsComplete() {
			c.onHeaderComplete(now)
			if c.Empty() {
				return
			}
		}
		data = data[consumed:]
	}

	if len(data) > 0 && c.resp != nil {
		if !c.resp.HandleInbound(data) {
			c.logger.Debugf("connmgr: slot %d responder rejected inbound data", c.id)
			c.clear()
			return
		}
		c.lastActivityAt = now
	}
}

// onHeaderComplete runs exactly once, the instant the header parser's
// terminating blank line is seen: it fires the 100-continue interim
// response, special-cases the OPTIONS pre-flight (always 204 with CORS
// headers, never a second code path), and otherwise asks the
// HandlerRegistry for a Responder.
func (c *Connection) onHeaderComplete(now time.Time) {
	header := c.parser.Header()

	if c.parser.Err() != nil {
		c.statusCode = 400
		return
	}

	if c.parser.IsContinue() {
		netio.SendWithRetry(c.cc, []byte(httpparse.ContinueResponse), continueRetryBudget)
	}

	if header.Method == api.OPTIONS {
		c.queuePreflightResponse()
		return
	}

	resp, status := c.registry.GetNewResponder(header)
	if resp == nil {
		c.statusCode = status
		return
	}
	if !resp.Start(header) {
		c.statusCode = 404
		return
	}
	c.resp = resp
	if c.resp.LeaveConnOpen() {
		c.createdAt = now
	}
}

// queuePreflightResponse emits the single OPTIONS pre-flight code path:
// 204 No Content with CORS headers, no responder ever consulted.
func (c *Connection) queuePreflightResponse() {
	headers := []api.HeaderField{
		{Name: "Access-Control-Allow-Origin", Value: "*"},
		{Name: "Access-Control-Allow-Methods", Value: "GET, POST, PUT, DELETE, PATCH, OPTIONS"},
		{Name: "Access-Control-Allow-Headers", Value: "Content-Type, Authorization"},
		{Name: "Vary", Value: "Origin"},
		{Name: "Content-Length", Value: "0"},
	}
	c.queueBytes(buildStatusHeader(204, headers, c.limits.StdResponseHeaders, true))
	c.statusOnlyEmitted = true
}

// pumpResponse drains whatever the active responder (or, absent one, the
// pending bare-status response) has ready to send, prefixed by the
// standard header block exactly once.
func (c *Connection) pumpResponse(now time.Time) {
	if c.resp == nil {
		c.emitStatusOnlyIfNeeded()
		if !c.Empty() && c.statusOnlyEmitted && len(c.txBuf) == 0 && c.parser.IsComplete() {
			c.beginClearPending(now)
		}
		return
	}

	if !c.stdHeaderSent && c.resp.StdHeaderRequired() {
		ct := c.resp.ContentType()
		var headers []api.HeaderField
		if ct != "" {
			headers = append(headers, api.HeaderField{Name: "Content-Type", Value: ct})
		}
		headers = append(headers, c.resp.ExtraHeaders()...)
		if length, ok := c.resp.ContentLength(); ok {
			headers = append(headers, api.HeaderField{Name: "Content-Length", Value: strconv.FormatInt(length, 10)})
		}
		c.queueBytes(buildStatusHeader(200, headers, c.limits.StdResponseHeaders, !c.resp.LeaveConnOpen()))
		c.stdHeaderSent = true
	}
	if c.Empty() {
		return
	}

	chunk := c.resp.PollNext(c.limits.SendBufferMaxLen)
	if len(chunk) > 0 {
		c.queueBytes(chunk)
		c.lastActivityAt = now
	}

	if !c.Empty() && !c.resp.ReadyToSend() && len(c.txBuf) == 0 {
		c.beginClearPending(now)
	}
}

// emitStatusOnlyIfNeeded builds and queues the bare status-line response
// for a request that never got a responder (400 parse failure, 404 no
// handler matched, or any other non-2xx HandlerRegistry status).
func (c *Connection) emitStatusOnlyIfNeeded() {
	if c.statusOnlyEmitted || c.statusCode == 0 {
		return
	}
	var body []byte
	if c.statusCode == 404 {
		body = c.limits.NotFoundBody
	}
	headers := []api.HeaderField{
		{Name: "Content-Length", Value: strconv.Itoa(len(body))},
	}
	c.queueBytes(buildStatusHeader(c.statusCode, headers, c.limits.StdResponseHeaders, true))
	if !c.Empty() && len(body) > 0 {
		c.queueBytes(body)
	}
	c.statusOnlyEmitted = true
}

// queueBytes appends data to the tail-drop transmit queue. If doing so
// would exceed SendBufferMaxLen the slot is torn down rather than silently
// truncating a response the peer would otherwise interpret as valid.
func (c *Connection) queueBytes(data []byte) {
	if len(data) == 0 {
		return
	}
	if len(c.txBuf)+len(data) > c.limits.SendBufferMaxLen {
		c.logger.Warnf("connmgr: slot %d tx queue overflow, dropping connection", c.id)
		c.clear()
		return
	}
	c.txBuf = append(c.txBuf, data...)
}

// drainTxQueue makes one non-blocking send attempt per tick; EAGAIN simply
// leaves the remaining bytes queued for the next tick (backpressure).
func (c *Connection) drainTxQueue() {
	if len(c.txBuf) == 0 {
		return
	}
	n, status := c.cc.Send(c.txBuf)
	if n > 0 {
		c.txBuf = c.txBuf[n:]
		c.lastActivityAt = time.Now()
		if c.counters != nil {
			c.counters.sent.Add(int64(n))
		}
	}
	switch status {
	case api.SendFail, api.SendNoConnection:
		c.clear()
	}
}

// beginClearPending transitions the slot into the grace window between
// "response complete" and "slot reusable" — the clear_pending_ms of
// configuration — so any last bytes already handed to the kernel socket
// buffer have time to actually leave before the slot is recycled.
func (c *Connection) beginClearPending(now time.Time) {
	if c.clearPending {
		return
	}
	c.clearPending = true
	c.clearPendingAt = now.Add(c.limits.ClearPendingGrace)
}

// clear hard-resets the slot: closes the responder and the socket, and
// releases the recv buffer back to its pool. Safe to call on an
// already-empty slot.
func (c *Connection) clear() {
	if c.Empty() {
		return
	}
	if c.resp != nil {
		c.resp.Close()
		c.resp = nil
	}
	c.cc.Close()
	c.cc = nil
	c.recvBuf.Release()
	c.recvBuf = api.Buffer{}
	c.txBuf = nil
	c.clearPending = false
}

// Responder returns the slot's active responder, or nil. Used by
// ConnManager.SendOnChannel to find the WebSocket responder occupying a
// given channel id.
func (c *Connection) Responder() responder.Responder { return c.resp }

// reasonPhrases is the closed set of status lines this server ever emits.
var reasonPhrases = map[int]string{
	200: "OK",
	204: "No Content",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	500: "Internal Server Error",
	503: "Service Unavailable",
}

func reasonFor(code int) string {
	if r, ok := reasonPhrases[code]; ok {
		return r
	}
	return "Unknown"
}

// buildStatusHeader renders the status line plus the full header block:
// status line, responder/CORS headers, the server-wide configured std
// headers, then Connection, then the terminating blank line.
func buildStatusHeader(code int, responderHeaders, stdHeaders []api.HeaderField, closeConn bool) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, "HTTP/1.1 "...)
	buf = append(buf, strconv.Itoa(code)...)
	buf = append(buf, ' ')
	buf = append(buf, reasonFor(code)...)
	buf = append(buf, "\r\n"...)
	for _, h := range responderHeaders {
		buf = appendHeaderLine(buf, h)
	}
	for _, h := range stdHeaders {
		buf = appendHeaderLine(buf, h)
	}
	if closeConn {
		buf = appendHeaderLine(buf, api.HeaderField{Name: "Connection", Value: "close"})
	} else {
		buf = appendHeaderLine(buf, api.HeaderField{Name: "Connection", Value: "keep-alive"})
	}
	buf = append(buf, "\r\n"...)
	return buf
}

func appendHeaderLine(buf []byte, h api.HeaderField) []byte {
	buf = append(buf, h.Name...)
	buf = append(buf, ": "...)
	buf = append(buf, h.Value...)
	buf = append(buf, "\r\n"...)
	return buf
}
