// File: responder/websocket.go
//
// WebSocketResponder is the Responder facade over a wsproto.Link: it turns
// the upgrade handshake into the first PollNext chunk (in place of a
// standard status-line header), feeds received bytes to the Link, and
// drains both application-queued outbound messages and the Link's own
// control-frame replies (PONG, CLOSE echo, scheduled PING) through the same
// PollNext path.
package responder

import (
	"time"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/wsproto"
)

// defaultTxQueueWait bounds how long EncodeAndSend waits for the outbound
// queue to drain below TxQueueMax before giving up.
const defaultTxQueueWait = 2 * time.Millisecond

// LinkStatus is the tri-state lifecycle of a WebSocket responder.
type LinkStatus int

const (
	// StatusConnecting: Start succeeded but PollNext has not yet handed
	// out the whole upgrade response.
	StatusConnecting LinkStatus = iota
	// StatusActive: handshake complete, frames may flow either way.
	StatusActive
	// StatusInactive: the link closed (peer CLOSE, protocol violation,
	// or liveness failure) and the slot should be torn down.
	StatusInactive
)

// OnMessage is invoked once per reassembled inbound WebSocket message.
type OnMessage func(opcode wsproto.Opcode, payload []byte)

// WebSocketResponder implements Responder for an upgraded connection.
type WebSocketResponder struct {
	link      *wsproto.Link
	onMessage OnMessage
	channelID uint32

	status LinkStatus

	handshake     []byte // remaining unsent handshake bytes
	handshakeDone bool

	pending [][]byte
	cursor  int

	opcode         wsproto.Opcode
	packetMaxBytes int
	txQueueMax     int
}

// NewWebSocketResponder constructs a responder bound to channelID (the
// slot's WebSocket channel identity used for out-of-band SendOnChannel
// delivery), with pingIntervalMS/noPongTimeoutMS driving Link liveness (0
// disables ping scheduling).
func NewWebSocketResponder(channelID uint32, onMessage OnMessage, pingIntervalMS, noPongTimeoutMS int64) *WebSocketResponder {
	return &WebSocketResponder{
		link:      wsproto.NewLink(time.Duration(pingIntervalMS)*time.Millisecond, time.Duration(noPongTimeoutMS)*time.Millisecond),
		onMessage: onMessage,
		channelID: channelID,
		opcode:    wsproto.OpBinary,
	}
}

func (r *WebSocketResponder) Start(req *api.RequestHeader) bool {
	resp, err := wsproto.UpgradeResponse(req)
	if err != nil {
		return false
	}
	r.handshake = resp
	r.status = StatusConnecting
	return true
}

func (r *WebSocketResponder) HandleInbound(data []byte) bool {
	if r.status == StatusInactive {
		return false
	}
	events := r.link.Feed(data)
	for _, ev := range events {
		switch ev.Kind {
		case wsproto.EventMessage:
			r.status = StatusActive
			if r.onMessage != nil {
				r.onMessage(ev.Opcode, ev.Payload)
			}
		case wsproto.EventClosed, wsproto.EventLivenessFailed:
			r.status = StatusInactive
		}
	}
	return true
}

// Tick drives Link liveness (PING scheduling, no-pong disconnect); the
// connection slot's per-tick service loop calls this once per iteration.
func (r *WebSocketResponder) Tick() {
	if r.status == StatusInactive {
		return
	}
	if ev, ok := r.link.Tick(); ok && ev.Kind == wsproto.EventLivenessFailed {
		r.status = StatusInactive
	}
}

// Send queues an application message for delivery on the next PollNext
// drain. Returns false if the link has already gone inactive.
func (r *WebSocketResponder) Send(opcode wsproto.Opcode, payload []byte) bool {
	if r.status == StatusInactive {
		return false
	}
	r.pending = append(r.pending, wsproto.EncodeMessage(opcode, payload))
	return true
}

// ConfigureChannel records the per-handler limits: the opcode used
// for application sends (text or binary, per the handler's Content
// setting), the maximum single-message size, and the queue depth
// EncodeAndSend will wait to drain below. Called once, right after
// construction, by the handler that owns this channel.
func (r *WebSocketResponder) ConfigureChannel(opcode wsproto.Opcode, packetMaxBytes, txQueueMax int) {
	r.opcode = opcode
	r.packetMaxBytes = packetMaxBytes
	r.txQueueMax = txQueueMax
}

// QueueDepth reports how many outbound frames are queued but not yet
// drained by PollNext, used by CanSendOnChannel's writability probe.
func (r *WebSocketResponder) QueueDepth() int {
	return len(r.pending) - r.cursor
}

// EncodeAndSend queues an application payload for this channel: rejects
// outright when the link isn't Active or the payload exceeds
// packetMaxBytes; otherwise waits up to defaultTxQueueWait for the
// outbound queue to drop below txQueueMax before queuing the frame with
// the channel's configured opcode.
func (r *WebSocketResponder) EncodeAndSend(payload []byte) api.SendRetVal {
	if r.status != StatusActive {
		return api.SendNoConnection
	}
	if r.packetMaxBytes > 0 && len(payload) > r.packetMaxBytes {
		return api.SendTooLong
	}
	if r.txQueueMax > 0 {
		deadline := time.Now().Add(defaultTxQueueWait)
		for r.QueueDepth() >= r.txQueueMax {
			if !time.Now().Before(deadline) {
				return api.SendEAgain
			}
			time.Sleep(time.Millisecond)
		}
	}
	if !r.Send(r.opcode, payload) {
		return api.SendFail
	}
	return api.SendOK
}

func (r *WebSocketResponder) PollNext(maxLen int) []byte {
	if !r.handshakeDone {
		n := maxLen
		if n > len(r.handshake) {
			n = len(r.handshake)
		}
		chunk := r.handshake[:n]
		r.handshake = r.handshake[n:]
		if len(r.handshake) == 0 {
			r.handshakeDone = true
			r.status = StatusActive
		}
		return chunk
	}

	if out := r.link.DrainOutbox(); len(out) > 0 {
		r.pending = append(r.pending, out...)
	}
	if r.cursor >= len(r.pending) {
		r.pending = nil
		r.cursor = 0
		return []byte{}
	}
	frame := r.pending[r.cursor]
	r.cursor++
	return frame
}

func (r *WebSocketResponder) ReadyToReceiveData() bool { return r.status != StatusInactive }
func (r *WebSocketResponder) ReadyToSend() bool {
	return !r.handshakeDone || r.cursor < len(r.pending)
}
func (r *WebSocketResponder) ContentType() string { return "" }
func (r *WebSocketResponder) ContentLength() (int64, bool) { return 0, false }
func (r *WebSocketResponder) ExtraHeaders() []api.HeaderField { return nil }
func (r *WebSocketResponder) LeaveConnOpen() bool { return true }
func (r *WebSocketResponder) StdHeaderRequired() bool { return false }
func (r *WebSocketResponder) ChannelID() (uint32, bool) { return r.channelID, true }
func (r *WebSocketResponder) Close() { r.status = StatusInactive }

// Status reports the current handshake/link lifecycle state.
func (r *WebSocketResponder) Status() LinkStatus { return r.status }

var _ Responder = (*WebSocketResponder)(nil)
