// File: wsproto/link.go
//
// Link reassembles fragmented WebSocket messages, tracks ping/pong
// liveness, and answers peer control frames, driven once per connection
// tick by feeding it newly received bytes and letting it drain frames.
// There are no internal goroutines: a connection slot drives everything
// from its single service tick. Data frames are handed to the caller;
// control frames are handled inline.
package wsproto

import (
	"errors"
	"time"
)

// Event is a fully reassembled inbound message or a liveness event the
// caller (Connection/Responder) must react to.
type Event struct {
	// Kind distinguishes a data message from a liveness outcome.
	Kind EventKind
	// Opcode is OpText or OpBinary for Message events.
	Opcode Opcode
	// Payload holds the reassembled message bytes for Message events.
	Payload []byte
}

// EventKind enumerates what a drained Link event represents.
type EventKind int

const (
	EventMessage EventKind = iota
	EventClosed
	EventLivenessFailed
)

// Link holds per-connection WebSocket protocol state: the fragment
// reassembly buffer, the residual byte tail from an incomplete frame, and
// ping/pong liveness timers.
type Link struct {
	residual []byte
	skip     int64 // payload bytes of an oversize frame still to drain

	reassembling bool
	dropping     bool
	firstOpcode  Opcode
	reassembly   []byte

	pingInterval   time.Duration
	noPongTimeout  time.Duration
	lastPingSentAt time.Time
	lastPongSeenAt time.Time
	pongSeen       bool

	outbox [][]byte
	closed bool
}

// NewLink constructs a Link. pingInterval <= 0 disables liveness pings
// entirely (ping_interval_ms == 0 in configuration).
func NewLink(pingInterval, noPongTimeout time.Duration) *Link {
	return &Link{
		pingInterval:  pingInterval,
		noPongTimeout: noPongTimeout,
	}
}

// Feed appends newly received bytes and decodes as many complete frames as
// are available, returning the events produced. Control frames (PING,
// PONG, CLOSE) are consumed internally; PING auto-queues a PONG reply and
// CLOSE auto-queues the standard close echo, both retrievable via
// DrainOutbox.
func (l *Link) Feed(data []byte) []Event {
	if l.closed {
		return nil
	}
	l.residual = append(l.residual, data...)

	var events []Event
	for {
		if l.skip > 0 {
			n := int64(len(l.residual))
			if n > l.skip {
				n = l.skip
			}
			l.residual = l.residual[n:]
			l.skip -= n
			if l.skip > 0 {
				return events
			}
		}

		frame, n, err := DecodeFrame(l.residual)
		if errors.Is(err, ErrFrameTooLarge) {
			// An oversize frame is drained off the stream and its message
			// dropped until FIN; the link stays up, same as the
			// reassembly-overflow path below.
			l.residual = l.residual[n:]
			l.skip = frame.PayloadLen
			if frame.Opcode == OpContinue {
				l.reassembly = nil
			}
			if frame.Fin {
				l.reassembling = false
				l.dropping = false
			} else {
				l.reassembling = true
				l.dropping = true
			}
			continue
		}
		if err != nil {
			l.closed = true
			events = append(events, Event{Kind: EventLivenessFailed})
			return events
		}
		if frame == nil {
			return events
		}
		l.residual = l.residual[n:]

		if ev, ok := l.handleFrame(frame); ok {
			events = append(events, ev)
		}
		if l.closed {
			return events
		}
	}
}

func (l *Link) handleFrame(f *Frame) (Event, bool) {
	switch f.Opcode {
	case OpPing:
		l.outbox = append(l.outbox, EncodeFrame(OpPong, f.Payload, true))
		return Event{}, false
	case OpPong:
		l.pongSeen = true
		l.lastPongSeenAt = now()
		return Event{}, false
	case OpClose:
		l.outbox = append(l.outbox, EncodeFrame(OpClose, []byte{0x03, 0xe8}, true))
		l.closed = true
		return Event{Kind: EventClosed}, true
	case OpContinue:
		if !l.reassembling {
			l.closed = true
			return Event{Kind: EventLivenessFailed}, true
		}
		if l.dropping {
			if f.Fin {
				l.dropping = false
				l.reassembling = false
			}
			return Event{}, false
		}
		l.reassembly = append(l.reassembly, f.Payload...)
		if len(l.reassembly) > MaxReassembledMessage {
			// An over-limit message is drained and dropped until the next
			// FIN, not treated as a fatal link error.
			l.reassembly = nil
			l.dropping = true
			if f.Fin {
				l.dropping = false
				l.reassembling = false
			}
			return Event{}, false
		}
		if f.Fin {
			ev := Event{Kind: EventMessage, Opcode: l.firstOpcode, Payload: l.reassembly}
			l.reassembly = nil
			l.reassembling = false
			return ev, true
		}
		return Event{}, false
	case OpText, OpBinary:
		if !f.Fin {
			l.reassembling = true
			l.dropping = false
			l.firstOpcode = f.Opcode
			l.reassembly = append(l.reassembly[:0], f.Payload...)
			return Event{}, false
		}
		return Event{Kind: EventMessage, Opcode: f.Opcode, Payload: f.Payload}, true
	}
	return Event{}, false
}

// Tick evaluates liveness timers; call it once per service tick so PING
// scheduling and no-pong disconnection happen without a dedicated timer
// goroutine. Returns an EventLivenessFailed event if the peer stopped
// answering pings.
func (l *Link) Tick() (Event, bool) {
	if l.closed || l.pingInterval <= 0 {
		return Event{}, false
	}
	n := now()
	if l.lastPingSentAt.IsZero() || n.Sub(l.lastPingSentAt) >= l.pingInterval {
		l.outbox = append(l.outbox, EncodeFrame(OpPing, nil, true))
		l.lastPingSentAt = n
	}
	if l.pongSeen && l.noPongTimeout > 0 && n.Sub(l.lastPongSeenAt) > l.noPongTimeout {
		l.closed = true
		return Event{Kind: EventLivenessFailed}, true
	}
	return Event{}, false
}

// DrainOutbox returns and clears frames queued internally (PONG replies,
// CLOSE echoes, scheduled PINGs) that the Connection must hand to
// ClientConn.Send.
func (l *Link) DrainOutbox() [][]byte {
	out := l.outbox
	l.outbox = nil
	return out
}

// EncodeMessage renders an outbound data message as a single unfragmented,
// unmasked server-origin frame.
func EncodeMessage(opcode Opcode, payload []byte) []byte {
	return EncodeFrame(opcode, payload, true)
}

// now is indirected so tests can substitute a deterministic clock.
var now = time.Now
