// File: api/bus.go
// Package api
//
// MessageBus is the boundary contract for the external message bus that
// WebSocket channels forward inbound frames to: this module never
// implements the bus itself, only the two directions of the handoff.

package api

// MessageBus is implemented by the embedder's external message routing
// layer. InboundCanAccept is asked before each InboundHandle call, and a
// false return drops that message; InboundHandle delivers one reassembled
// inbound message.
type MessageBus interface {
	InboundCanAccept(channelID uint32) bool
	InboundHandle(channelID uint32, payload []byte)
}
