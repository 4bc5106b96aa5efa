// File: server/wshandler.go
//
// wsHandler owns one WebSocket route's fixed channel-id pool: MaxConn
// channel ids, each either free or bound to the WebSocketResponder
// currently occupying it. A fixed in-use array rather than an unbounded
// map, so a handler can never hand out more concurrent channels than its
// configuration allows regardless of NumConnSlots.
package server

import (
	"strings"
	"sync"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/responder"
	"github.com/embedserve/emhttpd/wsproto"
)

type wsHandlerSpec struct {
	cfg       WSHandlerConfig
	onMessage func(channelID uint32, payload []byte)
}

type wsHandler struct {
	cfg       WSHandlerConfig
	baseID    uint32
	onMessage func(channelID uint32, payload []byte)
	bus       api.MessageBus

	mu    sync.Mutex
	inUse []bool
}

func newWSHandler(spec wsHandlerSpec, baseID uint32, bus api.MessageBus) *wsHandler {
	return &wsHandler{
		cfg:       spec.cfg,
		baseID:    baseID,
		onMessage: spec.onMessage,
		bus:       bus,
		inUse:     make([]bool, spec.cfg.MaxConn),
	}
}

func (h *wsHandler) GetNewResponder(req *api.RequestHeader) (responder.Responder, int) {
	if req.ConnType != api.ConnWebSocket {
		return nil, 0
	}
	if !strings.HasPrefix(req.URL, h.cfg.Prefix) {
		return nil, 0
	}

	slot, ok := h.reserve()
	if !ok {
		return nil, 503
	}
	channelID := h.baseID + uint32(slot)

	opcode := wsproto.OpBinary
	if h.cfg.Content == ContentText {
		opcode = wsproto.OpText
	}

	onMessage := func(opcode wsproto.Opcode, payload []byte) {
		if h.onMessage != nil {
			h.onMessage(channelID, payload)
		}
		if h.bus != nil && h.bus.InboundCanAccept(channelID) {
			h.bus.InboundHandle(channelID, payload)
		}
	}

	base := responder.NewWebSocketResponder(channelID, onMessage, h.cfg.PingMS, h.cfg.NoPongMS)
	base.ConfigureChannel(opcode, h.cfg.PktMaxBytes, h.cfg.TxQueueMax)

	return &wsChannelResponder{WebSocketResponder: base, handler: h, slot: slot}, 0
}

func (h *wsHandler) reserve() (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, used := range h.inUse {
		if !used {
			h.inUse[i] = true
			return i, true
		}
	}
	return 0, false
}

func (h *wsHandler) release(slot int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inUse[slot] = false
}

// wsChannelResponder wraps responder.WebSocketResponder to release the
// handler's channel-id slot the moment the connection's slot tears it down.
// Inbound messages reach the handler's own callback (tagged with the
// concrete channel id, not the handler's base) and the external message bus
// through the onMessage closure built in GetNewResponder.
type wsChannelResponder struct {
	*responder.WebSocketResponder
	handler *wsHandler
	slot    int
}

func (w *wsChannelResponder) Close() {
	w.WebSocketResponder.Close()
	w.handler.release(w.slot)
}

var _ responder.Responder = (*wsChannelResponder)(nil)
