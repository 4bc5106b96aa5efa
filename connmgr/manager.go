// File: connmgr/manager.go
//
// ConnManager owns the fixed slot vector, the bounded new-connection queue
// the Listener hands accepted sockets through, and the handler registry.
// Its ServiceConnections tick is the single place per-slot socket I/O
// happens.
//
// The new-connection queue is the one structure crossing a goroutine
// boundary — a bounded FIFO drained by one worker, ServiceConnections,
// running on whatever goroutine the embedder drives it from (typically a
// single ticker loop in server.Server). Its length is a fixed 10,
// independent of num_conn_slots.
package connmgr

import (
	"sync"
	"time"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/control"
	"github.com/embedserve/emhttpd/netio"
	"github.com/embedserve/emhttpd/pool"
	"github.com/embedserve/emhttpd/responder"

	"github.com/eapache/queue"
)

// NewConnQueueCapacity is the bounded new-connection queue's fixed length.
const NewConnQueueCapacity = 10

// ChannelResponder is implemented by a Responder that occupies a WebSocket
// channel id and can accept out-of-band application sends routed through
// ConnManager.SendOnChannel.
type ChannelResponder interface {
	responder.Responder
	EncodeAndSend(payload []byte) api.SendRetVal
	QueueDepth() int
}

// ConnManager owns the fixed table of Connection slots.
type ConnManager struct {
	mu    sync.RWMutex
	slots []*Connection

	queueMu  sync.Mutex
	newConns *queue.Queue

	registry *HandlerRegistry
	logger   *control.Logger

	stats    api.ServerStats
	counters byteCounters
}

// NewConnManager builds a ConnManager with numSlots fixed slots, each
// configured with limits, backed by bufPool for recv-buffer checkout.
func NewConnManager(numSlots int, registry *HandlerRegistry, limits Limits, logger *control.Logger, bufPool api.BufferPool) *ConnManager {
	if logger == nil {
		logger = control.Default()
	}
	if bufPool == nil {
		bufPool = pool.Default()
	}
	m := &ConnManager{
		slots:    make([]*Connection, numSlots),
		newConns: queue.New(),
		registry: registry,
		logger:   logger,
	}
	for i := range m.slots {
		m.slots[i] = NewConnection(i, registry, limits, logger, bufPool)
		m.slots[i].counters = &m.counters
	}
	return m
}

// HandOff is passed to wslisten.NewListener as its accept callback. It
// enqueues the accepted connection onto the bounded new-connection queue;
// a full queue reports false so the Listener immediately closes the
// connection.
func (m *ConnManager) HandOff(cc netio.ClientConn) bool {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if m.newConns.Length() >= NewConnQueueCapacity {
		return false
	}
	m.newConns.Add(cc)
	return true
}

// popNewConn dequeues the oldest pending connection, if any.
func (m *ConnManager) popNewConn() (netio.ClientConn, bool) {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if m.newConns.Length() == 0 {
		return nil, false
	}
	cc := m.newConns.Peek().(netio.ClientConn)
	m.newConns.Remove()
	return cc, true
}

// Accommodate finds the first empty slot and assigns cc to it, returning
// false (caller must close cc) when every slot is occupied.
func (m *ConnManager) Accommodate(cc netio.ClientConn, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slot := range m.slots {
		if slot.Empty() {
			slot.SetNewConn(cc, now)
			m.stats.TotalConnectionsAccepted++
			return true
		}
	}
	m.stats.TotalConnectionsRefused++
	return false
}

// ServiceConnections runs one tick: service every slot, then try to
// accommodate a single pending new connection. Called on a fixed interval
// by the owning server's service loop.
func (m *ConnManager) ServiceConnections(now time.Time) {
	m.mu.RLock()
	slots := m.slots
	m.mu.RUnlock()

	for _, slot := range slots {
		slot.Service(now)
	}

	if cc, ok := m.popNewConn(); ok {
		if !m.Accommodate(cc, now) {
			cc.Close()
		}
	}
}

// findChannel returns the ChannelResponder occupying channelID, if any
// slot currently holds one.
func (m *ConnManager) findChannel(channelID uint32) ChannelResponder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, slot := range m.slots {
		resp := slot.Responder()
		if resp == nil {
			continue
		}
		id, ok := resp.ChannelID()
		if !ok || id != channelID {
			continue
		}
		if cr, ok := resp.(ChannelResponder); ok {
			return cr
		}
	}
	return nil
}

// SendOnChannel routes buf to the WebSocket responder occupying channelID,
// the entry point external message-bus producers use for outbound
// delivery.
func (m *ConnManager) SendOnChannel(channelID uint32, buf []byte) api.SendRetVal {
	cr := m.findChannel(channelID)
	if cr == nil {
		return api.SendNoConnection
	}
	return cr.EncodeAndSend(buf)
}

// CanSendOnChannel reports whether a subsequent SendOnChannel is likely to
// succeed. Note this conflates writability with queue pressure: any
// non-empty outbound queue reports can=false even though the channel is
// still perfectly usable, just momentarily backed up. noConn is true only
// when the channel id no longer resolves to any slot at all, the signal a
// producer should use to decide "stop trying, the peer is gone" instead of
// "retry shortly".
func (m *ConnManager) CanSendOnChannel(channelID uint32) (can bool, noConn bool) {
	cr := m.findChannel(channelID)
	if cr == nil {
		return false, true
	}
	if cr.QueueDepth() > 0 {
		return false, false
	}
	return true, false
}

// Stats returns a snapshot of process-wide connection counters.
func (m *ConnManager) Stats() api.ServerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.stats
	snap.TotalBytesSent = m.counters.sent.Load()
	snap.TotalBytesReceived = m.counters.received.Load()
	snap.SampledAt = time.Now()
	for _, slot := range m.slots {
		if slot.Empty() {
			snap.FreeSlots++
		} else {
			snap.ActiveSlots++
		}
	}
	return snap
}

// NumSlots returns the fixed number of connection slots this manager owns.
func (m *ConnManager) NumSlots() int {
	return len(m.slots)
}
