package connmgr_test

import (
	"net"
	"testing"
	"time"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/connmgr"
	"github.com/embedserve/emhttpd/netio"
	"github.com/embedserve/emhttpd/responder"
	"github.com/embedserve/emhttpd/wsproto"
)

func newPipeConn() (cc netio.ClientConn, peer net.Conn, cleanup func()) {
	server, client := net.Pipe()
	return netio.NewClientConnFromNetConn(server), client, func() { server.Close(); client.Close() }
}

func TestConnManagerAccommodateFillsSlotsThenRefuses(t *testing.T) {
	registry := connmgr.NewHandlerRegistry()
	mgr := connmgr.NewConnManager(2, registry, testLimits(), nil, nil)

	cc1, _, cleanup1 := newPipeConn()
	defer cleanup1()
	cc2, _, cleanup2 := newPipeConn()
	defer cleanup2()
	cc3, _, cleanup3 := newPipeConn()
	defer cleanup3()

	now := time.Now()
	if !mgr.Accommodate(cc1, now) {
		t.Fatal("expected first connection to be accommodated")
	}
	if !mgr.Accommodate(cc2, now) {
		t.Fatal("expected second connection to be accommodated")
	}
	if mgr.Accommodate(cc3, now) {
		t.Fatal("expected third connection to be refused, table only has 2 slots")
	}

	stats := mgr.Stats()
	if stats.ActiveSlots != 2 || stats.FreeSlots != 0 {
		t.Fatalf("stats = %+v, want 2 active, 0 free", stats)
	}
	if stats.TotalConnectionsRefused != 1 {
		t.Fatalf("refused count = %d, want 1", stats.TotalConnectionsRefused)
	}
}

func TestConnManagerHandOffRespectsQueueCapacity(t *testing.T) {
	registry := connmgr.NewHandlerRegistry()
	mgr := connmgr.NewConnManager(1, registry, testLimits(), nil, nil)

	var cleanups []func()
	defer func() {
		for _, c := range cleanups {
			c()
		}
	}()

	for i := 0; i < connmgr.NewConnQueueCapacity; i++ {
		cc, _, cleanup := newPipeConn()
		cleanups = append(cleanups, cleanup)
		if !mgr.HandOff(cc) {
			t.Fatalf("expected HandOff %d to succeed within queue capacity", i)
		}
	}
	overflow, _, cleanup := newPipeConn()
	cleanups = append(cleanups, cleanup)
	if mgr.HandOff(overflow) {
		t.Fatal("expected HandOff to refuse once the new-connection queue is full")
	}
}

func TestConnManagerSendOnChannelRoutesToMatchingResponder(t *testing.T) {
	registry := connmgr.NewHandlerRegistry()
	mgr := connmgr.NewConnManager(1, registry, testLimits(), nil, nil)

	wsHandler := &stubWSHandler{channelID: 7}
	registry.Register(wsHandler, false)

	cc, peer, cleanup := newPipeConn()
	defer cleanup()
	defer peer.Close()

	now := time.Now()
	if !mgr.Accommodate(cc, now) {
		t.Fatal("accommodate failed")
	}

	go func() {
		peer.Write([]byte("GET /ws HTTP/1.1\r\nUpgrade: websocket\r\nSec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n"))
	}()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		mgr.ServiceConnections(time.Now())
		if can, _ := mgr.CanSendOnChannel(7); can {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if ret := mgr.SendOnChannel(7, []byte("hello")); ret != api.SendOK {
		t.Fatalf("SendOnChannel = %v, want OK", ret)
	}
	if ret := mgr.SendOnChannel(999, []byte("x")); ret != api.SendNoConnection {
		t.Fatalf("SendOnChannel on unknown channel = %v, want NoConnection", ret)
	}
}

func TestConnManagerStatsCountBytes(t *testing.T) {
	registry := connmgr.NewHandlerRegistry()
	registry.Register(&stubDataHandler{matchURL: "/b", body: "payload", contentType: "text/plain"}, false)
	mgr := connmgr.NewConnManager(1, registry, testLimits(), nil, nil)

	cc, peer, cleanup := newPipeConn()
	defer cleanup()

	if !mgr.Accommodate(cc, time.Now()) {
		t.Fatal("accommodate failed")
	}

	go func() {
		peer.Write([]byte("GET /b HTTP/1.1\r\nHost: x\r\n\r\n"))
		buf := make([]byte, 4096)
		for {
			if _, err := peer.Read(buf); err != nil {
				return
			}
		}
	}()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		mgr.ServiceConnections(time.Now())
		stats := mgr.Stats()
		if stats.TotalBytesReceived > 0 && stats.TotalBytesSent > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("stats never counted traffic: %+v", mgr.Stats())
}

type stubWSHandler struct {
	channelID uint32
}

func (s *stubWSHandler) GetNewResponder(h *api.RequestHeader) (responder.Responder, int) {
	if h.ConnType != api.ConnWebSocket {
		return nil, 0
	}
	r := responder.NewWebSocketResponder(s.channelID, nil, 0, 0)
	r.ConfigureChannel(wsproto.OpBinary, 0, 0)
	return r, 0
}
