package responder_test

import (
	"testing"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/responder"
	"github.com/embedserve/emhttpd/wsproto"
)

func TestWebSocketResponderHandshakeIsFirstChunk(t *testing.T) {
	r := responder.NewWebSocketResponder(1, nil, 0, 0)
	req := &api.RequestHeader{WSKey: "dGhlIHNhbXBsZSBub25jZQ=="}
	if !r.Start(req) {
		t.Fatal("Start returned false")
	}
	if r.StdHeaderRequired() {
		t.Fatal("WebSocket responder must not require the standard header block")
	}

	var out []byte
	for r.ReadyToSend() {
		chunk := r.PollNext(8)
		if chunk == nil {
			break
		}
		if len(chunk) == 0 {
			break
		}
		out = append(out, chunk...)
	}
	if want := "HTTP/1.1 101"; len(out) < len(want) || string(out[:len(want)]) != want {
		t.Fatalf("handshake response = %q", out)
	}
}

func TestWebSocketResponderStartFailsWithoutKey(t *testing.T) {
	r := responder.NewWebSocketResponder(1, nil, 0, 0)
	if r.Start(&api.RequestHeader{}) {
		t.Fatal("expected Start to fail without Sec-WebSocket-Key")
	}
}

func TestWebSocketResponderDeliversMessage(t *testing.T) {
	var gotOpcode wsproto.Opcode
	var gotPayload []byte
	r := responder.NewWebSocketResponder(1, func(opcode wsproto.Opcode, payload []byte) {
		gotOpcode = opcode
		gotPayload = append([]byte(nil), payload...)
	}, 0, 0)
	r.Start(&api.RequestHeader{WSKey: "dGhlIHNhbXBsZSBub25jZQ=="})
	// drain handshake first
	for r.ReadyToSend() {
		if chunk := r.PollNext(256); len(chunk) == 0 {
			break
		}
	}

	frame := wsproto.EncodeMessage(wsproto.OpText, []byte("hi"))
	if !r.HandleInbound(frame) {
		t.Fatal("HandleInbound failed")
	}
	if gotOpcode != wsproto.OpText || string(gotPayload) != "hi" {
		t.Fatalf("onMessage got opcode=%v payload=%q", gotOpcode, gotPayload)
	}
	if r.Status() != responder.StatusActive {
		t.Fatalf("status = %v, want Active", r.Status())
	}
}

func TestWebSocketResponderSendQueuesOutboundFrame(t *testing.T) {
	r := responder.NewWebSocketResponder(1, nil, 0, 0)
	r.Start(&api.RequestHeader{WSKey: "dGhlIHNhbXBsZSBub25jZQ=="})
	for r.ReadyToSend() {
		if chunk := r.PollNext(256); len(chunk) == 0 {
			break
		}
	}

	if !r.Send(wsproto.OpText, []byte("pong-payload")) {
		t.Fatal("Send returned false")
	}
	if !r.ReadyToSend() {
		t.Fatal("expected ReadyToSend true after queuing a message")
	}
	chunk := r.PollNext(256)
	if len(chunk) == 0 {
		t.Fatal("expected a non-empty frame")
	}
}

func TestWebSocketResponderCloseMarksInactive(t *testing.T) {
	r := responder.NewWebSocketResponder(1, nil, 0, 0)
	r.Start(&api.RequestHeader{WSKey: "dGhlIHNhbXBsZSBub25jZQ=="})
	r.Close()
	if r.Status() != responder.StatusInactive {
		t.Fatal("expected Close to mark the responder inactive")
	}
	if r.ReadyToReceiveData() {
		t.Fatal("expected ReadyToReceiveData false once inactive")
	}
}
