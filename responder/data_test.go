package responder_test

import (
	"bytes"
	"testing"

	"github.com/embedserve/emhttpd/responder"
)

func TestDataResponderStreamsInChunks(t *testing.T) {
	r := responder.NewDataResponder([]byte("hello world"), "text/plain")
	if !r.Start(nil) {
		t.Fatal("Start returned false")
	}
	if ct := r.ContentType(); ct != "text/plain" {
		t.Fatalf("ContentType = %q", ct)
	}
	if n, ok := r.ContentLength(); !ok || n != 11 {
		t.Fatalf("ContentLength = %d, %v", n, ok)
	}

	var out bytes.Buffer
	for r.ReadyToSend() {
		chunk := r.PollNext(4)
		if chunk == nil {
			break
		}
		out.Write(chunk)
	}
	if out.String() != "hello world" {
		t.Fatalf("reassembled = %q", out.String())
	}
	if r.ReadyToSend() {
		t.Fatal("expected ReadyToSend false once exhausted")
	}
}

func TestDataResponderEmptyBlob(t *testing.T) {
	r := responder.NewDataResponder(nil, "text/plain")
	r.Start(nil)
	if r.ReadyToSend() {
		t.Fatal("empty blob should not be ready to send")
	}
	if chunk := r.PollNext(16); chunk != nil {
		t.Fatalf("expected nil chunk for empty blob, got %q", chunk)
	}
}
