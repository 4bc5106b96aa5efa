package wsproto_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/embedserve/emhttpd/wsproto"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("hello over the wire")
	encoded := wsproto.EncodeFrame(wsproto.OpText, payload, true)

	frame, n, err := wsproto.DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if frame == nil {
		t.Fatal("expected a decoded frame")
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d, want %d", n, len(encoded))
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("payload = %q, want %q", frame.Payload, payload)
	}
	if frame.Opcode != wsproto.OpText || !frame.Fin {
		t.Fatalf("frame = %+v", frame)
	}
}

func TestDecodeFrameIncompleteReturnsNil(t *testing.T) {
	full := wsproto.EncodeFrame(wsproto.OpBinary, []byte("0123456789"), true)
	partial := full[:len(full)-2]

	frame, n, err := wsproto.DecodeFrame(partial)
	if err != nil || frame != nil || n != 0 {
		t.Fatalf("DecodeFrame(partial) = (%v, %d, %v), want (nil, 0, nil)", frame, n, err)
	}
}

func TestDecodeMaskedClientFrame(t *testing.T) {
	payload := []byte{1, 2, 3}
	key := [4]byte{0xAA, 0xBB, 0xCC, 0xDD}
	masked := make([]byte, len(payload))
	for i, b := range payload {
		masked[i] = b ^ key[i%4]
	}
	raw := []byte{0x82, 0x80 | byte(len(payload))}
	raw = append(raw, key[:]...)
	raw = append(raw, masked...)

	frame, n, err := wsproto.DecodeFrame(raw)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if n != len(raw) {
		t.Fatalf("consumed %d, want %d", n, len(raw))
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("unmasked payload = %v, want %v", frame.Payload, payload)
	}
}

func TestDecodeFrameOversizeReturnsHeaderForDraining(t *testing.T) {
	hdr := []byte{0x82, 127, 0, 0, 0, 0, 0, 0x10, 0, 0} // length field = 0x100000 (> cap)
	frame, n, err := wsproto.DecodeFrame(hdr)
	if !errors.Is(err, wsproto.ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}
	if frame == nil || frame.PayloadLen != 0x100000 {
		t.Fatalf("frame = %+v, want parsed header with declared length", frame)
	}
	if n != len(hdr) {
		t.Fatalf("consumed = %d, want header length %d so the payload can be drained", n, len(hdr))
	}
	if frame.Opcode != wsproto.OpBinary || !frame.Fin {
		t.Fatalf("frame header = %+v", frame)
	}
}
