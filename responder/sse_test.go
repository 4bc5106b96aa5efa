package responder_test

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/responder"
)

func drainAll(r *responder.SSEResponder) string {
	var out []byte
	for r.ReadyToSend() {
		chunk := r.PollNext(4096)
		if len(chunk) == 0 {
			break
		}
		out = append(out, chunk...)
	}
	return string(out)
}

func TestSSEResponderFirstChunkIsHeader(t *testing.T) {
	r := responder.NewSSEResponder()
	r.Start(&api.RequestHeader{})
	if r.StdHeaderRequired() {
		t.Fatal("SSE responder renders its own status line; StdHeaderRequired must be false")
	}
	if !r.LeaveConnOpen() {
		t.Fatal("SSE responder must leave the connection open")
	}

	chunk := r.PollNext(4096)
	out := string(chunk)
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("first chunk = %q", out)
	}
	if !strings.Contains(out, "Content-Type: text/event-stream") {
		t.Fatalf("missing content-type header: %q", out)
	}
	if !strings.Contains(out, "Cache-Control: no-cache") {
		t.Fatalf("missing cache-control header: %q", out)
	}
}

func TestSSEResponderSendEventFormatting(t *testing.T) {
	r := responder.NewSSEResponder()
	r.Start(&api.RequestHeader{})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r.SetClock(func() time.Time { return fixed })
	r.PollNext(4096) // drain header

	if !r.SendEvent("hello", "greeting") {
		t.Fatal("SendEvent returned false")
	}
	out := drainAll(r)
	wantID := "id: " + strconv.FormatInt(fixed.Unix(), 10) + "\r\n"
	if !strings.Contains(out, wantID) {
		t.Fatalf("missing id line %q: %q", wantID, out)
	}
	if !strings.Contains(out, "event: greeting\r\n") {
		t.Fatalf("missing event line: %q", out)
	}
	if !strings.Contains(out, "data: hello\r\n\r\n") {
		t.Fatalf("missing data line: %q", out)
	}
}

func TestSSEResponderSendEventWithoutGroupOmitsEventLine(t *testing.T) {
	r := responder.NewSSEResponder()
	r.Start(&api.RequestHeader{})
	r.PollNext(4096)

	r.SendEvent("x", "")
	out := drainAll(r)
	if strings.Contains(out, "event:") {
		t.Fatalf("expected no event: line when group is empty, got %q", out)
	}
}

func TestSSEResponderMultilineDataSplitsIntoMultipleDataLines(t *testing.T) {
	r := responder.NewSSEResponder()
	r.Start(&api.RequestHeader{})
	r.PollNext(4096)

	r.SendEvent("line1\nline2", "")
	out := drainAll(r)
	if !strings.Contains(out, "data: line1\r\n") || !strings.Contains(out, "data: line2\r\n") {
		t.Fatalf("expected two data: lines, got %q", out)
	}
}

func TestSSEResponderIdTracksWallClock(t *testing.T) {
	r := responder.NewSSEResponder()
	r.Start(&api.RequestHeader{})
	t1 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	calls := 0
	r.SetClock(func() time.Time {
		calls++
		if calls == 1 {
			return t1
		}
		return t2
	})
	r.PollNext(4096)

	r.SendEvent("a", "")
	r.SendEvent("b", "")
	out := drainAll(r)
	want1 := "id: " + strconv.FormatInt(t1.Unix(), 10) + "\r\n"
	want2 := "id: " + strconv.FormatInt(t2.Unix(), 10) + "\r\n"
	if !strings.Contains(out, want1) || !strings.Contains(out, want2) {
		t.Fatalf("expected ids %q and %q tracking the clock, got %q", want1, want2, out)
	}
}

func TestSSEResponderCloseRejectsFurtherSends(t *testing.T) {
	r := responder.NewSSEResponder()
	r.Start(&api.RequestHeader{})
	r.Close()
	if r.SendEvent("x", "") {
		t.Fatal("expected SendEvent to fail after Close")
	}
}
