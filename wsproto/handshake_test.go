package wsproto_test

import (
	"testing"

	"github.com/embedserve/emhttpd/wsproto"
)

func TestAcceptKeyIsDeterministic(t *testing.T) {
	got := wsproto.AcceptKey("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Fatalf("AcceptKey = %q, want %q", got, want)
	}
}
