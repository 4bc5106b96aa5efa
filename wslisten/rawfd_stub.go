//go:build !linux

// File: wslisten/rawfd_stub.go
//
// Non-Linux platforms wrap the accepted net.Conn directly; no raw fd
// extraction is attempted.
package wslisten

import (
	"net"

	"github.com/embedserve/emhttpd/netio"
)

func transientAcceptErrors() []error { return nil }

func wrapAccepted(conn net.Conn) netio.ClientConn {
	return netio.NewClientConnFromNetConn(conn)
}
