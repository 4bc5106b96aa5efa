// File: netio/clientconn.go
// Package netio wraps a single non-blocking BSD client socket: the
// send/receive/close semantics a connection slot drives once per tick.
//
// The surface is one connection at a time (one fd per slot, not a batch
// transport): non-blocking reads and writes where EAGAIN/EWOULDBLOCK means
// "nothing ready" rather than an error, plus the linger/close semantics
// and fatal-vs-transient classification the connection-slot state machine
// needs.
package netio

import (
	"time"

	"github.com/embedserve/emhttpd/api"
)

// ClientConn is the non-blocking socket contract a connection slot drives.
// Implementations must never block the calling goroutine; all methods
// return promptly with a status indicating whether the caller should retry
// later, on data, or treat the connection as dead.
type ClientConn interface {
	// Send writes buf starting at the beginning; it returns the number of
	// bytes actually written (which may be less than len(buf) on partial
	// writes) and a SendRetVal classifying the outcome.
	Send(buf []byte) (int, api.SendRetVal)

	// CanSend reports whether a subsequent Send is likely to make progress
	// (a zero-timeout writability probe).
	CanSend() bool

	// Recv attempts to fill buf with newly arrived bytes without blocking.
	// It returns the number of bytes read and a RecvStatus.
	Recv(buf []byte) (int, api.RecvStatus)

	// Setup applies the socket options a newly accepted connection needs:
	// non-blocking mode, TCP_NODELAY, and (when linger >= 0) SO_LINGER.
	Setup(nodelay bool, linger time.Duration) error

	// Close releases the underlying file descriptor. Safe to call more
	// than once.
	Close() error

	// RawFD exposes the descriptor for poll-based readiness checks.
	RawFD() int
}
