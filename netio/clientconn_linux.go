//go:build linux

// File: netio/clientconn_linux.go
//
// Linux implementation of ClientConn built directly on golang.org/x/sys/unix:
// a raw non-blocking fd, TCP_NODELAY via SetsockoptInt, and
// EAGAIN/EWOULDBLOCK treated as "no progress right now" rather than an
// error.
package netio

import (
	"time"

	"github.com/embedserve/emhttpd/api"
	"golang.org/x/sys/unix"
)

type sysClientConn struct {
	fd     int
	closed bool
}

// NewClientConn wraps an already-accepted file descriptor.
func NewClientConn(fd int) ClientConn {
	return &sysClientConn{fd: fd}
}

func (c *sysClientConn) Setup(nodelay bool, linger time.Duration) error {
	if err := unix.SetNonblock(c.fd, true); err != nil {
		return err
	}
	unix.CloseOnExec(c.fd)
	if err := unix.SetsockoptInt(c.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return err
	}
	if nodelay {
		if err := unix.SetsockoptInt(c.fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return err
		}
	}
	if linger >= 0 {
		l := &unix.Linger{Onoff: 1, Linger: int32(linger / time.Second)}
		if err := unix.SetsockoptLinger(c.fd, unix.SOL_SOCKET, unix.SO_LINGER, l); err != nil {
			return err
		}
	}
	return nil
}

func (c *sysClientConn) Send(buf []byte) (int, api.SendRetVal) {
	if c.closed {
		return 0, api.SendNoConnection
	}
	n, err := unix.Write(c.fd, buf)
	if err != nil {
		if classifyFatal(err) {
			return 0, api.SendFail
		}
		return 0, api.SendEAgain
	}
	return n, api.SendOK
}

func (c *sysClientConn) CanSend() bool {
	if c.closed {
		return false
	}
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLOUT}}
	n, err := unix.Poll(fds, 0)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLOUT != 0
}

func (c *sysClientConn) Recv(buf []byte) (int, api.RecvStatus) {
	if c.closed {
		return 0, api.RecvError
	}
	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if classifyFatal(err) {
			return 0, api.RecvError
		}
		return 0, api.RecvOK
	}
	if n == 0 {
		return 0, api.RecvConnClosed
	}
	return n, api.RecvOK
}

func (c *sysClientConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return unix.Close(c.fd)
}

func (c *sysClientConn) RawFD() int {
	return c.fd
}

// classifyFatal reports whether err is a connection-ending socket error as
// opposed to a transient one (EAGAIN/EWOULDBLOCK/EINTR) Send and Recv
// should simply retry on a later tick.
func classifyFatal(err error) bool {
	if err == nil {
		return false
	}
	switch err {
	case unix.EAGAIN, unix.EINTR:
		return false
	case unix.ECONNRESET, unix.EPIPE, unix.ETIMEDOUT, unix.ENOTCONN, unix.ECONNABORTED:
		return true
	default:
		return true
	}
}
