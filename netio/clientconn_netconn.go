// File: netio/clientconn_netconn.go
//
// A net.Conn-backed ClientConn, used as the fallback wrapper on platforms
// without raw fd access and as the Accept-side fallback on Linux when fd
// extraction fails (e.g. non-TCP or non-syscall-backed connections).
package netio

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/embedserve/emhttpd/api"
)

type netClientConn struct {
	conn   net.Conn
	closed bool
}

// NewClientConnFromNetConn wraps a standard net.Conn.
func NewClientConnFromNetConn(conn net.Conn) ClientConn {
	return &netClientConn{conn: conn}
}

func (c *netClientConn) Setup(nodelay bool, linger time.Duration) error {
	if tc, ok := c.conn.(*net.TCPConn); ok {
		if nodelay {
			if err := tc.SetNoDelay(true); err != nil {
				return err
			}
		}
		if linger >= 0 {
			if err := tc.SetLinger(int(linger / time.Second)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *netClientConn) Send(buf []byte) (int, api.SendRetVal) {
	if c.closed {
		return 0, api.SendNoConnection
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Millisecond))
	n, err := c.conn.Write(buf)
	if err != nil {
		if isTimeout(err) {
			return n, api.SendEAgain
		}
		return n, api.SendFail
	}
	return n, api.SendOK
}

func (c *netClientConn) CanSend() bool {
	return !c.closed
}

func (c *netClientConn) Recv(buf []byte) (int, api.RecvStatus) {
	if c.closed {
		return 0, api.RecvError
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(time.Millisecond))
	n, err := c.conn.Read(buf)
	if err != nil {
		if isTimeout(err) {
			return 0, api.RecvOK
		}
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return 0, api.RecvConnClosed
		}
		return 0, api.RecvError
	}
	if n == 0 {
		return 0, api.RecvConnClosed
	}
	return n, api.RecvOK
}

func (c *netClientConn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *netClientConn) RawFD() int {
	return -1
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
