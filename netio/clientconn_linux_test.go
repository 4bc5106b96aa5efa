//go:build linux

package netio_test

import (
	"testing"
	"time"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/netio"
	"golang.org/x/sys/unix"
)

// loopbackPair opens a connected TCP pair over 127.0.0.1 using raw syscalls,
// the same primitives sysClientConn is built on, and returns both ends
// wrapped as ClientConn.
func loopbackPair(t *testing.T) (server, client netio.ClientConn, cleanup func()) {
	t.Helper()

	lfd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	if err := unix.Bind(lfd, &unix.SockaddrInet4{Port: 0, Addr: [4]byte{127, 0, 0, 1}}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := unix.Listen(lfd, 1); err != nil {
		t.Fatalf("listen: %v", err)
	}
	sa, err := unix.Getsockname(lfd)
	if err != nil {
		t.Fatalf("getsockname: %v", err)
	}
	port := sa.(*unix.SockaddrInet4).Port

	cfd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		t.Fatalf("socket client: %v", err)
	}
	if err := unix.Connect(cfd, &unix.SockaddrInet4{Port: port, Addr: [4]byte{127, 0, 0, 1}}); err != nil {
		t.Fatalf("connect: %v", err)
	}

	sfd, _, err := unix.Accept(lfd)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	unix.Close(lfd)

	server = netio.NewClientConn(sfd)
	client = netio.NewClientConn(cfd)
	if err := server.Setup(true, -1); err != nil {
		t.Fatalf("server setup: %v", err)
	}
	if err := client.Setup(true, -1); err != nil {
		t.Fatalf("client setup: %v", err)
	}

	return server, client, func() {
		server.Close()
		client.Close()
	}
}

func TestClientConnSendRecv(t *testing.T) {
	server, client, cleanup := loopbackPair(t)
	defer cleanup()

	msg := []byte("hello connection slot")
	n, ret := server.Send(msg)
	if ret != api.SendOK || n != len(msg) {
		t.Fatalf("Send = (%d, %v), want (%d, SendOK)", n, ret, len(msg))
	}

	// Give the kernel a moment to deliver the bytes to the peer's buffer.
	time.Sleep(10 * time.Millisecond)

	buf := make([]byte, 128)
	n, status := client.Recv(buf)
	if status != api.RecvOK {
		t.Fatalf("Recv status = %v, want RecvOK", status)
	}
	if string(buf[:n]) != string(msg) {
		t.Fatalf("Recv got %q, want %q", buf[:n], msg)
	}
}

func TestClientConnRecvNoDataIsNonBlocking(t *testing.T) {
	_, client, cleanup := loopbackPair(t)
	defer cleanup()

	buf := make([]byte, 16)
	n, status := client.Recv(buf)
	if status != api.RecvOK || n != 0 {
		t.Fatalf("Recv with nothing pending = (%d, %v), want (0, RecvOK)", n, status)
	}
}

func TestClientConnRecvClosedPeer(t *testing.T) {
	server, client, cleanup := loopbackPair(t)
	defer cleanup()

	server.Close()
	time.Sleep(10 * time.Millisecond)

	buf := make([]byte, 16)
	_, status := client.Recv(buf)
	if status != api.RecvConnClosed {
		t.Fatalf("Recv after peer close = %v, want RecvConnClosed", status)
	}
}
