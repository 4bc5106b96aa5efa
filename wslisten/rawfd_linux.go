//go:build linux

// File: wslisten/rawfd_linux.go
//
// Extracts the raw file descriptor from an accepted net.Conn so the Linux
// ClientConn implementation can drive it directly with the syscalls it
// needs (SO_LINGER/TCP_NODELAY/O_NONBLOCK), rather than through net.Conn's
// deadline-based abstraction.
package wslisten

import (
	"net"
	"syscall"

	"github.com/embedserve/emhttpd/netio"
	"golang.org/x/sys/unix"
)

// wrapAccepted extracts the accepted connection's raw fd so the Linux
// ClientConn can drive it with syscalls directly, falling back to a
// net.Conn-backed ClientConn on extraction failure.
func wrapAccepted(conn net.Conn) netio.ClientConn {
	fd, err := rawFD(conn)
	if err != nil {
		return netio.NewClientConnFromNetConn(conn)
	}
	return netio.NewClientConn(fd)
}

// transientAcceptErrors lists accept-side errno values that indicate a
// temporarily overloaded network stack rather than a dead listening socket,
// per the accept error classification table.
func transientAcceptErrors() []error {
	return []error{
		unix.ENETDOWN,
		unix.EPROTO,
		unix.ENOPROTOOPT,
		unix.EHOSTDOWN,
		unix.ECONNABORTED,
		unix.ENOBUFS,
		unix.EHOSTUNREACH,
		unix.EOPNOTSUPP,
		unix.ENETUNREACH,
		unix.ENFILE,
	}
}

type syscallConner interface {
	SyscallConn() (syscall.RawConn, error)
}

func rawFD(conn net.Conn) (int, error) {
	sc, ok := conn.(syscallConner)
	if !ok {
		return -1, errNoRawConn
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	var ctrlErr error
	err = rc.Control(func(descriptor uintptr) {
		dupFd, dErr := unix.Dup(int(descriptor))
		if dErr != nil {
			ctrlErr = dErr
			return
		}
		fd = dupFd
	})
	if err != nil {
		return -1, err
	}
	if ctrlErr != nil {
		return -1, ctrlErr
	}
	// The duplicated fd must be closed independently; closing conn here
	// drops the net package's bookkeeping copy while our dup stays open,
	// owned from this point on by the returned ClientConn.
	conn.Close()
	return fd, nil
}
