// File: wslisten/listener.go
// Package wslisten implements the long-running accept loop: bind a listening
// socket, accept connections non-stop, classify accept errors, and hand off
// each accepted socket to a callback.
//
// The accept loop runs on its own goroutine and stops on Close. Protocol
// handling (including the WebSocket handshake) belongs to httpparse and
// wsproto further down the pipeline, so Listener only classifies accept
// errors and hands off a raw ClientConn.
package wslisten

import (
	"errors"
	"log"
	"net"
	"time"

	"github.com/embedserve/emhttpd/netio"
)

// HandOff is invoked once per accepted connection. Returning false tells the
// Listener to immediately close and discard the connection (e.g. the
// new-connection queue is full).
type HandOff func(conn netio.ClientConn) bool

// maxConsecErrors is the transient-error rebind threshold from the accept
// loop's error-classification table.
const maxConsecErrors = 50

// attachLinger is the SO_LINGER value applied to every accepted socket, so
// a close with unsent bytes still gives the kernel a bounded drain window.
const attachLinger = 2 * time.Second

// Listener owns the bound socket and runs the accept loop on its own
// goroutine until Close is called.
type Listener struct {
	addr     string
	handOff  HandOff
	logger   *log.Logger
	closeCh  chan struct{}
	doneCh   chan struct{}
	listener net.Listener
}

// NewListener binds addr (host:port) and returns a Listener ready to Run.
func NewListener(addr string, handOff HandOff, logger *log.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Listener{
		addr:     addr,
		handOff:  handOff,
		logger:   logger,
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
		listener: ln,
	}, nil
}

// Run blocks, accepting connections until Close is called. It rebinds the
// listening socket in place when the accept error classifier demands it.
func (l *Listener) Run() {
	defer close(l.doneCh)
	consecErrors := 0
	for {
		select {
		case <-l.closeCh:
			return
		default:
		}

		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-l.closeCh:
				return
			default:
			}
			switch classifyAcceptErr(err) {
			case acceptTransient:
				consecErrors++
				l.logger.Printf("wslisten: transient accept error: %v (consecutive=%d)", err, consecErrors)
				time.Sleep(time.Second)
				if consecErrors > maxConsecErrors {
					l.rebind()
					consecErrors = 0
				}
				continue
			case acceptRebind:
				l.logger.Printf("wslisten: accept error requires rebind: %v", err)
				l.rebind()
				consecErrors = 0
				continue
			}
		}
		consecErrors = 0

		cc := wrapAccepted(conn)
		if err := cc.Setup(true, attachLinger); err != nil {
			l.logger.Printf("wslisten: socket setup failed: %v", err)
		}
		if !l.handOff(cc) {
			cc.Close()
		}
	}
}

// rebind closes and recreates the listening socket in place, used when the
// accept loop decides the current listener cannot recover.
func (l *Listener) rebind() {
	l.listener.Close()
	for {
		ln, err := net.Listen("tcp", l.addr)
		if err == nil {
			l.listener = ln
			return
		}
		l.logger.Printf("wslisten: rebind failed, retrying: %v", err)
		time.Sleep(time.Second)
		select {
		case <-l.closeCh:
			return
		default:
		}
	}
}

// Addr returns the listener's currently bound address, primarily for tests
// and logging when the configured port is 0 (OS-chosen).
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Close stops the accept loop and waits for Run to return.
func (l *Listener) Close() error {
	close(l.closeCh)
	err := l.listener.Close()
	<-l.doneCh
	return err
}

type acceptErrClass int

const (
	acceptOK acceptErrClass = iota
	acceptTransient
	acceptRebind
)

func classifyAcceptErr(err error) acceptErrClass {
	var sysErr error
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		sysErr = opErr.Err
	}
	for _, known := range transientAcceptErrors() {
		if errors.Is(sysErr, known) || errors.Is(err, known) {
			return acceptTransient
		}
	}
	return acceptRebind
}

var errNoRawConn = errors.New("wslisten: connection does not expose a raw fd")
