// File: server/server.go
// Package server wires wslisten.Listener, connmgr.ConnManager, and
// connmgr.HandlerRegistry into one embeddable HTTP server behind a single
// New(cfg, opts...) constructor and a ticker-driven Run loop.
package server

import (
	"fmt"
	"time"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/connmgr"
	"github.com/embedserve/emhttpd/control"
	"github.com/embedserve/emhttpd/responder"
	"github.com/embedserve/emhttpd/wslisten"
)

// Handler and FileHandler are re-exported so option constructors and
// embedders never need to import connmgr directly.
type Handler = connmgr.Handler
type FileHandler = connmgr.FileHandler

// serviceTick is how often the service loop drives ConnManager.ServiceConnections;
// this is an implementation knob, not configuration surface, since timeouts
// and grace periods are configured in absolute milliseconds rather than a
// tick rate.
const serviceTick = 2 * time.Millisecond

// Server is one embeddable HTTP/1.1 + WebSocket + SSE server instance bound
// to a fixed-size connection-slot table.
type Server struct {
	cfg *Config

	restRoutes       []restRoute
	wsHandlerSpecs   []wsHandlerSpec
	staticDataRoutes []staticDataRoute

	registry *connmgr.HandlerRegistry
	mgr      *connmgr.ConnManager
	listener *wslisten.Listener
	logger   *control.Logger

	ctlConfig  *control.ConfigStore
	ctlMetrics *control.MetricsRegistry
	ctlProbes  *control.DebugProbes

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Server from cfg and opts but does not yet bind a socket;
// call Run to start accepting connections.
func New(cfg *Config, logger *control.Logger, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = control.Default()
	}
	s := &Server{cfg: cfg, logger: logger}
	s.ctlConfig, s.ctlMetrics, s.ctlProbes = newControlPlane()
	for _, opt := range opts {
		opt(s)
	}
	s.seedControlConfig()
	return s
}

// Run binds the configured TCP port, wires the handler registry and
// connection manager, and blocks, driving the service tick loop until
// Close is called.
func (s *Server) Run() error {
	mimeTable := responder.NewMimeTable(s.cfg.MimeTypes)

	s.registry = connmgr.NewHandlerRegistry()

	// The built-in webcerts surface lives at an absolute path, outside the
	// configurable rest_api_prefix; app-registered endpoints are matched
	// relative to it, per WithRestEndpoint's documented contract.
	s.registry.Register(newRestHandler("", webcertRoutes()), true)
	if len(s.restRoutes) > 0 {
		h := newRestHandler(s.cfg.RestAPIPrefix, s.restRoutes)
		if s.cfg.Bus != nil {
			h.withMessageBus(s.cfg.Bus, s.cfg.RestAPIChannelID)
		}
		s.registry.Register(h, true)
	}

	if s.cfg.EnableWebSockets {
		baseID := uint32(0)
		for _, spec := range s.wsHandlerSpecs {
			h := newWSHandler(spec, baseID, s.cfg.Bus)
			s.registry.Register(h, true)
			baseID += uint32(spec.cfg.MaxConn)
		}
	}
	if s.cfg.EnableFileServer {
		s.registry.Register(newStaticFileHandler(s.cfg.StaticFilePaths, s.cfg.StaticFileCacheControl, mimeTable), false)
	}
	if len(s.staticDataRoutes) > 0 {
		s.registry.Register(newStaticDataHandler(s.staticDataRoutes), true)
	}

	limits := connmgr.Limits{
		SendBufferMaxLen:   s.cfg.SendBufferMaxLen,
		IdleTimeout:        s.cfg.idleTimeout(),
		TotalTimeout:       s.cfg.totalTimeout(),
		ClearPendingGrace:  s.cfg.clearPendingGrace(),
		StdResponseHeaders: s.cfg.StdResponseHeaders,
		NotFoundBody:       s.cfg.NotFoundPageSource,
	}
	s.mgr = connmgr.NewConnManager(s.cfg.NumConnSlots, s.registry, limits, s.logger, nil)

	ln, err := wslisten.NewListener(fmt.Sprintf(":%d", s.cfg.ServerTCPPort), s.mgr.HandOff, nil)
	if err != nil {
		return err
	}
	s.listener = ln

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.listener.Run()
	go s.serviceLoop()

	<-s.doneCh
	return nil
}

// serviceLoop drives ConnManager.ServiceConnections on a fixed tick, the
// single cooperative worker that owns all slot state.
func (s *Server) serviceLoop() {
	defer close(s.doneCh)
	ticker := time.NewTicker(serviceTick)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.mgr.ServiceConnections(now)
		}
	}
}

// Close stops the accept loop and the service tick loop, and waits for Run
// to return.
func (s *Server) Close() error {
	if s.listener != nil {
		s.listener.Close()
	}
	if s.stopCh != nil {
		close(s.stopCh)
		<-s.doneCh
	}
	return nil
}

// SendOnChannel routes buf to the WebSocket responder occupying channelID,
// the entry point an embedder's external message-bus consumer uses to push
// an outbound message without going through a request/response cycle.
func (s *Server) SendOnChannel(channelID uint32, buf []byte) api.SendRetVal {
	if s.mgr == nil {
		return api.SendNoConnection
	}
	return s.mgr.SendOnChannel(channelID, buf)
}

// CanSendOnChannel probes whether a SendOnChannel to channelID is likely to
// succeed right now. noConn reports that the channel id no longer resolves
// to any live slot — the producer's signal to discard rather than retry.
func (s *Server) CanSendOnChannel(channelID uint32) (can bool, noConn bool) {
	if s.mgr == nil {
		return false, true
	}
	return s.mgr.CanSendOnChannel(channelID)
}

// Addr returns the bound listener address; useful in tests that bind port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
