// File: server/options.go
// Package server functional options.
package server

import "github.com/embedserve/emhttpd/api"

// ServerOption customizes a Server (and the Config it was built from)
// before Run starts the listener and service loop.
type ServerOption func(*Server)

// WithStaticFilePath maps a URI prefix to a filesystem root; equivalent to
// one entry of Config.StaticFilePaths. cacheControl is optional (at most one
// value is used) and, when given, is applied as a Cache-Control header to
// every response served under this mount.
func WithStaticFilePath(uri, fsPath string, cacheControl ...string) ServerOption {
	return func(s *Server) {
		s.cfg.StaticFilePaths[uri] = fsPath
		if len(cacheControl) > 0 {
			s.cfg.StaticFileCacheControl[uri] = cacheControl[0]
		}
	}
}

// WithStaticData registers a fixed in-memory blob at url, served with
// contentType to GET/HEAD requests.
func WithStaticData(url string, blob []byte, contentType string) ServerOption {
	return func(s *Server) {
		s.staticDataRoutes = append(s.staticDataRoutes, staticDataRoute{url: url, blob: blob, contentType: contentType})
	}
}

// WithRestEndpoint registers a REST endpoint at path (relative to
// Config.RestAPIPrefix) for method.
func WithRestEndpoint(method api.Method, path string, ep Endpoint) ServerOption {
	return func(s *Server) {
		s.restRoutes = append(s.restRoutes, restRoute{method: method, path: path, endpoint: ep})
	}
}

// WithWebSocketHandler adds a WebSocket route with onMessage invoked for
// every reassembled inbound message delivered on any channel it owns.
func WithWebSocketHandler(cfg WSHandlerConfig, onMessage func(channelID uint32, payload []byte)) ServerOption {
	return func(s *Server) {
		s.wsHandlerSpecs = append(s.wsHandlerSpecs, wsHandlerSpec{cfg: cfg, onMessage: onMessage})
	}
}

// WithMessageBus installs the external message bus that inbound WebSocket
// messages and REST body chunks are forwarded to.
func WithMessageBus(bus api.MessageBus) ServerOption {
	return func(s *Server) { s.cfg.Bus = bus }
}

// WithStdResponseHeader appends a header emitted on every response.
func WithStdResponseHeader(name, value string) ServerOption {
	return func(s *Server) {
		s.cfg.StdResponseHeaders = append(s.cfg.StdResponseHeaders, api.HeaderField{Name: name, Value: value})
	}
}
