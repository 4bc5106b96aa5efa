// File: connmgr/handlers.go
// Package connmgr owns the fixed connection-slot table, the per-slot state
// machine, and the ordered handler lookup that turns a parsed request
// header into a Responder — the glue between httpparse, responder, and
// netio.
//
// The registry is an ordered list of handlers consulted in turn, each able
// to decline by returning nil; the first match wins, since this server
// picks exactly one Responder per request rather than threading a request
// through every handler.
package connmgr

import (
	"sync"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/responder"
)

// Handler matches an incoming request header against a route it owns and,
// on a match, produces a Responder ready to be Start-ed. A handler that
// doesn't match returns (nil, 0); one that matches but wants to fail the
// request outright (e.g. a REST handler rejecting an unsupported method)
// returns (nil, statusCode) with statusCode != 0.
type Handler interface {
	GetNewResponder(header *api.RequestHeader) (responder.Responder, int)
}

// FileHandler marks a Handler that must always be consulted last,
// regardless of registration order.
type FileHandler interface {
	Handler
	IsFileHandler() bool
}

// HandlerRegistry is the ordered list of route handlers a connection slot
// consults once its request header is complete.
type HandlerRegistry struct {
	mu     sync.RWMutex
	normal []Handler
	files  []Handler
}

// NewHandlerRegistry returns an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register adds h to the registry. highPriority handlers are prepended to
// the front of the non-file group; a Handler that also implements
// FileHandler and reports IsFileHandler() true is filed separately and
// always consulted after every non-file handler, irrespective of
// highPriority or insertion order.
func (r *HandlerRegistry) Register(h Handler, highPriority bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fh, ok := h.(FileHandler); ok && fh.IsFileHandler() {
		r.files = append(r.files, h)
		return
	}
	if highPriority {
		r.normal = append([]Handler{h}, r.normal...)
		return
	}
	r.normal = append(r.normal, h)
}

// GetNewResponder walks non-file handlers in registration order, then file
// handlers, returning the first match. If every handler declines, the
// default status is 404; if a handler declined with a non-404 status, that
// status is returned instead and no further handlers are tried.
func (r *HandlerRegistry) GetNewResponder(header *api.RequestHeader) (responder.Responder, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.normal {
		resp, status := h.GetNewResponder(header)
		if resp != nil {
			return resp, 200
		}
		if status != 0 && status != 404 {
			return nil, status
		}
	}
	for _, h := range r.files {
		resp, status := h.GetNewResponder(header)
		if resp != nil {
			return resp, 200
		}
		if status != 0 && status != 404 {
			return nil, status
		}
	}
	return nil, 404
}
