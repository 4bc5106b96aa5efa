// File: server/staticdata.go
//
// staticDataHandler serves fixed in-memory blobs registered via
// WithStaticData. Unlike staticFileHandler it matches the request URL
// exactly rather than as a mount prefix, since each route names one fixed
// resource rather than a filesystem subtree.
package server

import (
	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/responder"
)

type staticDataRoute struct {
	url         string
	blob        []byte
	contentType string
}

type staticDataHandler struct {
	routes []staticDataRoute
}

func newStaticDataHandler(routes []staticDataRoute) *staticDataHandler {
	return &staticDataHandler{routes: routes}
}

func (h *staticDataHandler) GetNewResponder(req *api.RequestHeader) (responder.Responder, int) {
	if req.Method != api.GET && req.Method != api.HEAD {
		return nil, 0
	}
	for _, route := range h.routes {
		if route.url != req.URL {
			continue
		}
		return responder.NewDataResponder(route.blob, route.contentType), 0
	}
	return nil, 0
}

var _ Handler = (*staticDataHandler)(nil)
