// File: server/resthandler.go
//
// restHandler adapts a flat table of (method, path) -> responder.Endpoint
// into a connmgr.Handler: it matches the RestAPIPrefix-relative path exactly
// and rejects a path match on the wrong method with 405 rather than letting
// the registry fall through to the file handler.
package server

import (
	"strings"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/responder"
)

// Endpoint is the set of callbacks one REST route supplies.
type Endpoint = responder.Endpoint

type restRoute struct {
	method   api.Method
	path     string
	endpoint Endpoint
}

type restHandler struct {
	prefix    string
	routes    []restRoute
	bus       api.MessageBus
	channelID uint32
}

func newRestHandler(prefix string, routes []restRoute) *restHandler {
	return &restHandler{prefix: strings.TrimSuffix(prefix, "/"), routes: routes}
}

// withMessageBus tags every responder this handler produces with bus and
// channelID, the rest_api_channel_id forwarding contract. The
// built-in webcerts handler never calls this — that surface is the
// server's own, not an embedder-registered REST-sourced message channel.
func (h *restHandler) withMessageBus(bus api.MessageBus, channelID uint32) *restHandler {
	h.bus = bus
	h.channelID = channelID
	return h
}

func (h *restHandler) GetNewResponder(req *api.RequestHeader) (responder.Responder, int) {
	if !strings.HasPrefix(req.URL, h.prefix) {
		return nil, 0
	}
	rel := strings.TrimPrefix(req.URL, h.prefix)
	if rel == "" {
		rel = "/"
	}

	methodMatched := false
	for _, route := range h.routes {
		if route.path != rel {
			continue
		}
		if route.method != req.Method {
			methodMatched = true
			continue
		}
		resp := responder.NewRestAPIResponder(route.endpoint)
		if h.bus != nil {
			resp.SetMessageBus(h.bus, h.channelID)
		}
		return resp, 0
	}
	if methodMatched {
		return nil, 405
	}
	return nil, 404
}

var _ Handler = (*restHandler)(nil)
