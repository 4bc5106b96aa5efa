// File: server/webcerts.go
//
// certStore backs the server's own built-in REST surface:
// POST /webcerts/set accepts a possibly-chunked JSON body and stashes it as
// a candidate certificate set; GET /webcerts/status (supplementing the
// distillation with the read side every write endpoint needs) reports
// whether a candidate is currently held. Neither endpoint validates or
// installs the certificate — that belongs to whatever embedder-supplied
// TLS layer consumes the candidate, out of scope here.
package server

import (
	"bytes"
	"sync"

	"github.com/embedserve/emhttpd/api"
)

type certStore struct {
	mu        sync.Mutex
	candidate bytes.Buffer
	hasCert   bool
}

func (s *certStore) onBody(_ *api.RequestHeader, data []byte, index int, _ int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index == 0 {
		s.candidate.Reset()
	}
	s.candidate.Write(data)
}

func (s *certStore) onSetComplete(_ *api.RequestHeader) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasCert = s.candidate.Len() > 0
	return `{"rslt":"ok"}`
}

func (s *certStore) onStatus(_ *api.RequestHeader) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasCert {
		return `{"rslt":"ok","has_cert":true}`
	}
	return `{"rslt":"ok","has_cert":false}`
}

// webcertRoutes returns the two restRoute entries that make up the built-in
// webcerts surface, to be registered ahead of any embedder-supplied routes.
func webcertRoutes() []restRoute {
	store := &certStore{}
	return []restRoute{
		{method: api.POST, path: "/webcerts/set", endpoint: Endpoint{
			Main: store.onSetComplete,
			Body: store.onBody,
		}},
		{method: api.GET, path: "/webcerts/status", endpoint: Endpoint{
			Main: store.onStatus,
		}},
	}
}
