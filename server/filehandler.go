// File: server/filehandler.go
//
// staticFileHandler is the FileHandler consulted last by the
// HandlerRegistry: it maps a request URL prefix to a filesystem
// root and serves GET/HEAD requests under it, declining everything else so
// an unmatched path falls through to the registry's default 404.
package server

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/responder"
)

// staticMount is one configured URL-prefix-to-filesystem-root mapping.
type staticMount struct {
	prefix       string
	root         string
	cacheControl string
}

type staticFileHandler struct {
	mounts    []staticMount
	mimeTable *responder.MimeTable
}

func newStaticFileHandler(mounts map[string]string, cacheControl map[string]string, mimeTable *responder.MimeTable) *staticFileHandler {
	h := &staticFileHandler{mimeTable: mimeTable}
	for prefix, root := range mounts {
		h.mounts = append(h.mounts, staticMount{prefix: prefix, root: root, cacheControl: cacheControl[prefix]})
	}
	// Longest prefix first, so overlapping mounts (e.g. "/" alongside
	// "/files/sd") always resolve to the most specific one; ties are broken
	// lexically to keep the order deterministic across constructions.
	sort.Slice(h.mounts, func(i, j int) bool {
		if len(h.mounts[i].prefix) != len(h.mounts[j].prefix) {
			return len(h.mounts[i].prefix) > len(h.mounts[j].prefix)
		}
		return h.mounts[i].prefix < h.mounts[j].prefix
	})
	return h
}

func (h *staticFileHandler) IsFileHandler() bool { return true }

func (h *staticFileHandler) GetNewResponder(req *api.RequestHeader) (responder.Responder, int) {
	if req.Method != api.GET && req.Method != api.HEAD {
		return nil, 0
	}
	for _, mount := range h.mounts {
		rel, ok := matchMount(mount.prefix, req.URL)
		if !ok {
			continue
		}
		if rel == "" || strings.HasSuffix(rel, "/") {
			rel += "index.html"
		}
		path := filepath.Join(mount.root, filepath.FromSlash(rel))
		if !strings.HasPrefix(path, filepath.Clean(mount.root)) {
			return nil, 403
		}
		acceptEncoding, _ := req.Get("Accept-Encoding")
		resp, ok := responder.NewFileResponder(path, acceptEncoding, h.mimeTable, mount.cacheControl)
		if !ok {
			continue
		}
		return resp, 0
	}
	return nil, 0
}

// matchMount reports whether url falls under prefix, returning the
// remaining path relative to the mount's filesystem root.
func matchMount(prefix, url string) (string, bool) {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return strings.TrimPrefix(url, "/"), true
	}
	if url == prefix {
		return "", true
	}
	if strings.HasPrefix(url, prefix+"/") {
		return strings.TrimPrefix(url, prefix+"/"), true
	}
	return "", false
}

var _ FileHandler = (*staticFileHandler)(nil)
