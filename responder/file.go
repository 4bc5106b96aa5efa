// File: responder/file.go
//
// FileResponder serves a filesystem path, negotiating a pre-compressed
// .gz sibling when the client advertises gzip support. The content-type
// table is a closed set keyed by extension; a file whose extension is not
// in it is still served, as text/plain.
package responder

import (
	"io"
	"os"
	"strings"

	"github.com/embedserve/emhttpd/api"
)

// MimeTable holds the mime_types configuration surface:
// extension-to-content-type overrides supplied by one embedder's
// configuration, consulted ahead of the built-in closed set below. It is
// owned by whichever server.Server built it and threaded explicitly into
// NewFileResponder — never package-global state, so two Server instances
// running in the same process with different Config.MimeTypes each keep
// their own table instead of one clobbering the other's.
type MimeTable struct {
	overrides map[string]string
}

// NewMimeTable builds a MimeTable from an extension ("." + ext) to
// content-type map. A nil or empty map yields a table that defers entirely
// to the built-in closed set.
func NewMimeTable(overrides map[string]string) *MimeTable {
	return &MimeTable{overrides: overrides}
}

func (t *MimeTable) lookup(ext string) (string, bool) {
	if t == nil {
		return "", false
	}
	ct, ok := t.overrides[ext]
	return ct, ok
}

// mimeByExt is the closed extension-to-content-type mapping; anything
// outside this set falls back to text/plain.
var mimeByExt = map[string]string{
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".json":  "application/json",
	".js":    "application/javascript",
	".png":   "image/png",
	".gif":   "image/gif",
	".jpg":   "image/jpeg",
	".ico":   "image/x-icon",
	".svg":   "image/svg+xml",
	".eot":   "application/vnd.ms-fontobject",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".xml":   "application/xml",
	".pdf":   "application/pdf",
	".zip":   "application/zip",
	".gz":    "application/gzip",
}

// FileResponder streams a file's contents in bounded chunks.
type FileResponder struct {
	f            *os.File
	size         int64
	remaining    int64
	contentType  string
	cacheControl string
	gzipped      bool
	closed       bool
}

// NewFileResponder resolves path against acceptEncoding, attempting
// path+".gz" first when the client advertises gzip. mimeTable may be nil
// (defers entirely to the built-in closed set); cacheControl may be empty
// (no Cache-Control header emitted). Returns ok=false when neither file
// opens.
func NewFileResponder(path string, acceptEncoding string, mimeTable *MimeTable, cacheControl string) (*FileResponder, bool) {
	ct := contentTypeFor(path, mimeTable)

	if strings.Contains(acceptEncoding, "gzip") {
		if f, size, ok := openExisting(path + ".gz"); ok {
			return &FileResponder{f: f, size: size, remaining: size, contentType: ct, cacheControl: cacheControl, gzipped: true}, true
		}
	}
	f, size, ok := openExisting(path)
	if !ok {
		return nil, false
	}
	return &FileResponder{f: f, size: size, remaining: size, contentType: ct, cacheControl: cacheControl}, true
}

func openExisting(path string) (*os.File, int64, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, false
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, 0, false
	}
	return f, info.Size(), true
}

func contentTypeFor(path string, mimeTable *MimeTable) string {
	ext := strings.ToLower(path)
	idx := strings.LastIndexByte(ext, '.')
	if idx < 0 {
		return "text/plain"
	}
	key := ext[idx:]

	if ct, ok := mimeTable.lookup(key); ok {
		return ct
	}
	if ct, ok := mimeByExt[key]; ok {
		return ct
	}
	return "text/plain"
}

func (r *FileResponder) Start(*api.RequestHeader) bool { return true }

func (r *FileResponder) PollNext(maxLen int) []byte {
	if r.remaining <= 0 {
		return nil
	}
	n := maxLen
	if int64(n) > r.remaining {
		n = int(r.remaining)
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(r.f, buf)
	if read > 0 {
		r.remaining -= int64(read)
	}
	if err != nil && err != io.ErrUnexpectedEOF {
		r.remaining = 0
	}
	return buf[:read]
}

func (r *FileResponder) HandleInbound([]byte) bool { return true }
func (r *FileResponder) ReadyToReceiveData() bool { return false }
func (r *FileResponder) ReadyToSend() bool { return r.remaining > 0 }
func (r *FileResponder) ContentType() string { return r.contentType }
func (r *FileResponder) ContentLength() (int64, bool) { return r.size, true }
func (r *FileResponder) LeaveConnOpen() bool { return false }
func (r *FileResponder) StdHeaderRequired() bool { return true }
func (r *FileResponder) ChannelID() (uint32, bool) { return 0, false }

func (r *FileResponder) ExtraHeaders() []api.HeaderField {
	var headers []api.HeaderField
	if r.gzipped {
		headers = append(headers, api.HeaderField{Name: "Content-Encoding", Value: "gzip"})
	}
	if r.cacheControl != "" {
		headers = append(headers, api.HeaderField{Name: "Cache-Control", Value: r.cacheControl})
	}
	return headers
}

func (r *FileResponder) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.f.Close()
}

var _ Responder = (*FileResponder)(nil)
