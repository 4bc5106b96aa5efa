// File: responder/data.go
//
// DataResponder serves a fixed in-memory blob, streamed sequentially in
// bounded chunks — the simplest Responder variant, useful for generated or
// cached content that doesn't warrant a filesystem round-trip.
package responder

import "github.com/embedserve/emhttpd/api"

// DataResponder streams a pre-built byte slice.
type DataResponder struct {
	data        []byte
	offset      int
	contentType string
}

// NewDataResponder wraps blob for streaming with the given content type.
func NewDataResponder(blob []byte, contentType string) *DataResponder {
	return &DataResponder{data: blob, contentType: contentType}
}

func (r *DataResponder) Start(*api.RequestHeader) bool { return true }

func (r *DataResponder) PollNext(maxLen int) []byte {
	if r.offset >= len(r.data) {
		return nil
	}
	end := r.offset + maxLen
	if end > len(r.data) {
		end = len(r.data)
	}
	chunk := r.data[r.offset:end]
	r.offset = end
	return chunk
}

func (r *DataResponder) HandleInbound([]byte) bool { return true }
func (r *DataResponder) ReadyToReceiveData() bool { return false }
func (r *DataResponder) ReadyToSend() bool { return r.offset < len(r.data) }
func (r *DataResponder) ContentType() string { return r.contentType }
func (r *DataResponder) ContentLength() (int64, bool) { return int64(len(r.data)), true }
func (r *DataResponder) ExtraHeaders() []api.HeaderField { return nil }
func (r *DataResponder) LeaveConnOpen() bool { return false }
func (r *DataResponder) StdHeaderRequired() bool { return true }
func (r *DataResponder) ChannelID() (uint32, bool) { return 0, false }
func (r *DataResponder) Close() {}

var _ Responder = (*DataResponder)(nil)
