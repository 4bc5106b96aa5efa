// File: responder/restapi.go
//
// RestAPIResponder wires an application-supplied endpoint (four optional
// callbacks) to the Responder contract: accumulate the request body (plain
// or multipart), invoke Main exactly once when the body is complete, then
// stream its response.
package responder

import (
	"github.com/embedserve/emhttpd/api"
	"github.com/embedserve/emhttpd/multipart"
)

// FileStreamBlock is one boundary-delimited chunk handed to an endpoint's
// Chunk callback for a multipart upload.
type FileStreamBlock struct {
	Meta       multipart.PartMeta
	Data       []byte
	ContentPos int64
	IsFirst    bool
	IsFinal    bool
}

// Endpoint bundles the optional callbacks a REST route supplies.
type Endpoint struct {
	// Main is invoked exactly once after the request body is fully
	// received, producing the response body.
	Main func(req *api.RequestHeader) string
	// Body accumulates a non-multipart request body, chunk by chunk.
	Body func(req *api.RequestHeader, data []byte, index int, total int64)
	// Chunk receives one multipart part chunk at a time.
	Chunk func(req *api.RequestHeader, block FileStreamBlock)
	// IsReady gates ReadyToReceiveData; nil means always ready.
	IsReady func(req *api.RequestHeader) bool
}

// RestAPIResponder implements Responder for a JSON REST endpoint.
type RestAPIResponder struct {
	endpoint Endpoint
	req      *api.RequestHeader

	mp *multipart.Parser

	contentPos     int64
	endpointCalled bool
	response       string
	responseSent   int
	sawFirstBlock  bool
	invalid        bool

	bus        api.MessageBus
	channelID  uint32
	hasChannel bool
}

// NewRestAPIResponder constructs a responder for endpoint.
func NewRestAPIResponder(endpoint Endpoint) *RestAPIResponder {
	return &RestAPIResponder{endpoint: endpoint}
}

// SetMessageBus wires this responder's inbound body bytes to the external
// message bus under the server-wide rest_api_channel_id, the same
// forwarding contract a WebSocket channel uses. Called once, right after
// construction, by the handler that owns the REST route table.
func (r *RestAPIResponder) SetMessageBus(bus api.MessageBus, channelID uint32) {
	r.bus = bus
	r.channelID = channelID
	r.hasChannel = bus != nil
}

func (r *RestAPIResponder) Start(req *api.RequestHeader) bool {
	r.req = req
	if req.IsMultipart {
		r.mp = multipart.NewParser(req.MultipartBoundary, r.onMultipartData)
	}
	if !req.HasLength || req.ContentLength == 0 {
		r.invokeMainIfNeeded()
	}
	return true
}

func (r *RestAPIResponder) onMultipartData(data []byte, meta multipart.PartMeta, pos int64, isFinal bool) {
	if r.endpoint.Chunk == nil {
		return
	}
	block := FileStreamBlock{
		Meta:       meta,
		Data:       data,
		ContentPos: pos,
		IsFirst:    !r.sawFirstBlock,
		IsFinal:    isFinal,
	}
	r.sawFirstBlock = true
	r.endpoint.Chunk(r.req, block)
}

func (r *RestAPIResponder) HandleInbound(data []byte) bool {
	if r.invalid {
		return false
	}
	if r.mp != nil {
		if err := r.mp.Feed(data); err != nil {
			r.invalid = true
			return false
		}
	} else if r.endpoint.Body != nil {
		r.endpoint.Body(r.req, data, int(r.contentPos), r.req.ContentLength)
	}
	if r.bus != nil && len(data) > 0 && r.bus.InboundCanAccept(r.channelID) {
		r.bus.InboundHandle(r.channelID, data)
	}
	r.contentPos += int64(len(data))
	r.invokeMainIfNeeded()
	return true
}

func (r *RestAPIResponder) invokeMainIfNeeded() {
	if r.endpointCalled {
		return
	}
	if r.req.HasLength && r.contentPos < r.req.ContentLength {
		return
	}
	r.endpointCalled = true
	if r.endpoint.Main != nil {
		r.response = r.endpoint.Main(r.req)
	}
}

func (r *RestAPIResponder) PollNext(maxLen int) []byte {
	if !r.endpointCalled {
		return []byte{}
	}
	if r.responseSent >= len(r.response) {
		return nil
	}
	end := r.responseSent + maxLen
	if end > len(r.response) {
		end = len(r.response)
	}
	chunk := []byte(r.response[r.responseSent:end])
	r.responseSent = end
	return chunk
}

func (r *RestAPIResponder) ReadyToReceiveData() bool {
	if r.invalid {
		return false
	}
	if r.endpoint.IsReady != nil {
		return r.endpoint.IsReady(r.req)
	}
	return true
}

func (r *RestAPIResponder) ReadyToSend() bool {
	return !r.endpointCalled || r.responseSent < len(r.response)
}

func (r *RestAPIResponder) ContentType() string { return "text/json" }
func (r *RestAPIResponder) ContentLength() (int64, bool) { return 0, false }
func (r *RestAPIResponder) ExtraHeaders() []api.HeaderField { return nil }
func (r *RestAPIResponder) LeaveConnOpen() bool { return false }
func (r *RestAPIResponder) StdHeaderRequired() bool { return true }
func (r *RestAPIResponder) ChannelID() (uint32, bool) { return r.channelID, r.hasChannel }
func (r *RestAPIResponder) Close() {}

var _ Responder = (*RestAPIResponder)(nil)
