package varycache

import (
	"net/http"

	serializer "github.com/vary-cache/vary-cache/pkg/response-serializer"
)

// Response is the response representation the cache operates on: a status
// code, a mutable header map and a body. It is decoupled from
// http.ResponseWriter so the two phases can be driven from any pipeline.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Deferred marks a response whose body is produced lazily after
	// header inspection. Storing such a response is postponed until
	// Finalize is called with the body in place.
	Deferred bool

	finalizers []func(*Response)
}

func NewResponse(statusCode int, header http.Header, body []byte) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{StatusCode: statusCode, Header: header, Body: body}
}

func (r *Response) HasHeader(name string) bool {
	_, ok := r.Header[http.CanonicalHeaderKey(name)]
	return ok
}

// OnFinalize registers a callback to run when a deferred body is finalized.
func (r *Response) OnFinalize(cb func(*Response)) {
	r.finalizers = append(r.finalizers, cb)
}

// Finalize runs the registered callbacks. Producers of deferred responses
// must call it once the body is in place.
func (r *Response) Finalize() {
	for _, cb := range r.finalizers {
		cb(r)
	}
	r.finalizers = nil
	r.Deferred = false
}

func responseFromSnapshot(s serializer.Snapshot) *Response {
	header := s.Header
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		StatusCode: s.StatusCode,
		Header:     header,
		Body:       s.Body,
	}
}

func snapshotOf(r *Response) serializer.Snapshot {
	return serializer.Snapshot{
		StatusCode: r.StatusCode,
		Header:     r.Header,
		Body:       r.Body,
	}
}
