// Package tee records a handler's response so it can be inspected and
// stored before anything is written to the client.
package tee

import (
	"bytes"
	"net/http"
)

// Recorder is an http.ResponseWriter that captures the status code, headers
// and body of a response instead of sending them downstream.
type Recorder struct {
	b            bytes.Buffer
	header       http.Header
	status       int
	wroteHeaders bool
}

func NewRecorder() *Recorder {
	return &Recorder{
		header: make(http.Header),
	}
}

// Implementation of http.ResponseWriter
func (t *Recorder) Header() http.Header {
	return t.header
}

// Implementation of http.ResponseWriter
func (t *Recorder) WriteHeader(statusCode int) {
	if t.wroteHeaders {
		return
	}
	t.wroteHeaders = true
	t.status = statusCode
}

// Implementation of http.ResponseWriter
func (t *Recorder) Write(b []byte) (int, error) {
	if !t.wroteHeaders {
		t.WriteHeader(http.StatusOK)
	}
	return t.b.Write(b)
}

// StatusCode returns the recorded status code.
// Handlers that never write get the zero value.
func (t *Recorder) StatusCode() int {
	return t.status
}

// Body returns the recorded response body.
func (t *Recorder) Body() []byte {
	return t.b.Bytes()
}
