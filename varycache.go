// Package varycache is a two-phase, Vary-learning page cache for HTTP
// responses. The fetch phase runs before response generation and answers
// from the cache when it can; the update phase runs after generation and
// decides whether and for how long to store the response, learning which
// request headers matter for a path from the response's Vary header.
//
// The two phases can be mounted separately in a pipeline, with other
// middleware in between, as long as both see the same request. For simple
// deployments, Cache composes them behind a single http.Handler middleware.
package varycache

import (
	"net/http"

	"github.com/rs/zerolog"

	tee "github.com/vary-cache/vary-cache/pkg/response-writer-tee"
)

// Cache composes one fetch phase and one update phase over a single
// backend, prefix and TTL policy.
type Cache struct {
	fetch  *Fetch
	update *Update
	log    zerolog.Logger
}

// New creates a combined cache. Both phases share one resolved
// configuration, so they always agree on key derivation.
func New(config Config) (*Cache, error) {
	res, err := config.resolve()
	if err != nil {
		return nil, err
	}
	return &Cache{
		fetch:  newFetch(res),
		update: newUpdate(res),
		log:    res.log,
	}, nil
}

// Lookup forwards to the fetch phase.
func (c *Cache) Lookup(r *http.Request) (*Response, *http.Request) {
	return c.fetch.Lookup(r)
}

// MaybeStore forwards to the update phase.
func (c *Cache) MaybeStore(r *http.Request, resp *Response) *Response {
	return c.update.MaybeStore(r, resp)
}

// Middleware wraps a handler with the full fetch-generate-update cycle:
// cache hits short-circuit without invoking next; misses run next with a
// recording writer and hand the recorded response to the update phase
// before sending it to the client.
func (c *Cache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cached, r := c.fetch.Lookup(r)
		if cached != nil {
			writeResponse(w, cached)
			return
		}

		rec := tee.NewRecorder()
		next.ServeHTTP(rec, r)

		status := rec.StatusCode()
		if status == 0 {
			status = http.StatusOK
		}
		resp := NewResponse(status, rec.Header(), rec.Body())
		writeResponse(w, c.update.MaybeStore(r, resp))
	})
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
