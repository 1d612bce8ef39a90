package varycache

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/vary-cache/vary-cache/cache"
	cachekey "github.com/vary-cache/vary-cache/pkg/cache-key"
	serializer "github.com/vary-cache/vary-cache/pkg/response-serializer"
)

// Fetch is the pre-generation phase: it checks whether a response for the
// request is already cached, and records on the request whether the
// post-generation phase should store the generated response.
type Fetch struct {
	cache   cache.Provider
	keyer   cachekey.Keyer
	metrics *Metrics
	log     zerolog.Logger
}

func NewFetch(config Config) (*Fetch, error) {
	res, err := config.resolve()
	if err != nil {
		return nil, err
	}
	return newFetch(res), nil
}

func newFetch(res resolved) *Fetch {
	return &Fetch{
		cache:   res.cache,
		keyer:   res.keyer,
		metrics: res.metrics,
		log:     res.log,
	}
}

// Lookup checks whether the request can be served from the cache.
// It returns the cached response, or nil on a miss, together with a derived
// request carrying the store decision for the update phase; callers must
// pass that request on through the pipeline.
//
// The returned response is an independent copy: mutating it does not
// corrupt the cached value.
func (f *Fetch) Lookup(r *http.Request) (*Response, *http.Request) {
	r, st := withStoreState(r)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		// don't bother checking the cache
		st.shouldStore = false
		f.metrics.bypass()
		return nil, r
	}

	// try to get the cached GET response
	key, ok := f.cacheKey(r, http.MethodGet)
	if !ok {
		// no header list on file, the path needs to be learned
		st.shouldStore = true
		f.metrics.miss()
		return nil, r
	}
	res, ok := f.read(key)
	// if it wasn't found and we are looking for a HEAD, try looking just for that
	if !ok && r.Method == http.MethodHead {
		if key, keyOK := f.cacheKey(r, http.MethodHead); keyOK {
			res, ok = f.read(key)
		}
	}
	if !ok {
		st.shouldStore = true
		f.metrics.miss()
		return nil, r
	}

	st.shouldStore = false
	f.metrics.hit()
	return res, r
}

// cacheKey resolves the page key for the request via the learned header
// list, treating backend errors as "not learned".
func (f *Fetch) cacheKey(r *http.Request, method string) (string, bool) {
	headerListKey := f.keyer.HeaderListKey(r)
	b, ok, err := f.cache.Get(headerListKey)
	if err != nil {
		f.log.Warn().Err(err).Str("key", headerListKey).Msg("Could not read header list")
		f.metrics.readError()
		return "", false
	}
	if !ok {
		return "", false
	}
	list, err := serializer.BytesToHeaderList(b)
	if err != nil {
		f.log.Warn().Err(err).Str("key", headerListKey).Msg("Malformed header list entry")
		return "", false
	}
	return f.keyer.PageKey(r, method, list), true
}

// read loads and decodes a stored response, treating any error as a miss.
func (f *Fetch) read(key string) (*Response, bool) {
	b, ok, err := f.cache.Get(key)
	if err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("Could not read cached response")
		f.metrics.readError()
		return nil, false
	}
	if !ok {
		return nil, false
	}
	snap, err := serializer.BytesToSnapshot(b)
	if err != nil {
		f.log.Warn().Err(err).Str("key", key).Msg("Malformed cached response")
		return nil, false
	}
	return responseFromSnapshot(snap), true
}

// GetCacheKey returns the page key for the request if the header list for
// its path has been learned. It can be used in the request phase because it
// pulls the list of relevant headers from the provider instead of a
// response. The boolean is false when the path is unknown, meaning the
// response has to be generated to learn the list.
func GetCacheKey(r *http.Request, keyer cachekey.Keyer, method string, provider cache.Provider) (string, bool) {
	b, ok, err := provider.Get(keyer.HeaderListKey(r))
	if err != nil || !ok {
		return "", false
	}
	list, err := serializer.BytesToHeaderList(b)
	if err != nil {
		return "", false
	}
	return keyer.PageKey(r, method, list), true
}
