package varycache

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vary-cache/vary-cache/cache"
	cachekey "github.com/vary-cache/vary-cache/pkg/cache-key"
	"github.com/vary-cache/vary-cache/pkg/freshness"
	serializer "github.com/vary-cache/vary-cache/pkg/response-serializer"
	responsetransformer "github.com/vary-cache/vary-cache/pkg/response-transformer"
)

// Update is the post-generation phase: it decides whether the generated
// response is storable, learns the path's header list from its Vary header,
// stores the response, and stamps freshness headers onto it.
type Update struct {
	cache         cache.Provider
	keyer         cachekey.Keyer
	defaultTTL    time.Duration
	anonymousOnly bool
	sessions      SessionResolver
	rules         responsetransformer.Rules
	metrics       *Metrics
	log           zerolog.Logger
}

func NewUpdate(config Config) (*Update, error) {
	res, err := config.resolve()
	if err != nil {
		return nil, err
	}
	return newUpdate(res), nil
}

func newUpdate(res resolved) *Update {
	return &Update{
		cache:         res.cache,
		keyer:         res.keyer,
		defaultTTL:    res.ttl,
		anonymousOnly: res.anonymousOnly,
		sessions:      res.sessions,
		rules:         res.rules,
		metrics:       res.metrics,
		log:           res.log,
	}
}

// MaybeStore stores the response in the cache if the fetch phase requested
// it and the response is cacheable. It returns the response with freshness
// headers patched in, or unchanged when nothing is stored.
//
// A write failure never fails the request: it is logged and counted, and
// the response is returned as if nothing happened.
func (u *Update) MaybeStore(r *http.Request, resp *Response) *Response {
	if !u.shouldStore(r) {
		return resp
	}
	if resp.StatusCode != http.StatusOK {
		return resp
	}

	u.rules.Apply(r, resp.Header)

	// Try to get the timeout from the "max-age" directive of the
	// "Cache-Control" header before reverting to the default.
	ttl, explicit := freshness.ParseCacheControl(resp.Header.Values("Cache-Control")).MaxAge()
	if explicit && ttl == 0 {
		// max-age was set to 0, don't bother caching
		return resp
	}
	if !explicit {
		ttl = u.defaultTTL
	}

	freshness.Patch(resp.Header, resp.Body, ttl, time.Now())
	if ttl <= 0 {
		return resp
	}

	key, err := LearnCacheKey(r, resp, ttl, u.keyer, u.cache)
	if err != nil {
		u.log.Error().Err(err).Msg("Could not store header list")
		u.metrics.storeError()
		return resp
	}
	if resp.Deferred {
		// body arrives later, store once it is final
		resp.OnFinalize(func(final *Response) {
			freshness.Patch(final.Header, final.Body, ttl, time.Now())
			u.store(key, final, ttl)
		})
	} else {
		u.store(key, resp, ttl)
	}
	return resp
}

// shouldStore combines the fetch phase's decision with the anonymous-only
// policy. The session is only consulted if it was accessed while handling
// the request: if it wasn't, the logged-in status cannot have affected the
// response, and checking identity here must not materialize the session.
func (u *Update) shouldStore(r *http.Request) bool {
	st := storeStateFor(r)
	if st == nil || !st.shouldStore {
		return false
	}
	if u.anonymousOnly {
		if s := u.sessions(r); s != nil && s.Accessed() && s.Authenticated() {
			// don't cache identity-variable responses for
			// authenticated users
			return false
		}
	}
	return true
}

func (u *Update) store(key string, resp *Response, ttl time.Duration) {
	b, err := serializer.SnapshotToBytes(snapshotOf(resp))
	if err != nil {
		u.log.Error().Err(err).Str("key", key).Msg("Could not serialize response")
		u.metrics.storeError()
		return
	}
	if err := u.cache.Set(key, b, ttl); err != nil {
		u.log.Error().Err(err).Str("key", key).Msg("Could not write to cache")
		u.metrics.storeError()
		return
	}
	u.metrics.stored()
	u.log.Trace().Str("key", key).Dur("ttl", ttl).Msg("Cache write")
}

// LearnCacheKey records which request headers matter for the request's path
// by inspecting the response's Vary header, storing the canonicalized list
// under the header-list key with the given ttl. It returns the page key the
// response should be stored under.
//
// The header list is stored even when empty: an empty list tells future
// lookups that the path is known and varies on nothing, whereas an absent
// entry forces regeneration. Vary token order is preserved through to the
// page key, which hashes header values in list order.
func LearnCacheKey(r *http.Request, resp *Response, ttl time.Duration, keyer cachekey.Keyer, provider cache.Provider) (string, error) {
	headerList := []string{}
	if resp.HasHeader("Vary") {
		for _, value := range resp.Header.Values("Vary") {
			for _, token := range freshness.SplitVary(value) {
				headerList = append(headerList, cachekey.CanonicalHeaderName(token))
			}
		}
	}
	b, err := serializer.HeaderListToBytes(headerList)
	if err != nil {
		return "", err
	}
	if err := provider.Set(keyer.HeaderListKey(r), b, ttl); err != nil {
		return "", err
	}
	return keyer.PageKey(r, r.Method, headerList), nil
}
