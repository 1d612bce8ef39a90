package varycache

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vary-cache/vary-cache/cache"
	cachekey "github.com/vary-cache/vary-cache/pkg/cache-key"
	responsetransformer "github.com/vary-cache/vary-cache/pkg/response-transformer"
)

// Built-in defaults, used when neither the Config nor the selected backend
// supplies a value.
const (
	DefaultTTL        = 600 * time.Second
	defaultMemorySize = 10_000
)

// Session reports the authentication state of a request without forcing
// session materialization: Accessed must stay cheap and observation-only.
type Session interface {
	// Accessed reports whether the session was touched while handling
	// the request.
	Accessed() bool
	// Authenticated reports whether the request is attributable to a
	// logged-in identity.
	Authenticated() bool
}

// SessionResolver extracts session information from a request.
// Returning nil means no session subsystem was involved in the request.
type SessionResolver func(*http.Request) Session

// Config configures the cache phases. The zero value works: it uses an
// in-process memory backend with the built-in default TTL and no key prefix.
//
// Precedence for every knob is explicit Config field first, then the
// selected backend's own default (for the TTL), then the built-in default.
type Config struct {
	// Cache is the storage backend. Takes precedence over Alias.
	Cache cache.Provider
	// Alias selects a registered backend when Cache is nil.
	// Empty means cache.DefaultAlias, falling back to a private
	// in-memory backend if nothing is registered under it.
	Alias string
	// DefaultTTL is used for responses without a max-age directive.
	// Zero means the backend's default TTL, or DefaultTTL if the
	// backend has none.
	DefaultTTL time.Duration
	// KeyPrefix namespaces all cache keys.
	KeyPrefix string
	// AnonymousOnly restricts storing to requests not attributable to an
	// authenticated identity. Requires Sessions.
	AnonymousOnly bool
	// Sessions resolves per-request session information.
	Sessions SessionResolver
	// Locale returns the resolved locale code for a request,
	// partitioning all keys per locale. Nil disables partitioning.
	Locale func(*http.Request) string
	// Timezone partitions all keys per timezone name when non-empty.
	Timezone string
	// Rules adjust response Cache-Control per path before the store
	// decision, giving per-path TTL policy without touching handlers.
	Rules responsetransformer.Rules
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
	// Metrics collectors. Nil disables metrics.
	Metrics *Metrics
}

// resolved is a Config with every default applied and every dependency
// checked, shared by both phases of one deployment.
type resolved struct {
	cache         cache.Provider
	keyer         cachekey.Keyer
	ttl           time.Duration
	anonymousOnly bool
	sessions      SessionResolver
	rules         responsetransformer.Rules
	metrics       *Metrics
	log           zerolog.Logger
}

func (c Config) resolve() (resolved, error) {
	res := resolved{
		cache:         c.Cache,
		anonymousOnly: c.AnonymousOnly,
		sessions:      c.Sessions,
		rules:         c.Rules,
		metrics:       c.Metrics,
		keyer: cachekey.Keyer{
			Prefix:   c.KeyPrefix,
			Locale:   c.Locale,
			Timezone: c.Timezone,
		},
	}

	if c.AnonymousOnly && c.Sessions == nil {
		return res, fmt.Errorf("anonymous-only caching requires a session resolver")
	}

	if res.cache == nil {
		alias := c.Alias
		if alias == "" {
			alias = cache.DefaultAlias
		}
		p, err := cache.Lookup(alias)
		switch {
		case err == nil:
			res.cache = p
		case c.Alias != "":
			// an explicitly named backend must exist
			return res, err
		default:
			mem, err := cache.NewMemory(defaultMemorySize, DefaultTTL)
			if err != nil {
				return res, err
			}
			res.cache = mem
		}
	}

	res.ttl = c.DefaultTTL
	if res.ttl == 0 {
		res.ttl = res.cache.DefaultTTL()
	}
	if res.ttl == 0 {
		res.ttl = DefaultTTL
	}

	if c.Logger != nil {
		res.log = *c.Logger
	} else {
		res.log = log.Logger
	}

	return res, nil
}
