// Package freshness implements the small slice of HTTP caching header
// semantics the page cache needs: Cache-Control parsing, max-age resolution,
// Vary splitting, and stamping standard freshness headers onto a response.
package freshness

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type CacheControl struct {
	directives map[string]string
}

func (c CacheControl) Get(directive string) (string, bool) {
	val, ok := c.directives[directive]
	return val, ok
}

func (c CacheControl) HasDirective(directive string) bool {
	_, ok := c.Get(directive)
	return ok
}

// MaxAge returns the value of the max-age directive.
// A malformed value counts as absent.
func (c CacheControl) MaxAge() (time.Duration, bool) {
	val, ok := c.Get("max-age")
	if !ok {
		return 0, false
	}
	seconds, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// ParseCacheControl takes Cache-Control headers as a slice of strings
// and returns an instance of `CacheControl`.
func ParseCacheControl(headers []string) CacheControl {
	m := make(map[string]string)
	// process all headers
	// note setting map values like this means last defined directive wins
	for _, header := range headers {
		for _, directive := range strings.Split(header, ",") {
			directive = strings.TrimSpace(directive)
			if directive == "" {
				continue
			}
			parts := strings.SplitN(directive, "=", 2)
			// directive names compare case-insensitively
			name := strings.ToLower(parts[0])
			var arg string
			if len(parts) > 1 {
				// arguments can use both token and quoted-string syntax
				arg = strings.Trim(parts[1], "\"")
			}
			m[name] = arg
		}
	}
	return CacheControl{m}
}

// SplitVary splits a Vary header value into its tokens,
// trimming optional whitespace and dropping empty members.
func SplitVary(header string) []string {
	tokens := make([]string, 0, 4)
	for _, token := range strings.Split(header, ",") {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// HTTPDate formats a time as an IMF-fixdate for use in header values.
func HTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

// Patch stamps standard freshness headers onto the given header map:
// an ETag from a digest of the body, Last-Modified, Expires at now+ttl, and
// a Cache-Control max-age directive. Each header is only written when
// absent, so patching twice with the same ttl is a no-op.
// A nil body (not yet rendered) leaves the ETag unset.
func Patch(h http.Header, body []byte, ttl time.Duration, now time.Time) {
	if h.Get("ETag") == "" && body != nil {
		digest := sha256.Sum256(body)
		h.Set("ETag", `"`+hex.EncodeToString(digest[:])+`"`)
	}
	if h.Get("Last-Modified") == "" {
		h.Set("Last-Modified", HTTPDate(now))
	}
	if h.Get("Expires") == "" {
		h.Set("Expires", HTTPDate(now.Add(ttl)))
	}
	cc := ParseCacheControl(h.Values("Cache-Control"))
	if !cc.HasDirective("max-age") {
		directive := "max-age=" + strconv.Itoa(int(ttl/time.Second))
		if existing := h.Get("Cache-Control"); existing != "" {
			h.Set("Cache-Control", existing+", "+directive)
		} else {
			h.Set("Cache-Control", directive)
		}
	}
}
