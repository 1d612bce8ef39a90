// Package cachekey derives the two kinds of cache keys used by the
// two-phase page cache: the header-list key, which identifies the set of
// request headers relevant to a path, and the page key, which identifies
// one specific response variant.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

const (
	headerKeyTag = "varycache:headers"
	pageKeyTag   = "varycache:page"
	separator    = ":"
	// Transport prefix for canonicalized header names, kept for
	// compatibility with header lists written by other runtimes.
	transportPrefix = "HTTP_"
)

// Keyer derives cache keys for requests.
// Two Keyer instances with the same prefix and locale/timezone settings
// always derive the same keys for interchangeable requests.
type Keyer struct {
	// Prefix namespaces all derived keys, e.g. per site or deployment.
	Prefix string
	// Locale returns the resolved locale code for a request.
	// If nil, keys are not partitioned per locale.
	Locale func(*http.Request) string
	// Timezone partitions keys per timezone name when non-empty.
	Timezone string
}

// HeaderListKey returns the key under which the learned header list for the
// request's path is stored. It does not consult any header values, so it can
// be computed before knowing which headers matter for the path.
func (k Keyer) HeaderListKey(r *http.Request) string {
	key := headerKeyTag + separator + k.Prefix + separator + contentHash([]byte(normalizedURI(r)))
	return key + k.suffix(r)
}

// PageKey returns the key identifying the response variant for the request,
// the given method, and the request's values for the headers named in
// headerList. Header order is significant: the value hash is computed in
// list order, which must be the order the origin's Vary header declared.
// Headers missing from the request contribute nothing to the hash.
func (k Keyer) PageKey(r *http.Request, method string, headerList []string) string {
	ctx := sha256.New()
	for _, name := range headerList {
		for i, value := range r.Header.Values(RequestHeaderName(name)) {
			if i > 0 {
				ctx.Write([]byte(", "))
			}
			ctx.Write([]byte(value))
		}
	}
	key := pageKeyTag + separator + k.Prefix + separator + method + separator +
		contentHash([]byte(normalizedURI(r))) + separator + hex.EncodeToString(ctx.Sum(nil))
	return key + k.suffix(r)
}

// suffix appends the locale and timezone partition to a key.
// It must be identical for header-list keys and page keys, so that both
// lookups stay partitioned together.
func (k Keyer) suffix(r *http.Request) string {
	var suffix string
	if k.Locale != nil {
		suffix += "." + k.Locale(r)
	}
	if k.Timezone != "" {
		suffix += "." + k.Timezone
	}
	return suffix
}

// CanonicalHeaderName turns a Vary header token into the canonical form
// stored in header lists: uppercased, dashes to underscores, transport
// prefix prepended. E.g. "Accept-Language" becomes "HTTP_ACCEPT_LANGUAGE".
func CanonicalHeaderName(token string) string {
	return transportPrefix + strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(token)), "-", "_")
}

// RequestHeaderName is the inverse of CanonicalHeaderName: it turns a
// canonical header-list entry back into a request header name usable with
// http.Header.
func RequestHeaderName(canonical string) string {
	name := strings.TrimPrefix(canonical, transportPrefix)
	return textproto.CanonicalMIMEHeaderKey(strings.ReplaceAll(name, "_", "-"))
}

// normalizedURI returns the encoding-normalized absolute path plus query of
// the request. The decoded path is re-escaped into its canonical form, so
// differently-encoded spellings of the same path hash identically.
func normalizedURI(r *http.Request) string {
	uri := (&url.URL{Path: r.URL.Path}).EscapedPath()
	if uri == "" {
		uri = "/"
	}
	if q := r.URL.RawQuery; q != "" {
		uri += "?" + q
	}
	return uri
}

func contentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
