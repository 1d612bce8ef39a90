package varycache

import (
	"errors"
	"net/http"
	"testing"
	"time"

	cachekey "github.com/vary-cache/vary-cache/pkg/cache-key"
)

// fakeCache is a map-backed provider that counts operations and can be
// made to fail, for exercising the fail-open paths.
type fakeCache struct {
	entries map[string][]byte
	gets    int
	sets    int
	failGet bool
	failSet bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) Get(key string) ([]byte, bool, error) {
	f.gets++
	if f.failGet {
		return nil, false, errFake
	}
	b, ok := f.entries[key]
	return b, ok, nil
}

func (f *fakeCache) Set(key string, value []byte, ttl time.Duration) error {
	f.sets++
	if f.failSet {
		return errFake
	}
	f.entries[key] = value
	return nil
}

func (f *fakeCache) DefaultTTL() time.Duration {
	return time.Minute
}

var errFake = errors.New("backend unavailable")

func mustRequest(method, target string) *http.Request {
	r, err := http.NewRequest(method, target, nil)
	if err != nil {
		panic(err)
	}
	return r
}

func testKeyer() cachekey.Keyer {
	return cachekey.Keyer{Prefix: "test"}
}

func newTestPhases(t *testing.T, config Config) (*Fetch, *Update) {
	t.Helper()
	res, err := config.resolve()
	if err != nil {
		t.Fatal(err)
	}
	return newFetch(res), newUpdate(res)
}

func okResponse(body string) *Response {
	return NewResponse(http.StatusOK, make(http.Header), []byte(body))
}

func TestLookupBypassesUnsafeMethods(t *testing.T) {
	backend := newFakeCache()
	fetch, _ := newTestPhases(t, Config{Cache: backend})

	for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
		r, _ := http.NewRequest(method, "/page", nil)
		res, r := fetch.Lookup(r)
		if res != nil {
			t.Fatalf("%s: got cached response", method)
		}
		if ShouldStore(r) {
			t.Fatalf("%s: store requested", method)
		}
	}
	if backend.gets != 0 {
		t.Fatalf("Backend read %d times", backend.gets)
	}
}

func TestLookupUnknownPathRequestsStore(t *testing.T) {
	fetch, _ := newTestPhases(t, Config{Cache: newFakeCache()})

	r, _ := http.NewRequest("GET", "/page", nil)
	res, r := fetch.Lookup(r)
	if res != nil {
		t.Fatal("Got cached response for unknown path")
	}
	if !ShouldStore(r) {
		t.Fatal("Store not requested")
	}
}

func TestLookupBackendErrorIsMiss(t *testing.T) {
	backend := newFakeCache()
	backend.failGet = true
	fetch, _ := newTestPhases(t, Config{Cache: backend})

	r, _ := http.NewRequest("GET", "/page", nil)
	res, r := fetch.Lookup(r)
	if res != nil {
		t.Fatal("Got cached response despite backend error")
	}
	if !ShouldStore(r) {
		t.Fatal("Store not requested")
	}
}

func TestRoundTrip(t *testing.T) {
	config := Config{Cache: newFakeCache()}
	fetch, update := newTestPhases(t, config)

	r, _ := http.NewRequest("GET", "/articles/1", nil)
	res, r := fetch.Lookup(r)
	if res != nil {
		t.Fatal("Hit on first request")
	}

	generated := okResponse("the article")
	update.MaybeStore(r, generated)

	r2, _ := http.NewRequest("GET", "/articles/1", nil)
	cached, r2 := fetch.Lookup(r2)
	if cached == nil {
		t.Fatal("Miss on second request")
	}
	if ShouldStore(r2) {
		t.Fatal("Store requested on a hit")
	}
	if string(cached.Body) != "the article" {
		t.Fatalf("Body is %s", cached.Body)
	}
}

func TestHitReturnsIndependentCopy(t *testing.T) {
	fetch, update := newTestPhases(t, Config{Cache: newFakeCache()})

	r, _ := http.NewRequest("GET", "/page", nil)
	_, r = fetch.Lookup(r)
	update.MaybeStore(r, okResponse("body"))

	first, _ := fetch.Lookup(r)
	first.Header.Set("X-Mutated", "yes")

	second, _ := fetch.Lookup(r)
	if second.Header.Get("X-Mutated") != "" {
		t.Fatal("Cached value corrupted by caller mutation")
	}
}

func TestRoundTripVaryPartitioning(t *testing.T) {
	fetch, update := newTestPhases(t, Config{Cache: newFakeCache()})

	newReq := func(lang string) *http.Request {
		r, _ := http.NewRequest("GET", "/page", nil)
		r.Header.Set("Accept-Language", lang)
		r.Header.Set("User-Agent", "test-agent/"+lang)
		return r
	}

	reqEn := newReq("en")
	_, reqEn = fetch.Lookup(reqEn)
	resEn := okResponse("english")
	resEn.Header.Set("Vary", "Accept-Language")
	update.MaybeStore(reqEn, resEn)

	reqFr := newReq("fr")
	cached, reqFr := fetch.Lookup(reqFr)
	if cached != nil {
		t.Fatal("fr request hit the en entry")
	}
	resFr := okResponse("french")
	resFr.Header.Set("Vary", "Accept-Language")
	update.MaybeStore(reqFr, resFr)

	// a repeat of the en request must hit the en entry, even with a
	// different value for a header not in the list
	again := newReq("en")
	again.Header.Set("User-Agent", "other-agent")
	cached, _ = fetch.Lookup(again)
	if cached == nil {
		t.Fatal("en repeat missed")
	}
	if string(cached.Body) != "english" {
		t.Fatalf("Body is %s", cached.Body)
	}
}

func TestHeadServedFromGetEntry(t *testing.T) {
	fetch, update := newTestPhases(t, Config{Cache: newFakeCache()})

	get, _ := http.NewRequest("GET", "/page", nil)
	_, get = fetch.Lookup(get)
	update.MaybeStore(get, okResponse("body"))

	head, _ := http.NewRequest("HEAD", "/page", nil)
	cached, _ := fetch.Lookup(head)
	if cached == nil {
		t.Fatal("HEAD did not reuse the GET entry")
	}
}

func TestHeadFallbackToHeadEntry(t *testing.T) {
	fetch, update := newTestPhases(t, Config{Cache: newFakeCache()})

	// a HEAD-generated response gets stored under the HEAD page key
	head, _ := http.NewRequest("HEAD", "/page", nil)
	_, head = fetch.Lookup(head)
	update.MaybeStore(head, okResponse(""))

	again, _ := http.NewRequest("HEAD", "/page", nil)
	cached, _ := fetch.Lookup(again)
	if cached == nil {
		t.Fatal("HEAD entry not found via fallback")
	}
}

func TestGetDoesNotUseHeadEntry(t *testing.T) {
	fetch, update := newTestPhases(t, Config{Cache: newFakeCache()})

	head, _ := http.NewRequest("HEAD", "/page", nil)
	_, head = fetch.Lookup(head)
	update.MaybeStore(head, okResponse(""))

	get, _ := http.NewRequest("GET", "/page", nil)
	cached, get := fetch.Lookup(get)
	if cached != nil {
		t.Fatal("GET served from a HEAD entry")
	}
	if !ShouldStore(get) {
		t.Fatal("Store not requested")
	}
}

func TestGetCacheKeyUnknownPath(t *testing.T) {
	backend := newFakeCache()
	if _, ok := GetCacheKey(mustRequest("GET", "/p"), testKeyer(), "GET", backend); ok {
		t.Fatal("Key returned for unlearned path")
	}
}

func TestGetCacheKeyAfterLearn(t *testing.T) {
	backend := newFakeCache()
	keyer := testKeyer()
	r := mustRequest("GET", "/p")
	learned, err := LearnCacheKey(r, okResponse("x"), time.Minute, keyer, backend)
	if err != nil {
		t.Fatal(err)
	}
	key, ok := GetCacheKey(r, keyer, "GET", backend)
	if !ok {
		t.Fatal("Key not returned after learn")
	}
	if key != learned {
		t.Fatalf("Keys disagree: %s vs %s", key, learned)
	}
}
