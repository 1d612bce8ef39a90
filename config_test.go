package varycache

import (
	"testing"
	"time"

	"github.com/vary-cache/vary-cache/cache"
)

func TestResolveExplicitCacheWins(t *testing.T) {
	backend := newFakeCache()
	cache.Register("other", newFakeCache())
	res, err := Config{Cache: backend, Alias: "other"}.resolve()
	if err != nil {
		t.Fatal(err)
	}
	if res.cache != cache.Provider(backend) {
		t.Fatal("Alias took precedence over explicit provider")
	}
}

func TestResolveUnknownAliasFails(t *testing.T) {
	if _, err := (Config{Alias: "does-not-exist"}).resolve(); err == nil {
		t.Fatal("Unknown alias accepted")
	}
}

func TestResolveFallsBackToMemory(t *testing.T) {
	// nothing registered under the default alias in this test binary
	res, err := Config{}.resolve()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.cache.(*cache.Memory); !ok {
		t.Fatalf("Backend is %T", res.cache)
	}
	if res.ttl != DefaultTTL {
		t.Fatalf("TTL is %s", res.ttl)
	}
}

func TestResolveTTLPrecedence(t *testing.T) {
	backend := newFakeCache() // DefaultTTL returns one minute

	res, err := Config{Cache: backend}.resolve()
	if err != nil {
		t.Fatal(err)
	}
	if res.ttl != time.Minute {
		t.Fatalf("TTL is %s, expected the backend default", res.ttl)
	}

	res, err = Config{Cache: backend, DefaultTTL: time.Hour}.resolve()
	if err != nil {
		t.Fatal(err)
	}
	if res.ttl != time.Hour {
		t.Fatalf("TTL is %s, expected the explicit value", res.ttl)
	}
}
