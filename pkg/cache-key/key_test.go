package cachekey

import (
	"net/http"
	"strings"
	"testing"
)

func TestPageKeyStable(t *testing.T) {
	keygen := Keyer{Prefix: "site1"}
	r1, _ := http.NewRequest("GET", "http://dev.localhost/page?q=1", nil)
	r1.Header.Set("Accept-Language", "en")
	r2, _ := http.NewRequest("GET", "http://dev.localhost/page?q=1", nil)
	r2.Header.Set("Accept-Language", "en")

	list := []string{"HTTP_ACCEPT_LANGUAGE"}
	if k1, k2 := keygen.PageKey(r1, "GET", list), keygen.PageKey(r2, "GET", list); k1 != k2 {
		t.Fatalf("Keys differ: %s vs %s", k1, k2)
	}
}

func TestPageKeyIgnoresUnlistedHeaders(t *testing.T) {
	keygen := Keyer{}
	r1, _ := http.NewRequest("GET", "/page", nil)
	r1.Header.Set("User-Agent", "one")
	r2, _ := http.NewRequest("GET", "/page", nil)
	r2.Header.Set("User-Agent", "two")

	list := []string{"HTTP_ACCEPT_LANGUAGE"}
	if k1, k2 := keygen.PageKey(r1, "GET", list), keygen.PageKey(r2, "GET", list); k1 != k2 {
		t.Fatalf("Keys differ: %s vs %s", k1, k2)
	}
}

func TestPageKeyVariesOnListedHeader(t *testing.T) {
	keygen := Keyer{}
	r1, _ := http.NewRequest("GET", "/page", nil)
	r1.Header.Set("Accept-Language", "en")
	r2, _ := http.NewRequest("GET", "/page", nil)
	r2.Header.Set("Accept-Language", "fr")

	list := []string{"HTTP_ACCEPT_LANGUAGE"}
	if k1, k2 := keygen.PageKey(r1, "GET", list), keygen.PageKey(r2, "GET", list); k1 == k2 {
		t.Fatalf("Keys equal: %s", k1)
	}
}

func TestPageKeyHeaderOrderSignificant(t *testing.T) {
	keygen := Keyer{}
	r, _ := http.NewRequest("GET", "/page", nil)
	r.Header.Set("Accept-Language", "en")
	r.Header.Set("Accept-Encoding", "gzip")

	k1 := keygen.PageKey(r, "GET", []string{"HTTP_ACCEPT_LANGUAGE", "HTTP_ACCEPT_ENCODING"})
	k2 := keygen.PageKey(r, "GET", []string{"HTTP_ACCEPT_ENCODING", "HTTP_ACCEPT_LANGUAGE"})
	if k1 == k2 {
		t.Fatalf("Keys equal regardless of header order: %s", k1)
	}
}

func TestHeaderListKeyIgnoresHeaders(t *testing.T) {
	keygen := Keyer{Prefix: "p"}
	r1, _ := http.NewRequest("GET", "/page?a=b", nil)
	r1.Header.Set("Accept-Language", "en")
	r2, _ := http.NewRequest("GET", "/page?a=b", nil)

	if k1, k2 := keygen.HeaderListKey(r1), keygen.HeaderListKey(r2); k1 != k2 {
		t.Fatalf("Keys differ: %s vs %s", k1, k2)
	}
}

func TestLocaleSuffixAppliedToBothKeys(t *testing.T) {
	locale := "es"
	keygen := Keyer{Locale: func(*http.Request) string { return locale }}
	r, _ := http.NewRequest("GET", "/page", nil)

	hk, pk := keygen.HeaderListKey(r), keygen.PageKey(r, "GET", nil)
	if !strings.HasSuffix(hk, ".es") || !strings.HasSuffix(pk, ".es") {
		t.Fatalf("Suffix missing: %s / %s", hk, pk)
	}

	locale = "en"
	if keygen.HeaderListKey(r) == hk {
		t.Fatal("Header list key not partitioned per locale")
	}
	if keygen.PageKey(r, "GET", nil) == pk {
		t.Fatal("Page key not partitioned per locale")
	}
}

func TestTimezoneSuffix(t *testing.T) {
	keygen := Keyer{Timezone: "Europe/Helsinki"}
	r, _ := http.NewRequest("GET", "/page", nil)
	if hk := keygen.HeaderListKey(r); !strings.HasSuffix(hk, ".Europe/Helsinki") {
		t.Fatalf("Key is %s", hk)
	}
}

func TestCanonicalHeaderName(t *testing.T) {
	if got := CanonicalHeaderName("Accept-Language"); got != "HTTP_ACCEPT_LANGUAGE" {
		t.Fatalf("Canonical name is %s", got)
	}
	if got := CanonicalHeaderName(" cookie "); got != "HTTP_COOKIE" {
		t.Fatalf("Canonical name is %s", got)
	}
}

func TestRequestHeaderName(t *testing.T) {
	if got := RequestHeaderName("HTTP_ACCEPT_LANGUAGE"); got != "Accept-Language" {
		t.Fatalf("Request header name is %s", got)
	}
}

func TestNormalizedURIEncoding(t *testing.T) {
	keygen := Keyer{}
	r1, _ := http.NewRequest("GET", "/a%2fb", nil)
	r2, _ := http.NewRequest("GET", "/a%2Fb", nil)
	if keygen.HeaderListKey(r1) != keygen.HeaderListKey(r2) {
		t.Fatal("Encoding case changes key")
	}
}
