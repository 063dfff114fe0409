package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/quizharvest/internal/cache"
)

func TestGate_FetchOncePerOrigin_Revalidates(t *testing.T) {
	var hits int32
	const etag = `"r1"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /cevaplar\n"))
	}))
	t.Cleanup(srv.Close)

	g := &Gate{
		Client:            srv.Client(),
		Cache:             &cache.HTTPCache{Dir: t.TempDir()},
		UserAgent:         "quizharvest-test/1.0",
		TTL:               time.Hour,
		CheckPrivateHosts: true,
	}
	ctx := context.Background()

	ok, err := g.Allowed(ctx, srv.URL+"/sorular/1")
	if err != nil || !ok {
		t.Fatalf("expected allowed: ok=%v err=%v", ok, err)
	}
	ok, err = g.Allowed(ctx, srv.URL+"/cevaplar/1")
	if err != nil || ok {
		t.Fatalf("expected disallowed: ok=%v err=%v", ok, err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected one robots fetch, got %d", n)
	}

	g.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	ok, err = g.Allowed(ctx, srv.URL+"/cevaplar/2")
	if err != nil || ok {
		t.Fatalf("expected rules from 304 revalidation: ok=%v err=%v", ok, err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Fatalf("expected revalidation hit, got %d", n)
	}
}

func TestGate_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	g := &Gate{Client: srv.Client(), CheckPrivateHosts: true}
	ok, err := g.Allowed(context.Background(), srv.URL+"/anything")
	if err != nil || !ok {
		t.Fatalf("404 robots.txt must allow: ok=%v err=%v", ok, err)
	}
}

func TestGate_ServerErrorDisallows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	g := &Gate{Client: srv.Client(), CheckPrivateHosts: true}
	ok, err := g.Allowed(context.Background(), srv.URL+"/sorular")
	if err != nil || ok {
		t.Fatalf("5xx robots.txt must disallow: ok=%v err=%v", ok, err)
	}
}

func TestGate_PrivateHostSkipped(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
	}))
	t.Cleanup(srv.Close)

	g := &Gate{Client: srv.Client()}
	ok, err := g.Allowed(context.Background(), srv.URL+"/x")
	if err != nil || !ok {
		t.Fatalf("local host should bypass robots: ok=%v err=%v", ok, err)
	}
	if hits != 0 {
		t.Fatalf("robots.txt fetched for local host")
	}
	if _, err := g.Allowed(context.Background(), "ftp://example.com/x"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestRules_AgentSelection(t *testing.T) {
	rules := Parse(`
# comment
User-agent: *
Disallow: /

User-agent: quizharvest
User-agent: other
Allow: /sorular
Disallow: /sorular/cevap
`)
	cases := []struct {
		ua   string
		path string
		want bool
	}{
		{"QuizHarvest/1.0", "/sorular/1", true},
		{"QuizHarvest/1.0", "/sorular/cevap/1", false},
		{"QuizHarvest/1.0", "/index", true},
		{"SomeBot/2.0", "/sorular/1", false},
	}
	for _, c := range cases {
		if got := rules.Allows(c.ua, c.path); got != c.want {
			t.Errorf("Allows(%q, %q) = %v, want %v", c.ua, c.path, got, c.want)
		}
	}
}

func TestRules_WildcardsAndAnchors(t *testing.T) {
	rules := Parse("User-agent: *\nDisallow: /*.pdf$\nDisallow: /tmp*/\nAllow: /tmp/ok\nDisallow:\n")
	cases := []struct {
		path string
		want bool
	}{
		{"/belge.pdf", false},
		{"/belge.pdf?x=1", true},
		{"/tmp1/a", false},
		{"/tmp/ok", true},
		{"/sorular", true},
	}
	for _, c := range cases {
		if got := rules.Allows("x", c.path); got != c.want {
			t.Errorf("Allows(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestRules_TieGoesToAllow(t *testing.T) {
	rules := Parse("User-agent: *\nDisallow: /a\nAllow: /a\n")
	if !rules.Allows("x", "/a") {
		t.Fatalf("equal-length allow should win")
	}
}
