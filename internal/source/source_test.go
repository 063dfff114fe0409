package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/quizharvest/internal/fetch"
	"github.com/hyperifyio/quizharvest/internal/robots"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestFilePages_JSONArray(t *testing.T) {
	p := writeFile(t, "pages.json", `[
  {"url": "https://example.com/1", "text": "1. Soru bir?\nA) a\nB) b\nC) c", "expectedQuestionCount": 1},
  {"url": "https://example.com/2", "text": "ikinci"}
]`)
	loaders, err := FilePages(p)
	if err != nil {
		t.Fatalf("FilePages: %v", err)
	}
	if len(loaders) != 2 {
		t.Fatalf("expected 2 loaders, got %d", len(loaders))
	}
	page, err := loaders[0].Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if page.URL != "https://example.com/1" || page.ExpectedQuestionCount != 1 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if loaders[1].Name() != "https://example.com/2" {
		t.Fatalf("unexpected name: %q", loaders[1].Name())
	}
}

func TestFilePages_JSONLinesWithHTMLOnly(t *testing.T) {
	p := writeFile(t, "pages.jsonl", `{"url":"https://example.com/a","text":"metin"}

{"url":"https://example.com/b","html":"<html><body><main><p>Trafik sorusu</p></main></body></html>"}
`)
	loaders, err := FilePages(p)
	if err != nil {
		t.Fatalf("FilePages: %v", err)
	}
	if len(loaders) != 2 {
		t.Fatalf("expected 2 loaders, got %d", len(loaders))
	}
	page, _ := loaders[1].Load(context.Background())
	if !strings.Contains(page.Text, "Trafik sorusu") {
		t.Fatalf("html-only page should be converted, got %q", page.Text)
	}
}

func TestFilePages_Errors(t *testing.T) {
	if _, err := FilePages("  "); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
	p := writeFile(t, "bad.jsonl", "{\"url\":\"x\"}\n{broken\n")
	if _, err := FilePages(p); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line-numbered decode error, got %v", err)
	}
}

func TestStatic_RespectsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Static{}).Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHTMLFile_Load(t *testing.T) {
	p := writeFile(t, "page.html", `<html><body><article><p>1. Hangisi doğrudur?</p><img src="img/1.png"></article></body></html>`)
	page, err := HTMLFile{Path: p, URL: "https://example.com/test/", Expected: 1}.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(page.Text, "Hangisi doğrudur?") {
		t.Fatalf("unexpected text: %q", page.Text)
	}
	if len(page.Images) != 1 || page.Images[0].URL != "https://example.com/test/img/1.png" {
		t.Fatalf("unexpected images: %+v", page.Images)
	}
	if _, err := (HTMLFile{}).Load(context.Background()); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
}

func TestURLPage_LoadThroughFetchClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sorular" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><main><p>Ehliyet sorusu</p></main></body></html>`))
	}))
	defer srv.Close()

	client := &fetch.Client{MaxAttempts: 1}
	loaders := URLs([]string{srv.URL + "/sorular", srv.URL + "/yok"}, client, nil, 0)
	page, err := loaders[0].Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if page.URL != srv.URL+"/sorular" || !strings.Contains(page.Text, "Ehliyet sorusu") {
		t.Fatalf("unexpected page: %+v", page)
	}
	_, err = loaders[1].Load(context.Background())
	var se *fetch.StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected wrapped 404, got %v", err)
	}
}

type denyGate struct{ calls int }

func (d *denyGate) Allowed(_ context.Context, url string) (bool, error) {
	d.calls++
	return !strings.HasSuffix(url, "/gizli"), nil
}

func TestURLPage_GateDisallows(t *testing.T) {
	var fetched int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched++
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<p>acik</p>`))
	}))
	defer srv.Close()

	gate := &denyGate{}
	loaders := URLs([]string{srv.URL + "/acik", srv.URL + "/gizli"}, &fetch.Client{MaxAttempts: 1}, gate, 0)
	if _, err := loaders[0].Load(context.Background()); err != nil {
		t.Fatalf("allowed load: %v", err)
	}
	if _, err := loaders[1].Load(context.Background()); !errors.Is(err, robots.ErrDisallowed) {
		t.Fatalf("expected ErrDisallowed, got %v", err)
	}
	if fetched != 1 || gate.calls != 2 {
		t.Fatalf("fetched=%d gateCalls=%d", fetched, gate.calls)
	}
}
