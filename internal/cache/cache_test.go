package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHTTPCache_SaveLoad(t *testing.T) {
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	u := "https://example.com/deneme-1"
	if c.HasEntry(u) {
		t.Fatalf("empty cache reports entry")
	}
	if err := c.Save(ctx, u, "text/html", `"v1"`, "", []byte("<html>1</html>")); err != nil {
		t.Fatalf("save: %v", err)
	}
	meta, err := c.LoadMeta(ctx, u)
	if err != nil || meta.ETag != `"v1"` || meta.URL != u {
		t.Fatalf("meta: %+v err=%v", meta, err)
	}
	body, err := c.LoadBody(ctx, u)
	if err != nil || string(body) != "<html>1</html>" {
		t.Fatalf("body: %q err=%v", body, err)
	}
	if !c.HasEntry(u) {
		t.Fatalf("expected entry")
	}
}

func TestHTTPCache_NotConfigured(t *testing.T) {
	var c *HTTPCache
	if _, err := c.LoadBody(context.Background(), "u"); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLLMCache_SaveGetMiss(t *testing.T) {
	c := &LLMCache{Dir: t.TempDir()}
	key := KeyFrom("model", "prompt")
	if _, ok, err := c.Get(context.Background(), key); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
	if err := c.Save(context.Background(), key, []byte(`{"explanation":"x"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := c.Get(context.Background(), key)
	if err != nil || !ok || string(got) != `{"explanation":"x"}` {
		t.Fatalf("get: %q ok=%v err=%v", got, ok, err)
	}
	if KeyFrom("model", "prompt") == KeyFrom("other", "prompt") {
		t.Fatalf("model must be part of the key")
	}
}

func TestLLMCache_StrictPerms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "llm")
	c := &LLMCache{Dir: dir, StrictPerms: true}
	key := KeyFrom("m", "p")
	if err := c.Save(context.Background(), key, []byte("{}")); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || info.Mode().Perm() != 0o700 {
		t.Fatalf("dir perms: %v err=%v", info.Mode().Perm(), err)
	}
	finfo, err := os.Stat(filepath.Join(dir, key+".json"))
	if err != nil || finfo.Mode().Perm() != 0o600 {
		t.Fatalf("file perms: %v err=%v", finfo.Mode().Perm(), err)
	}
}

func TestPurgeByAge(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	hc := &HTTPCache{Dir: dir}
	if err := hc.Save(ctx, "https://a/1", "text/html", "", "", []byte("x")); err != nil {
		t.Fatalf("save: %v", err)
	}
	lc := &LLMCache{Dir: dir}
	key := KeyFrom("m", "p")
	if err := lc.Save(ctx, key, []byte("{}")); err != nil {
		t.Fatalf("save: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, key+".json"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	n, err := PurgeHTTPCacheByAge(dir, time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("fresh page entry should stay: n=%d err=%v", n, err)
	}
	n, err = PurgeLLMCacheByAge(dir, time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("expected one llm purge: n=%d err=%v", n, err)
	}
	if !hc.HasEntry("https://a/1") {
		t.Fatalf("llm purge must not touch page meta")
	}
	if n, err := PurgeHTTPCacheByAge(filepath.Join(dir, "missing"), time.Hour); err != nil || n != 0 {
		t.Fatalf("missing dir: n=%d err=%v", n, err)
	}
}

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "x"), []byte("1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ClearDir(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty dir")
	}
	if err := ClearDir(" "); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
