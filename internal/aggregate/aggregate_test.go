package aggregate

import "testing"

func TestDedupeURLs_TrimTrackingAndCase(t *testing.T) {
	in := []string{
		"https://example.com/sorular/1?utm_source=x&utm_medium=y",
		"https://EXAMPLE.com/sorular/1#cevap",
		"https://example.com/sorular/2?sayfa=2&fbclid=abc",
		"",
		"not a url",
	}
	out := DedupeURLs(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 urls after dedup, got %d: %v", len(out), out)
	}
	if out[0] != "https://example.com/sorular/1" {
		t.Fatalf("unexpected normalized url: %q", out[0])
	}
	if out[1] != "https://example.com/sorular/2?sayfa=2" {
		t.Fatalf("query params other than tracking must stay: %q", out[1])
	}
}

func TestDedupeURLs_KeepsOrder(t *testing.T) {
	out := DedupeURLs([]string{"https://b.example/x", "https://a.example/y", "https://b.example/x"})
	if len(out) != 2 || out[0] != "https://b.example/x" || out[1] != "https://a.example/y" {
		t.Fatalf("unexpected order: %v", out)
	}
}
