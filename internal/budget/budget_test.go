package budget

import (
	"strings"
	"testing"
)

func TestEstimateTokens_CountsRunes(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Fatalf("empty: %d", got)
	}
	if got := EstimateTokens("abcde"); got != 2 {
		t.Fatalf("ceil of 5/4: %d", got)
	}
	// eight runes, sixteen bytes
	if got := EstimateTokens("ğüşıöçĞÜ"); got != 2 {
		t.Fatalf("turkish runes: %d", got)
	}
	if got := EstimatePromptTokens("abcd", "abcd", ""); got != 2 {
		t.Fatalf("prompt sum: %d", got)
	}
}

func TestContextTokens(t *testing.T) {
	cases := map[string]int{
		"gpt-4o":            128_000,
		" GPT-3.5-Turbo ":   16_384,
		"mistral-large-32k": 32_768,
		"acme-mini":         128_000,
		"":                  DefaultContextTokens,
		"unknown-model":     DefaultContextTokens,
	}
	for model, want := range cases {
		if got := ContextTokens(model); got != want {
			t.Errorf("ContextTokens(%q) = %d, want %d", model, got, want)
		}
	}
}

func TestFits(t *testing.T) {
	if !Fits("gpt-oss-20b", 256, EstimateTokens("kısa soru")) {
		t.Fatalf("short prompt should fit")
	}
	long := strings.Repeat("a", 4*4_096)
	if Fits("gpt-oss-20b", 256, EstimateTokens(long)) {
		t.Fatalf("prompt as large as the window must not fit")
	}
	if Headroom("gpt-oss-20b") != 512 || Headroom("gpt-3.5-turbo") != 820 {
		t.Fatalf("headroom: %d %d", Headroom("gpt-oss-20b"), Headroom("gpt-3.5-turbo"))
	}
}
