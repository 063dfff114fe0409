package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultContextTokens is assumed for models missing from the table.
const DefaultContextTokens = 8192

// EstimateTokens approximates the token count of s at four runes per token,
// rounded up. Counting runes keeps Turkish text from being overestimated.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / 4.0))
}

// EstimatePromptTokens sums the estimates of each message.
func EstimatePromptTokens(messages ...string) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m)
	}
	return total
}

// ContextTokens returns the context window for a model name.
func ContextTokens(model string) int {
	name := strings.ToLower(strings.TrimSpace(model))
	if v, ok := knownContext[name]; ok {
		return v
	}
	for _, s := range sizeSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.tokens
		}
	}
	if strings.Contains(name, "-mini") {
		return 128_000
	}
	return DefaultContextTokens
}

// Headroom is the safety margin kept free for message framing: 5% of the
// context window, at least 512 tokens.
func Headroom(model string) int {
	h := int(math.Ceil(float64(ContextTokens(model)) * 0.05))
	if h < 512 {
		return 512
	}
	return h
}

// Fits reports whether a prompt of promptTokens leaves room for
// reservedForOutput tokens plus headroom.
func Fits(model string, reservedForOutput, promptTokens int) bool {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	return ContextTokens(model)-Headroom(model)-reservedForOutput-promptTokens > 0
}

var knownContext = map[string]int{
	"gpt-4o":             128_000,
	"gpt-4o-mini":        128_000,
	"gpt-4-turbo":        128_000,
	"gpt-3.5-turbo":      16_384,
	"llama-3":            8_192,
	"llama-3.1":          128_000,
	"gpt-oss-20b":        4_096,
	"openai/gpt-oss-20b": 4_096,
}

var sizeSuffixes = []struct {
	suffix string
	tokens int
}{
	{"1m", 1_000_000},
	{"200k", 200_000},
	{"128k", 128_000},
	{"32k", 32_768},
}
