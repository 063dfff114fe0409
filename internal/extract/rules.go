package extract

import (
	"regexp"
	"strings"
)

// DefaultMinStemLen is the stem length, in runes, a '?' line must exceed.
const DefaultMinStemLen = 20

// Rules carries the deployment-specific vocabulary the extractor relies on.
type Rules struct {
	// StemKeywords identify a question line when no line contains '?'.
	StemKeywords []string `yaml:"stemKeywords" json:"stemKeywords"`
	// ExplanationMarkers introduce the explanation text (matched case-insensitively).
	ExplanationMarkers []string `yaml:"explanationMarkers" json:"explanationMarkers"`
	// StopTokens end an explanation early.
	StopTokens []string `yaml:"stopTokens" json:"stopTokens"`
	MinStemLen int      `yaml:"minStemLen" json:"minStemLen"`
}

// DefaultRules returns the Turkish driver-licence exam vocabulary.
func DefaultRules() Rules {
	return Rules{
		StemKeywords:       []string{"hangisi", "hangisidir", "aşağıdaki", "nedir", "which"},
		ExplanationMarkers: []string{"CEVAP AÇIKLAMASI:", "Cevap Açıklaması:", "ANSWER EXPLANATION:", "Açıklama:"},
		StopTokens:         []string{"Sonraki Soru", "Önceki Soru", "Next Question"},
		MinStemLen:         DefaultMinStemLen,
	}
}

// Merge fills empty fields of r from d.
func (r Rules) Merge(d Rules) Rules {
	if len(r.StemKeywords) == 0 {
		r.StemKeywords = d.StemKeywords
	}
	if len(r.ExplanationMarkers) == 0 {
		r.ExplanationMarkers = d.ExplanationMarkers
	}
	if len(r.StopTokens) == 0 {
		r.StopTokens = d.StopTokens
	}
	if r.MinStemLen <= 0 {
		r.MinStemLen = d.MinStemLen
	}
	return r
}

// literalSet compiles case-insensitive literal matchers.
func literalSet(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(w)))
	}
	return out
}

// firstMatch returns the earliest [start,end) of any matcher in s, or -1.
func firstMatch(s string, set []*regexp.Regexp) (int, int) {
	start, end := -1, -1
	for _, re := range set {
		loc := re.FindStringIndex(s)
		if loc == nil {
			continue
		}
		if start < 0 || loc[0] < start {
			start, end = loc[0], loc[1]
		}
	}
	return start, end
}
