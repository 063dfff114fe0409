package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/hyperifyio/quizharvest/internal/normalize"
)

// Similarity is the one string similarity used across the engine:
// 1 - edits/max(len) over folded, normalized text. It is symmetric and
// returns 1 for two empty strings.
func Similarity(a, b string) float64 {
	return foldedSimilarity(normalize.Fold(a), normalize.Fold(b))
}

func foldedSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	edits := smetrics.WagnerFischer(a, b, 1, 1, 1)
	return 1 - float64(edits)/float64(longest)
}

// ContentHash hashes the normalized question with its normalized option texts
// in sorted order, so option order and labels do not matter.
func ContentHash(question string, options map[string]string) string {
	texts := make([]string, 0, len(options))
	for _, v := range options {
		texts = append(texts, normalize.Normalize(v))
	}
	sort.Strings(texts)
	sum := sha256.Sum256([]byte(normalize.Normalize(question) + "|" + strings.Join(texts, "|")))
	return hex.EncodeToString(sum[:])
}
