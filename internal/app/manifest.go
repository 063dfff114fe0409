package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"time"
)

// manifestEntry describes one output file.
type manifestEntry struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
}

// runManifest captures what produced an output directory so a harvest can be
// reproduced and its files verified.
type runManifest struct {
	Version     string          `json:"version"`
	Commit      string          `json:"commit"`
	BuildDate   string          `json:"build_date"`
	GeneratedAt time.Time       `json:"generated_at"`
	RulesDigest string          `json:"rules_digest"`
	Inputs      int             `json:"inputs"`
	HTTPCache   bool            `json:"http_cache"`
	LLMModel    string          `json:"llm_model,omitempty"`
	Files       []manifestEntry `json:"files"`
}

// rulesDigest fingerprints the extraction vocabulary and category rules so
// runs with different rule sets are distinguishable.
func rulesDigest(cfg Config) string {
	b, err := json.Marshal(struct {
		Rules      any `json:"rules"`
		Categories any `json:"categories"`
	}{cfg.Rules, cfg.Categories})
	if err != nil {
		return ""
	}
	return computeSHA256Hex(string(b))
}

// computeSHA256Hex returns a lowercase hex-encoded SHA-256 of the given text.
func computeSHA256Hex(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// buildManifest digests the named files in dir.
func buildManifest(cfg Config, dir string, inputs int, names []string, at time.Time) (runManifest, error) {
	m := runManifest{
		Version:     BuildVersion,
		Commit:      BuildCommit,
		BuildDate:   BuildDate,
		GeneratedAt: at.UTC(),
		RulesDigest: rulesDigest(cfg),
		Inputs:      inputs,
		HTTPCache:   cfg.CacheDir != "",
	}
	if cfg.ExplainMissing {
		m.LLMModel = cfg.LLMModel
	}
	for _, name := range names {
		sum, n, err := sha256File(filepath.Join(dir, name))
		if err != nil {
			return m, err
		}
		m.Files = append(m.Files, manifestEntry{Name: name, SHA256: sum, Bytes: n})
	}
	return m, nil
}
