package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env. Booleans can only be switched
// on, since a false flag is indistinguishable from an unset one.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" && *dst == "" {
			*dst = v
		}
	}
	setList := func(dst *[]string, key string) {
		if v := splitList(os.Getenv(key)); len(v) > 0 && len(*dst) == 0 {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n > 0 && *dst == 0 {
			*dst = n
		}
	}
	setFloat := func(dst *float64, key string) {
		if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil && *dst == 0 {
			*dst = f
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil && *dst == 0 {
			*dst = d
		}
	}
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		}
	}

	setList(&cfg.PagesFiles, "QUIZ_PAGES")
	setList(&cfg.HTMLFiles, "QUIZ_HTML")
	setList(&cfg.URLs, "QUIZ_URLS")
	setString(&cfg.URLListFile, "QUIZ_URL_LIST")
	setString(&cfg.BaseURL, "QUIZ_BASE_URL")
	setInt(&cfg.ExpectedCount, "QUIZ_EXPECTED_COUNT")
	setString(&cfg.OutputDir, "QUIZ_OUTPUT_DIR")
	setString(&cfg.Format, "QUIZ_FORMAT")
	setBool(&cfg.Bundle, "QUIZ_BUNDLE")
	setInt(&cfg.Workers, "QUIZ_WORKERS")
	setFloat(&cfg.SimilarityThreshold, "QUIZ_SIMILARITY_THRESHOLD")
	setFloat(&cfg.ImageThreshold, "QUIZ_IMAGE_THRESHOLD")
	setBool(&cfg.SequentialIDs, "QUIZ_SEQUENTIAL_IDS")

	setString(&cfg.UserAgent, "QUIZ_USER_AGENT")
	setDuration(&cfg.FetchTimeout, "QUIZ_FETCH_TIMEOUT")
	setInt(&cfg.FetchAttempts, "QUIZ_FETCH_ATTEMPTS")
	setInt(&cfg.MaxConcurrent, "QUIZ_MAX_CONCURRENT")
	setBool(&cfg.IgnoreRobots, "QUIZ_IGNORE_ROBOTS")

	setString(&cfg.CacheDir, "QUIZ_CACHE_DIR")
	setDuration(&cfg.CacheMaxAge, "QUIZ_CACHE_MAX_AGE")
	setBool(&cfg.CacheClear, "QUIZ_CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "QUIZ_CACHE_STRICT_PERMS")
	setBool(&cfg.HTTPCacheOnly, "QUIZ_HTTP_CACHE_ONLY")

	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	setBool(&cfg.LLMCacheOnly, "LLM_CACHE_ONLY")
	setBool(&cfg.ExplainMissing, "QUIZ_EXPLAIN")

	setBool(&cfg.Verbose, "QUIZ_VERBOSE")
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
