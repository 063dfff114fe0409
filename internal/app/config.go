package app

import (
	"time"

	"github.com/hyperifyio/quizharvest/internal/categorize"
	"github.com/hyperifyio/quizharvest/internal/extract"
)

// Output formats for the records file.
const (
	FormatJSONL = "jsonl"
	FormatJSON  = "json"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Inputs
	PagesFiles  []string
	HTMLFiles   []string
	URLs        []string
	URLListFile string
	// BaseURL is recorded as the source of pages read from HTMLFiles.
	BaseURL       string
	ExpectedCount int

	// Output
	OutputDir string
	Format    string
	// Bundle also writes <OutputDir>.tar.gz with every output file.
	Bundle bool

	// Engine
	Workers             int
	SimilarityThreshold float64
	ImageThreshold      float64
	SequentialIDs       bool
	Rules               extract.Rules
	Categories          []categorize.Rule

	// Fetch
	UserAgent     string
	FetchTimeout  time.Duration
	FetchAttempts int
	MaxConcurrent int
	// IgnoreRobots skips robots.txt checks for URL inputs.
	IgnoreRobots bool

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	HTTPCacheOnly    bool

	// LLM
	LLMBaseURL          string
	LLMModel            string
	LLMAPIKey           string
	LLMCacheOnly        bool
	ExplainMissing      bool
	ExplainSystemPrompt string

	Verbose bool
}
