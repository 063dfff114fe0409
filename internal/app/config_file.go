package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/quizharvest/internal/categorize"
	"github.com/hyperifyio/quizharvest/internal/extract"
)

// Flag defaults. ApplyFileConfig treats a field holding its default as unset.
const (
	DefaultOutputDir     = "out"
	DefaultCacheDir      = ".quizharvest-cache"
	DefaultWorkers       = 4
	DefaultFetchAttempts = 2
	DefaultFetchTimeout  = 20 * time.Second
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Inputs struct {
		Pages   []string `yaml:"pages" json:"pages"`
		HTML    []string `yaml:"html" json:"html"`
		URLs    []string `yaml:"urls" json:"urls"`
		URLList string   `yaml:"urlList" json:"urlList"`
		BaseURL string   `yaml:"baseURL" json:"baseURL"`
	} `yaml:"inputs" json:"inputs"`

	Output struct {
		Dir    string `yaml:"dir" json:"dir"`
		Format string `yaml:"format" json:"format"`
		Bundle bool   `yaml:"bundle" json:"bundle"`
	} `yaml:"output" json:"output"`

	ExpectedCount int `yaml:"expectedCount" json:"expectedCount"`
	Workers       int `yaml:"workers" json:"workers"`

	Thresholds struct {
		Similarity float64 `yaml:"similarity" json:"similarity"`
		Image      float64 `yaml:"image" json:"image"`
	} `yaml:"thresholds" json:"thresholds"`

	SequentialIDs bool `yaml:"sequentialIDs" json:"sequentialIDs"`

	Fetch struct {
		UserAgent     string        `yaml:"userAgent" json:"userAgent"`
		Timeout       time.Duration `yaml:"timeout" json:"timeout"`
		Attempts      int           `yaml:"attempts" json:"attempts"`
		MaxConcurrent int           `yaml:"maxConcurrent" json:"maxConcurrent"`
		IgnoreRobots  bool          `yaml:"ignoreRobots" json:"ignoreRobots"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		HTTPOnly    bool          `yaml:"httpOnly" json:"httpOnly"`
	} `yaml:"cache" json:"cache"`

	LLM struct {
		BaseURL   string `yaml:"base" json:"base"`
		Model     string `yaml:"model" json:"model"`
		APIKey    string `yaml:"key" json:"key"`
		CacheOnly bool   `yaml:"cacheOnly" json:"cacheOnly"`
	} `yaml:"llm" json:"llm"`

	Explain struct {
		Enable       bool   `yaml:"enable" json:"enable"`
		SystemPrompt string `yaml:"systemPrompt" json:"systemPrompt"`
	} `yaml:"explain" json:"explain"`

	Rules      extract.Rules     `yaml:"rules" json:"rules"`
	Categories []categorize.Rule `yaml:"categories" json:"categories"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc onto cfg for fields that are unset
// or still hold their flag default, so explicit flags win over the file.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if len(cfg.PagesFiles) == 0 && len(fc.Inputs.Pages) > 0 {
		cfg.PagesFiles = append([]string{}, fc.Inputs.Pages...)
	}
	if len(cfg.HTMLFiles) == 0 && len(fc.Inputs.HTML) > 0 {
		cfg.HTMLFiles = append([]string{}, fc.Inputs.HTML...)
	}
	if len(cfg.URLs) == 0 && len(fc.Inputs.URLs) > 0 {
		cfg.URLs = append([]string{}, fc.Inputs.URLs...)
	}
	if cfg.URLListFile == "" && fc.Inputs.URLList != "" {
		cfg.URLListFile = fc.Inputs.URLList
	}
	if cfg.BaseURL == "" && fc.Inputs.BaseURL != "" {
		cfg.BaseURL = fc.Inputs.BaseURL
	}

	if (cfg.OutputDir == "" || cfg.OutputDir == DefaultOutputDir) && fc.Output.Dir != "" {
		cfg.OutputDir = fc.Output.Dir
	}
	if (cfg.Format == "" || cfg.Format == FormatJSONL) && fc.Output.Format != "" {
		cfg.Format = fc.Output.Format
	}

	if !cfg.Bundle && fc.Output.Bundle {
		cfg.Bundle = true
	}

	if cfg.ExpectedCount == 0 && fc.ExpectedCount > 0 {
		cfg.ExpectedCount = fc.ExpectedCount
	}
	if (cfg.Workers == 0 || cfg.Workers == DefaultWorkers) && fc.Workers > 0 {
		cfg.Workers = fc.Workers
	}
	if cfg.SimilarityThreshold == 0 && fc.Thresholds.Similarity > 0 {
		cfg.SimilarityThreshold = fc.Thresholds.Similarity
	}
	if cfg.ImageThreshold == 0 && fc.Thresholds.Image > 0 {
		cfg.ImageThreshold = fc.Thresholds.Image
	}
	if !cfg.SequentialIDs && fc.SequentialIDs {
		cfg.SequentialIDs = true
	}

	if cfg.UserAgent == "" && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if (cfg.FetchTimeout == 0 || cfg.FetchTimeout == DefaultFetchTimeout) && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if (cfg.FetchAttempts == 0 || cfg.FetchAttempts == DefaultFetchAttempts) && fc.Fetch.Attempts > 0 {
		cfg.FetchAttempts = fc.Fetch.Attempts
	}
	if cfg.MaxConcurrent == 0 && fc.Fetch.MaxConcurrent > 0 {
		cfg.MaxConcurrent = fc.Fetch.MaxConcurrent
	}
	if fc.Fetch.IgnoreRobots {
		cfg.IgnoreRobots = true
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if !cfg.HTTPCacheOnly && fc.Cache.HTTPOnly {
		cfg.HTTPCacheOnly = true
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if !cfg.LLMCacheOnly && fc.LLM.CacheOnly {
		cfg.LLMCacheOnly = true
	}
	if !cfg.ExplainMissing && fc.Explain.Enable {
		cfg.ExplainMissing = true
	}
	if cfg.ExplainSystemPrompt == "" && fc.Explain.SystemPrompt != "" {
		cfg.ExplainSystemPrompt = fc.Explain.SystemPrompt
	}

	// Rule vocabularies merge field by field; categories replace the defaults
	// wholesale because their order is significant.
	cfg.Rules = cfg.Rules.Merge(fc.Rules)
	if len(cfg.Categories) == 0 && len(fc.Categories) > 0 {
		cfg.Categories = append([]categorize.Rule{}, fc.Categories...)
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}

// ApplyDefaults fills every field still unset after flags, env and file.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.Format == "" {
		cfg.Format = FormatJSONL
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.FetchAttempts == 0 {
		cfg.FetchAttempts = DefaultFetchAttempts
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	cfg.Rules = cfg.Rules.Merge(extract.DefaultRules())
	if len(cfg.Categories) == 0 {
		cfg.Categories = categorize.DefaultRules()
	}
}

// ValidateConfig performs minimal validation of required settings.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return errors.New("config: output dir is required")
	}
	switch cfg.Format {
	case "", FormatJSONL, FormatJSON:
	default:
		return fmt.Errorf("config: unknown output format %q (want jsonl or json)", cfg.Format)
	}
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		return errors.New("config: similarity threshold must be within [0,1]")
	}
	if cfg.ImageThreshold < 0 {
		return errors.New("config: image threshold must not be negative")
	}
	if cfg.Workers < 0 || cfg.ExpectedCount < 0 || cfg.FetchAttempts < 0 || cfg.MaxConcurrent < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.ExplainMissing && strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required to explain records (or set LLM_MODEL)")
	}
	for i, r := range cfg.Categories {
		if strings.TrimSpace(r.Category) == "" || len(r.Keywords) == 0 {
			return fmt.Errorf("config: category rule %d needs a name and keywords", i+1)
		}
	}
	return nil
}
