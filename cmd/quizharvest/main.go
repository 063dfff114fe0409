package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/quizharvest/internal/app"
	"github.com/hyperifyio/quizharvest/internal/categorize"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, showVersion, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}
	if showVersion {
		fmt.Println(app.VersionString())
		return
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("run failed")
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps run errors: 2 when there was nothing to harvest, 1 otherwise.
func exitCode(err error) int {
	if errors.Is(err, app.ErrNoInputs) {
		return 2
	}
	return 1
}

// parseFlags builds the configuration with precedence flags > env > config
// file > defaults. Flag defaults are zero so that unset flags can be filled
// from the lower layers.
func parseFlags(args []string, stderr io.Writer) (app.Config, bool, error) {
	fs := flag.NewFlagSet("quizharvest", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfg          app.Config
		configPath   string
		envFiles     string
		categoryFile string
		pages        string
		htmlFiles    string
		urls         string
		showVersion  bool
	)
	fs.StringVar(&configPath, "config", os.Getenv("QUIZ_CONFIG"), "Path to YAML or JSON config file")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load before reading the environment")
	fs.StringVar(&pages, "pages", "", "Comma-separated page files (JSON array or JSON lines of {url,text,html,images})")
	fs.StringVar(&htmlFiles, "html", "", "Comma-separated saved HTML pages")
	fs.StringVar(&urls, "urls", "", "Comma-separated page URLs to fetch")
	fs.StringVar(&cfg.URLListFile, "url-list", "", "File with one page URL per line")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "URL recorded as the source of -html pages (file name is appended)")
	fs.IntVar(&cfg.ExpectedCount, "expected", 0, "Expected questions per page, used as a selection tie-break (0 = unknown)")
	fs.StringVar(&cfg.OutputDir, "out", "", "Output directory (default "+app.DefaultOutputDir+")")
	fs.StringVar(&cfg.Format, "format", "", "Records format: jsonl or json (default jsonl)")
	fs.BoolVar(&cfg.Bundle, "bundle", false, "Also write <out>.tar.gz with every output file")
	fs.IntVar(&cfg.Workers, "workers", 0, fmt.Sprintf("Parallel page loaders (default %d)", app.DefaultWorkers))
	fs.Float64Var(&cfg.SimilarityThreshold, "similarity", 0, "Near-duplicate similarity threshold in [0,1] (default 0.85)")
	fs.Float64Var(&cfg.ImageThreshold, "image-threshold", 0, "Minimum image association score (default 0.5)")
	fs.BoolVar(&cfg.SequentialIDs, "sequential-ids", false, "Use q1, q2, ... instead of UUIDv7 record IDs")
	fs.StringVar(&categoryFile, "categories", "", "YAML file with ordered category rules (overrides config file)")
	fs.StringVar(&cfg.UserAgent, "ua", "", "User-Agent for page fetches")
	fs.DurationVar(&cfg.FetchTimeout, "fetch.timeout", 0, fmt.Sprintf("Per-request fetch timeout (default %s)", app.DefaultFetchTimeout))
	fs.IntVar(&cfg.FetchAttempts, "fetch.attempts", 0, fmt.Sprintf("Fetch attempts including the first (default %d)", app.DefaultFetchAttempts))
	fs.IntVar(&cfg.MaxConcurrent, "fetch.maxConcurrent", 0, "Maximum in-flight page requests (0 = unlimited)")
	fs.BoolVar(&cfg.IgnoreRobots, "robots.ignore", false, "Fetch URL inputs without consulting robots.txt")
	fs.StringVar(&cfg.CacheDir, "cache.dir", "", "Cache directory path (default "+app.DefaultCacheDir+")")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Purge cache entries older than this before the run (0 disables)")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear cache directory before run")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&cfg.HTTPCacheOnly, "cache.httpOnly", false, "Serve pages from cache only and never hit the network")
	fs.StringVar(&cfg.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&cfg.LLMModel, "llm.model", "", "Model name")
	fs.StringVar(&cfg.LLMAPIKey, "llm.key", "", "API key for OpenAI-compatible server")
	fs.BoolVar(&cfg.LLMCacheOnly, "llm.cacheOnly", false, "Answer explanation requests from cache only")
	fs.BoolVar(&cfg.ExplainMissing, "explain", false, "Generate explanations for records that have none (output only)")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return cfg, false, err
	}
	if showVersion {
		return cfg, true, nil
	}

	cfg.PagesFiles = splitList(pages)
	cfg.HTMLFiles = splitList(htmlFiles)
	cfg.URLs = append(splitList(urls), fs.Args()...)

	if err := app.LoadEnvFiles(splitList(envFiles)...); err != nil {
		return cfg, false, fmt.Errorf("load env: %w", err)
	}
	app.ApplyEnvToConfig(&cfg)
	if configPath == "" {
		configPath = os.Getenv("QUIZ_CONFIG")
	}
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return cfg, false, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if strings.TrimSpace(categoryFile) != "" {
		rules, err := categorize.LoadRules(categoryFile)
		if err != nil {
			return cfg, false, err
		}
		cfg.Categories = rules
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = app.DefaultCacheDir
	}
	app.ApplyDefaults(&cfg)
	return cfg, false, app.ValidateConfig(cfg)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
