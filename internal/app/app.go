package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/quizharvest/internal/aggregate"
	"github.com/hyperifyio/quizharvest/internal/cache"
	"github.com/hyperifyio/quizharvest/internal/categorize"
	"github.com/hyperifyio/quizharvest/internal/dedup"
	"github.com/hyperifyio/quizharvest/internal/explain"
	"github.com/hyperifyio/quizharvest/internal/fetch"
	"github.com/hyperifyio/quizharvest/internal/llm"
	"github.com/hyperifyio/quizharvest/internal/pipeline"
	"github.com/hyperifyio/quizharvest/internal/record"
	"github.com/hyperifyio/quizharvest/internal/robots"
	"github.com/hyperifyio/quizharvest/internal/source"
)

// ErrNoInputs is returned when no pages, HTML files or URLs are configured.
var ErrNoInputs = errors.New("no inputs configured")

type App struct {
	cfg       Config
	httpCache *cache.HTTPCache
	fetcher   *fetch.Client
	gate      *robots.Gate
	filler    *explain.Filler
	corpus    *dedup.Deduplicator
	engine    *pipeline.Engine
	// now is the clock for summaries and the manifest.
	now func() time.Time
}

func New(ctx context.Context, cfg Config) (*App, error) {
	ApplyDefaults(&cfg)
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, now: time.Now}

	var llmCache *cache.LLMCache
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			// purge failures only leave stale entries behind
			_, _ = cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge)
			_, _ = cache.PurgeLLMCacheByAge(cfg.CacheDir, cfg.CacheMaxAge)
		}
		a.httpCache = &cache.HTTPCache{Dir: filepath.Join(cfg.CacheDir, "http"), StrictPerms: cfg.CacheStrictPerms}
		llmCache = &cache.LLMCache{Dir: filepath.Join(cfg.CacheDir, "llm"), StrictPerms: cfg.CacheStrictPerms}
	}

	a.fetcher = &fetch.Client{
		HTTPClient:        newPageHTTPClient(cfg.MaxConcurrent),
		UserAgent:         cfg.UserAgent,
		MaxAttempts:       cfg.FetchAttempts,
		PerRequestTimeout: cfg.FetchTimeout,
		Cache:             a.httpCache,
		CacheOnly:         cfg.HTTPCacheOnly,
		MaxConcurrent:     cfg.MaxConcurrent,
	}
	// cache-only runs are offline, so robots.txt cannot be consulted
	if !cfg.IgnoreRobots && !cfg.HTTPCacheOnly {
		ua := cfg.UserAgent
		if ua == "" {
			ua = fetch.DefaultUserAgent
		}
		a.gate = &robots.Gate{Client: a.fetcher.HTTPClient, Cache: a.httpCache, UserAgent: ua}
	}

	if cfg.ExplainMissing {
		a.filler = &explain.Filler{
			Client:       llm.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey),
			Cache:        llmCache,
			Model:        cfg.LLMModel,
			CacheOnly:    cfg.LLMCacheOnly,
			SystemPrompt: cfg.ExplainSystemPrompt,
		}
	}

	ids := dedup.UUIDv7()
	if cfg.SequentialIDs {
		ids = dedup.Sequential("q")
	}
	a.corpus = dedup.New(categorize.New(cfg.Categories), dedup.Options{Threshold: cfg.SimilarityThreshold, NewID: ids})
	a.engine = pipeline.NewEngine(cfg.Rules)
	a.engine.Associator.Threshold = cfg.ImageThreshold
	return a, nil
}

func (a *App) Close() {
	if a.fetcher != nil && a.fetcher.HTTPClient != nil {
		a.fetcher.HTTPClient.CloseIdleConnections()
	}
}

// Corpus exposes the deduplicated records for callers embedding the app.
func (a *App) Corpus() *dedup.Deduplicator { return a.corpus }

// Run loads every input, builds the corpus and writes the output directory.
// A cancelled ctx still writes what was admitted before returning ctx.Err().
func (a *App) Run(ctx context.Context) error {
	loaders, err := a.loaders()
	if err != nil {
		return err
	}
	dir := a.cfg.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir output: %w", err)
	}
	recordsName := recordsFileName(a.cfg.Format)
	recordsPath := filepath.Join(dir, recordsName)

	runner := &pipeline.Runner{Engine: a.engine, Corpus: a.corpus, Workers: a.cfg.Workers, Now: a.now}
	// JSONL without post-processing streams straight to disk.
	streaming := a.cfg.Format == FormatJSONL && a.filler == nil
	var streamFile *os.File
	if streaming {
		streamFile, err = os.Create(recordsPath)
		if err != nil {
			return fmt.Errorf("create records: %w", err)
		}
		runner.Sink = pipeline.NewJSONLSink(streamFile)
	}

	log.Info().Int("inputs", len(loaders)).Int("workers", a.cfg.Workers).Str("out", dir).Msg("harvest started")
	sum, runErr := runner.Run(ctx, loaders)

	if streaming {
		if err := streamFile.Close(); err != nil {
			return fmt.Errorf("close records: %w", err)
		}
	} else {
		recs := a.corpus.Records()
		if a.filler != nil {
			filled, n, err := a.filler.Fill(ctx, recs)
			if err != nil {
				log.Warn().Err(err).Msg("explanation fill stopped early")
			}
			if filled != nil {
				recs = filled
			}
			log.Info().Int("explained", n).Msg("explanations generated")
		}
		if err := writeRecords(recordsPath, a.cfg.Format, recs); err != nil {
			return fmt.Errorf("write records: %w", err)
		}
	}

	if err := writeJSON(filepath.Join(dir, auditFile), a.corpus.Audit()); err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, summaryFile), sum); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	m, err := buildManifest(a.cfg, dir, len(loaders), []string{recordsName, auditFile, summaryFile}, a.now())
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, manifestFile), m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := writeSHA256SUMS(dir); err != nil {
		return fmt.Errorf("write checksums: %w", err)
	}
	if a.cfg.Bundle {
		tarPath := filepath.Clean(dir) + ".tar.gz"
		if err := tarGzDirectory(dir, tarPath); err != nil {
			return fmt.Errorf("bundle output: %w", err)
		}
		log.Info().Str("bundle", tarPath).Msg("wrote bundle")
	}

	logSummary(sum)
	return runErr
}

func logSummary(sum *record.Summary) {
	ev := log.Info().
		Int("pages", sum.PagesProcessed).
		Int("failed", sum.PagesFailed).
		Int("soft_failures", len(sum.SoftFailures)).
		Int("extracted", sum.RecordsExtracted).
		Int("admitted", sum.RecordsAdmitted).
		Int("rejected", sum.RecordsRejected)
	for cat, n := range sum.Categories {
		ev = ev.Int("category."+cat, n)
	}
	ev.Msg("harvest finished")
}

// loaders expands the configured inputs. URLs are canonicalized and
// deduplicated before fetching.
func (a *App) loaders() ([]source.Loader, error) {
	var out []source.Loader
	for _, p := range a.cfg.PagesFiles {
		ls, err := source.FilePages(p)
		if err != nil {
			return nil, fmt.Errorf("read pages: %w", err)
		}
		out = append(out, ls...)
	}
	for _, p := range a.cfg.HTMLFiles {
		out = append(out, source.HTMLFile{Path: p, URL: htmlSourceURL(a.cfg.BaseURL, p), Expected: a.cfg.ExpectedCount})
	}
	urls := append([]string{}, a.cfg.URLs...)
	if a.cfg.URLListFile != "" {
		listed, err := readURLList(a.cfg.URLListFile)
		if err != nil {
			return nil, fmt.Errorf("read url list: %w", err)
		}
		urls = append(urls, listed...)
	}
	out = append(out, source.URLs(aggregate.DedupeURLs(urls), a.fetcher, a.gateOrNil(), a.cfg.ExpectedCount)...)
	if len(out) == 0 {
		return nil, ErrNoInputs
	}
	return out, nil
}

// htmlSourceURL resolves the file name against base, or returns "" so the
// loader falls back to a file URL.
func htmlSourceURL(base, path string) string {
	if strings.TrimSpace(base) == "" {
		return ""
	}
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return ""
	}
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	return b.ResolveReference(&url.URL{Path: filepath.Base(path)}).String()
}

// readURLList reads one URL per line, skipping blanks and '#' comments.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// gateOrNil avoids handing source a typed nil interface.
func (a *App) gateOrNil() source.Gatekeeper {
	if a.gate == nil {
		return nil
	}
	return a.gate
}
