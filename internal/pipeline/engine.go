package pipeline

import (
	"github.com/hyperifyio/quizharvest/internal/dedup"
	"github.com/hyperifyio/quizharvest/internal/extract"
	"github.com/hyperifyio/quizharvest/internal/images"
	"github.com/hyperifyio/quizharvest/internal/record"
	selecter "github.com/hyperifyio/quizharvest/internal/select"
	"github.com/hyperifyio/quizharvest/internal/segment"
)

// Engine turns one page into enriched records. It holds no per-page state
// and does no I/O, so a single Engine can serve a whole run.
type Engine struct {
	Segmenter  segment.Segmenter
	Strategies []extract.Strategy
	Associator images.Associator
}

// NewEngine builds an engine with one strategy per heuristic.
func NewEngine(rules extract.Rules) *Engine {
	return &Engine{Strategies: extract.Strategies(rules)}
}

// PageResult is the engine's output for one page.
type PageResult struct {
	URL string
	// Candidates holds every strategy's output, winner included.
	Candidates []record.StrategyResult
	Winner     record.StrategyResult
	// OK is false when no strategy produced a valid record.
	OK        bool
	Records   []record.EnrichedRecord
	Discarded []record.Image
}

// ProcessPage segments, extracts with every strategy, selects a winner and
// attaches images to its records.
func (e *Engine) ProcessPage(page record.RawPage) PageResult {
	out := PageResult{URL: page.URL}
	blocks := e.Segmenter.All(page)
	for _, s := range e.Strategies {
		bs := blocks[s.Name()]
		out.Candidates = append(out.Candidates, record.StrategyResult{
			Method:  s.Name(),
			Records: s.Extract(page, bs),
			Blocks:  len(bs),
		})
	}
	winner, ok := selecter.Select(out.Candidates, selecter.Options{ExpectedCount: page.ExpectedQuestionCount})
	if !ok {
		out.Discarded = append([]record.Image{}, page.Images...)
		return out
	}
	out.Winner, out.OK = winner, true

	attached, discarded := e.Associator.Associate(page, winner.Records)
	out.Discarded = discarded
	out.Records = make([]record.EnrichedRecord, 0, len(winner.Records))
	for i, r := range winner.Records {
		out.Records = append(out.Records, dedup.Enrich(r, attached[i]))
	}
	return out
}
