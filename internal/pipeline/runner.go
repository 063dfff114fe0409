package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/quizharvest/internal/dedup"
	"github.com/hyperifyio/quizharvest/internal/record"
	"github.com/hyperifyio/quizharvest/internal/source"
)

// DefaultWorkers is the loader pool size when Runner.Workers is unset.
const DefaultWorkers = 4

// Sink receives each admitted record as soon as it enters the corpus.
type Sink interface {
	Write(rec record.CorpusRecord) error
}

// Runner loads pages in parallel and feeds them one at a time through the
// engine into the corpus.
type Runner struct {
	Engine  *Engine
	Corpus  *dedup.Deduplicator
	Workers int
	Sink    Sink
	// Now is the clock used for summary timestamps. Nil means time.Now.
	Now func() time.Time
}

type loaded struct {
	name string
	page record.RawPage
	err  error
}

// Run drains loaders and returns the run summary. Loader failures are
// counted, never returned. When ctx is cancelled, Run stops consuming and
// returns the summary so far together with ctx.Err(); the corpus stays valid.
func (r *Runner) Run(ctx context.Context, loaders []source.Loader) (*record.Summary, error) {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	sum := record.NewSummary()
	sum.StartedAt = now().UTC()

	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	pages := make(chan loaded, workers)

	var g errgroup.Group
	g.SetLimit(workers)
	go func() {
		for _, l := range loaders {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				page, err := l.Load(ctx)
				select {
				case pages <- loaded{name: l.Name(), page: page, err: err}:
				case <-ctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
		close(pages)
	}()

consume:
	for {
		select {
		case <-ctx.Done():
			break consume
		case lp, ok := <-pages:
			if !ok {
				break consume
			}
			r.consume(lp, sum)
		}
	}
	sum.Finish(now().UTC())
	runErr := ctx.Err()
	log.Info().Int("pages", sum.PagesProcessed).Int("failed", sum.PagesFailed).Int("admitted", sum.RecordsAdmitted).Int("rejected", sum.RecordsRejected).Msg("run finished")
	return sum, runErr
}

func (r *Runner) consume(lp loaded, sum *record.Summary) {
	if lp.err != nil {
		sum.PagesFailed++
		log.Warn().Err(lp.err).Str("source", lp.name).Msg("page load failed")
		return
	}
	sum.PagesProcessed++
	res := r.Engine.ProcessPage(lp.page)
	sum.ImagesDiscarded += len(res.Discarded)
	if !res.OK {
		sum.SoftFailures = append(sum.SoftFailures, lp.page.URL)
		log.Warn().Str("url", lp.page.URL).Msg("no heuristic produced a valid record")
		return
	}
	sum.Methods[res.Winner.Method]++
	sum.RecordsExtracted += len(res.Records)
	log.Debug().Str("url", lp.page.URL).Str("method", res.Winner.Method).Int("records", len(res.Records)).Msg("page extracted")

	for _, rec := range res.Records {
		d := r.Corpus.Admit(rec)
		if !d.Admitted {
			if d.Audit != nil && d.Audit.MatchType == record.MatchSimilar {
				sum.RejectedSimilar++
			} else {
				sum.RejectedExact++
			}
			continue
		}
		sum.RecordsAdmitted++
		sum.ImagesAttached += len(d.Record.Images)
		sum.Categories[d.Record.Category]++
		if r.Sink != nil {
			if err := r.Sink.Write(d.Record); err != nil {
				log.Warn().Err(err).Str("id", d.Record.ID).Msg("sink write failed")
			}
		}
	}
}
