package selecter

import (
	"sort"

	"github.com/hyperifyio/quizharvest/internal/record"
)

// Options configures winner selection.
type Options struct {
	// ExpectedCount is the page's expected question count; zero when unknown.
	// It only breaks ties.
	ExpectedCount int
}

// Select picks the strategy result with the most valid records. Equal counts
// prefer the heuristic whose block count is closest to ExpectedCount, then tag-pair, sequential-number and
// question-mark in that order. ok is false when every result is empty.
func Select(results []record.StrategyResult, opt Options) (record.StrategyResult, bool) {
	if len(results) == 0 {
		return record.StrategyResult{}, false
	}
	rs := make([]ranked, 0, len(results))
	for _, r := range results {
		rs = append(rs, rankedFrom(r))
	}
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.valid != b.valid {
			return a.valid > b.valid
		}
		if opt.ExpectedCount > 0 {
			da, db := distance(a.result.Blocks, opt.ExpectedCount), distance(b.result.Blocks, opt.ExpectedCount)
			if da != db {
				return da < db
			}
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		return a.result.Method < b.result.Method
	})
	best := rs[0]
	if best.valid == 0 {
		return record.StrategyResult{}, false
	}
	return onlyValid(best.result), true
}

type ranked struct {
	result   record.StrategyResult
	valid    int
	priority int
}

func rankedFrom(r record.StrategyResult) ranked {
	return ranked{result: r, valid: r.ValidCount(), priority: priorityOf(r.Method)}
}

// priorityOf ranks heuristics by how unambiguous their delimiters are.
func priorityOf(method string) int {
	for i, h := range record.Heuristics {
		if h == method {
			return i
		}
	}
	return len(record.Heuristics)
}

func distance(n, expected int) int {
	if n > expected {
		return n - expected
	}
	return expected - n
}

func onlyValid(r record.StrategyResult) record.StrategyResult {
	out := record.StrategyResult{Method: r.Method, Blocks: r.Blocks, Records: make([]record.ExtractionRecord, 0, len(r.Records))}
	for _, rec := range r.Records {
		if rec.Valid() {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}
