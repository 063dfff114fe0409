package extract

import "github.com/hyperifyio/quizharvest/internal/record"

// Strategy turns one heuristic's candidate blocks into records.
// Implementations must not share mutable state with each other so that one
// heuristic's false positives cannot leak into another's output.
type Strategy interface {
	Name() string
	Extract(page record.RawPage, blocks []record.CandidateBlock) []record.ExtractionRecord
}

// Strategies returns one BlockExtractor per known heuristic, in preference order.
func Strategies(rules Rules) []Strategy {
	out := make([]Strategy, 0, len(record.Heuristics))
	for _, h := range record.Heuristics {
		out = append(out, NewBlockExtractor(h, rules))
	}
	return out
}
