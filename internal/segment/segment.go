package segment

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/quizharvest/internal/record"
)

// DefaultMaxNumber bounds sequential numbering when a page has no expected count.
const DefaultMaxNumber = 200

// DefaultMinQuestionLen is the minimum sentence length, in runes, for the
// question-mark heuristic.
const DefaultMinQuestionLen = 20

var (
	tagPairRe    = regexp.MustCompile(`#([\p{L}\p{N}_-]+)\s*#(\d+)`)
	sequentialRe = regexp.MustCompile(`(?m)^[ \t]*(\d{1,3})[.)][ \t]+`)
)

// Segmenter splits page text into candidate blocks. The zero value uses defaults.
type Segmenter struct {
	MinQuestionLen int
	MaxNumber      int
}

// All runs every heuristic over the page. Each heuristic sees the full text and
// produces its own block set.
func (s Segmenter) All(page record.RawPage) map[string][]record.CandidateBlock {
	out := make(map[string][]record.CandidateBlock, len(record.Heuristics))
	for _, h := range record.Heuristics {
		out[h] = s.Segment(h, page)
	}
	return out
}

// Segment runs a single heuristic. Unknown heuristics and texts without the
// heuristic's delimiter yield an empty slice.
func (s Segmenter) Segment(heuristic string, page record.RawPage) []record.CandidateBlock {
	switch heuristic {
	case record.HeuristicTagPair:
		return TagPair(page.Text)
	case record.HeuristicSequential:
		max := s.MaxNumber
		if page.ExpectedQuestionCount > 0 {
			max = page.ExpectedQuestionCount
		}
		if max <= 0 {
			max = DefaultMaxNumber
		}
		return SequentialNumber(page.Text, max)
	case record.HeuristicQuestionMark:
		min := s.MinQuestionLen
		if min <= 0 {
			min = DefaultMinQuestionLen
		}
		return QuestionMark(page.Text, min)
	}
	return []record.CandidateBlock{}
}

// TagPair splits on recurring "#<category> #<number>" markers. Text before the
// first marker is ignored.
func TagPair(text string) []record.CandidateBlock {
	locs := tagPairRe.FindAllStringSubmatchIndex(text, -1)
	starts := make([]int, 0, len(locs))
	ordinals := make([]int, 0, len(locs))
	for _, m := range locs {
		n, _ := strconv.Atoi(text[m[4]:m[5]])
		starts = append(starts, m[0])
		ordinals = append(ordinals, n)
	}
	return cut(text, starts, ordinals, record.HeuristicTagPair)
}

// SequentialNumber splits on line-leading "<n>." or "<n>)" markers with
// 1 <= n <= max. Numbers must increase; a lower number is treated as body text
// (numbered lists inside explanations).
func SequentialNumber(text string, max int) []record.CandidateBlock {
	locs := sequentialRe.FindAllStringSubmatchIndex(text, -1)
	starts := make([]int, 0, len(locs))
	ordinals := make([]int, 0, len(locs))
	last := 0
	for _, m := range locs {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || n < 1 || n > max || n <= last {
			continue
		}
		last = n
		starts = append(starts, m[2])
		ordinals = append(ordinals, n)
	}
	return cut(text, starts, ordinals, record.HeuristicSequential)
}

// QuestionMark starts a block at every sentence that ends in '?' and is longer
// than minLen runes. A block runs to the next such sentence or end of text.
func QuestionMark(text string, minLen int) []record.CandidateBlock {
	starts := []int{}
	sentenceStart := 0
	for i, r := range text {
		switch r {
		case '.', '!', '\n':
			sentenceStart = i + 1
		case '?':
			sentence := strings.TrimSpace(text[sentenceStart : i+1])
			if utf8.RuneCountInString(sentence) > minLen {
				start := sentenceStart + leadingSpace(text[sentenceStart:])
				if len(starts) == 0 || start > starts[len(starts)-1] {
					starts = append(starts, start)
				}
			}
			sentenceStart = i + 1
		}
	}
	return cut(text, starts, make([]int, len(starts)), record.HeuristicQuestionMark)
}

func cut(text string, starts, ordinals []int, heuristic string) []record.CandidateBlock {
	blocks := make([]record.CandidateBlock, 0, len(starts))
	for i, start := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		body := strings.TrimSpace(text[start:end])
		if body == "" {
			continue
		}
		blocks = append(blocks, record.CandidateBlock{
			Start:     start,
			End:       end,
			Text:      body,
			Heuristic: heuristic,
			Ordinal:   ordinals[i],
		})
	}
	return blocks
}

func leadingSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t\r\n"))
}
