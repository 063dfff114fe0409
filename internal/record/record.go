package record

import (
	"strings"
	"time"
)

// Heuristic names. Order here is the tie-break preference order.
const (
	HeuristicTagPair      = "tag-pair"
	HeuristicSequential   = "sequential-number"
	HeuristicQuestionMark = "question-mark"
)

const (
	MatchExact   = "exact"
	MatchSimilar = "similar"
)

// Uncategorized is the category of records no rule or tag could place.
const Uncategorized = "uncategorized"

// Heuristics lists every segmentation heuristic in preference order.
var Heuristics = []string{HeuristicTagPair, HeuristicSequential, HeuristicQuestionMark}

// OptionLabels are the accepted option labels.
var OptionLabels = []string{"A", "B", "C", "D"}

// Image is an image discovered on a page.
type Image struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	// Position is a byte offset into RawPage.Text near which the image
	// appeared in the DOM. Nil when unknown.
	Position *int `json:"position,omitempty"`
}

// RawPage is one page handed to the engine by a loader.
type RawPage struct {
	URL                   string  `json:"url"`
	Text                  string  `json:"text"`
	HTML                  string  `json:"html,omitempty"`
	Images                []Image `json:"images,omitempty"`
	ExpectedQuestionCount int     `json:"expectedQuestionCount,omitempty"`
}

// CandidateBlock is a span of page text believed to hold one question.
type CandidateBlock struct {
	Start     int
	End       int
	Text      string
	Heuristic string
	// Ordinal is the question number carried by the delimiter, 0 if none.
	Ordinal int
}

// ExtractionRecord is one parsed question.
type ExtractionRecord struct {
	QuestionText     string            `json:"questionText"`
	Options          map[string]string `json:"options"`
	AnswerLabel      string            `json:"answerLabel,omitempty"`
	Explanation      string            `json:"explanation,omitempty"`
	CategoryRaw      string            `json:"categoryRaw,omitempty"`
	SourceURL        string            `json:"sourceUrl"`
	ExtractionMethod string            `json:"extractionMethod"`

	// Positional hints used by image association.
	Number     int `json:"-"`
	BlockIndex int `json:"-"`
	Start      int `json:"-"`
	End        int `json:"-"`
}

// Valid reports whether r has a stem and at least three labelled options.
func (r ExtractionRecord) Valid() bool {
	if strings.TrimSpace(r.QuestionText) == "" {
		return false
	}
	n := 0
	for _, l := range OptionLabels {
		if strings.TrimSpace(r.Options[l]) != "" {
			n++
		}
	}
	if n < 3 {
		return false
	}
	for l := range r.Options {
		if !IsOptionLabel(l) {
			return false
		}
	}
	return true
}

// Ordinal returns the 1-based position of the record on its page.
func (r ExtractionRecord) Ordinal() int {
	if r.Number > 0 {
		return r.Number
	}
	return r.BlockIndex + 1
}

// IsOptionLabel reports whether l is one of A-D.
func IsOptionLabel(l string) bool {
	for _, x := range OptionLabels {
		if l == x {
			return true
		}
	}
	return false
}

// StrategyResult is one extractor's output for one page.
type StrategyResult struct {
	Method  string
	Records []ExtractionRecord
	// Blocks is the number of candidate blocks the heuristic produced.
	Blocks int
}

// ValidCount counts records satisfying Valid.
func (s StrategyResult) ValidCount() int {
	n := 0
	for _, r := range s.Records {
		if r.Valid() {
			n++
		}
	}
	return n
}

// EnrichedRecord is an extraction record ready for admission.
type EnrichedRecord struct {
	ExtractionRecord
	Images         []Image `json:"images"`
	ContentHash    string  `json:"contentHash"`
	NormalizedText string  `json:"-"`
}

// CorpusRecord is an admitted, categorized record.
type CorpusRecord struct {
	EnrichedRecord
	ID       string `json:"id"`
	Category string `json:"category"`
}

// AuditEntry records a rejected duplicate.
type AuditEntry struct {
	OriginalURL     string  `json:"originalUrl"`
	DuplicateURL    string  `json:"duplicateUrl"`
	MatchType       string  `json:"matchType"`
	SimilarityScore float64 `json:"similarityScore,omitempty"`
	OriginalID      string  `json:"originalId,omitempty"`
}

// Summary accumulates per-run counters.
type Summary struct {
	StartedAt        time.Time      `json:"startedAt"`
	FinishedAt       time.Time      `json:"finishedAt"`
	PagesProcessed   int            `json:"pagesProcessed"`
	PagesFailed      int            `json:"pagesFailed"`
	SoftFailures     []string       `json:"softFailures,omitempty"`
	RecordsExtracted int            `json:"recordsExtracted"`
	RecordsAdmitted  int            `json:"recordsAdmitted"`
	RejectedExact    int            `json:"rejectedExact"`
	RejectedSimilar  int            `json:"rejectedSimilar"`
	RecordsRejected  int            `json:"recordsRejected"`
	Categories       map[string]int `json:"categories"`
	Methods          map[string]int `json:"methods"`
	ImagesAttached   int            `json:"imagesAttached"`
	ImagesDiscarded  int            `json:"imagesDiscarded"`
}

// NewSummary returns a summary with initialized maps.
func NewSummary() *Summary {
	return &Summary{Categories: map[string]int{}, Methods: map[string]int{}}
}

// Finish stamps the end time and totals the rejections.
func (s *Summary) Finish(at time.Time) {
	s.FinishedAt = at
	s.RecordsRejected = s.RejectedExact + s.RejectedSimilar
}
