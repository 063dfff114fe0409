package dedup

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/quizharvest/internal/normalize"
	"github.com/hyperifyio/quizharvest/internal/record"
)

// DefaultThreshold is the near-duplicate similarity cut-off.
const DefaultThreshold = 0.85

// Categorizer assigns a category to a record at admission time.
type Categorizer interface {
	Categorize(rec record.EnrichedRecord) string
}

// Options configures a Deduplicator.
type Options struct {
	// Threshold is the minimum similarity for a near duplicate. Zero means 0.85.
	Threshold float64
	// NewID generates record IDs. Nil means UUIDv7.
	NewID IDGenerator
}

// Decision is the outcome of one admission attempt.
type Decision struct {
	Admitted bool
	// Record is the admitted record, or the corpus record it duplicated.
	Record record.CorpusRecord
	Audit  *record.AuditEntry
}

// Deduplicator owns the corpus. Only Admit mutates it; each call is atomic,
// so the corpus is consistent whenever a run stops.
type Deduplicator struct {
	mu        sync.RWMutex
	threshold float64
	newID     IDGenerator
	cat       Categorizer

	records  []record.CorpusRecord
	folded   []string
	byHash   map[string]int
	byPrefix map[string][]int
	audit    []record.AuditEntry
}

// New returns an empty corpus. cat may be nil, in which case records keep
// their scraped tag or fall back to "uncategorized".
func New(cat Categorizer, opt Options) *Deduplicator {
	if opt.Threshold <= 0 {
		opt.Threshold = DefaultThreshold
	}
	if opt.NewID == nil {
		opt.NewID = UUIDv7()
	}
	return &Deduplicator{
		threshold: opt.Threshold,
		newID:     opt.NewID,
		cat:       cat,
		byHash:    map[string]int{},
		byPrefix:  map[string][]int{},
	}
}

// Enrich attaches images and computes the hash and normalized text.
func Enrich(rec record.ExtractionRecord, images []record.Image) record.EnrichedRecord {
	if images == nil {
		images = []record.Image{}
	}
	return record.EnrichedRecord{
		ExtractionRecord: rec,
		Images:           images,
		ContentHash:      ContentHash(rec.QuestionText, rec.Options),
		NormalizedText:   normalize.Normalize(rec.QuestionText),
	}
}

// Admit checks rec against the corpus and inserts it when it is neither an
// exact nor a near duplicate.
func (d *Deduplicator) Admit(rec record.EnrichedRecord) Decision {
	if rec.ContentHash == "" {
		rec.ContentHash = ContentHash(rec.QuestionText, rec.Options)
	}
	if rec.NormalizedText == "" {
		rec.NormalizedText = normalize.Normalize(rec.QuestionText)
	}
	folded := normalize.Fold(rec.QuestionText)
	key := firstWord(folded)

	d.mu.Lock()
	defer d.mu.Unlock()

	if i, ok := d.byHash[rec.ContentHash]; ok {
		orig := d.records[i]
		entry := record.AuditEntry{
			OriginalURL:  orig.SourceURL,
			DuplicateURL: rec.SourceURL,
			MatchType:    record.MatchExact,
			OriginalID:   orig.ID,
		}
		d.audit = append(d.audit, entry)
		log.Debug().Str("url", rec.SourceURL).Str("original", orig.SourceURL).Msg("exact duplicate")
		return Decision{Record: orig, Audit: &entry}
	}

	best, bestScore := -1, 0.0
	for _, i := range d.byPrefix[key] {
		s := foldedSimilarity(folded, d.folded[i])
		if s >= d.threshold && s > bestScore {
			best, bestScore = i, s
		}
	}
	if best >= 0 {
		orig := d.records[best]
		entry := record.AuditEntry{
			OriginalURL:     orig.SourceURL,
			DuplicateURL:    rec.SourceURL,
			MatchType:       record.MatchSimilar,
			SimilarityScore: bestScore,
			OriginalID:      orig.ID,
		}
		d.audit = append(d.audit, entry)
		log.Debug().Str("url", rec.SourceURL).Float64("score", bestScore).Msg("near duplicate")
		return Decision{Record: orig, Audit: &entry}
	}

	category := ""
	if d.cat != nil {
		category = d.cat.Categorize(rec)
	}
	if category == "" {
		category = strings.TrimSpace(rec.CategoryRaw)
	}
	if category == "" {
		category = record.Uncategorized
	}
	cr := record.CorpusRecord{EnrichedRecord: rec, ID: d.newID(), Category: category}
	idx := len(d.records)
	d.records = append(d.records, cr)
	d.folded = append(d.folded, folded)
	d.byHash[rec.ContentHash] = idx
	d.byPrefix[key] = append(d.byPrefix[key], idx)
	return Decision{Admitted: true, Record: cr}
}

// Len returns the number of admitted records.
func (d *Deduplicator) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}

// Records returns a snapshot of the corpus in admission order.
func (d *Deduplicator) Records() []record.CorpusRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]record.CorpusRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Audit returns a snapshot of the duplicate audit log.
func (d *Deduplicator) Audit() []record.AuditEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]record.AuditEntry, len(d.audit))
	copy(out, d.audit)
	return out
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
