package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hyperifyio/quizharvest/internal/normalize"
	"github.com/hyperifyio/quizharvest/internal/record"
)

var (
	leadingTagRe    = regexp.MustCompile(`^#([\p{L}\p{N}_-]+)(?:\s*#(\d+))?\s*`)
	leadingNumberRe = regexp.MustCompile(`^(\d{1,3})[.)]\s+`)
	optionLineRe    = regexp.MustCompile(`^([A-D])[\)\-\.\s]\s*(.*)$`)
	lowerOptionRe   = regexp.MustCompile(`^([a-d])[\).]\s*(.*)$`)
	inlineMarkerRe  = regexp.MustCompile(`(?:^|\s)([A-D])(?:[\)\.\-]|\s)`)
	answerRe        = regexp.MustCompile(`(?i)(?:doğru\s+cevap|doğru\s+yanıt|correct\s+answer|cevap|yanıt|answer)\s*[:\-]\s*([A-D])(?:[\s\).,;:]|$)`)
)

// BlockExtractor parses candidate blocks produced by a single heuristic.
// It is immutable after construction.
type BlockExtractor struct {
	heuristic    string
	rules        Rules
	keywords     []string
	explanations []*regexp.Regexp
	stops        []*regexp.Regexp
}

// NewBlockExtractor builds an extractor for heuristic using rules; empty rule
// fields fall back to DefaultRules.
func NewBlockExtractor(heuristic string, rules Rules) *BlockExtractor {
	rules = rules.Merge(DefaultRules())
	kw := make([]string, 0, len(rules.StemKeywords))
	for _, k := range rules.StemKeywords {
		if n := normalize.Normalize(k); n != "" {
			kw = append(kw, n)
		}
	}
	return &BlockExtractor{
		heuristic:    heuristic,
		rules:        rules,
		keywords:     kw,
		explanations: literalSet(rules.ExplanationMarkers),
		stops:        literalSet(rules.StopTokens),
	}
}

func (e *BlockExtractor) Name() string { return e.heuristic }

// Extract returns at most one record per block, skipping blocks that do not
// yield a stem and three options.
func (e *BlockExtractor) Extract(page record.RawPage, blocks []record.CandidateBlock) []record.ExtractionRecord {
	out := make([]record.ExtractionRecord, 0, len(blocks))
	for i, b := range blocks {
		r, ok := e.ExtractBlock(b)
		if !ok {
			continue
		}
		r.SourceURL = page.URL
		r.BlockIndex = i
		out = append(out, r)
	}
	return out
}

// ExtractBlock parses a single block.
func (e *BlockExtractor) ExtractBlock(b record.CandidateBlock) (record.ExtractionRecord, bool) {
	body := strings.TrimSpace(b.Text)
	rec := record.ExtractionRecord{
		ExtractionMethod: e.heuristic,
		Number:           b.Ordinal,
		Start:            b.Start,
		End:              b.End,
	}
	if m := leadingTagRe.FindStringSubmatch(body); m != nil {
		rec.CategoryRaw = m[1]
		if rec.Number == 0 && m[2] != "" {
			rec.Number, _ = strconv.Atoi(m[2])
		}
		body = body[len(m[0]):]
	}
	if m := leadingNumberRe.FindStringSubmatch(body); m != nil {
		if rec.Number == 0 {
			rec.Number, _ = strconv.Atoi(m[1])
		}
		body = body[len(m[0]):]
	}

	stem, stemEnd := e.findStem(body)
	if stem == "" {
		return rec, false
	}
	rest := body[stemEnd:]

	optEnd := len(rest)
	markStart, markEnd := firstMatch(rest, e.explanations)
	if markStart >= 0 {
		optEnd = markStart
	}
	answer := ""
	if loc := answerRe.FindStringSubmatchIndex(rest); loc != nil {
		answer = strings.ToUpper(rest[loc[2]:loc[3]])
		if loc[0] < optEnd {
			optEnd = loc[0]
		}
	}

	// line options are authoritative; inline runs are only split when the
	// lines alone do not yield enough labels
	opts := parseOptions(rest[:optEnd])
	if len(opts) < 3 {
		opts = parseOptions(explodeInline(rest[:optEnd]))
	}
	if len(opts) < 3 {
		return rec, false
	}
	rec.QuestionText = stem
	rec.Options = opts
	if _, ok := opts[answer]; ok {
		rec.AnswerLabel = answer
	}
	if markStart >= 0 {
		rec.Explanation = e.explanation(rest[markEnd:])
	}
	return rec, rec.Valid()
}

// findStem returns the stem and the byte offset in body just past it.
func (e *BlockExtractor) findStem(body string) (string, int) {
	offset := 0
	for _, line := range strings.SplitAfter(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if q := strings.IndexByte(line, '?'); q >= 0 && !isOptionLine(trimmed) {
			stem := cleanText(line[:q+1])
			if utf8.RuneCountInString(stem) > e.rules.MinStemLen {
				return stem, offset + q + 1
			}
		}
		offset += len(line)
	}

	best, bestEnd := "", 0
	offset = 0
	for _, line := range strings.SplitAfter(body, "\n") {
		trimmed := cleanText(line)
		offset += len(line)
		if trimmed == "" || isOptionLine(trimmed) || !e.hasKeyword(trimmed) {
			continue
		}
		if utf8.RuneCountInString(trimmed) > utf8.RuneCountInString(best) {
			best, bestEnd = trimmed, offset
		}
	}
	return best, bestEnd
}

func (e *BlockExtractor) hasKeyword(line string) bool {
	n := normalize.Normalize(line)
	for _, k := range e.keywords {
		if strings.Contains(n, k) {
			return true
		}
	}
	return false
}

func (e *BlockExtractor) explanation(tail string) string {
	if s, _ := firstMatch(tail, e.stops); s >= 0 {
		tail = tail[:s]
	}
	return cleanText(tail)
}

// explodeInline puts each option on its own line when the region carries at
// least three ordered markers ("A Kırmızı B Sarı C Yeşil").
func explodeInline(region string) string {
	locs := inlineMarkerRe.FindAllStringSubmatchIndex(region, -1)
	picks := make([]int, 0, len(record.OptionLabels))
	for _, m := range locs {
		if len(picks) == len(record.OptionLabels) {
			break
		}
		if region[m[2]:m[3]] == record.OptionLabels[len(picks)] {
			picks = append(picks, m[2])
		}
	}
	if len(picks) < 3 {
		return region
	}
	var b strings.Builder
	prev := 0
	for _, p := range picks {
		b.WriteString(region[prev:p])
		b.WriteByte('\n')
		prev = p
	}
	b.WriteString(region[prev:])
	return b.String()
}

// parseOptions collects labelled option lines; a repeated label replaces the
// earlier text.
func parseOptions(region string) map[string]string {
	opts := map[string]string{}
	for _, line := range strings.Split(region, "\n") {
		line = strings.TrimSpace(line)
		m := optionLineRe.FindStringSubmatch(line)
		if m == nil {
			if m = lowerOptionRe.FindStringSubmatch(line); m != nil {
				m[1] = strings.ToUpper(m[1])
			}
		}
		if m == nil {
			continue
		}
		if text := cleanText(m[2]); text != "" {
			opts[m[1]] = text
		}
	}
	return opts
}

func isOptionLine(s string) bool {
	return optionLineRe.MatchString(s) || lowerOptionRe.MatchString(s)
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
