package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/quizharvest/internal/categorize"
	"github.com/hyperifyio/quizharvest/internal/dedup"
	"github.com/hyperifyio/quizharvest/internal/extract"
	"github.com/hyperifyio/quizharvest/internal/record"
	"github.com/hyperifyio/quizharvest/internal/source"
)

const scenarioText = "#trafik #1 Hangi işaret dur anlamına gelir? A Kırmızı B Sarı C Yeşil D Mavi CEVAP AÇIKLAMASI: Kırmızı ışık dur anlamına gelir"

type failingLoader struct{}

func (failingLoader) Name() string { return "broken" }
func (failingLoader) Load(context.Context) (record.RawPage, error) {
	return record.RawPage{}, errors.New("boom")
}

func newRunner(sink Sink) *Runner {
	return &Runner{
		Engine:  NewEngine(extract.DefaultRules()),
		Corpus:  dedup.New(categorize.New(categorize.DefaultRules()), dedup.Options{NewID: dedup.Sequential("q")}),
		Workers: 2,
		Sink:    sink,
		Now:     func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func TestProcessPage_TagPairScenario(t *testing.T) {
	e := NewEngine(extract.DefaultRules())
	res := e.ProcessPage(record.RawPage{URL: "https://example.com/1", Text: scenarioText})
	if !res.OK {
		t.Fatalf("expected a winner")
	}
	if res.Winner.Method != record.HeuristicTagPair {
		t.Fatalf("expected tag-pair winner, got %q", res.Winner.Method)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	r := res.Records[0]
	if len(r.Options) != 4 || r.ContentHash == "" || r.SourceURL != "https://example.com/1" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if len(res.Candidates) != len(record.Heuristics) {
		t.Fatalf("expected one candidate per heuristic, got %d", len(res.Candidates))
	}
}

func TestProcessPage_SequentialWithImages(t *testing.T) {
	text := "1. Aşağıdakilerden hangisi fren sisteminin parçasıdır?\nA) Balata\nB) Far\nC) Korna\nD) Silecek\n" +
		"2. Şekildeki trafik işareti hangi anlama gelir?\nA) Dur\nB) Yol ver\nC) Park yeri\nD) Hastane\n"
	second := strings.Index(text, "2.")
	pos := second + 10
	far := 0
	page := record.RawPage{
		URL:  "https://example.com/seq",
		Text: text,
		Images: []record.Image{
			{URL: "https://example.com/img/soru-2.png", Position: &pos},
			{URL: "https://example.com/img/logo.png", Width: 16, Height: 16, Position: &far},
			{URL: "https://example.com/img/banner.png"},
		},
	}
	res := NewEngine(extract.DefaultRules()).ProcessPage(page)
	if !res.OK || res.Winner.Method != record.HeuristicSequential {
		t.Fatalf("expected sequential winner, got %+v", res.Winner.Method)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	if len(res.Records[0].Images) != 0 {
		t.Fatalf("first record should have no images: %+v", res.Records[0].Images)
	}
	if len(res.Records[1].Images) != 1 || res.Records[1].Images[0].URL != "https://example.com/img/soru-2.png" {
		t.Fatalf("second record images: %+v", res.Records[1].Images)
	}
	if len(res.Discarded) != 2 {
		t.Fatalf("expected 2 discarded images, got %d", len(res.Discarded))
	}
}

func TestRunner_DuplicatePagesAdmitOnce(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf)
	r := newRunner(sink)
	loaders := []source.Loader{
		source.Static{Page: record.RawPage{URL: "https://a.example/1", Text: scenarioText}},
		source.Static{Page: record.RawPage{URL: "https://b.example/1", Text: scenarioText}},
	}
	sum, err := r.Run(context.Background(), loaders)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.PagesProcessed != 2 || sum.RecordsExtracted != 2 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if sum.RecordsAdmitted != 1 || sum.RejectedExact != 1 || sum.RecordsRejected != 1 {
		t.Fatalf("expected one admitted and one exact rejection: %+v", sum)
	}
	if sum.Categories["trafik ve çevre bilgisi"] != 1 {
		t.Fatalf("unexpected categories: %v", sum.Categories)
	}
	if r.Corpus.Len() != 1 || len(r.Corpus.Audit()) != 1 {
		t.Fatalf("corpus %d audit %d", r.Corpus.Len(), len(r.Corpus.Audit()))
	}
	if sink.Count() != 1 {
		t.Fatalf("sink wrote %d records", sink.Count())
	}
	var got record.CorpusRecord
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got); err != nil {
		t.Fatalf("sink output: %v", err)
	}
	if got.ID != "q1" || got.Category != "trafik ve çevre bilgisi" {
		t.Fatalf("unexpected sink record: %+v", got)
	}
	if !sum.FinishedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("finish time not stamped: %v", sum.FinishedAt)
	}
}

func TestRunner_SoftAndHardFailuresAreCounted(t *testing.T) {
	r := newRunner(nil)
	loaders := []source.Loader{
		source.Static{Page: record.RawPage{URL: "https://a.example/empty", Text: "Bu sayfada soru yok."}},
		failingLoader{},
		source.Static{Page: record.RawPage{URL: "https://a.example/1", Text: scenarioText}},
	}
	sum, err := r.Run(context.Background(), loaders)
	if err != nil {
		t.Fatalf("failures must not abort the run: %v", err)
	}
	if sum.PagesFailed != 1 || sum.PagesProcessed != 2 {
		t.Fatalf("unexpected page counts: %+v", sum)
	}
	if len(sum.SoftFailures) != 1 || sum.SoftFailures[0] != "https://a.example/empty" {
		t.Fatalf("unexpected soft failures: %v", sum.SoftFailures)
	}
	if sum.RecordsAdmitted != 1 || sum.Methods[record.HeuristicTagPair] != 1 {
		t.Fatalf("unexpected admission: %+v", sum)
	}
}

func TestRunner_CancelledContextKeepsCorpusValid(t *testing.T) {
	r := newRunner(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := r.Run(ctx, []source.Loader{
		source.Static{Page: record.RawPage{URL: "https://a.example/1", Text: scenarioText}},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sum == nil {
		t.Fatalf("summary must be returned on cancel")
	}
	if r.Corpus.Len() != len(r.Corpus.Records()) {
		t.Fatalf("corpus inconsistent")
	}
}
