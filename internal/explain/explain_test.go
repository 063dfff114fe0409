package explain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/quizharvest/internal/cache"
	"github.com/hyperifyio/quizharvest/internal/record"
)

type fakeClient struct {
	calls   int
	fail    int
	reply   string
	lastReq openai.ChatCompletionRequest
}

func (c *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.calls++
	c.lastReq = req
	if c.calls <= c.fail {
		return openai.ChatCompletionResponse{}, errors.New("unavailable")
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.reply},
		}},
	}, nil
}

func corpusRecord(id, explanation string) record.CorpusRecord {
	r := record.CorpusRecord{ID: id, Category: "ilk yardım"}
	r.QuestionText = "Şok durumundaki yaralıya ilk olarak ne yapılır?"
	r.Options = map[string]string{"A": "Ayakları yükseltilir", "B": "Su içirilir", "C": "Yürütülür", "D": "Oturtulur"}
	r.AnswerLabel = "A"
	r.Explanation = explanation
	return r
}

func TestFill_OnlyMissingAndOnCopies(t *testing.T) {
	fc := &fakeClient{reply: "Kan beyne yönlendirilir."}
	f := &Filler{Client: fc, Model: "test-model"}
	in := []record.CorpusRecord{corpusRecord("1", ""), corpusRecord("2", "Var olan açıklama")}

	out, n, err := f.Fill(context.Background(), in)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if n != 1 || fc.calls != 1 {
		t.Fatalf("expected one generated explanation, n=%d calls=%d", n, fc.calls)
	}
	if out[0].Explanation != "Kan beyne yönlendirilir." || out[1].Explanation != "Var olan açıklama" {
		t.Fatalf("unexpected output: %q / %q", out[0].Explanation, out[1].Explanation)
	}
	if in[0].Explanation != "" {
		t.Fatalf("input records must not be mutated")
	}
	user := fc.lastReq.Messages[1].Content
	for _, want := range []string{"Şok durumundaki", "A) Ayakları yükseltilir", "Correct answer: A"} {
		if !strings.Contains(user, want) {
			t.Fatalf("prompt missing %q:\n%s", want, user)
		}
	}
}

func TestFill_NotConfigured(t *testing.T) {
	if _, _, err := (&Filler{}).Fill(context.Background(), nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestExplain_RetriesOnceThenCaches(t *testing.T) {
	retryDelay = time.Millisecond
	dir := t.TempDir()
	fc := &fakeClient{fail: 1, reply: "Açıklama"}
	f := &Filler{Client: fc, Model: "m", Cache: &cache.LLMCache{Dir: dir}}

	got, err := f.Explain(context.Background(), corpusRecord("1", ""))
	if err != nil || got != "Açıklama" {
		t.Fatalf("explain: %q err=%v", got, err)
	}
	if fc.calls != 2 {
		t.Fatalf("expected one retry, calls=%d", fc.calls)
	}

	offline := &Filler{Client: &fakeClient{}, Model: "m", Cache: &cache.LLMCache{Dir: dir}, CacheOnly: true}
	got, err = offline.Explain(context.Background(), corpusRecord("1", ""))
	if err != nil || got != "Açıklama" {
		t.Fatalf("cached explain: %q err=%v", got, err)
	}
}

func TestExplain_EmptyReply(t *testing.T) {
	f := &Filler{Client: &fakeClient{reply: "  "}, Model: "m"}
	if _, err := f.Explain(context.Background(), corpusRecord("1", "")); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
}

func TestExplain_PromptTooLarge(t *testing.T) {
	fc := &fakeClient{reply: "x"}
	f := &Filler{Client: fc, Model: "gpt-oss-20b"}
	rec := corpusRecord("1", "")
	rec.QuestionText = strings.Repeat("çok uzun soru metni ", 1000)
	if _, err := f.Explain(context.Background(), rec); !errors.Is(err, ErrPromptTooLarge) {
		t.Fatalf("expected ErrPromptTooLarge, got %v", err)
	}
	if fc.calls != 0 {
		t.Fatalf("oversized prompt must not reach the model")
	}

	f.Model = "gpt-4o"
	if _, err := f.Explain(context.Background(), rec); err != nil {
		t.Fatalf("large context model should accept: %v", err)
	}
	if fc.lastReq.MaxTokens != DefaultMaxTokens {
		t.Fatalf("max tokens not set: %d", fc.lastReq.MaxTokens)
	}
}
