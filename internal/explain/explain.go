package explain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/quizharvest/internal/budget"
	"github.com/hyperifyio/quizharvest/internal/cache"
	"github.com/hyperifyio/quizharvest/internal/llm"
	"github.com/hyperifyio/quizharvest/internal/record"
)

// ErrNotConfigured is returned when no client or model is set.
var ErrNotConfigured = errors.New("explanation filler not configured")

// ErrEmptyAnswer means the model returned no usable text.
var ErrEmptyAnswer = errors.New("empty explanation")

// ErrPromptTooLarge means the record does not fit the model context.
var ErrPromptTooLarge = errors.New("prompt exceeds model context")

// DefaultMaxTokens caps the length of a generated explanation.
const DefaultMaxTokens = 256

const defaultSystem = "You write short explanations for multiple-choice driving licence exam questions. " +
	"Answer in the language of the question. Use two or three plain sentences. " +
	"Do not restate the options and do not add headings."

// retryDelay is the pause before the single retry of a failed call.
var retryDelay = 200 * time.Millisecond

// Filler generates explanations for records that were scraped without one.
type Filler struct {
	Client llm.Client
	Cache  *cache.LLMCache
	Model  string
	// CacheOnly answers from cache and never calls the model.
	CacheOnly bool
	// SystemPrompt overrides the default system message when non-empty.
	SystemPrompt string
	// MaxTokens is reserved for the reply; DefaultMaxTokens when zero.
	MaxTokens int
}

// Fill returns a copy of recs where missing explanations are generated.
// Records are never modified in place, so the corpus and its dedup keys stay
// untouched. Per-record failures are logged and leave the explanation empty;
// the count of filled records is returned.
func (f *Filler) Fill(ctx context.Context, recs []record.CorpusRecord) ([]record.CorpusRecord, int, error) {
	if f == nil || f.Client == nil || strings.TrimSpace(f.Model) == "" {
		return nil, 0, ErrNotConfigured
	}
	out := make([]record.CorpusRecord, len(recs))
	copy(out, recs)
	filled := 0
	for i := range out {
		if strings.TrimSpace(out[i].Explanation) != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, filled, err
		}
		text, err := f.Explain(ctx, out[i])
		if err != nil {
			log.Warn().Err(err).Str("id", out[i].ID).Msg("explanation not generated")
			continue
		}
		out[i].Explanation = text
		filled++
	}
	return out, filled, nil
}

// Explain asks the model for an explanation of one record.
func (f *Filler) Explain(ctx context.Context, rec record.CorpusRecord) (string, error) {
	if f == nil || f.Client == nil || strings.TrimSpace(f.Model) == "" {
		return "", ErrNotConfigured
	}
	system := defaultSystem
	if strings.TrimSpace(f.SystemPrompt) != "" {
		system = f.SystemPrompt
	}
	user := buildUserMessage(rec)
	key := cache.KeyFrom(f.Model, system+"\n\n"+user)

	if f.Cache != nil {
		if raw, ok, _ := f.Cache.Get(ctx, key); ok {
			var cached struct {
				Explanation string `json:"explanation"`
			}
			if err := json.Unmarshal(raw, &cached); err == nil && strings.TrimSpace(cached.Explanation) != "" {
				log.Debug().Str("id", rec.ID).Msg("explanation from cache")
				return cached.Explanation, nil
			}
		}
	}
	if f.CacheOnly {
		return "", fmt.Errorf("cache miss: %w", ErrEmptyAnswer)
	}
	maxTokens := f.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if !budget.Fits(f.Model, maxTokens, budget.EstimatePromptTokens(system, user)) {
		return "", ErrPromptTooLarge
	}

	req := openai.ChatCompletionRequest{
		Model: f.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		MaxTokens:   maxTokens,
		N:           1,
	}
	resp, err := f.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryDelay):
		}
		resp, err = f.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", fmt.Errorf("explain call (after retry): %w", err)
		}
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyAnswer
	}
	if f.Cache != nil {
		payload, _ := json.Marshal(map[string]string{"explanation": text})
		if err := f.Cache.Save(ctx, key, payload); err != nil {
			log.Debug().Err(err).Msg("llm cache save failed")
		}
	}
	return text, nil
}

func buildUserMessage(rec record.CorpusRecord) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(rec.QuestionText)
	sb.WriteString("\nOptions:")
	for _, l := range record.OptionLabels {
		if t, ok := rec.Options[l]; ok {
			sb.WriteString("\n")
			sb.WriteString(l)
			sb.WriteString(") ")
			sb.WriteString(t)
		}
	}
	if rec.AnswerLabel != "" {
		sb.WriteString("\nCorrect answer: ")
		sb.WriteString(rec.AnswerLabel)
	}
	if rec.Category != "" {
		sb.WriteString("\nTopic: ")
		sb.WriteString(rec.Category)
	}
	sb.WriteString("\n\nExplain why the correct answer is right.")
	return sb.String()
}
