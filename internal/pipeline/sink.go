package pipeline

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/hyperifyio/quizharvest/internal/record"
)

// JSONLSink streams records as one JSON object per line.
type JSONLSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	n   int
}

// NewJSONLSink writes to w. The caller owns w and closes it.
func NewJSONLSink(w io.Writer) *JSONLSink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLSink{enc: enc}
}

func (s *JSONLSink) Write(rec record.CorpusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rec); err != nil {
		return err
	}
	s.n++
	return nil
}

// Count reports how many records were written.
func (s *JSONLSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
