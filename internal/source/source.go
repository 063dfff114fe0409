package source

import (
	"context"
	"errors"

	"github.com/hyperifyio/quizharvest/internal/record"
)

// ErrEmptyPath is returned by file loaders configured without a path.
var ErrEmptyPath = errors.New("source path is empty")

// Loader produces one page for the engine.
type Loader interface {
	Load(ctx context.Context) (record.RawPage, error)
	// Name identifies the loader in logs and the run summary.
	Name() string
}

// Static is a loader for a page that is already in memory.
type Static struct {
	Page record.RawPage
}

func (s Static) Name() string { return s.Page.URL }

func (s Static) Load(ctx context.Context) (record.RawPage, error) {
	if err := ctx.Err(); err != nil {
		return record.RawPage{}, err
	}
	return s.Page, nil
}
