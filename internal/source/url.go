package source

import (
	"context"
	"fmt"

	"github.com/hyperifyio/quizharvest/internal/htmlpage"
	"github.com/hyperifyio/quizharvest/internal/record"
	"github.com/hyperifyio/quizharvest/internal/robots"
)

// Getter fetches a page body. *fetch.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Gatekeeper reports whether a URL may be fetched. *robots.Gate satisfies it.
type Gatekeeper interface {
	Allowed(ctx context.Context, url string) (bool, error)
}

// URLPage loads a live page over HTTP. A nil Gate fetches unconditionally.
type URLPage struct {
	URL      string
	Client   Getter
	Gate     Gatekeeper
	Expected int
}

func (u URLPage) Name() string { return u.URL }

func (u URLPage) Load(ctx context.Context) (record.RawPage, error) {
	if u.Gate != nil {
		ok, err := u.Gate.Allowed(ctx, u.URL)
		if err != nil {
			return record.RawPage{}, fmt.Errorf("robots %s: %w", u.URL, err)
		}
		if !ok {
			return record.RawPage{}, fmt.Errorf("%s: %w", u.URL, robots.ErrDisallowed)
		}
	}
	body, _, err := u.Client.Get(ctx, u.URL)
	if err != nil {
		return record.RawPage{}, fmt.Errorf("fetch %s: %w", u.URL, err)
	}
	return htmlpage.ToRawPage(u.URL, body, u.Expected), nil
}

// URLs wraps each url in a URLPage sharing client and gate.
func URLs(urls []string, client Getter, gate Gatekeeper, expected int) []Loader {
	out := make([]Loader, 0, len(urls))
	for _, u := range urls {
		out = append(out, URLPage{URL: u, Client: client, Gate: gate, Expected: expected})
	}
	return out
}
