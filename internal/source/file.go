package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hyperifyio/quizharvest/internal/htmlpage"
	"github.com/hyperifyio/quizharvest/internal/record"
)

// FilePages reads pages from a local file holding either a JSON array of
// pages or one JSON page per line. Pages that carry only HTML are converted
// to text on the way in.
func FilePages(path string) ([]Loader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pages, err := decodePages(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out := make([]Loader, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Text) == "" && strings.TrimSpace(p.HTML) != "" {
			conv := htmlpage.ToRawPage(p.URL, []byte(p.HTML), p.ExpectedQuestionCount)
			if len(p.Images) > 0 {
				conv.Images = p.Images
			}
			p = conv
		}
		out = append(out, Static{Page: p})
	}
	return out, nil
}

func decodePages(b []byte) ([]record.RawPage, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var pages []record.RawPage
		if err := json.Unmarshal(trimmed, &pages); err != nil {
			return nil, fmt.Errorf("decode pages: %w", err)
		}
		return pages, nil
	}
	var pages []record.RawPage
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		l := bytes.TrimSpace(sc.Bytes())
		if len(l) == 0 {
			continue
		}
		var p record.RawPage
		if err := json.Unmarshal(l, &p); err != nil {
			return nil, fmt.Errorf("decode page on line %d: %w", line, err)
		}
		pages = append(pages, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return pages, nil
}

// HTMLFile loads a saved HTML page from disk. URL is recorded as the page
// source and used to resolve relative image links; it defaults to a file URL.
type HTMLFile struct {
	Path     string
	URL      string
	Expected int
}

func (h HTMLFile) Name() string {
	if h.URL != "" {
		return h.URL
	}
	return h.Path
}

func (h HTMLFile) Load(ctx context.Context) (record.RawPage, error) {
	if strings.TrimSpace(h.Path) == "" {
		return record.RawPage{}, ErrEmptyPath
	}
	if err := ctx.Err(); err != nil {
		return record.RawPage{}, err
	}
	b, err := os.ReadFile(h.Path)
	if err != nil {
		return record.RawPage{}, err
	}
	u := h.URL
	if u == "" {
		u = "file://" + h.Path
	}
	return htmlpage.ToRawPage(u, b, h.Expected), nil
}
