package htmlpage

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hyperifyio/quizharvest/internal/record"
)

// lazy-loading attributes checked when src is missing or a data: placeholder
var srcAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

// discoverImages collects <img> elements under sel keyed by node, with URLs
// resolved against pageURL.
func discoverImages(pageURL string, sel *goquery.Selection) map[*html.Node]record.Image {
	base, _ := url.Parse(strings.TrimSpace(pageURL))
	out := map[*html.Node]record.Image{}
	sel.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := imageSource(s)
		if src == "" {
			return
		}
		if base != nil {
			if ref, err := url.Parse(src); err == nil {
				src = base.ResolveReference(ref).String()
			}
		}
		out[s.Nodes[0]] = record.Image{
			URL:    src,
			Alt:    strings.TrimSpace(s.AttrOr("alt", s.AttrOr("title", ""))),
			Width:  dimension(s.AttrOr("width", "")),
			Height: dimension(s.AttrOr("height", "")),
		}
	})
	return out
}

func imageSource(s *goquery.Selection) string {
	for _, a := range srcAttrs {
		v := strings.TrimSpace(s.AttrOr(a, ""))
		if v == "" || strings.HasPrefix(v, "data:") {
			continue
		}
		return v
	}
	return ""
}

func dimension(v string) int {
	v = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(v)), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
