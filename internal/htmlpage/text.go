package htmlpage

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hyperifyio/quizharvest/internal/record"
)

// Document is the readable content of a page plus the images found inside it.
type Document struct {
	Title  string
	Text   string
	Images []record.Image
}

// Private-use runes bracket image placeholders while text is collected; they
// survive whitespace normalization and are stripped afterwards.
const (
	markOpen  = '\uE000'
	markClose = '\uE001'
)

// FromHTML extracts readable text from HTML, preferring <main> or <article>,
// falling back to <body>. Block elements become line breaks so numbered and
// lettered lines survive; <nav>, <footer> and consent banners are skipped.
// Images inside the content root are returned with their text offset.
func FromHTML(pageURL string, input []byte) Document {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil || len(doc.Nodes) == 0 {
		return Document{}
	}
	root := doc.Nodes[0]
	title := strings.TrimSpace(doc.Find("head title").First().Text())

	content := findFirst(root, "main")
	if content == nil {
		content = findFirst(root, "article")
	}
	if content == nil {
		content = findFirst(root, "body")
	}
	if content == nil {
		return Document{Title: title}
	}

	found := discoverImages(pageURL, doc.FindNodes(content))
	w := &walker{images: found, index: map[*html.Node]int{}}
	var b strings.Builder
	w.collectText(&b, content, false)
	text, positions := stripMarkers(normalizeWhitespace(b.String()))

	images := make([]record.Image, 0, len(w.order))
	for _, n := range w.order {
		img := found[n]
		if pos, ok := positions[w.index[n]]; ok {
			p := pos
			img.Position = &p
		}
		images = append(images, img)
	}
	return Document{Title: title, Text: text, Images: images}
}

// ToRawPage converts an HTML document into the engine's page input.
func ToRawPage(pageURL string, input []byte, expected int) record.RawPage {
	d := FromHTML(pageURL, input)
	return record.RawPage{
		URL:                   pageURL,
		Text:                  d.Text,
		HTML:                  string(input),
		Images:                d.Images,
		ExpectedQuestionCount: expected,
	}
}

type walker struct {
	images map[*html.Node]record.Image
	index  map[*html.Node]int
	order  []*html.Node
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if res := findFirst(c, tag); res != nil {
			return res
		}
	}
	return nil
}

func (w *walker) collectText(b *strings.Builder, n *html.Node, inPre bool) {
	if n.Type == html.ElementNode {
		if isBoilerplateContainer(n) {
			return
		}
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe", "form", "button":
			return
		case "img":
			if _, ok := w.images[n]; ok {
				w.index[n] = len(w.order)
				w.order = append(w.order, n)
				b.WriteRune(markOpen)
				b.WriteString(strconv.Itoa(w.index[n]))
				b.WriteRune(markClose)
			}
			return
		case "pre", "code":
			inPre = true
		case "br", "hr":
			b.WriteString("\n")
		case "p", "div", "section", "h1", "h2", "h3", "h4", "h5", "h6", "li", "ul", "ol", "tr", "label", "dt", "dd":
			b.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		data := n.Data
		if !inPre {
			data = strings.ReplaceAll(data, "\t", " ")
			data = strings.ReplaceAll(data, "\r", " ")
		}
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.collectText(b, c, inPre)
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n\n")
		case "li", "div", "section", "tr", "label", "dt", "dd":
			b.WriteString("\n")
		case "pre", "code":
			b.WriteString("\n")
		}
	}
}

// isBoilerplateContainer returns true if the element looks like a cookie/consent banner.
func isBoilerplateContainer(n *html.Node) bool {
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		if key != "id" && key != "class" && !strings.HasPrefix(key, "data-") && key != "aria-label" && key != "role" {
			continue
		}
		if containsAny(strings.ToLower(attr.Val), []string{"cookie", "consent", "gdpr"}) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}

// stripMarkers removes image placeholders and returns the byte offset each
// image had in the cleaned text.
func stripMarkers(s string) (string, map[int]int) {
	positions := map[int]int{}
	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.IndexRune(s, markOpen)
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		rest := s[i+len(string(markOpen)):]
		j := strings.IndexRune(rest, markClose)
		if j < 0 {
			b.WriteString(rest)
			break
		}
		if n, err := strconv.Atoi(rest[:j]); err == nil {
			positions[n] = b.Len()
		}
		s = rest[j+len(string(markClose)):]
	}
	return b.String(), positions
}
