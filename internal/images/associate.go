package images

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperifyio/quizharvest/internal/record"
)

// Defaults for Associator.
const (
	DefaultThreshold = 0.5
	DefaultMinSize   = 32
	DefaultWindow    = 400
)

const (
	numberWeight = 0.6
	insideWeight = 0.5
	nearWeight   = 0.3
)

var digitsRe = regexp.MustCompile(`\d+`)

// Associator attaches page images to the records they illustrate. An image
// goes to the single best-scoring record above Threshold or to nobody.
type Associator struct {
	Threshold float64
	// MinSize drops icons whose known width and height are both below it.
	MinSize int
	// Window is the distance in text bytes over which position closeness decays.
	Window int
}

// Associate returns, for each record, the images assigned to it, plus the
// images left unattached.
func (a Associator) Associate(page record.RawPage, recs []record.ExtractionRecord) ([][]record.Image, []record.Image) {
	a = a.withDefaults()
	attached := make([][]record.Image, len(recs))
	discarded := []record.Image{}
	for _, img := range page.Images {
		if a.tooSmall(img) || len(recs) == 0 {
			discarded = append(discarded, img)
			continue
		}
		tokens := numericTokens(img)
		best, bestScore, tie := -1, 0.0, false
		for i, r := range recs {
			s := a.Score(img, tokens, r)
			switch {
			case s > bestScore:
				best, bestScore, tie = i, s, false
			case s == bestScore && s > 0:
				tie = true
			}
		}
		if best < 0 || tie || bestScore < a.Threshold {
			discarded = append(discarded, img)
			continue
		}
		attached[best] = append(attached[best], img)
	}
	return attached, discarded
}

// Score rates how well img fits r. tokens are the numeric tokens of img.
func (a Associator) Score(img record.Image, tokens []int, r record.ExtractionRecord) float64 {
	a = a.withDefaults()
	score := 0.0
	ord := r.Ordinal()
	for _, t := range tokens {
		if t == ord {
			score += numberWeight
			break
		}
	}
	if img.Position != nil && r.End > r.Start {
		pos := *img.Position
		if pos >= r.Start && pos < r.End {
			score += insideWeight
		} else {
			d := r.Start - pos
			if pos >= r.End {
				d = pos - r.End
			}
			if d < a.Window {
				score += nearWeight * (1 - float64(d)/float64(a.Window))
			}
		}
	}
	return score
}

func (a Associator) withDefaults() Associator {
	if a.Threshold <= 0 {
		a.Threshold = DefaultThreshold
	}
	if a.MinSize < 0 {
		a.MinSize = 0
	} else if a.MinSize == 0 {
		a.MinSize = DefaultMinSize
	}
	if a.Window <= 0 {
		a.Window = DefaultWindow
	}
	return a
}

func (a Associator) tooSmall(img record.Image) bool {
	return img.Width > 0 && img.Height > 0 && img.Width < a.MinSize && img.Height < a.MinSize
}

// numericTokens returns the numbers found in the image file name and alt text.
func numericTokens(img record.Image) []int {
	name := img.URL
	if u, err := url.Parse(img.URL); err == nil {
		name = u.Path
	}
	name = strings.TrimSuffix(path.Base(name), path.Ext(name))
	var out []int
	for _, src := range []string{name, img.Alt} {
		for _, d := range digitsRe.FindAllString(src, -1) {
			if len(d) > 4 {
				continue
			}
			if n, err := strconv.Atoi(d); err == nil {
				out = append(out, n)
			}
		}
	}
	return out
}
