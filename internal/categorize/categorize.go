package categorize

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/quizharvest/internal/normalize"
	"github.com/hyperifyio/quizharvest/internal/record"
)

// Rule maps a category to the keywords that select it.
type Rule struct {
	Category string   `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DefaultRules is the rule set for Turkish driver-licence exams. Order is
// significant: braking precedes general mechanics, first aid precedes traffic.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "ilk yardım", Keywords: []string{"ilk yardım", "ilkyardım", "yaralı", "kanama", "kırık", "çıkık", "burkulma", "suni solunum", "kalp masajı", "bilinç", "yanık", "zehirlen", "turnike", "solunum", "nabız", "koma"}},
		{Category: "fren sistemi", Keywords: []string{"fren", "balata", "abs", "kampana", "disk fren", "el freni"}},
		{Category: "motor ve araç tekniği", Keywords: []string{"motor", "yağ ", "yağlama", "akü", "buji", "radyatör", "antifriz", "lastik", "debriyaj", "şanzıman", "vites", "karbüratör", "enjektör", "egzoz", "silindir", "krank", "amortisör", "direksiyon", "far ", "farlar", "sigorta", "alternatör", "marş"}},
		{Category: "trafik adabı", Keywords: []string{"trafik adabı", "adap", "saygı", "nezaket", "hoşgörü", "empati", "sabır", "öfke", "sorumluluk"}},
		{Category: "trafik ve çevre bilgisi", Keywords: []string{"işaret", "levha", "dur ", "durma", "durak", "kavşak", "şerit", "hız sınırı", "geçiş hakkı", "geçiş üstünlüğü", "trafik", "yaya", "park", "sollama", "otoyol", "hemzemin", "ışık", "ışıklı", "kara yolu", "karayolu", "sürücü belgesi", "ehliyet", "çevre"}},
	}
}

type compiledRule struct {
	category string
	keywords []string
}

// Categorizer assigns exactly one category per record.
type Categorizer struct {
	rules []compiledRule
}

// New compiles rules. An empty slice means DefaultRules.
func New(rules []Rule) *Categorizer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	c := &Categorizer{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		name := strings.TrimSpace(r.Category)
		if name == "" {
			continue
		}
		cr := compiledRule{category: name}
		for _, k := range r.Keywords {
			// A trailing space in a keyword asks for a whole word ("far " but not "farklı").
			whole := strings.HasSuffix(k, " ")
			f := normalize.Fold(k)
			if f == "" {
				continue
			}
			if whole {
				f += " "
			}
			cr.keywords = append(cr.keywords, f)
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// Match returns the first category whose keywords occur in text. A keyword
// matches at a word start, so "dur" matches "durmak" but not "ağırdur".
func (c *Categorizer) Match(text string) (string, bool) {
	padded := " " + strings.ReplaceAll(normalize.Fold(text), "?", " ") + " "
	for _, r := range c.rules {
		for _, k := range r.keywords {
			if strings.Contains(padded, " "+k) {
				return r.category, true
			}
		}
	}
	return "", false
}

// Categorize returns the matching rule category, else the scraped tag, else
// "uncategorized". It never returns an empty string.
func (c *Categorizer) Categorize(rec record.EnrichedRecord) string {
	if cat, ok := c.Match(rec.QuestionText); ok {
		return cat
	}
	if raw := strings.TrimSpace(rec.CategoryRaw); raw != "" {
		return raw
	}
	return record.Uncategorized
}

// Categories lists rule categories in evaluation order.
func (c *Categorizer) Categories() []string {
	out := make([]string, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r.category)
	}
	return out
}

// LoadRules reads an ordered rule list from a YAML file, either a bare list or
// a document with a top-level "categories" key.
func LoadRules(path string) ([]Rule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Categories []Rule `yaml:"categories"`
	}
	if err := yaml.Unmarshal(b, &doc); err == nil && len(doc.Categories) > 0 {
		return doc.Categories, nil
	}
	var list []Rule
	if err := yaml.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("parse category rules: %w", err)
	}
	return list, nil
}
