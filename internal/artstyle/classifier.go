package artstyle

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"pricesync/internal/catalog"
)

// Tag is a canonical art-style tag. It shares its values with catalog.ArtStyle.
type Tag = catalog.ArtStyle

// Rule maps a phrase found in a product name to a tag.
type Rule struct {
	Pattern string
	Tag     Tag
}

// DefaultRules is evaluated top to bottom; order encodes specificity.
var DefaultRules = []Rule{
	{Pattern: "red super alternate", Tag: catalog.StyleRedSuper},
	{Pattern: "super alternate", Tag: catalog.StyleSuper},
	{Pattern: "manga", Tag: catalog.StyleManga},
	{Pattern: "wanted", Tag: catalog.StyleWanted},
	{Pattern: "treasure", Tag: catalog.StyleTreasure},
	{Pattern: "jolly roger", Tag: catalog.StyleJollyRoger},
	{Pattern: "full art", Tag: catalog.StyleFullArt},
	{Pattern: "reprint", Tag: catalog.StyleReprint},
	{Pattern: "alternate art", Tag: catalog.StyleAlternate},
	{Pattern: "alternate", Tag: catalog.StyleAlternate},
	{Pattern: "alt art", Tag: catalog.StyleAlternate},
	{Pattern: "parallel", Tag: catalog.StyleAlternate},
}

// Classifier assigns tags to product names.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier over rules; nil or empty uses DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	normalized := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := Normalize(rule.Pattern)
		if pattern == "" {
			continue
		}
		normalized = append(normalized, Rule{Pattern: pattern, Tag: rule.Tag})
	}
	return &Classifier{rules: normalized}
}

// Classify returns the tag of the first rule matching name, or standard.
func (c *Classifier) Classify(name string) Tag {
	text := Normalize(name)
	for _, rule := range c.rules {
		if strings.Contains(text, rule.Pattern) {
			return rule.Tag
		}
	}
	return catalog.StyleStandard
}

var separators = strings.NewReplacer("-", " ", "_", " ", "(", " ", ")", " ", "[", " ", "]", " ")

// Normalize folds case and compatibility forms and collapses separators to
// single spaces, so "Red Super-Alternate Art" and "ＲＥＤ super alternate" compare equal.
func Normalize(value string) string {
	folded := cases.Fold().String(norm.NFKC.String(value))
	return strings.Join(strings.Fields(separators.Replace(folded)), " ")
}
