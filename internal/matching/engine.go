package matching

import (
	"strings"

	"pricesync/internal/artstyle"
	"pricesync/internal/catalog"
	"pricesync/internal/config"
	"pricesync/internal/marketplace"
)

// fallbackChains lists, per expected style, the tags to try in order. The
// chains are intentionally asymmetric.
var fallbackChains = map[artstyle.Tag][]artstyle.Tag{
	catalog.StyleAlternate:  {catalog.StyleAlternate},
	catalog.StyleSuper:      {catalog.StyleSuper, catalog.StyleRedSuper, catalog.StyleAlternate},
	catalog.StyleRedSuper:   {catalog.StyleRedSuper, catalog.StyleSuper, catalog.StyleAlternate},
	catalog.StyleWanted:     {catalog.StyleWanted, catalog.StyleSuper, catalog.StyleAlternate},
	catalog.StyleManga:      {catalog.StyleManga, catalog.StyleAlternate},
	catalog.StyleTreasure:   {catalog.StyleTreasure, catalog.StyleAlternate},
	catalog.StyleFullArt:    {catalog.StyleFullArt, catalog.StyleAlternate},
	catalog.StyleJollyRoger: {catalog.StyleJollyRoger, catalog.StyleAlternate},
	catalog.StyleReprint:    {catalog.StyleReprint, catalog.StyleStandard},
}

// Engine selects marketplace products for catalog cards.
type Engine struct {
	Classifier *artstyle.Classifier
	Lookup     artstyle.Lookup
	// ReprintSets holds upper-case ids of sets using reprint naming.
	ReprintSets map[string]bool
}

// NewEngine builds an engine from the matching and set configuration.
func NewEngine(cfg *config.Config) *Engine {
	reprint := make(map[string]bool)
	for id := range cfg.ReprintSets() {
		reprint[strings.ToUpper(id)] = true
	}
	return &Engine{
		Classifier:  artstyle.NewClassifier(nil),
		Lookup:      artstyle.NewLookup(cfg.Matching.VariantStyles, cfg.Matching.MangaCards, cfg.Matching.WantedCards),
		ReprintSets: reprint,
	}
}

// Match chooses the product for card among candidates. overrides maps card
// ids to human-confirmed product ids.
func (e *Engine) Match(card catalog.Card, candidates []marketplace.Product, overrides map[string]int64) (Result, Trace) {
	trace := Trace{CardID: card.ID}

	if productID, ok := overrides[card.ID]; ok {
		trace.Override = true
		for _, p := range candidates {
			if p.ProductID == productID {
				trace.Rule = RuleOverride
				trace.Winner = productID
				return ManualConfirmed{Product: p}, trace
			}
		}
		trace.Rule = RuleOverrideOrphaned
		return ManualOrphaned{ProductID: productID}, trace
	}

	classifier := e.Classifier
	if classifier == nil {
		classifier = artstyle.NewClassifier(nil)
	}
	filtered := make([]marketplace.Product, 0, len(candidates))
	tags := make([]artstyle.Tag, 0, len(candidates))
	for _, p := range candidates {
		if !NumberMatches(p.CardNumber, card.BaseID) {
			continue
		}
		tag := classifier.Classify(p.Name)
		filtered = append(filtered, p)
		tags = append(tags, tag)
		trace.Candidates = append(trace.Candidates, Considered{ProductID: p.ProductID, Name: p.Name, Tag: tag})
	}

	trace.Expected = catalog.StyleStandard
	if card.IsParallel {
		trace.Expected = e.Lookup.Expected(card)
	}
	trace.Reprint = e.ReprintSets[strings.ToUpper(card.SetID)]

	if len(filtered) == 0 {
		trace.Rule = RuleNoNumberMatch
		return Unmatched{Reason: "no candidate carries card number " + card.BaseID}, trace
	}

	pick := func(i int, rule string) (Result, Trace) {
		trace.Rule = rule
		trace.Winner = filtered[i].ProductID
		return Automated{Product: filtered[i], Style: tags[i], Rule: rule}, trace
	}

	for _, want := range preferenceOrder(card.IsParallel, trace.Expected, trace.Reprint) {
		for i, tag := range tags {
			if tag == want {
				return pick(i, styleRule(want))
			}
		}
	}
	if card.IsParallel {
		for i, tag := range tags {
			if tag != catalog.StyleStandard {
				return pick(i, RuleNonStandard)
			}
		}
	}
	return pick(0, RuleFirst)
}

func preferenceOrder(parallel bool, expected artstyle.Tag, reprint bool) []artstyle.Tag {
	if !parallel {
		if reprint {
			return []artstyle.Tag{catalog.StyleReprint, catalog.StyleStandard}
		}
		return []artstyle.Tag{catalog.StyleStandard}
	}
	chain, ok := fallbackChains[expected]
	if !ok {
		chain = []artstyle.Tag{expected}
	}
	if !reprint {
		return chain
	}
	order := []artstyle.Tag{expected, catalog.StyleFullArt, catalog.StyleJollyRoger, catalog.StyleReprint}
	order = append(order, chain...)
	return dedupTags(order)
}

func dedupTags(tags []artstyle.Tag) []artstyle.Tag {
	seen := make(map[artstyle.Tag]struct{}, len(tags))
	out := tags[:0]
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
