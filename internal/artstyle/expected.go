package artstyle

import (
	"strings"

	"pricesync/internal/catalog"
)

// Lookup holds the configuration tables used to derive a card's expected style.
type Lookup struct {
	// VariantStyles maps a positional variant code (p1..p4) to a tag.
	VariantStyles map[string]Tag
	MangaCards    map[string]struct{}
	WantedCards   map[string]struct{}
}

// NewLookup builds a Lookup from configuration values. Unknown style names are ignored.
func NewLookup(variantStyles map[string]string, mangaCards, wantedCards []string) Lookup {
	lookup := Lookup{
		VariantStyles: make(map[string]Tag, len(variantStyles)),
		MangaCards:    toSet(mangaCards),
		WantedCards:   toSet(wantedCards),
	}
	for code, style := range variantStyles {
		tag := catalog.ParseArtStyle(style)
		if !tag.Valid() {
			continue
		}
		lookup.VariantStyles[strings.ToLower(strings.TrimSpace(code))] = tag
	}
	return lookup
}

// Expected returns the tag a marketplace product for card should carry.
func (l Lookup) Expected(card catalog.Card) Tag {
	switch card.ArtStyle {
	case catalog.StyleManga, catalog.StyleWanted:
		return card.ArtStyle
	}
	if _, ok := l.MangaCards[card.ID]; ok {
		return catalog.StyleManga
	}
	if _, ok := l.WantedCards[card.ID]; ok {
		return catalog.StyleWanted
	}
	if !card.IsParallel {
		return catalog.StyleStandard
	}
	if tag, ok := l.VariantStyles[strings.ToLower(card.VariantCode)]; ok {
		return tag
	}
	if card.ArtStyle.Valid() && card.ArtStyle != catalog.StyleStandard {
		return card.ArtStyle
	}
	return catalog.StyleAlternate
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}
