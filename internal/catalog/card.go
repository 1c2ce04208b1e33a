package catalog

import (
	"sort"
	"strings"
)

// ArtStyle is the print treatment of a specific card printing.
type ArtStyle string

// Known art styles.
const (
	StyleUnknown    ArtStyle = ""
	StyleStandard   ArtStyle = "standard"
	StyleAlternate  ArtStyle = "alternate"
	StyleManga      ArtStyle = "manga"
	StyleSuper      ArtStyle = "super"
	StyleRedSuper   ArtStyle = "red-super"
	StyleWanted     ArtStyle = "wanted"
	StyleTreasure   ArtStyle = "treasure"
	StyleFullArt    ArtStyle = "full-art"
	StyleJollyRoger ArtStyle = "jolly-roger"
	StyleReprint    ArtStyle = "reprint"
)

var knownStyles = map[ArtStyle]struct{}{
	StyleStandard: {}, StyleAlternate: {}, StyleManga: {}, StyleSuper: {}, StyleRedSuper: {},
	StyleWanted: {}, StyleTreasure: {}, StyleFullArt: {}, StyleJollyRoger: {}, StyleReprint: {},
}

// ParseArtStyle normalizes a free-form style value. Unknown values map to StyleUnknown.
func ParseArtStyle(value string) ArtStyle {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	switch normalized {
	case "alt", "alt-art", "alternate-art", "parallel":
		return StyleAlternate
	case "super-alternate", "super-alt", "sp":
		return StyleSuper
	case "red-super-alternate", "red-super-alt":
		return StyleRedSuper
	case "wanted-poster":
		return StyleWanted
	}
	style := ArtStyle(normalized)
	if _, ok := knownStyles[style]; ok {
		return style
	}
	return StyleUnknown
}

// Valid reports whether s is one of the known styles.
func (s ArtStyle) Valid() bool {
	_, ok := knownStyles[s]
	return ok
}

// Card is one specific printing of a trading card.
type Card struct {
	// ID is unique per printing: the base code plus an optional variant suffix (OP13-118_p1).
	ID string `json:"id"`
	// BaseID is the physical card number shared by all art variants.
	BaseID      string   `json:"baseId"`
	SetID       string   `json:"setId"`
	Name        string   `json:"name"`
	IsParallel  bool     `json:"isParallel"`
	ArtStyle    ArtStyle `json:"artStyle,omitempty"`
	VariantCode string   `json:"variantCode,omitempty"`
}

// Catalog is the in-memory card list, kept in file order.
type Catalog struct {
	Cards []Card
}

// SetIDs returns the distinct set ids present in the catalog, sorted.
func (c *Catalog) SetIDs() []string {
	seen := make(map[string]struct{})
	for _, card := range c.Cards {
		seen[card.SetID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BySet groups cards by set id, preserving catalog order within each set.
func (c *Catalog) BySet() map[string][]Card {
	out := make(map[string][]Card)
	for _, card := range c.Cards {
		out[card.SetID] = append(out[card.SetID], card)
	}
	return out
}

// Filter returns the cards whose set matches setID (when non-empty, case-insensitive)
// and whose id contains cardSubstring (when non-empty, case-insensitive).
func (c *Catalog) Filter(setID, cardSubstring string) []Card {
	setID = strings.TrimSpace(setID)
	cardSubstring = strings.ToLower(strings.TrimSpace(cardSubstring))
	out := make([]Card, 0, len(c.Cards))
	for _, card := range c.Cards {
		if setID != "" && !strings.EqualFold(card.SetID, setID) {
			continue
		}
		if cardSubstring != "" && !strings.Contains(strings.ToLower(card.ID), cardSubstring) {
			continue
		}
		out = append(out, card)
	}
	return out
}
