package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

// ErrCatalogMissing indicates the catalog file does not exist or is empty.
var ErrCatalogMissing = errors.New("card catalog missing")

var (
	variantSuffix = regexp.MustCompile(`(?i)_(p\d+|r\d+)$`)
	setPrefix     = regexp.MustCompile(`^([A-Za-z]+\d*)-`)
)

// Load reads the scraper's JSON output from path.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: no catalog path configured", ErrCatalogMissing)
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogMissing, path)
		}
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()

	cat, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Decode parses a catalog from either a bare JSON array of cards or an object
// with a "cards" array. Cards without an id are dropped; missing base ids, set
// ids and variant codes are derived from the card id.
func Decode(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrCatalogMissing
	}

	var cards []Card
	if data[0] == '[' {
		if err := json.Unmarshal(data, &cards); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
	} else {
		var wrapper struct {
			Cards []Card `json:"cards"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decode catalog: %w", err)
		}
		cards = wrapper.Cards
	}

	out := make([]Card, 0, len(cards))
	seen := make(map[string]struct{}, len(cards))
	for _, card := range cards {
		card = normalizeCard(card)
		if card.ID == "" {
			continue
		}
		if _, dup := seen[card.ID]; dup {
			continue
		}
		seen[card.ID] = struct{}{}
		out = append(out, card)
	}
	return &Catalog{Cards: out}, nil
}

func normalizeCard(card Card) Card {
	card.ID = strings.TrimSpace(card.ID)
	card.BaseID = strings.ToUpper(strings.TrimSpace(card.BaseID))
	card.SetID = strings.ToUpper(strings.TrimSpace(card.SetID))
	card.Name = strings.TrimSpace(card.Name)
	card.VariantCode = strings.ToLower(strings.TrimSpace(card.VariantCode))
	card.ArtStyle = ParseArtStyle(string(card.ArtStyle))

	if card.VariantCode == "" {
		if m := variantSuffix.FindStringSubmatch(card.ID); m != nil {
			card.VariantCode = strings.ToLower(m[1])
		}
	}
	if card.BaseID == "" {
		card.BaseID = strings.ToUpper(variantSuffix.ReplaceAllString(card.ID, ""))
	}
	if card.SetID == "" {
		if m := setPrefix.FindStringSubmatch(card.BaseID); m != nil {
			card.SetID = strings.ToUpper(m[1])
		}
	}
	if strings.HasPrefix(card.VariantCode, "p") {
		card.IsParallel = true
	}
	return card
}

// NewCard builds a card from its printing id, deriving base id, set id,
// variant code, and parallel flag as Decode does.
func NewCard(id, name string) Card {
	return normalizeCard(Card{ID: id, Name: name})
}
