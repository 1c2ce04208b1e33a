package matching_test

import (
	"reflect"
	"strings"
	"testing"

	"pricesync/internal/artstyle"
	"pricesync/internal/catalog"
	"pricesync/internal/marketplace"
	"pricesync/internal/matching"
)

func newEngine(reprintSets ...string) *matching.Engine {
	reprint := make(map[string]bool)
	for _, id := range reprintSets {
		reprint[id] = true
	}
	return &matching.Engine{
		Classifier: artstyle.NewClassifier(nil),
		Lookup: artstyle.NewLookup(map[string]string{
			"p1": "alternate",
			"p2": "super",
			"p3": "red-super",
			"p4": "wanted",
		}, []string{"OP10-119_p3"}, nil),
		ReprintSets: reprint,
	}
}

func product(id int64, name, number string) marketplace.Product {
	return marketplace.Product{ProductID: id, Name: name, CardNumber: number}
}

func parallel(id, variant string) catalog.Card {
	base := id[:len(id)-len(variant)-1]
	setID, _, _ := strings.Cut(base, "-")
	return catalog.Card{ID: id, BaseID: base, SetID: setID, IsParallel: true, VariantCode: variant}
}

func automated(t *testing.T, r matching.Result) matching.Automated {
	t.Helper()
	got, ok := r.(matching.Automated)
	if !ok {
		t.Fatalf("expected Automated, got %T (%+v)", r, r)
	}
	return got
}

func TestNonParallelPrefersStandard(t *testing.T) {
	card := catalog.Card{ID: "OP13-118", BaseID: "OP13-118", SetID: "OP13"}
	candidates := []marketplace.Product{
		product(2, "Monkey.D.Luffy (Parallel)", "OP13-118"),
		product(1, "Monkey.D.Luffy", "OP13-118"),
	}
	result, trace := newEngine().Match(card, candidates, nil)
	got := automated(t, result)
	if got.Product.ProductID != 1 || got.Style != catalog.StyleStandard {
		t.Fatalf("expected standard product 1, got %+v", got)
	}
	if trace.Expected != catalog.StyleStandard || len(trace.Candidates) != 2 {
		t.Fatalf("unexpected trace %+v", trace)
	}
}

func TestNonParallelFallsBackToFirst(t *testing.T) {
	card := catalog.Card{ID: "OP01-001", BaseID: "OP01-001", SetID: "OP01"}
	candidates := []marketplace.Product{
		product(7, "Zoro (Alternate Art)", "OP01-001"),
		product(8, "Zoro (Manga)", "OP01-001"),
	}
	got := automated(t, mustMatch(newEngine(), card, candidates))
	if got.Product.ProductID != 7 || got.Rule != matching.RuleFirst {
		t.Fatalf("expected first candidate, got %+v", got)
	}
}

func TestWantedFallsBackToSuper(t *testing.T) {
	card := parallel("OP13-118_p4", "p4")
	candidates := []marketplace.Product{
		product(10, "Monkey.D.Luffy", "OP13-118"),
		product(11, "Monkey.D.Luffy (Super Alternate Art)", "OP13-118"),
	}
	result, trace := newEngine().Match(card, candidates, nil)
	got := automated(t, result)
	if got.Product.ProductID != 11 {
		t.Fatalf("expected super product, got %+v", got)
	}
	if trace.Expected != catalog.StyleWanted {
		t.Fatalf("expected wanted, got %s", trace.Expected)
	}
}

func TestRedSuperFallsBackToSuper(t *testing.T) {
	card := parallel("OP05-119_p3", "p3")
	candidates := []marketplace.Product{
		product(1, "Luffy (Alternate Art)", "OP05-119"),
		product(2, "Luffy (Super Alternate Art)", "OP05-119"),
	}
	got := automated(t, mustMatch(newEngine(), card, candidates))
	if got.Product.ProductID != 2 || got.Style != catalog.StyleSuper {
		t.Fatalf("expected super product, got %+v", got)
	}
}

func TestSuperDoesNotFallBackToWanted(t *testing.T) {
	card := parallel("OP05-119_p2", "p2")
	candidates := []marketplace.Product{
		product(1, "Luffy (Wanted Poster)", "OP05-119"),
		product(2, "Luffy (Red Super Alternate Art)", "OP05-119"),
	}
	got := automated(t, mustMatch(newEngine(), card, candidates))
	if got.Product.ProductID != 2 {
		t.Fatalf("expected red-super product, got %+v", got)
	}
}

func TestParallelPrefersNonStandardOverFirst(t *testing.T) {
	card := parallel("OP02-013_p1", "p1")
	candidates := []marketplace.Product{
		product(1, "Ace", "OP02-013"),
		product(2, "Ace (Treasure Rare)", "OP02-013"),
	}
	got := automated(t, mustMatch(newEngine(), card, candidates))
	if got.Product.ProductID != 2 || got.Rule != matching.RuleNonStandard {
		t.Fatalf("expected non-standard product, got %+v", got)
	}
}

func TestMangaAllowlistDrivesExpectedStyle(t *testing.T) {
	card := parallel("OP10-119_p3", "p3")
	candidates := []marketplace.Product{
		product(1, "Law (Red Super Alternate Art)", "OP10-119"),
		product(2, "Law (Manga)", "OP10-119"),
	}
	got := automated(t, mustMatch(newEngine(), card, candidates))
	if got.Product.ProductID != 2 {
		t.Fatalf("expected manga product, got %+v", got)
	}
}

func TestTiesResolveInAPIOrder(t *testing.T) {
	card := parallel("OP01-016_p1", "p1")
	candidates := []marketplace.Product{
		product(5, "Nami (Alternate Art)", "OP01-016"),
		product(3, "Nami (Parallel)", "OP01-016"),
	}
	got := automated(t, mustMatch(newEngine(), card, candidates))
	if got.Product.ProductID != 5 {
		t.Fatalf("expected first alternate in API order, got %+v", got)
	}
}

func TestReprintSetOrdering(t *testing.T) {
	engine := newEngine("PRB01")
	base := catalog.Card{ID: "PRB01-001", BaseID: "PRB01-001", SetID: "PRB01"}
	candidates := []marketplace.Product{
		product(1, "Sanji", "PRB01-001"),
		product(2, "Sanji (Reprint)", "PRB01-001"),
		product(3, "Sanji (Full Art)", "PRB01-001"),
		product(4, "Sanji (Jolly Roger Foil)", "PRB01-001"),
	}
	got := automated(t, mustMatch(engine, base, candidates))
	if got.Product.ProductID != 2 {
		t.Fatalf("expected reprint for non-parallel reprint-set card, got %+v", got)
	}

	par := parallel("PRB01-001_p1", "p1")
	got = automated(t, mustMatch(engine, par, candidates[:2]))
	if got.Product.ProductID != 2 {
		t.Fatalf("expected reprint tier before non-standard, got %+v", got)
	}
	got = automated(t, mustMatch(engine, par, candidates))
	if got.Product.ProductID != 3 {
		t.Fatalf("expected full-art tier first, got %+v", got)
	}
}

func TestOverrideConfirmed(t *testing.T) {
	card := parallel("OP06-106_p2", "p2")
	candidates := []marketplace.Product{
		product(1, "Kouzuki Hiyori (Super Alternate Art)", "OP06-106"),
		product(539501, "Kouzuki Hiyori (Manga)", "OP99-999"),
	}
	result, trace := newEngine().Match(card, candidates, map[string]int64{card.ID: 539501})
	got, ok := result.(matching.ManualConfirmed)
	if !ok {
		t.Fatalf("expected ManualConfirmed, got %T", result)
	}
	if got.Product.ProductID != 539501 || !trace.Override || trace.Rule != matching.RuleOverride {
		t.Fatalf("unexpected override result %+v trace %+v", got, trace)
	}
}

func TestOverrideOrphaned(t *testing.T) {
	card := parallel("OP06-106_p2", "p2")
	candidates := []marketplace.Product{
		product(1, "Kouzuki Hiyori (Super Alternate Art)", "OP06-106"),
	}
	result, _ := newEngine().Match(card, candidates, map[string]int64{card.ID: 539501})
	got, ok := result.(matching.ManualOrphaned)
	if !ok {
		t.Fatalf("expected ManualOrphaned, got %T", result)
	}
	if got.ProductID != 539501 || got.Kind() != matching.KindManualOrphaned {
		t.Fatalf("unexpected orphan %+v", got)
	}
	if _, ok := matching.ProductOf(result); ok {
		t.Fatal("orphaned result must not carry a product")
	}
}

func TestUnmatchedWhenNoNumberMatches(t *testing.T) {
	card := catalog.Card{ID: "OP01-002", BaseID: "OP01-002", SetID: "OP01"}
	result, trace := newEngine().Match(card, []marketplace.Product{product(1, "Other", "OP01-003")}, nil)
	if _, ok := result.(matching.Unmatched); !ok {
		t.Fatalf("expected Unmatched, got %T", result)
	}
	if trace.Rule != matching.RuleNoNumberMatch {
		t.Fatalf("unexpected rule %q", trace.Rule)
	}
}

func TestMatchIsDeterministic(t *testing.T) {
	engine := newEngine()
	card := parallel("OP13-118_p4", "p4")
	candidates := []marketplace.Product{
		product(10, "Monkey.D.Luffy", "OP13-118"),
		product(11, "Monkey.D.Luffy (Super Alternate Art)", "OP13-118"),
		product(12, "Monkey.D.Luffy (Alternate Art)", "OP13118"),
	}
	firstResult, firstTrace := engine.Match(card, candidates, nil)
	for range 5 {
		result, trace := engine.Match(card, candidates, nil)
		if !reflect.DeepEqual(result, firstResult) || !reflect.DeepEqual(trace, firstTrace) {
			t.Fatalf("match not deterministic: %+v vs %+v", result, firstResult)
		}
	}
}

func TestNumberMatches(t *testing.T) {
	cases := []struct {
		number string
		base   string
		want   bool
	}{
		{"OP13-118", "OP13-118", true},
		{" op13-118 ", "OP13-118", true},
		{"OP13118", "OP13-118", true},
		{"118", "OP13-118", true},
		{"0118", "OP13-118", true},
		{"1", "OP01-001", true},
		{"OP13-119", "OP13-118", false},
		{"18", "OP13-118", false},
		{"", "OP13-118", false},
		{"ST01-001", "OP01-001", false},
	}
	for _, tc := range cases {
		if got := matching.NumberMatches(tc.number, tc.base); got != tc.want {
			t.Errorf("NumberMatches(%q, %q) = %v, want %v", tc.number, tc.base, got, tc.want)
		}
	}
}

func mustMatch(engine *matching.Engine, card catalog.Card, candidates []marketplace.Product) matching.Result {
	result, _ := engine.Match(card, candidates, nil)
	return result
}
