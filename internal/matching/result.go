package matching

import (
	"pricesync/internal/artstyle"
	"pricesync/internal/marketplace"
)

// Kind names a Result variant.
type Kind string

// Result kinds.
const (
	KindAutomated       Kind = "automated"
	KindManualConfirmed Kind = "manual_confirmed"
	KindManualOrphaned  Kind = "manual_orphaned"
	KindUnmatched       Kind = "unmatched"
)

// Result is the outcome of matching one card. It is one of Automated,
// ManualConfirmed, ManualOrphaned, or Unmatched.
type Result interface {
	Kind() Kind
	sealed()
}

// Automated is a product chosen by the selection rules.
type Automated struct {
	Product marketplace.Product
	Style   artstyle.Tag
	Rule    string
}

// ManualConfirmed is a human-confirmed product found among the candidates.
type ManualConfirmed struct {
	Product marketplace.Product
}

// ManualOrphaned is a human-confirmed product missing from the candidates.
// The override is kept and its prices are cleared.
type ManualOrphaned struct {
	ProductID int64
}

// Unmatched means no candidate carried the card's number.
type Unmatched struct {
	Reason string
}

func (Automated) Kind() Kind       { return KindAutomated }
func (ManualConfirmed) Kind() Kind { return KindManualConfirmed }
func (ManualOrphaned) Kind() Kind  { return KindManualOrphaned }
func (Unmatched) Kind() Kind       { return KindUnmatched }

func (Automated) sealed()       {}
func (ManualConfirmed) sealed() {}
func (ManualOrphaned) sealed()  {}
func (Unmatched) sealed()       {}

// ProductOf returns the product carried by a result, if any.
func ProductOf(r Result) (marketplace.Product, bool) {
	switch v := r.(type) {
	case Automated:
		return v.Product, true
	case ManualConfirmed:
		return v.Product, true
	default:
		return marketplace.Product{}, false
	}
}
