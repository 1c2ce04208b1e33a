// Package matching decides which marketplace product, if any, corresponds to a
// catalog card.
//
// Match is pure: given the same card, candidate list, and override table it
// always returns the same result. A stored manual override always wins over the
// automated selection, even when its product no longer appears among the
// candidates. Automated selection narrows candidates by card number, then walks
// an ordered list of art-style tiers; within a tier the first candidate in API
// order wins.
package matching
