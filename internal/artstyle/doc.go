// Package artstyle derives canonical art-style tags from marketplace product
// names and from a card's catalog fields.
//
// Classification is an ordered list of substring rules; the first rule whose
// phrase appears in the normalized product name decides the tag, so more
// specific phrases ("red super alternate") must precede the generic ones
// ("alternate"). Expected styles for catalog cards come from a Lookup built
// from configuration rather than package state, so tests can swap fixtures.
package artstyle
