// Package marketplace talks to the secondary marketplace's product search and
// latest-sales endpoints and normalizes their payloads into Product and Sale
// values.
//
// Search pagination is sequential per set alias and paced by a shared rate
// limiter. The marketplace answers throttled requests with an HTML interstitial
// instead of JSON; such a response, like any non-success status, ends the
// affected alias (or yields no sale for the affected product) without
// discarding data already collected. Partial failures are returned as joined
// *AliasError values next to the products that were gathered.
package marketplace
