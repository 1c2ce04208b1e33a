package marketplace

import (
	"errors"
	"fmt"
)

// ErrHTMLResponse indicates the marketplace answered with an HTML page instead
// of JSON, which is how it signals throttling.
var ErrHTMLResponse = errors.New("marketplace returned html instead of json")

// ErrMaxPages indicates pagination stopped at the page guard while the
// marketplace still reported full pages, so later products were not seen.
var ErrMaxPages = errors.New("max pages reached with more results pending")

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("marketplace returned status %d", e.Code)
}

// AliasError records why pagination for one set alias ended early.
type AliasError struct {
	Alias string
	Page  int
	Err   error
}

func (e *AliasError) Error() string {
	return fmt.Sprintf("alias %q page %d: %v", e.Alias, e.Page, e.Err)
}

func (e *AliasError) Unwrap() error { return e.Err }

// AliasErrors extracts every *AliasError from a (possibly joined) error.
func AliasErrors(err error) []*AliasError {
	if err == nil {
		return nil
	}
	var out []*AliasError
	var aliasErr *AliasError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			out = append(out, AliasErrors(inner)...)
		}
		return out
	}
	if errors.As(err, &aliasErr) {
		out = append(out, aliasErr)
	}
	return out
}
