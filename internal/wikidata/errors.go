package wikidata

import "fmt"

// FetchError reports that the query service could not answer for one entity.
// It carries the entity identifier so callers can decide whether to retry,
// forbid the node, or abort.
type FetchError struct {
	// EntityID is the identifier whose lookup failed.
	EntityID string
	// StatusCode is the HTTP status returned by the endpoint, or zero when the
	// request never produced a response.
	StatusCode int
	// Err is the underlying cause, if any.
	Err error
}

// Error renders the fetch failure including the failing entity identifier.
func (fetchError *FetchError) Error() string {
	if fetchError.StatusCode != 0 {
		return fmt.Sprintf("wikidata: fetch %s: endpoint returned status %d", fetchError.EntityID, fetchError.StatusCode)
	}
	return fmt.Sprintf("wikidata: fetch %s: %v", fetchError.EntityID, fetchError.Err)
}

// Unwrap exposes the underlying cause for errors.Is and errors.As.
func (fetchError *FetchError) Unwrap() error {
	return fetchError.Err
}
