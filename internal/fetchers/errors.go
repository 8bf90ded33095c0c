package fetchers

import "fmt"

// FetchError marks a failure to acquire data, remote or local. Source names
// the provider, collection or file involved so the dashboard log can point
// at the failing input.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch failed for %s", e.Source)
	}
	return fmt.Sprintf("fetch failed for %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
