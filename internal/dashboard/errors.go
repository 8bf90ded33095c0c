package dashboard

import (
	"errors"
	"fmt"
)

// ErrNoData signals an operation that requires fetched data before it can
// run. The HTTP layer surfaces it as "Please fetch data first".
var ErrNoData = errors.New("no data fetched yet")

// ErrBusy signals that another user-triggered operation currently holds the
// dashboard.
var ErrBusy = errors.New("an operation is already running")

// MissingInputError reports a required user input, such as an uploaded file,
// that has not been provided.
type MissingInputError struct {
	Input string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required input: %s", e.Input)
}
