package process

import "fmt"

// ProcessingError marks a failure inside a processing step. Step carries the
// step name so the dashboard log can point at the failing stage.
type ProcessingError struct {
	Step string
	Err  error
}

func (e *ProcessingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("processing step %s failed", e.Step)
	}
	return fmt.Sprintf("processing step %s failed: %v", e.Step, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func stepError(step string, format string, args ...any) *ProcessingError {
	return &ProcessingError{Step: step, Err: fmt.Errorf(format, args...)}
}
