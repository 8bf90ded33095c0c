package render

import "fmt"

// RenderError marks a display-generation failure. It never leaves the
// package: every render path degrades to a fallback artifact instead of
// propagating.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("render failed at %s", e.Stage)
	}
	return fmt.Sprintf("render failed at %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
