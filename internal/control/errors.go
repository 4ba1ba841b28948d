// Package control provides the resolved control map: BEC zone regions and baseline
// component size limits used by the processing stages.
package control

import "fmt"

// LoadError represents an error reading or decoding a control map file.
type LoadError struct {
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("control map load error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("control map load error: %s", e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ResolveError reports an inconsistency found while resolving a raw control map.
type ResolveError struct {
	Section string
	Message string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("control map %s: %s", e.Section, e.Message)
}
