// Package bank provides the per-species, per-utilization-class numeric state of one layer.
package bank

import "fmt"

// IndexError reports a species index outside 0..NSpecies.
type IndexError struct {
	Index    int
	NSpecies int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("species index %d out of range 0..%d", e.Index, e.NSpecies)
}

// BuildError represents an error while building a bank from layer data or writing it back.
type BuildError struct {
	Message string
	Cause   error
}

func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("bank error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("bank error: %s", e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}
