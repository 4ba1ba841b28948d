// Package processing provides the polygon and layer processing state shared by every
// stage engine: the owned banks, the write-once compatibility variables and the
// ordered execution steps.
package processing

import (
	"errors"
	"fmt"
)

const compatibilityVariablesLabel = "compatibility variables"

// Invariants reported by ContractError.
const (
	InvariantMissingPrimaryLayer     = "missing primary layer"
	InvariantPolygonNotSet           = "polygon not set"
	InvariantSpeciesIndexOutOfRange  = "species index out of range"
	InvariantCompatibilityShape      = "compatibility variables shape"
	InvariantNoPredecessor           = "no predecessor step"
	InvariantNoSuccessor             = "no successor step"
	InvariantUnknownStep             = "unknown execution step"
	InvariantCompatibilityAlreadySet = compatibilityVariablesLabel + " already set"
	InvariantCompatibilityNotSet     = compatibilityVariablesLabel + " not set"
	InvariantCompatibilityKey        = compatibilityVariablesLabel + " key out of range"
	InvariantPolygonMismatch         = "polygon mismatch"
	InvariantStepDependencies        = "execution step dependencies not met"
)

// ContractError is a violated programming contract. It indicates a caller or ordering
// bug and is never retried: the batch stops at the first one.
type ContractError struct {
	Invariant string
	Detail    string
}

func (e *ContractError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("contract violation: %s: %s", e.Invariant, e.Detail)
	}
	return fmt.Sprintf("contract violation: %s", e.Invariant)
}

// Error is a processing failure for one polygon, such as malformed input or a missing
// baseline. The batch driver records the polygon as failed and moves on.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("processing error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("processing error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsContractError reports whether err carries a ContractError anywhere in its chain.
func IsContractError(err error) bool {
	var contractErr *ContractError
	return errors.As(err, &contractErr)
}

// Invariant returns the violated invariant in err's chain, or "" when there is none.
func Invariant(err error) string {
	var contractErr *ContractError
	if errors.As(err, &contractErr) {
		return contractErr.Invariant
	}
	return ""
}

func contractf(invariant, format string, args ...any) *ContractError {
	return &ContractError{Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}
