package ingestion

import "fmt"

// Error represents a polygon input document that could not be accepted.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ingestion error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("ingestion error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// FileReadError represents an input file that could not be read.
type FileReadError struct {
	Path  string
	Cause error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Cause)
}

func (e *FileReadError) Unwrap() error {
	return e.Cause
}
