package processing

// Once is a cell that is written exactly once and may only be read after that write.
// The zero value is unset with an empty label.
type Once[T any] struct {
	label string
	value T
	set   bool
}

// NewOnce creates an unset cell. label names the value in contract errors, which read
// "<label> already set" and "<label> not set".
func NewOnce[T any](label string) Once[T] {
	return Once[T]{label: label}
}

// Set stores v. A second call fails and leaves the first value in place.
func (o *Once[T]) Set(v T) error {
	if o.set {
		return &ContractError{Invariant: o.label + " already set"}
	}
	o.value = v
	o.set = true
	return nil
}

// Get returns the stored value, failing if Set has not been called.
func (o *Once[T]) Get() (T, error) {
	if !o.set {
		var zero T
		return zero, &ContractError{Invariant: o.label + " not set"}
	}
	return o.value, nil
}

// IsSet reports whether Set has been called.
func (o *Once[T]) IsSet() bool {
	return o.set
}
