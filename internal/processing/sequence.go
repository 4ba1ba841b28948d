package processing

import (
	"fmt"
	"strings"
)

// Step is an execution step of a stage engine.
type Step interface {
	comparable
	fmt.Stringer
}

// Sequence is the closed, ordered chain of a stage's execution steps. The first step is
// the NONE sentinel and the last the ALL sentinel.
type Sequence[S Step] struct {
	steps     []S
	positions map[S]int
}

// Names of the sentinel steps that open and close every sequence.
const (
	FirstStepName = "NONE"
	LastStepName  = "ALL"
)

// NewSequence creates a sequence from steps in order. It panics if there are fewer than
// two steps, a step repeats, or the chain does not run from NONE to ALL.
func NewSequence[S Step](steps ...S) *Sequence[S] {
	if len(steps) < 2 {
		panic("execution sequence needs at least a first and a last step")
	}
	if first := steps[0].String(); first != FirstStepName {
		panic(fmt.Sprintf("execution sequence starts with %s, not %s", first, FirstStepName))
	}
	if last := steps[len(steps)-1].String(); last != LastStepName {
		panic(fmt.Sprintf("execution sequence ends with %s, not %s", last, LastStepName))
	}
	seq := &Sequence[S]{
		steps:     append([]S(nil), steps...),
		positions: make(map[S]int, len(steps)),
	}
	for i, s := range steps {
		if _, dup := seq.positions[s]; dup {
			panic(fmt.Sprintf("execution step %s repeats", s))
		}
		seq.positions[s] = i
	}
	return seq
}

// Steps returns every step in order.
func (q *Sequence[S]) Steps() []S {
	return append([]S(nil), q.steps...)
}

// First returns the leading sentinel.
func (q *Sequence[S]) First() S {
	return q.steps[0]
}

// Last returns the trailing sentinel.
func (q *Sequence[S]) Last() S {
	return q.steps[len(q.steps)-1]
}

// Contains reports whether s is part of the sequence.
func (q *Sequence[S]) Contains(s S) bool {
	_, ok := q.positions[s]
	return ok
}

func (q *Sequence[S]) position(s S) (int, error) {
	pos, ok := q.positions[s]
	if !ok {
		return 0, contractf(InvariantUnknownStep, "%s", s)
	}
	return pos, nil
}

// Predecessor returns the step before s. It fails on the first step.
func (q *Sequence[S]) Predecessor(s S) (S, error) {
	pos, err := q.position(s)
	if err != nil {
		var zero S
		return zero, err
	}
	if pos == 0 {
		var zero S
		return zero, contractf(InvariantNoPredecessor, "%s is the first step", s)
	}
	return q.steps[pos-1], nil
}

// Successor returns the step after s. It fails on the last step.
func (q *Sequence[S]) Successor(s S) (S, error) {
	pos, err := q.position(s)
	if err != nil {
		var zero S
		return zero, err
	}
	if pos == len(q.steps)-1 {
		var zero S
		return zero, contractf(InvariantNoSuccessor, "%s is the last step", s)
	}
	return q.steps[pos+1], nil
}

// Le reports whether a comes no later than b. Steps outside the sequence are never
// ordered.
func (q *Sequence[S]) Le(a, b S) bool {
	pa, okA := q.positions[a]
	pb, okB := q.positions[b]
	return okA && okB && pa <= pb
}

// Parse finds the step whose name matches, ignoring case and treating '-' as '_'.
func (q *Sequence[S]) Parse(name string) (S, error) {
	want := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), "-", "_")
	for _, s := range q.steps {
		if s.String() == want {
			return s, nil
		}
	}
	var zero S
	return zero, fmt.Errorf("unknown execution step %q", name)
}
