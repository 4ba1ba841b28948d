// Package matrix provides multi-key lookup tables with a default value for
// unpopulated keys. Compatibility variables are stored in these tables.
package matrix

import "fmt"

// KeyError is returned when a key is not one of its dimension's values.
type KeyError struct {
	Dimension int
	Key       any
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key %v is not in dimension %d", e.Key, e.Dimension)
}

// dimension maps each enumerated key value to its position.
type dimension[K comparable] struct {
	keys      []K
	positions map[K]int
}

func newDimension[K comparable](keys []K) dimension[K] {
	d := dimension[K]{positions: make(map[K]int, len(keys))}
	for _, k := range keys {
		if _, dup := d.positions[k]; dup {
			continue
		}
		d.positions[k] = len(d.keys)
		d.keys = append(d.keys, k)
	}
	return d
}

func (d dimension[K]) position(k K) (int, bool) {
	pos, ok := d.positions[k]
	return pos, ok
}

// Map2 is a table keyed by two independent dimensions.
type Map2[K1, K2 comparable, V any] struct {
	d1       dimension[K1]
	d2       dimension[K2]
	values   []V
	set      []bool
	defaults func(K1, K2) V
}

// NewMap2 creates a table over the given dimension values. defaults supplies the value of
// any key that has not been put; a nil defaults yields the zero value.
func NewMap2[K1, K2 comparable, V any](keys1 []K1, keys2 []K2, defaults func(K1, K2) V) *Map2[K1, K2, V] {
	m := &Map2[K1, K2, V]{
		d1:       newDimension(keys1),
		d2:       newDimension(keys2),
		defaults: defaults,
	}
	size := len(m.d1.keys) * len(m.d2.keys)
	m.values = make([]V, size)
	m.set = make([]bool, size)
	return m
}

func (m *Map2[K1, K2, V]) offset(k1 K1, k2 K2) (int, error) {
	p1, ok := m.d1.position(k1)
	if !ok {
		return 0, &KeyError{Dimension: 1, Key: k1}
	}
	p2, ok := m.d2.position(k2)
	if !ok {
		return 0, &KeyError{Dimension: 2, Key: k2}
	}
	return p1*len(m.d2.keys) + p2, nil
}

func (m *Map2[K1, K2, V]) fallback(k1 K1, k2 K2) V {
	if m.defaults == nil {
		var zero V
		return zero
	}
	return m.defaults(k1, k2)
}

// Get returns the value at (k1, k2), or the default when it was never put.
func (m *Map2[K1, K2, V]) Get(k1 K1, k2 K2) V {
	off, err := m.offset(k1, k2)
	if err != nil || !m.set[off] {
		return m.fallback(k1, k2)
	}
	return m.values[off]
}

// Lookup is Get for keys that may lie outside the dimensions: such a key is reported as
// a *KeyError instead of reading as the default.
func (m *Map2[K1, K2, V]) Lookup(k1 K1, k2 K2) (V, error) {
	off, err := m.offset(k1, k2)
	if err != nil {
		var zero V
		return zero, err
	}
	if !m.set[off] {
		return m.fallback(k1, k2), nil
	}
	return m.values[off], nil
}

// Put stores v at (k1, k2).
func (m *Map2[K1, K2, V]) Put(k1 K1, k2 K2, v V) error {
	off, err := m.offset(k1, k2)
	if err != nil {
		return err
	}
	m.values[off] = v
	m.set[off] = true
	return nil
}

// Each calls fn for every key pair in dimension order, with the effective value.
func (m *Map2[K1, K2, V]) Each(fn func(K1, K2, V)) {
	for _, k1 := range m.d1.keys {
		for _, k2 := range m.d2.keys {
			fn(k1, k2, m.Get(k1, k2))
		}
	}
}

// Dimensions returns copies of the dimension values.
func (m *Map2[K1, K2, V]) Dimensions() ([]K1, []K2) {
	return append([]K1(nil), m.d1.keys...), append([]K2(nil), m.d2.keys...)
}

// Map3 is a table keyed by three independent dimensions.
type Map3[K1, K2, K3 comparable, V any] struct {
	d1       dimension[K1]
	d2       dimension[K2]
	d3       dimension[K3]
	values   []V
	set      []bool
	defaults func(K1, K2, K3) V
}

// NewMap3 creates a table over the given dimension values. defaults supplies the value of
// any key that has not been put; a nil defaults yields the zero value.
func NewMap3[K1, K2, K3 comparable, V any](keys1 []K1, keys2 []K2, keys3 []K3, defaults func(K1, K2, K3) V) *Map3[K1, K2, K3, V] {
	m := &Map3[K1, K2, K3, V]{
		d1:       newDimension(keys1),
		d2:       newDimension(keys2),
		d3:       newDimension(keys3),
		defaults: defaults,
	}
	size := len(m.d1.keys) * len(m.d2.keys) * len(m.d3.keys)
	m.values = make([]V, size)
	m.set = make([]bool, size)
	return m
}

func (m *Map3[K1, K2, K3, V]) offset(k1 K1, k2 K2, k3 K3) (int, error) {
	p1, ok := m.d1.position(k1)
	if !ok {
		return 0, &KeyError{Dimension: 1, Key: k1}
	}
	p2, ok := m.d2.position(k2)
	if !ok {
		return 0, &KeyError{Dimension: 2, Key: k2}
	}
	p3, ok := m.d3.position(k3)
	if !ok {
		return 0, &KeyError{Dimension: 3, Key: k3}
	}
	return (p1*len(m.d2.keys)+p2)*len(m.d3.keys) + p3, nil
}

func (m *Map3[K1, K2, K3, V]) fallback(k1 K1, k2 K2, k3 K3) V {
	if m.defaults == nil {
		var zero V
		return zero
	}
	return m.defaults(k1, k2, k3)
}

// Get returns the value at (k1, k2, k3), or the default when it was never put.
func (m *Map3[K1, K2, K3, V]) Get(k1 K1, k2 K2, k3 K3) V {
	off, err := m.offset(k1, k2, k3)
	if err != nil || !m.set[off] {
		return m.fallback(k1, k2, k3)
	}
	return m.values[off]
}

// Lookup is Get for keys that may lie outside the dimensions.
func (m *Map3[K1, K2, K3, V]) Lookup(k1 K1, k2 K2, k3 K3) (V, error) {
	off, err := m.offset(k1, k2, k3)
	if err != nil {
		var zero V
		return zero, err
	}
	if !m.set[off] {
		return m.fallback(k1, k2, k3), nil
	}
	return m.values[off], nil
}

// Put stores v at (k1, k2, k3).
func (m *Map3[K1, K2, K3, V]) Put(k1 K1, k2 K2, k3 K3, v V) error {
	off, err := m.offset(k1, k2, k3)
	if err != nil {
		return err
	}
	m.values[off] = v
	m.set[off] = true
	return nil
}

// Each calls fn for every key triple in dimension order, with the effective value.
func (m *Map3[K1, K2, K3, V]) Each(fn func(K1, K2, K3, V)) {
	for _, k1 := range m.d1.keys {
		for _, k2 := range m.d2.keys {
			for _, k3 := range m.d3.keys {
				fn(k1, k2, k3, m.Get(k1, k2, k3))
			}
		}
	}
}

// Dimensions returns copies of the dimension values.
func (m *Map3[K1, K2, K3, V]) Dimensions() ([]K1, []K2, []K3) {
	return append([]K1(nil), m.d1.keys...), append([]K2(nil), m.d2.keys...), append([]K3(nil), m.d3.keys...)
}

// Slice3 fixes the third key of m and returns a two-key table over the remaining
// dimensions, with m's default evaluated at that key.
func Slice3[K1, K2, K3 comparable, V any](m *Map3[K1, K2, K3, V], k3 K3) (*Map2[K1, K2, V], error) {
	if _, ok := m.d3.position(k3); !ok {
		return nil, &KeyError{Dimension: 3, Key: k3}
	}
	out := NewMap2(m.d1.keys, m.d2.keys, func(k1 K1, k2 K2) V {
		return m.fallback(k1, k2, k3)
	})
	for _, k1 := range m.d1.keys {
		for _, k2 := range m.d2.keys {
			off, _ := m.offset(k1, k2, k3)
			if m.set[off] {
				_ = out.Put(k1, k2, m.values[off])
			}
		}
	}
	return out, nil
}

// Slice2 fixes the second key of m and returns a plain map over the first dimension.
func Slice2[K1, K2 comparable, V any](m *Map2[K1, K2, V], k2 K2) (map[K1]V, error) {
	if _, ok := m.d2.position(k2); !ok {
		return nil, &KeyError{Dimension: 2, Key: k2}
	}
	out := make(map[K1]V, len(m.d1.keys))
	for _, k1 := range m.d1.keys {
		out[k1] = m.Get(k1, k2)
	}
	return out, nil
}
