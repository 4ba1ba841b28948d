package matrix

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap2_DefaultsAndPut(t *testing.T) {
	m := NewMap2([]string{"a", "b"}, []int{1, 2, 3}, func(k1 string, k2 int) float64 {
		return float64(k2) * 10
	})

	assert.Equal(t, 20.0, m.Get("a", 2))

	require.NoError(t, m.Put("a", 2, 7))
	assert.Equal(t, 7.0, m.Get("a", 2))
	assert.Equal(t, 20.0, m.Get("b", 2), "other keys keep their default")
}

func TestMap2_NilDefaultIsZero(t *testing.T) {
	m := NewMap2[string, int, float64]([]string{"a"}, []int{1}, nil)
	assert.Equal(t, 0.0, m.Get("a", 1))
}

func TestMap2_PutOutsideDimension(t *testing.T) {
	m := NewMap2([]string{"a"}, []int{1}, func(string, int) float64 { return 0 })

	err := m.Put("z", 1, 1)
	require.Error(t, err)

	var keyErr *KeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, 1, keyErr.Dimension)
	assert.Equal(t, "z", keyErr.Key)

	err = m.Put("a", 9, 1)
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, 2, keyErr.Dimension)
}

func TestMap2_DuplicateKeysCollapse(t *testing.T) {
	m := NewMap2[string, int, int]([]string{"a", "a", "b"}, []int{1}, nil)
	k1, k2 := m.Dimensions()
	assert.Equal(t, []string{"a", "b"}, k1)
	assert.Equal(t, []int{1}, k2)
}

func TestMap2_Each(t *testing.T) {
	m := NewMap2([]string{"a", "b"}, []int{1, 2}, func(string, int) int { return -1 })
	require.NoError(t, m.Put("b", 1, 5))

	var visited []int
	m.Each(func(_ string, _ int, v int) {
		visited = append(visited, v)
	})
	assert.Equal(t, []int{-1, -1, 5, -1}, visited)
}

func TestMap3_GetPut(t *testing.T) {
	m := NewMap3([]int{0, 1}, []int{0, 1, 2}, []string{"p", "v"}, func(a, b int, c string) float64 {
		return float64(a*100 + b)
	})

	assert.Equal(t, 102.0, m.Get(1, 2, "v"))
	require.NoError(t, m.Put(1, 2, "v", 3.5))
	assert.Equal(t, 3.5, m.Get(1, 2, "v"))
	assert.Equal(t, 102.0, m.Get(1, 2, "p"))

	err := m.Put(1, 2, "x", 1)
	var keyErr *KeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, 3, keyErr.Dimension)
}

func TestSlice3(t *testing.T) {
	m := NewMap3([]int{0, 1}, []int{0, 1}, []string{"p", "v"}, func(int, int, string) float64 { return 99 })
	require.NoError(t, m.Put(0, 1, "p", 1))
	require.NoError(t, m.Put(0, 1, "v", 2))

	primary, err := Slice3(m, "p")
	require.NoError(t, err)
	assert.Equal(t, 1.0, primary.Get(0, 1))
	assert.Equal(t, 99.0, primary.Get(1, 1))

	_, err = Slice3(m, "x")
	assert.Error(t, err)
}

func TestSlice2(t *testing.T) {
	m := NewMap2([]int{0, 1}, []string{"p", "v"}, func(int, string) float64 { return 4 })
	require.NoError(t, m.Put(1, "p", 8))

	primary, err := Slice2(m, "p")
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{0: 4, 1: 8}, primary)

	_, err = Slice2(m, "q")
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	m2 := NewMap2([]string{"a"}, []int{1, 2}, func(string, int) float64 { return 3 })
	require.NoError(t, m2.Put("a", 2, 8))

	m3 := NewMap3([]int{0}, []int{0}, []string{"p"}, func(int, int, string) float64 { return 5 })

	tests := []struct {
		name    string
		lookup  func() (float64, error)
		want    float64
		wantDim int
	}{
		{name: "map2 default", lookup: func() (float64, error) { return m2.Lookup("a", 1) }, want: 3},
		{name: "map2 put", lookup: func() (float64, error) { return m2.Lookup("a", 2) }, want: 8},
		{name: "map2 first key outside", lookup: func() (float64, error) { return m2.Lookup("z", 1) }, wantDim: 1},
		{name: "map2 second key outside", lookup: func() (float64, error) { return m2.Lookup("a", 9) }, wantDim: 2},
		{name: "map3 default", lookup: func() (float64, error) { return m3.Lookup(0, 0, "p") }, want: 5},
		{name: "map3 third key outside", lookup: func() (float64, error) { return m3.Lookup(0, 0, "v") }, wantDim: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.lookup()
			if tt.wantDim == 0 {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			var keyErr *KeyError
			require.ErrorAs(t, err, &keyErr)
			assert.Equal(t, tt.wantDim, keyErr.Dimension)
			assert.Zero(t, got)
		})
	}
}
