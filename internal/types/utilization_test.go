package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageIndex_RoundTrip(t *testing.T) {
	seen := make(map[int]bool)
	for _, uc := range UtilizationClasses {
		idx := uc.StorageIndex()
		assert.False(t, seen[idx], "storage index %d assigned twice", idx)
		seen[idx] = true

		back, err := ClassAtStorageIndex(idx)
		require.NoError(t, err)
		assert.Equal(t, uc, back)
	}
	assert.Len(t, seen, UtilizationClassCount)
}

func TestStorageIndex_AllIsSlotZero(t *testing.T) {
	assert.Equal(t, 0, UtilizationAll.StorageIndex())
	assert.Equal(t, 1, Utilization75To125.StorageIndex())
	assert.Equal(t, 4, UtilizationOver225.StorageIndex())
	assert.Equal(t, 5, UtilizationSmall.StorageIndex())
}

func TestStorageIndex_OutOfRangePanics(t *testing.T) {
	assert.Panics(t, func() { _ = UtilizationClass(42).StorageIndex() })
	assert.Panics(t, func() { _ = UtilizationClass(-1).StorageIndex() })

	_, err := ClassAtStorageIndex(UtilizationClassCount)
	assert.Error(t, err)
}

func TestUtilizationVector_JSON(t *testing.T) {
	var v UtilizationVector
	v.Set(UtilizationAll, 20)
	v.Set(UtilizationSmall, 0.5)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ALL":20`)
	assert.Contains(t, string(data), `"SMALL":0.5`)

	var decoded UtilizationVector
	require.NoError(t, json.Unmarshal([]byte(`{"ALL": 20, "U75TO125": 3}`), &decoded))
	assert.Equal(t, 20.0, decoded.Get(UtilizationAll))
	assert.Equal(t, 3.0, decoded.Get(Utilization75To125))
	assert.Equal(t, 0.0, decoded.Get(UtilizationOver225))

	err = json.Unmarshal([]byte(`{"U50": 1}`), &decoded)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown utilization class")
}

func TestLayerType_Parse(t *testing.T) {
	tests := []struct {
		in       string
		expected LayerType
		wantErr  bool
	}{
		{in: "PRIMARY", expected: LayerPrimary},
		{in: "veteran", expected: LayerVeteran},
		{in: "P", expected: LayerPrimary},
		{in: "X", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lt, err := ParseLayerType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, lt)
		})
	}
}

func TestPolygon_LayersKeyedByCode(t *testing.T) {
	doc := `{
		"identifier": {"base": "01002 S000001 00", "year": 1970},
		"bec_zone": "CWH",
		"layers": {"PRIMARY": {"layer_type": "PRIMARY", "species": [{"genus": "B", "percent_genus": 100}]}}
	}`

	var p Polygon
	require.NoError(t, json.Unmarshal([]byte(doc), &p))

	layer, ok := p.Layer(LayerPrimary)
	require.True(t, ok)
	assert.Len(t, layer.Species, 1)

	_, ok = p.Layer(LayerVeteran)
	assert.False(t, ok)
	assert.Equal(t, "01002 S000001 00 1970", p.Identifier.String())
}
