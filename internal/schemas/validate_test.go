package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPolygonDocument = `{
	"polygons": [
		{
			"identifier": {"base": "01002 S000001 00", "year": 1970},
			"bec_zone": "CWH",
			"percent_forested": 90,
			"layers": {
				"PRIMARY": {
					"layer_type": "PRIMARY",
					"species": [
						{
							"genus": "B",
							"percent_genus": 100,
							"basal_area": {"ALL": 35.0},
							"lorey_height": {"ALL": 22.9584007},
							"quad_mean_diameter": {"ALL": 31.5006275},
							"compatibility": {
								"basal_area": [{"class": "ALL", "layer": "PRIMARY", "value": 0.5}],
								"small": {"LOREY_HEIGHT": 1.2}
							}
						}
					]
				}
			}
		}
	]
}`

func TestPolygonSchema_IsValidJSON(t *testing.T) {
	var v map[string]any
	require.NoError(t, json.Unmarshal(PolygonSchema, &v))
	assert.Equal(t, "http://json-schema.org/draft-07/schema#", v["$schema"])
}

func TestValidatePolygonDocument(t *testing.T) {
	tests := []struct {
		name      string
		document  string
		wantField string
	}{
		{name: "valid", document: validPolygonDocument},
		{
			name:      "no polygons",
			document:  `{"polygons": []}`,
			wantField: "polygons",
		},
		{
			name:      "missing primary layer",
			document:  `{"polygons": [{"identifier": {"base": "P1", "year": 2000}, "bec_zone": "IDF", "layers": {"VETERAN": {"layer_type": "VETERAN", "species": []}}}]}`,
			wantField: "polygons.0.layers",
		},
		{
			name:      "unknown utilization class",
			document:  `{"polygons": [{"identifier": {"base": "P1", "year": 2000}, "bec_zone": "IDF", "layers": {"PRIMARY": {"layer_type": "PRIMARY", "species": [{"genus": "F", "basal_area": {"U0TO75": 1}}]}}}]}`,
			wantField: "polygons.0.layers.PRIMARY.species.0.basal_area",
		},
		{
			name:      "genus too long",
			document:  `{"polygons": [{"identifier": {"base": "P1", "year": 2000}, "bec_zone": "IDF", "layers": {"PRIMARY": {"layer_type": "PRIMARY", "species": [{"genus": "FDC"}]}}}]}`,
			wantField: "polygons.0.layers.PRIMARY.species.0.genus",
		},
		{
			name:      "year out of range",
			document:  `{"polygons": [{"identifier": {"base": "P1", "year": 20}, "bec_zone": "IDF", "layers": {"PRIMARY": {"layer_type": "PRIMARY", "species": []}}}]}`,
			wantField: "polygons.0.identifier.year",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePolygonDocument([]byte(tt.document))
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			validationErr, ok := err.(*ValidationError)
			require.True(t, ok, "error should be ValidationError type, got %T", err)
			fields := make([]string, 0, len(validationErr.Errors))
			for _, fe := range validationErr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidatePolygonDocument_MalformedJSON(t *testing.T) {
	err := ValidatePolygonDocument([]byte("{ invalid json }"))
	require.Error(t, err)
}

func TestValidateJSON(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "polygon.schema.json")
	require.NoError(t, os.WriteFile(schemaPath, PolygonSchema, 0644))

	validPath := filepath.Join(dir, "valid.json")
	require.NoError(t, os.WriteFile(validPath, []byte(validPolygonDocument), 0644))

	invalidPath := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalidPath, []byte(`{"polygons": "none"}`), 0644))

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateJSON(schemaPath, validPath))
	})

	t.Run("wrong type", func(t *testing.T) {
		err := ValidateJSON(schemaPath, invalidPath)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.NotEmpty(t, validationErr.Errors)
	})

	t.Run("missing schema", func(t *testing.T) {
		err := ValidateJSON(filepath.Join(dir, "nonexistent.json"), validPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("missing document", func(t *testing.T) {
		err := ValidateJSON(schemaPath, filepath.Join(dir, "nonexistent.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestValidateJSONString(t *testing.T) {
	schemaContent := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"}
		}
	}`

	assert.NoError(t, ValidateJSONString(schemaContent, `{"name": "test"}`))

	err := ValidateJSONString(schemaContent, `{"age": 30}`)
	require.Error(t, err)
	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "bec_zone", Message: "is required"},
			{Field: "year", Message: "must be an integer"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "bec_zone")
	assert.Contains(t, errorMsg, "year")
}
