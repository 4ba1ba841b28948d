// Package ingestion loads polygon input documents into the types shared by the stages.
package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/bcgov/nr-vdyp-sub007/internal/schemas"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// Document is a polygon input file.
type Document struct {
	Polygons []*types.Polygon `json:"polygons" validate:"required,min=1,dive,required"`
}

var validate = validator.New()

// LoadPolygons reads and parses the polygon input document at path.
func LoadPolygons(path string) ([]*types.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Cause: err}
	}
	polygons, err := ParsePolygons(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return polygons, nil
}

// ParsePolygons validates data against the polygon schema, decodes it and checks the
// decoded polygons' struct constraints.
func ParsePolygons(data []byte) ([]*types.Polygon, error) {
	if err := schemas.ValidatePolygonDocument(data); err != nil {
		return nil, &Error{Message: "polygon document failed schema validation", Cause: err}
	}

	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &Error{Message: "failed to decode polygon document", Cause: err}
	}

	if err := validate.Struct(&doc); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return nil, &Error{Message: fmt.Sprintf("invalid polygon document: %s", fieldErrs[0].Namespace()), Cause: err}
		}
		return nil, &Error{Message: "invalid polygon document", Cause: err}
	}

	for i, p := range doc.Polygons {
		if err := checkLayers(p); err != nil {
			return nil, &Error{Message: fmt.Sprintf("polygon %d (%s)", i, p.Identifier), Cause: err}
		}
	}
	return doc.Polygons, nil
}

func checkLayers(p *types.Polygon) error {
	for lt, layer := range p.Layers {
		if layer == nil {
			return fmt.Errorf("%s layer is empty", lt)
		}
		if layer.LayerType != lt {
			return fmt.Errorf("layer keyed %s declares type %s", lt, layer.LayerType)
		}
		seen := make(map[string]bool, len(layer.Species))
		for _, sp := range layer.Species {
			if seen[sp.Genus] {
				return fmt.Errorf("%s layer lists genus %s twice", lt, sp.Genus)
			}
			seen[sp.Genus] = true
		}
	}
	return nil
}

// WritePolygons writes polygons as an indented polygon document.
func WritePolygons(path string, polygons []*types.Polygon) error {
	data, err := json.MarshalIndent(Document{Polygons: polygons}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal polygons: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
