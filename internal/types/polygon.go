// Package types provides type definitions for the polygon, layer and species data
// shared by every processing stage.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// LayerType distinguishes the primary canopy from residual veteran trees.
type LayerType int

// Layer types. The ordinal is used as a matrix key and in CV formulas.
const (
	LayerPrimary LayerType = iota
	LayerVeteran
)

// LayerTypes lists every layer type in ordinal order.
var LayerTypes = []LayerType{LayerPrimary, LayerVeteran}

func (lt LayerType) String() string {
	switch lt {
	case LayerPrimary:
		return "PRIMARY"
	case LayerVeteran:
		return "VETERAN"
	default:
		return fmt.Sprintf("LayerType(%d)", int(lt))
	}
}

// ParseLayerType resolves "PRIMARY" or "VETERAN" (case-insensitive).
func ParseLayerType(code string) (LayerType, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "PRIMARY", "P":
		return LayerPrimary, nil
	case "VETERAN", "V":
		return LayerVeteran, nil
	}
	return 0, fmt.Errorf("unknown layer type %q", code)
}

// MarshalText encodes the layer type code.
func (lt LayerType) MarshalText() ([]byte, error) {
	if lt != LayerPrimary && lt != LayerVeteran {
		return nil, fmt.Errorf("layer type %d out of range", int(lt))
	}
	return []byte(lt.String()), nil
}

// UnmarshalText decodes a layer type code.
func (lt *LayerType) UnmarshalText(text []byte) error {
	parsed, err := ParseLayerType(string(text))
	if err != nil {
		return err
	}
	*lt = parsed
	return nil
}

// Region is the coarse biogeoclimatic region selecting baseline coefficients.
type Region string

// Regions.
const (
	RegionCoastal  Region = "COASTAL"
	RegionInterior Region = "INTERIOR"
)

// Valid reports whether r is a known region.
func (r Region) Valid() bool {
	return r == RegionCoastal || r == RegionInterior
}

// PolygonIdentifier names a polygon at a point in time.
type PolygonIdentifier struct {
	Base string `json:"base" validate:"required"`
	Year int    `json:"year" validate:"gte=1000,lte=9999"`
}

// String returns the compact form "<base> <year>".
func (id PolygonIdentifier) String() string {
	return fmt.Sprintf("%s %d", strings.TrimSpace(id.Base), id.Year)
}

// Polygon is a mapped forest stand unit, the unit of projection.
type Polygon struct {
	Identifier      PolygonIdentifier    `json:"identifier"`
	BecZone         string               `json:"bec_zone" validate:"required"`
	PercentForested float64              `json:"percent_forested" validate:"gte=0,lte=100"`
	Layers          map[LayerType]*Layer `json:"layers" validate:"required,min=1,dive"`
}

// Layer returns the layer of the given type and whether it exists.
func (p *Polygon) Layer(lt LayerType) (*Layer, bool) {
	if p == nil || p.Layers == nil {
		return nil, false
	}
	layer, ok := p.Layers[lt]
	if !ok || layer == nil {
		return nil, false
	}
	return layer, true
}

// Layer is a vertical stratum of a polygon's stand.
type Layer struct {
	LayerType LayerType `json:"layer_type"`
	Species   []Species `json:"species" validate:"dive"`

	BasalArea        UtilizationVector `json:"basal_area"`
	LoreyHeight      UtilizationVector `json:"lorey_height"`
	QuadMeanDiameter UtilizationVector `json:"quad_mean_diameter"`
	TreesPerHectare  UtilizationVector `json:"trees_per_hectare"`

	WholeStemVolume                                  UtilizationVector `json:"whole_stem_volume"`
	CloseUtilizationVolume                           UtilizationVector `json:"close_utilization_volume"`
	CloseUtilizationVolumeNetOfDecay                 UtilizationVector `json:"close_utilization_volume_net_of_decay"`
	CloseUtilizationVolumeNetOfDecayAndWaste         UtilizationVector `json:"close_utilization_volume_net_of_decay_and_waste"`
	CloseUtilizationVolumeNetOfDecayWasteAndBreakage UtilizationVector `json:"close_utilization_volume_net_of_decay_waste_and_breakage"`
}

// FindSpecies returns the species with the given genus and whether it exists.
func (l *Layer) FindSpecies(genus string) (*Species, bool) {
	for i := range l.Species {
		if l.Species[i].Genus == genus {
			return &l.Species[i], true
		}
	}
	return nil, false
}

// Species is one genus grouping within a layer.
type Species struct {
	Genus        string  `json:"genus" validate:"required,max=2"`
	PercentGenus float64 `json:"percent_genus" validate:"gte=0,lte=100"`

	BasalArea        UtilizationVector `json:"basal_area"`
	LoreyHeight      UtilizationVector `json:"lorey_height"`
	QuadMeanDiameter UtilizationVector `json:"quad_mean_diameter"`
	TreesPerHectare  UtilizationVector `json:"trees_per_hectare"`

	WholeStemVolume                                  UtilizationVector `json:"whole_stem_volume"`
	CloseUtilizationVolume                           UtilizationVector `json:"close_utilization_volume"`
	CloseUtilizationVolumeNetOfDecay                 UtilizationVector `json:"close_utilization_volume_net_of_decay"`
	CloseUtilizationVolumeNetOfDecayAndWaste         UtilizationVector `json:"close_utilization_volume_net_of_decay_and_waste"`
	CloseUtilizationVolumeNetOfDecayWasteAndBreakage UtilizationVector `json:"close_utilization_volume_net_of_decay_waste_and_breakage"`

	// Compatibility holds the variables computed for this species by a prior stage, if any.
	Compatibility *CarriedCompatibility `json:"compatibility,omitempty"`
}

// CarriedCompatibility is the serialized form of one species' compatibility variables
// as produced by a prior stage.
type CarriedCompatibility struct {
	Volume           []VolumeCompatibility     `json:"volume,omitempty"`
	BasalArea        []ClassCompatibility      `json:"basal_area,omitempty"`
	QuadMeanDiameter []ClassCompatibility      `json:"quad_mean_diameter,omitempty"`
	Small            map[SmallVariable]float64 `json:"small,omitempty"`
}

// VolumeCompatibility is one volume compatibility variable value.
type VolumeCompatibility struct {
	Class    UtilizationClass `json:"class"`
	Variable VolumeVariable   `json:"variable"`
	Layer    LayerType        `json:"layer"`
	Value    float64          `json:"value"`
}

// ClassCompatibility is one per-class compatibility variable value.
type ClassCompatibility struct {
	Class UtilizationClass `json:"class"`
	Layer LayerType        `json:"layer"`
	Value float64          `json:"value"`
}
