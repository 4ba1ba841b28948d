// Package compute provides the numeric helpers shared by the processing stages.
package compute

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// PI40K converts a squared diameter in cm to a basal area in m² (π / 40000).
const PI40K = 0.78539816e-04

// Computer is the shared computation service. It holds no per-polygon state and may be
// used from several goroutines.
type Computer struct{}

// NewComputer creates a computation service.
func NewComputer() *Computer {
	return &Computer{}
}

// QuadMeanDiameter derives quadratic mean diameter (cm) from basal area (m²/ha) and
// trees per hectare. It is 0 when either input is not positive.
func (c *Computer) QuadMeanDiameter(basalArea, treesPerHectare float64) float64 {
	if basalArea <= 0 || treesPerHectare <= 0 {
		return 0
	}
	return math.Sqrt(basalArea / treesPerHectare / PI40K)
}

// TreesPerHectare derives density from basal area and quadratic mean diameter.
func (c *Computer) TreesPerHectare(basalArea, quadMeanDiameter float64) float64 {
	if basalArea <= 0 || quadMeanDiameter <= 0 {
		return 0
	}
	return basalArea / (PI40K * quadMeanDiameter * quadMeanDiameter)
}

// LoreyHeight returns the basal-area weighted mean of heights. It is 0 when the total
// basal area is not positive.
func (c *Computer) LoreyHeight(heights, basalAreas []float64) float64 {
	if len(heights) == 0 || len(heights) != len(basalAreas) {
		return 0
	}
	total := floats.Sum(basalAreas)
	if total <= 0 {
		return 0
	}
	return floats.Dot(heights, basalAreas) / total
}
