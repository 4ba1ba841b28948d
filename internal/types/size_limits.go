package types

import "math"

// ComponentSizeLimits bounds height and diameter for one species so that growth
// projections stay physically plausible.
type ComponentSizeLimits struct {
	LoreyHeightMaximum                  float64 `json:"lorey_height_maximum" yaml:"lorey_height_maximum"`
	QuadMeanDiameterMaximum             float64 `json:"quad_mean_diameter_maximum" yaml:"quad_mean_diameter_maximum"`
	MinQuadMeanDiameterLoreyHeightRatio float64 `json:"min_qmd_lorey_height_ratio" yaml:"min_qmd_lorey_height_ratio"`
	MaxQuadMeanDiameterLoreyHeightRatio float64 `json:"max_qmd_lorey_height_ratio" yaml:"max_qmd_lorey_height_ratio"`
}

// Widen returns the smallest limits that contain both l and the observed height,
// diameter and their ratio.
func (l ComponentSizeLimits) Widen(loreyHeight, quadMeanDiameter float64) ComponentSizeLimits {
	ratio := quadMeanDiameter / loreyHeight
	return ComponentSizeLimits{
		LoreyHeightMaximum:                  math.Max(l.LoreyHeightMaximum, loreyHeight),
		QuadMeanDiameterMaximum:             math.Max(l.QuadMeanDiameterMaximum, quadMeanDiameter),
		MinQuadMeanDiameterLoreyHeightRatio: math.Min(l.MinQuadMeanDiameterLoreyHeightRatio, ratio),
		MaxQuadMeanDiameterLoreyHeightRatio: math.Max(l.MaxQuadMeanDiameterLoreyHeightRatio, ratio),
	}
}
