package back

import (
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// Summary is the prepared state of one polygon in serializable form. Values of steps
// that did not run are omitted.
type Summary struct {
	Polygon              string           `json:"polygon"`
	BaseAreaVeteran      *float64         `json:"base_area_veteran,omitempty"`
	PolygonFinalDiameter *float64         `json:"polygon_final_diameter,omitempty"`
	Species              []SpeciesSummary `json:"species"`
}

// SpeciesSummary is the prepared state of one primary species.
type SpeciesSummary struct {
	Genus              string                             `json:"genus"`
	PercentGenus       float64                            `json:"percent_genus"`
	BasalAreaCV        map[types.UtilizationClass]float64 `json:"basal_area_cv,omitempty"`
	QuadMeanDiameterCV map[types.UtilizationClass]float64 `json:"quad_mean_diameter_cv,omitempty"`
	SizeLimits         *types.ComponentSizeLimits         `json:"size_limits,omitempty"`
	Reconciled         bool                               `json:"reconciled,omitempty"`
	FinalDiameter      *float64                           `json:"final_diameter,omitempty"`
}

// Summary collects what the prepare steps have derived for the current polygon.
func (s *State) Summary() (*Summary, error) {
	id, err := s.CompactIdentifier()
	if err != nil {
		return nil, err
	}
	primary, err := s.Primary()
	if err != nil {
		return nil, err
	}

	out := &Summary{Polygon: id}
	if ba, ok := s.BaseAreaVeteran(); ok {
		out.BaseAreaVeteran = &ba
	}
	if s.sizes.IsSet() {
		d, err := s.PolygonFinalDiameter()
		if err != nil {
			return nil, err
		}
		out.PolygonFinalDiameter = &d
	}

	b := primary.Bank()
	out.Species = make([]SpeciesSummary, 0, b.NSpecies())
	for i := 1; i <= b.NSpecies(); i++ {
		genus, err := b.Genus(i)
		if err != nil {
			return nil, err
		}
		percent, err := b.PercentGenus(i)
		if err != nil {
			return nil, err
		}
		sp := SpeciesSummary{Genus: genus, PercentGenus: percent}

		if s.compatibility.IsSet() {
			sp.BasalAreaCV = make(map[types.UtilizationClass]float64, len(types.CompatibilityClasses))
			sp.QuadMeanDiameterCV = make(map[types.UtilizationClass]float64, len(types.CompatibilityClasses))
			for _, uc := range types.CompatibilityClasses {
				if sp.BasalAreaCV[uc], err = s.CVBasalArea(i, uc); err != nil {
					return nil, err
				}
				if sp.QuadMeanDiameterCV[uc], err = s.CVQuadraticMeanDiameter(i, uc); err != nil {
					return nil, err
				}
			}
		}

		if s.sizes.IsSet() {
			limits, err := s.SizeLimits(i)
			if err != nil {
				return nil, err
			}
			final, err := s.SpeciesFinalDiameter(i)
			if err != nil {
				return nil, err
			}
			reconciled, err := s.SizeLimitsReconciled(i)
			if err != nil {
				return nil, err
			}
			sp.SizeLimits = &limits
			sp.FinalDiameter = &final
			sp.Reconciled = reconciled
		}

		out.Species = append(out.Species, sp)
	}
	return out, nil
}
