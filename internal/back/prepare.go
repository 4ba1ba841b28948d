package back

import (
	"fmt"

	"github.com/bcgov/nr-vdyp-sub007/internal/bank"
	"github.com/bcgov/nr-vdyp-sub007/internal/processing"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// ExecutionStep is a step of the back engine.
type ExecutionStep int

// Back execution steps in order.
const (
	StepNone ExecutionStep = iota
	StepBaseAreaVeteran
	StepCompatibilityVariables
	StepSizeLimits
	StepAll
)

func (s ExecutionStep) String() string {
	switch s {
	case StepNone:
		return "NONE"
	case StepBaseAreaVeteran:
		return "BASE_AREA_VETERAN"
	case StepCompatibilityVariables:
		return "COMPATIBILITY_VARIABLES"
	case StepSizeLimits:
		return "SIZE_LIMITS"
	case StepAll:
		return "ALL"
	default:
		return fmt.Sprintf("ExecutionStep(%d)", int(s))
	}
}

// Steps is the back execution sequence.
var Steps = processing.NewSequence(StepNone, StepBaseAreaVeteran, StepCompatibilityVariables, StepSizeLimits, StepAll)

// Prepare seeds the back state from the primary layer state already present, running
// the prepare steps up to and including lastStep.
func Prepare(s *State, lastStep ExecutionStep) error {
	if !Steps.Contains(lastStep) {
		return &processing.ContractError{Invariant: processing.InvariantUnknownStep, Detail: lastStep.String()}
	}

	if Steps.Le(StepBaseAreaVeteran, lastStep) {
		if err := setBaseAreaVeteran(s); err != nil {
			return err
		}
	}
	if Steps.Le(StepCompatibilityVariables, lastStep) {
		if err := sliceCompatibilityVariables(s); err != nil {
			return err
		}
	}
	if Steps.Le(StepSizeLimits, lastStep) {
		if err := setSizeLimits(s); err != nil {
			return err
		}
	}
	return nil
}

func setBaseAreaVeteran(s *State) error {
	veteran, ok, err := s.Veteran()
	if err != nil {
		return err
	}
	if !ok {
		s.baseAreaVeteran = nil
		return nil
	}

	ba, err := veteran.Bank().Get(bank.BasalArea, 0, types.UtilizationAll)
	if err != nil {
		return &processing.Error{Message: "failed to read veteran basal area", Cause: err}
	}
	s.baseAreaVeteran = &ba
	return nil
}

func sliceCompatibilityVariables(s *State) error {
	primary, err := s.Primary()
	if err != nil {
		return err
	}
	source, err := primary.Compatibility()
	if err != nil {
		return err
	}

	n := primary.NSpecies()
	volume := make([]*processing.SpeciesVolumeMatrix, n+1)
	basalArea := make([]map[types.UtilizationClass]float64, n+1)
	quadMeanDiameter := make([]map[types.UtilizationClass]float64, n+1)
	small := make([]map[types.SmallVariable]float64, n+1)

	for i := 1; i <= n; i++ {
		vars, err := source.Slice(i, types.LayerPrimary)
		if err != nil {
			return err
		}
		volume[i] = vars.Volume
		basalArea[i] = vars.BasalArea
		quadMeanDiameter[i] = vars.QuadMeanDiameter
		small[i] = vars.Small
	}

	return s.SetCompatibilityVariableDetails(volume, basalArea, quadMeanDiameter, small)
}

func setSizeLimits(s *State) error {
	primary, err := s.Primary()
	if err != nil {
		return err
	}
	region, err := s.Region()
	if err != nil {
		return err
	}
	id, err := s.CompactIdentifier()
	if err != nil {
		return err
	}

	b := primary.Bank()
	polygonFinal, err := b.Get(bank.QuadMeanDiameter, 0, types.UtilizationAll)
	if err != nil {
		return &processing.Error{Message: "failed to read aggregate diameter", Cause: err}
	}

	n := b.NSpecies()
	limits := make([]types.ComponentSizeLimits, n+1)
	speciesFinal := make([]float64, n+1)
	reconciled := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		genus, err := b.Genus(i)
		if err != nil {
			return &processing.Error{Message: "failed to read species", Cause: err}
		}
		loreyHeight, err := b.Get(bank.LoreyHeight, i, types.UtilizationAll)
		if err != nil {
			return &processing.Error{Message: "failed to read Lorey height", Cause: err}
		}
		qmd, err := b.Get(bank.QuadMeanDiameter, i, types.UtilizationAll)
		if err != nil {
			return &processing.Error{Message: "failed to read quadratic mean diameter", Cause: err}
		}
		if loreyHeight <= 0 {
			return &processing.Error{Message: fmt.Sprintf("polygon %s species %s has no Lorey height", id, genus)}
		}

		baseline, err := s.Estimator().LimitsForHeightAndDiameter(genus, region)
		if err != nil {
			return &processing.Error{Message: fmt.Sprintf("polygon %s species %s", id, genus), Cause: err}
		}

		widened := baseline.Widen(loreyHeight, qmd)
		if widened != baseline {
			s.Logger().Debug("size limits reconciled",
				"polygon", id,
				"species", genus,
				"lorey_height", loreyHeight,
				"quad_mean_diameter", qmd,
				"baseline", baseline,
				"reconciled", widened,
			)
			reconciled[i] = true
		}

		limits[i] = widened
		speciesFinal[i] = qmd
	}

	return s.sizes.Set(sizes{
		limits:               limits,
		reconciled:           reconciled,
		polygonFinalDiameter: polygonFinal,
		speciesFinalDiameter: speciesFinal,
	})
}
