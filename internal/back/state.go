// Package back provides the later stage engine, which is seeded from a prior stage's
// primary layer results by the prepare steps.
package back

import (
	"fmt"
	"log/slog"

	"github.com/bcgov/nr-vdyp-sub007/internal/compute"
	"github.com/bcgov/nr-vdyp-sub007/internal/control"
	"github.com/bcgov/nr-vdyp-sub007/internal/estimate"
	"github.com/bcgov/nr-vdyp-sub007/internal/processing"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// LayerState is the back engine's state for one layer.
type LayerState struct {
	*processing.LayerBase
}

// IncludeSpecies keeps species with positive basal area in the ALL class.
func IncludeSpecies(sp types.Species) bool {
	return sp.BasalArea.Get(types.UtilizationAll) > 0
}

// NewLayerState builds the layer state for layer type lt of owner's polygon.
func NewLayerState(owner *processing.State[*LayerState], lt types.LayerType) (*LayerState, error) {
	polygon, err := owner.Polygon()
	if err != nil {
		return nil, err
	}
	base, err := processing.NewLayerBase(polygon, lt, IncludeSpecies, owner.Computer())
	if err != nil {
		return nil, err
	}
	return &LayerState{LayerBase: base}, nil
}

// UpdateLayerFromBank returns the layer with the bank written over its values.
func (l *LayerState) UpdateLayerFromBank() (*types.Layer, error) {
	return l.WriteBank()
}

// sizes is what the size limits step produces.
type sizes struct {
	limits               []types.ComponentSizeLimits
	reconciled           []bool
	polygonFinalDiameter float64
	speciesFinalDiameter []float64
}

// State is the back engine's polygon processing state: the shared layer states plus the
// values the prepare steps derive for the current polygon.
type State struct {
	*processing.State[*LayerState]

	baseAreaVeteran *float64
	compatibility   processing.Once[*processing.SpeciesCompatibility]
	sizes           processing.Once[sizes]
}

// NewState creates a back processing state. A nil logger uses slog.Default().
func NewState(controlMap *control.Map, estimator estimate.Estimator, computer *compute.Computer, logger *slog.Logger) *State {
	s := &State{
		State: processing.New[*LayerState](controlMap, estimator, computer, NewLayerState, logger),
	}
	s.resetStage()
	return s
}

func (s *State) resetStage() {
	s.baseAreaVeteran = nil
	s.compatibility = processing.NewOnce[*processing.SpeciesCompatibility]("compatibility variables")
	s.sizes = processing.NewOnce[sizes]("size limits")
}

// SetPolygon makes polygon current and clears everything derived for the previous one.
func (s *State) SetPolygon(polygon *types.Polygon) error {
	s.resetStage()
	return s.State.SetPolygon(polygon)
}

// BaseAreaVeteran returns the veteran layer's basal area and whether the polygon has a
// veteran layer. It is only meaningful after the base area veteran step.
func (s *State) BaseAreaVeteran() (float64, bool) {
	if s.baseAreaVeteran == nil {
		return 0, false
	}
	return *s.baseAreaVeteran, true
}

// SetCompatibilityVariableDetails installs this stage's per-species variables. Each
// slice is indexed by species 1..N with slot 0 unused. It may be called once per polygon.
func (s *State) SetCompatibilityVariableDetails(
	volume []*processing.SpeciesVolumeMatrix,
	basalArea []map[types.UtilizationClass]float64,
	quadMeanDiameter []map[types.UtilizationClass]float64,
	small []map[types.SmallVariable]float64,
) error {
	if s.compatibility.IsSet() {
		return s.compatibility.Set(nil)
	}
	primary, err := s.Primary()
	if err != nil {
		return err
	}
	c, err := processing.NewSpeciesCompatibility(primary.NSpecies(), volume, basalArea, quadMeanDiameter, small)
	if err != nil {
		return err
	}
	return s.compatibility.Set(c)
}

// CVVolume returns the volume variable vv of primary species i in class uc.
func (s *State) CVVolume(i int, uc types.UtilizationClass, vv types.VolumeVariable) (float64, error) {
	c, err := s.compatibility.Get()
	if err != nil {
		return 0, err
	}
	return c.Volume(i, uc, vv)
}

// CVBasalArea returns the basal area variable of primary species i in class uc.
func (s *State) CVBasalArea(i int, uc types.UtilizationClass) (float64, error) {
	c, err := s.compatibility.Get()
	if err != nil {
		return 0, err
	}
	return c.BasalArea(i, uc)
}

// CVQuadraticMeanDiameter returns the quadratic mean diameter variable of primary
// species i in class uc.
func (s *State) CVQuadraticMeanDiameter(i int, uc types.UtilizationClass) (float64, error) {
	c, err := s.compatibility.Get()
	if err != nil {
		return 0, err
	}
	return c.QuadMeanDiameter(i, uc)
}

// CVSmall returns the small-class variable sv of primary species i.
func (s *State) CVSmall(i int, sv types.SmallVariable) (float64, error) {
	c, err := s.compatibility.Get()
	if err != nil {
		return 0, err
	}
	return c.Small(i, sv)
}

// SizeLimits returns the reconciled component size limits of primary species i.
func (s *State) SizeLimits(i int) (types.ComponentSizeLimits, error) {
	z, err := s.sizes.Get()
	if err != nil {
		return types.ComponentSizeLimits{}, err
	}
	if err := checkIndex(i, len(z.limits)-1); err != nil {
		return types.ComponentSizeLimits{}, err
	}
	return z.limits[i], nil
}

// SizeLimitsReconciled reports whether species i's observed height or diameter fell
// outside its baseline limits, so that the stored limits were widened.
func (s *State) SizeLimitsReconciled(i int) (bool, error) {
	z, err := s.sizes.Get()
	if err != nil {
		return false, err
	}
	if err := checkIndex(i, len(z.reconciled)-1); err != nil {
		return false, err
	}
	return z.reconciled[i], nil
}

// PolygonFinalDiameter returns the quadratic mean diameter of the primary layer's
// aggregate row in the ALL class.
func (s *State) PolygonFinalDiameter() (float64, error) {
	z, err := s.sizes.Get()
	if err != nil {
		return 0, err
	}
	return z.polygonFinalDiameter, nil
}

// SpeciesFinalDiameter returns the quadratic mean diameter of primary species i in the
// ALL class.
func (s *State) SpeciesFinalDiameter(i int) (float64, error) {
	z, err := s.sizes.Get()
	if err != nil {
		return 0, err
	}
	if err := checkIndex(i, len(z.speciesFinalDiameter)-1); err != nil {
		return 0, err
	}
	return z.speciesFinalDiameter[i], nil
}

func checkIndex(i, nSpecies int) error {
	if i < 1 || i > nSpecies {
		return &processing.ContractError{
			Invariant: processing.InvariantSpeciesIndexOutOfRange,
			Detail:    fmt.Sprintf("index %d, species 1..%d", i, nSpecies),
		}
	}
	return nil
}
