// Package forward provides the prior stage engine. It builds the polygon's layer states
// and installs the compatibility variables that later stages read.
package forward

import (
	"fmt"
	"log/slog"

	"github.com/bcgov/nr-vdyp-sub007/internal/compute"
	"github.com/bcgov/nr-vdyp-sub007/internal/control"
	"github.com/bcgov/nr-vdyp-sub007/internal/estimate"
	"github.com/bcgov/nr-vdyp-sub007/internal/processing"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// ExecutionStep is a step of the forward engine.
type ExecutionStep int

// Forward execution steps in order.
const (
	StepNone ExecutionStep = iota
	StepCheckForWork
	StepSetCompatibilityVariables
	StepAll
)

func (s ExecutionStep) String() string {
	switch s {
	case StepNone:
		return "NONE"
	case StepCheckForWork:
		return "CHECK_FOR_WORK"
	case StepSetCompatibilityVariables:
		return "SET_COMPATIBILITY_VARIABLES"
	case StepAll:
		return "ALL"
	default:
		return fmt.Sprintf("ExecutionStep(%d)", int(s))
	}
}

// Steps is the forward execution sequence.
var Steps = processing.NewSequence(StepNone, StepCheckForWork, StepSetCompatibilityVariables, StepAll)

// LayerState is the forward engine's state for one layer. Only species with basal area
// enter the bank.
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

// Engine runs the forward stage over one polygon at a time.
type Engine struct {
	state  *processing.State[*LayerState]
	source processing.CompatibilitySource
	logger *slog.Logger
}

// NewEngine creates a forward engine whose compatibility variables come from source.
// A nil logger uses slog.Default().
func NewEngine(
	controlMap *control.Map,
	estimator estimate.Estimator,
	computer *compute.Computer,
	source processing.CompatibilitySource,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		state:  processing.New[*LayerState](controlMap, estimator, computer, NewLayerState, logger),
		source: source,
		logger: logger,
	}
}

// State returns the engine's processing state.
func (e *Engine) State() *processing.State[*LayerState] {
	return e.state
}

// ProcessPolygon sets polygon as the current polygon, runs the steps up to and including
// lastStep and writes the banks back into the polygon.
func (e *Engine) ProcessPolygon(polygon *types.Polygon, lastStep ExecutionStep) (*types.Polygon, error) {
	if !Steps.Contains(lastStep) {
		return nil, &processing.ContractError{Invariant: processing.InvariantUnknownStep, Detail: lastStep.String()}
	}
	if err := e.state.SetPolygon(polygon); err != nil {
		return nil, err
	}

	primary, err := e.state.Primary()
	if err != nil {
		return nil, err
	}

	if Steps.Le(StepCheckForWork, lastStep) {
		if primary.NSpecies() == 0 {
			return nil, &processing.Error{Message: fmt.Sprintf("polygon %s has no primary species with basal area", polygon.Identifier)}
		}
	}

	if Steps.Le(StepSetCompatibilityVariables, lastStep) {
		c, err := e.source.CompatibilityFor(primary.LayerBase)
		if err != nil {
			return nil, fmt.Errorf("polygon %s: %w", polygon.Identifier, err)
		}
		if err := primary.InstallCompatibility(c); err != nil {
			return nil, err
		}
		e.logger.Debug("compatibility variables set",
			"polygon", polygon.Identifier.String(),
			"species", primary.NSpecies(),
		)
	}

	return e.state.UpdatePolygon()
}

// CompatibilityFor supplies the forward primary layer's variables to a later stage
// processing the same polygon, reordered to that stage's species.
func (e *Engine) CompatibilityFor(layer *processing.LayerBase) (*processing.LayerCompatibility, error) {
	polygon, err := e.state.Polygon()
	if err != nil {
		return nil, err
	}
	if polygon.Identifier != layer.Polygon().Identifier {
		return nil, &processing.ContractError{
			Invariant: processing.InvariantPolygonMismatch,
			Detail:    fmt.Sprintf("forward stage holds polygon %s, not %s", polygon.Identifier, layer.Polygon().Identifier),
		}
	}
	if layer.LayerType() != types.LayerPrimary {
		return nil, &processing.Error{Message: fmt.Sprintf("forward stage has no variables for the %s layer", layer.LayerType())}
	}

	primary, err := e.state.Primary()
	if err != nil {
		return nil, err
	}
	c, err := primary.Compatibility()
	if err != nil {
		return nil, err
	}
	return c.Reindex(primary.Bank(), layer.Bank())
}
