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

// Engine runs the back stage over one polygon at a time.
type Engine struct {
	state  *State
	source processing.CompatibilitySource
	logger *slog.Logger
}

// NewEngine creates a back engine. source supplies the prior stage's primary layer
// variables. A nil logger uses slog.Default().
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
		state:  NewState(controlMap, estimator, computer, logger),
		source: source,
		logger: logger,
	}
}

// State returns the engine's processing state.
func (e *Engine) State() *State {
	return e.state
}

// ProcessPolygon sets polygon as the current polygon, installs the prior stage's
// primary layer variables, prepares up to and including lastStep and writes the banks
// back into the polygon.
func (e *Engine) ProcessPolygon(polygon *types.Polygon, lastStep ExecutionStep) (*types.Polygon, error) {
	if !Steps.Contains(lastStep) {
		return nil, &processing.ContractError{Invariant: processing.InvariantUnknownStep, Detail: lastStep.String()}
	}
	if err := e.state.SetPolygon(polygon); err != nil {
		return nil, err
	}

	if Steps.Le(StepCompatibilityVariables, lastStep) {
		primary, err := e.state.Primary()
		if err != nil {
			return nil, err
		}
		c, err := e.source.CompatibilityFor(primary.LayerBase)
		if err != nil {
			return nil, fmt.Errorf("polygon %s: %w", polygon.Identifier, err)
		}
		if err := primary.InstallCompatibility(c); err != nil {
			return nil, err
		}
	}

	if err := Prepare(e.state, lastStep); err != nil {
		return nil, err
	}

	e.logger.Debug("polygon prepared",
		"polygon", polygon.Identifier.String(),
		"last_step", lastStep.String(),
	)
	return e.state.UpdatePolygon()
}
