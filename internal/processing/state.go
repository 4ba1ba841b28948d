package processing

import (
	"fmt"
	"log/slog"

	"github.com/bcgov/nr-vdyp-sub007/internal/compute"
	"github.com/bcgov/nr-vdyp-sub007/internal/control"
	"github.com/bcgov/nr-vdyp-sub007/internal/estimate"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// LayerFactory builds a stage's layer state for layer type lt of the owner's current
// polygon.
type LayerFactory[L LayerState] func(owner *State[L], lt types.LayerType) (L, error)

// State is the polygon processing state of one stage engine. It owns the polygon being
// processed and the layer states built from it. A State handles one polygon at a time
// and is not safe for concurrent use; the services it holds are shared read-only.
type State[L LayerState] struct {
	controlMap *control.Map
	estimator  estimate.Estimator
	computer   *compute.Computer
	factory    LayerFactory[L]
	logger     *slog.Logger

	polygon    *types.Polygon
	region     types.Region
	primary    L
	veteran    L
	hasVeteran bool
}

// New creates a processing state. A nil logger uses slog.Default().
func New[L LayerState](
	controlMap *control.Map,
	estimator estimate.Estimator,
	computer *compute.Computer,
	factory LayerFactory[L],
	logger *slog.Logger,
) *State[L] {
	if logger == nil {
		logger = slog.Default()
	}
	if computer == nil {
		computer = compute.NewComputer()
	}
	return &State[L]{
		controlMap: controlMap,
		estimator:  estimator,
		computer:   computer,
		factory:    factory,
		logger:     logger,
	}
}

// SetPolygon makes polygon the current polygon and builds its layer states. The
// primary layer is required; the veteran layer state is built only when the polygon has
// one. On error the state is left without a polygon.
func (s *State[L]) SetPolygon(polygon *types.Polygon) error {
	s.reset()
	if polygon == nil {
		return &ContractError{Invariant: InvariantPolygonNotSet, Detail: "polygon is nil"}
	}
	if _, ok := polygon.Layer(types.LayerPrimary); !ok {
		return contractf(InvariantMissingPrimaryLayer, "polygon %s", polygon.Identifier)
	}

	region, err := s.controlMap.Region(polygon.BecZone)
	if err != nil {
		return &Error{Message: fmt.Sprintf("polygon %s", polygon.Identifier), Cause: err}
	}

	s.polygon = polygon
	s.region = region

	primary, err := s.factory(s, types.LayerPrimary)
	if err != nil {
		s.reset()
		return err
	}
	s.primary = primary

	if _, ok := polygon.Layer(types.LayerVeteran); ok {
		veteran, err := s.factory(s, types.LayerVeteran)
		if err != nil {
			s.reset()
			return &Error{Message: fmt.Sprintf("failed to build veteran layer state for polygon %s", polygon.Identifier), Cause: err}
		}
		s.veteran = veteran
		s.hasVeteran = true
	}

	s.logger.Debug("polygon set",
		"polygon", polygon.Identifier.String(),
		"region", string(region),
		"veteran", s.hasVeteran,
	)
	return nil
}

func (s *State[L]) reset() {
	var zero L
	s.polygon = nil
	s.region = ""
	s.primary = zero
	s.veteran = zero
	s.hasVeteran = false
}

func (s *State[L]) requirePolygon() error {
	if s.polygon == nil {
		return &ContractError{Invariant: InvariantPolygonNotSet}
	}
	return nil
}

// Polygon returns the current polygon.
func (s *State[L]) Polygon() (*types.Polygon, error) {
	if err := s.requirePolygon(); err != nil {
		return nil, err
	}
	return s.polygon, nil
}

// CompactIdentifier returns the current polygon's "<base> <year>" identifier.
func (s *State[L]) CompactIdentifier() (string, error) {
	if err := s.requirePolygon(); err != nil {
		return "", err
	}
	return s.polygon.Identifier.String(), nil
}

// StartYear returns the year of the current polygon's identifier.
func (s *State[L]) StartYear() (int, error) {
	if err := s.requirePolygon(); err != nil {
		return 0, err
	}
	return s.polygon.Identifier.Year, nil
}

// BecZone returns the current polygon's BEC zone.
func (s *State[L]) BecZone() (string, error) {
	if err := s.requirePolygon(); err != nil {
		return "", err
	}
	return s.polygon.BecZone, nil
}

// Region returns the region of the current polygon's BEC zone.
func (s *State[L]) Region() (types.Region, error) {
	if err := s.requirePolygon(); err != nil {
		return "", err
	}
	return s.region, nil
}

// Primary returns the primary layer state.
func (s *State[L]) Primary() (L, error) {
	if err := s.requirePolygon(); err != nil {
		var zero L
		return zero, err
	}
	return s.primary, nil
}

// Veteran returns the veteran layer state and whether the polygon has a veteran layer.
func (s *State[L]) Veteran() (L, bool, error) {
	if err := s.requirePolygon(); err != nil {
		var zero L
		return zero, false, err
	}
	return s.veteran, s.hasVeteran, nil
}

// ControlMap returns the resolved control map.
func (s *State[L]) ControlMap() *control.Map {
	return s.controlMap
}

// Estimator returns the estimator service.
func (s *State[L]) Estimator() estimate.Estimator {
	return s.estimator
}

// Computer returns the computation service.
func (s *State[L]) Computer() *compute.Computer {
	return s.computer
}

// Logger returns the state's logger.
func (s *State[L]) Logger() *slog.Logger {
	return s.logger
}

// UpdatePolygon folds each layer state's bank back into the polygon's layers and returns
// the polygon. The primary layer is always written; the veteran layer when present.
func (s *State[L]) UpdatePolygon() (*types.Polygon, error) {
	if err := s.requirePolygon(); err != nil {
		return nil, err
	}

	layer, err := s.primary.UpdateLayerFromBank()
	if err != nil {
		return nil, fmt.Errorf("primary layer: %w", err)
	}
	s.polygon.Layers[types.LayerPrimary] = layer

	if s.hasVeteran {
		layer, err := s.veteran.UpdateLayerFromBank()
		if err != nil {
			return nil, fmt.Errorf("veteran layer: %w", err)
		}
		s.polygon.Layers[types.LayerVeteran] = layer
	}
	return s.polygon, nil
}
