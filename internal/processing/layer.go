package processing

import (
	"fmt"

	"github.com/bcgov/nr-vdyp-sub007/internal/bank"
	"github.com/bcgov/nr-vdyp-sub007/internal/compute"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// LayerState is the per-layer state a stage engine keeps for the polygon being processed.
type LayerState interface {
	LayerType() types.LayerType
	Bank() *bank.Bank
	// UpdateLayerFromBank projects the bank back into a layer value.
	UpdateLayerFromBank() (*types.Layer, error)
}

// LayerBase holds what every stage's layer state shares: the source layer, the bank
// built from it and the layer's write-once compatibility variables. Stage layer states
// embed it and supply the species filter and the write-back.
type LayerBase struct {
	polygon       *types.Polygon
	layerType     types.LayerType
	bank          *bank.Bank
	compatibility Once[*LayerCompatibility]
}

// NewLayerBase builds the bank for the layer of type lt in polygon, keeping the species
// for which include returns true.
func NewLayerBase(polygon *types.Polygon, lt types.LayerType, include func(types.Species) bool, computer *compute.Computer) (*LayerBase, error) {
	layer, ok := polygon.Layer(lt)
	if !ok {
		if lt == types.LayerPrimary {
			return nil, contractf(InvariantMissingPrimaryLayer, "polygon %s", polygon.Identifier)
		}
		return nil, &Error{Message: fmt.Sprintf("polygon %s has no %s layer", polygon.Identifier, lt)}
	}

	b, err := bank.New(layer, include, computer)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to build %s bank for polygon %s", lt, polygon.Identifier), Cause: err}
	}
	return &LayerBase{
		polygon:       polygon,
		layerType:     lt,
		bank:          b,
		compatibility: NewOnce[*LayerCompatibility](compatibilityVariablesLabel),
	}, nil
}

// Polygon returns the polygon the layer belongs to.
func (l *LayerBase) Polygon() *types.Polygon {
	return l.polygon
}

// LayerType returns the type of the layer.
func (l *LayerBase) LayerType() types.LayerType {
	return l.layerType
}

// Bank returns the layer's bank.
func (l *LayerBase) Bank() *bank.Bank {
	return l.bank
}

// NSpecies returns the number of species in the bank.
func (l *LayerBase) NSpecies() int {
	return l.bank.NSpecies()
}

// CheckSpeciesIndex fails with a contract error unless i is in 1..NSpecies.
func (l *LayerBase) CheckSpeciesIndex(i int) error {
	return checkSpecies(i, l.bank.NSpecies())
}

// WriteBank copies the polygon's layer, folds the bank into the copy and returns it.
// The polygon itself is not modified.
func (l *LayerBase) WriteBank() (*types.Layer, error) {
	source, ok := l.polygon.Layer(l.layerType)
	if !ok {
		return nil, &Error{Message: fmt.Sprintf("polygon %s lost its %s layer", l.polygon.Identifier, l.layerType)}
	}

	updated := *source
	updated.Species = make([]types.Species, len(source.Species))
	copy(updated.Species, source.Species)
	if err := l.bank.WriteTo(&updated); err != nil {
		return nil, &Error{Message: "failed to write bank", Cause: err}
	}
	return &updated, nil
}

// SetCompatibilityVariableDetails installs the layer's compatibility variables. Each
// slice is indexed by species 1..NSpecies with slot 0 unused. It may be called once;
// a second call fails and keeps the first values.
func (l *LayerBase) SetCompatibilityVariableDetails(
	volume []*VolumeMatrix,
	basalArea []*ClassMatrix,
	quadMeanDiameter []*ClassMatrix,
	small []map[types.SmallVariable]float64,
) error {
	if l.compatibility.IsSet() {
		return l.compatibility.Set(nil)
	}
	c, err := NewLayerCompatibility(l.NSpecies(), volume, basalArea, quadMeanDiameter, small)
	if err != nil {
		return err
	}
	return l.compatibility.Set(c)
}

// InstallCompatibility installs an already grouped variable set. It follows the same
// write-once rule as SetCompatibilityVariableDetails.
func (l *LayerBase) InstallCompatibility(c *LayerCompatibility) error {
	if l.compatibility.IsSet() {
		return l.compatibility.Set(nil)
	}
	if c == nil || c.NSpecies() != l.NSpecies() {
		n := -1
		if c != nil {
			n = c.NSpecies()
		}
		return contractf(InvariantCompatibilityShape, "variables cover %d species, layer has %d", n, l.NSpecies())
	}
	return l.compatibility.Set(c)
}

// Compatibility returns the installed variable set.
func (l *LayerBase) Compatibility() (*LayerCompatibility, error) {
	return l.compatibility.Get()
}

// HasCompatibility reports whether the variables have been installed.
func (l *LayerBase) HasCompatibility() bool {
	return l.compatibility.IsSet()
}

// CVVolume returns the volume compatibility variable of species i.
func (l *LayerBase) CVVolume(i int, uc types.UtilizationClass, vv types.VolumeVariable, lt types.LayerType) (float64, error) {
	c, err := l.compatibility.Get()
	if err != nil {
		return 0, err
	}
	return c.Volume(i, uc, vv, lt)
}

// CVBasalArea returns the basal area compatibility variable of species i.
func (l *LayerBase) CVBasalArea(i int, uc types.UtilizationClass, lt types.LayerType) (float64, error) {
	c, err := l.compatibility.Get()
	if err != nil {
		return 0, err
	}
	return c.BasalArea(i, uc, lt)
}

// CVQuadraticMeanDiameter returns the quadratic mean diameter compatibility variable of
// species i.
func (l *LayerBase) CVQuadraticMeanDiameter(i int, uc types.UtilizationClass, lt types.LayerType) (float64, error) {
	c, err := l.compatibility.Get()
	if err != nil {
		return 0, err
	}
	return c.QuadMeanDiameter(i, uc, lt)
}

// CVSmall returns the small-class compatibility variable of species i.
func (l *LayerBase) CVSmall(i int, sv types.SmallVariable) (float64, error) {
	c, err := l.compatibility.Get()
	if err != nil {
		return 0, err
	}
	return c.Small(i, sv)
}
