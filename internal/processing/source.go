package processing

import (
	"fmt"

	"github.com/bcgov/nr-vdyp-sub007/internal/bank"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// CompatibilitySource supplies the compatibility variables computed by a prior stage for
// a layer, ordered like that layer's bank.
type CompatibilitySource interface {
	CompatibilityFor(layer *LayerBase) (*LayerCompatibility, error)
}

// CarriedSource reads the variables carried on each species of the polygon's input.
type CarriedSource struct{}

// CompatibilityFor builds the variable set from the species' carried values. Every
// species in the bank must carry values.
func (CarriedSource) CompatibilityFor(layer *LayerBase) (*LayerCompatibility, error) {
	source, ok := layer.Polygon().Layer(layer.LayerType())
	if !ok {
		return nil, &Error{Message: fmt.Sprintf("polygon %s has no %s layer", layer.Polygon().Identifier, layer.LayerType())}
	}

	n := layer.NSpecies()
	volume := make([]*VolumeMatrix, n+1)
	basalArea := make([]*ClassMatrix, n+1)
	quadMeanDiameter := make([]*ClassMatrix, n+1)
	small := make([]map[types.SmallVariable]float64, n+1)

	for i := 1; i <= n; i++ {
		genus, err := layer.Bank().Genus(i)
		if err != nil {
			return nil, &Error{Message: "failed to read species", Cause: err}
		}
		sp, ok := source.FindSpecies(genus)
		if !ok || sp.Compatibility == nil {
			return nil, &Error{Message: fmt.Sprintf("species %s of polygon %s carries no compatibility variables", genus, layer.Polygon().Identifier)}
		}

		volume[i] = NewVolumeMatrix()
		basalArea[i] = NewClassMatrix()
		quadMeanDiameter[i] = NewClassMatrix()
		small[i] = make(map[types.SmallVariable]float64, len(types.SmallVariables))

		for _, v := range sp.Compatibility.Volume {
			if err := volume[i].Put(v.Class, v.Variable, v.Layer, v.Value); err != nil {
				return nil, &Error{Message: fmt.Sprintf("species %s volume variable", genus), Cause: err}
			}
		}
		for _, v := range sp.Compatibility.BasalArea {
			if err := basalArea[i].Put(v.Class, v.Layer, v.Value); err != nil {
				return nil, &Error{Message: fmt.Sprintf("species %s basal area variable", genus), Cause: err}
			}
		}
		for _, v := range sp.Compatibility.QuadMeanDiameter {
			if err := quadMeanDiameter[i].Put(v.Class, v.Layer, v.Value); err != nil {
				return nil, &Error{Message: fmt.Sprintf("species %s quadratic mean diameter variable", genus), Cause: err}
			}
		}
		for sv, v := range sp.Compatibility.Small {
			small[i][sv] = v
		}
	}

	return NewLayerCompatibility(n, volume, basalArea, quadMeanDiameter, small)
}

// Reindex reorders c, which is ordered like from, to the species order of to. Every
// species of to must be present in from.
func (c *LayerCompatibility) Reindex(from, to *bank.Bank) (*LayerCompatibility, error) {
	if from.NSpecies() != c.NSpecies() {
		return nil, contractf(InvariantCompatibilityShape, "variables cover %d species, source bank has %d", c.NSpecies(), from.NSpecies())
	}

	n := to.NSpecies()
	out := &LayerCompatibility{
		volume:           make([]*VolumeMatrix, n+1),
		basalArea:        make([]*ClassMatrix, n+1),
		quadMeanDiameter: make([]*ClassMatrix, n+1),
		small:            make([]map[types.SmallVariable]float64, n+1),
	}
	for i := 1; i <= n; i++ {
		genus, err := to.Genus(i)
		if err != nil {
			return nil, &Error{Message: "failed to read species", Cause: err}
		}
		j, ok := from.SpeciesIndex(genus)
		if !ok {
			return nil, &Error{Message: fmt.Sprintf("no compatibility variables for species %s", genus)}
		}
		out.volume[i] = c.volume[j]
		out.basalArea[i] = c.basalArea[j]
		out.quadMeanDiameter[i] = c.quadMeanDiameter[j]
		out.small[i] = c.small[j]
	}
	return out, nil
}
