package processing

import (
	"errors"
	"slices"

	"github.com/bcgov/nr-vdyp-sub007/internal/matrix"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// VolumeMatrix holds one species' volume compatibility variables across layers.
type VolumeMatrix = matrix.Map3[types.UtilizationClass, types.VolumeVariable, types.LayerType, float64]

// ClassMatrix holds one species' per-class compatibility variables across layers.
type ClassMatrix = matrix.Map2[types.UtilizationClass, types.LayerType, float64]

// SpeciesVolumeMatrix holds one species' volume compatibility variables for a single layer.
type SpeciesVolumeMatrix = matrix.Map2[types.UtilizationClass, types.VolumeVariable, float64]

// NewVolumeMatrix creates an empty volume matrix over the compatibility classes. Unset
// entries read as 0.
func NewVolumeMatrix() *VolumeMatrix {
	return matrix.NewMap3[types.UtilizationClass, types.VolumeVariable, types.LayerType, float64](
		types.CompatibilityClasses, types.VolumeVariables, types.LayerTypes, nil)
}

// NewClassMatrix creates an empty per-class matrix over the compatibility classes.
func NewClassMatrix() *ClassMatrix {
	return matrix.NewMap2[types.UtilizationClass, types.LayerType, float64](
		types.CompatibilityClasses, types.LayerTypes, nil)
}

// NewSpeciesVolumeMatrix creates an empty single-layer volume matrix.
func NewSpeciesVolumeMatrix() *SpeciesVolumeMatrix {
	return matrix.NewMap2[types.UtilizationClass, types.VolumeVariable, float64](
		types.CompatibilityClasses, types.VolumeVariables, nil)
}

// LayerCompatibility is the compatibility variable set of one layer in cross-layer form.
// Every slice is indexed by species 1..N; slot 0 is unused.
type LayerCompatibility struct {
	volume           []*VolumeMatrix
	basalArea        []*ClassMatrix
	quadMeanDiameter []*ClassMatrix
	small            []map[types.SmallVariable]float64
}

// NewLayerCompatibility checks that each piece has one entry per species plus the unused
// slot 0 and groups them.
func NewLayerCompatibility(
	nSpecies int,
	volume []*VolumeMatrix,
	basalArea []*ClassMatrix,
	quadMeanDiameter []*ClassMatrix,
	small []map[types.SmallVariable]float64,
) (*LayerCompatibility, error) {
	if err := checkShape(nSpecies, len(volume), len(basalArea), len(quadMeanDiameter), len(small)); err != nil {
		return nil, err
	}
	for i := 1; i <= nSpecies; i++ {
		if volume[i] == nil || basalArea[i] == nil || quadMeanDiameter[i] == nil {
			return nil, contractf(InvariantCompatibilityShape, "species %d has no matrix", i)
		}
	}
	return &LayerCompatibility{
		volume:           volume,
		basalArea:        basalArea,
		quadMeanDiameter: quadMeanDiameter,
		small:            small,
	}, nil
}

func checkShape(nSpecies int, lengths ...int) error {
	for _, n := range lengths {
		if n != nSpecies+1 {
			return contractf(InvariantCompatibilityShape, "expected %d entries for %d species, got %d", nSpecies+1, nSpecies, n)
		}
	}
	return nil
}

func checkSpecies(i, nSpecies int) error {
	if i < 1 || i > nSpecies {
		return contractf(InvariantSpeciesIndexOutOfRange, "index %d, species 1..%d", i, nSpecies)
	}
	return nil
}

// checkKey turns a key outside a matrix's dimensions into a contract violation.
func checkKey(v float64, err error) (float64, error) {
	var keyErr *matrix.KeyError
	if errors.As(err, &keyErr) {
		return 0, contractf(InvariantCompatibilityKey, "%v", keyErr.Key)
	}
	return v, err
}

func checkClass(uc types.UtilizationClass) error {
	if !slices.Contains(types.CompatibilityClasses, uc) {
		return contractf(InvariantCompatibilityKey, "utilization class %v", uc)
	}
	return nil
}

func checkSmall(sv types.SmallVariable) error {
	if !slices.Contains(types.SmallVariables, sv) {
		return contractf(InvariantCompatibilityKey, "small variable %v", sv)
	}
	return nil
}

// NSpecies returns the number of species covered.
func (c *LayerCompatibility) NSpecies() int {
	return len(c.volume) - 1
}

// Volume returns the volume variable vv of species i in class uc for layer lt.
func (c *LayerCompatibility) Volume(i int, uc types.UtilizationClass, vv types.VolumeVariable, lt types.LayerType) (float64, error) {
	if err := checkSpecies(i, c.NSpecies()); err != nil {
		return 0, err
	}
	return checkKey(c.volume[i].Lookup(uc, vv, lt))
}

// BasalArea returns the basal area variable of species i in class uc for layer lt.
func (c *LayerCompatibility) BasalArea(i int, uc types.UtilizationClass, lt types.LayerType) (float64, error) {
	if err := checkSpecies(i, c.NSpecies()); err != nil {
		return 0, err
	}
	return checkKey(c.basalArea[i].Lookup(uc, lt))
}

// QuadMeanDiameter returns the quadratic mean diameter variable of species i in class uc
// for layer lt.
func (c *LayerCompatibility) QuadMeanDiameter(i int, uc types.UtilizationClass, lt types.LayerType) (float64, error) {
	if err := checkSpecies(i, c.NSpecies()); err != nil {
		return 0, err
	}
	return checkKey(c.quadMeanDiameter[i].Lookup(uc, lt))
}

// Small returns the small-class variable sv of species i.
func (c *LayerCompatibility) Small(i int, sv types.SmallVariable) (float64, error) {
	if err := checkSpecies(i, c.NSpecies()); err != nil {
		return 0, err
	}
	if err := checkSmall(sv); err != nil {
		return 0, err
	}
	return c.small[i][sv], nil
}

// SpeciesVariables is one species' compatibility variables for a single layer.
type SpeciesVariables struct {
	Volume           *SpeciesVolumeMatrix
	BasalArea        map[types.UtilizationClass]float64
	QuadMeanDiameter map[types.UtilizationClass]float64
	Small            map[types.SmallVariable]float64
}

// Slice projects species i onto layer lt, giving its single-layer variables.
func (c *LayerCompatibility) Slice(i int, lt types.LayerType) (SpeciesVariables, error) {
	if err := checkSpecies(i, c.NSpecies()); err != nil {
		return SpeciesVariables{}, err
	}

	volume, err := matrix.Slice3(c.volume[i], lt)
	if err != nil {
		return SpeciesVariables{}, &Error{Message: "failed to slice volume variables", Cause: err}
	}
	basalArea, err := matrix.Slice2(c.basalArea[i], lt)
	if err != nil {
		return SpeciesVariables{}, &Error{Message: "failed to slice basal area variables", Cause: err}
	}
	quadMeanDiameter, err := matrix.Slice2(c.quadMeanDiameter[i], lt)
	if err != nil {
		return SpeciesVariables{}, &Error{Message: "failed to slice quadratic mean diameter variables", Cause: err}
	}

	small := make(map[types.SmallVariable]float64, len(c.small[i]))
	for sv, v := range c.small[i] {
		small[sv] = v
	}
	return SpeciesVariables{
		Volume:           volume,
		BasalArea:        basalArea,
		QuadMeanDiameter: quadMeanDiameter,
		Small:            small,
	}, nil
}

// SpeciesCompatibility is the compatibility variable set of one layer in single-layer
// form. Every slice is indexed by species 1..N; slot 0 is unused.
type SpeciesCompatibility struct {
	volume           []*SpeciesVolumeMatrix
	basalArea        []map[types.UtilizationClass]float64
	quadMeanDiameter []map[types.UtilizationClass]float64
	small            []map[types.SmallVariable]float64
}

// NewSpeciesCompatibility checks that each piece has one entry per species plus the
// unused slot 0 and groups them.
func NewSpeciesCompatibility(
	nSpecies int,
	volume []*SpeciesVolumeMatrix,
	basalArea []map[types.UtilizationClass]float64,
	quadMeanDiameter []map[types.UtilizationClass]float64,
	small []map[types.SmallVariable]float64,
) (*SpeciesCompatibility, error) {
	if err := checkShape(nSpecies, len(volume), len(basalArea), len(quadMeanDiameter), len(small)); err != nil {
		return nil, err
	}
	for i := 1; i <= nSpecies; i++ {
		if volume[i] == nil {
			return nil, contractf(InvariantCompatibilityShape, "species %d has no volume matrix", i)
		}
	}
	return &SpeciesCompatibility{
		volume:           volume,
		basalArea:        basalArea,
		quadMeanDiameter: quadMeanDiameter,
		small:            small,
	}, nil
}

// NSpecies returns the number of species covered.
func (c *SpeciesCompatibility) NSpecies() int {
	return len(c.volume) - 1
}

// Volume returns the volume variable vv of species i in class uc.
func (c *SpeciesCompatibility) Volume(i int, uc types.UtilizationClass, vv types.VolumeVariable) (float64, error) {
	if err := checkSpecies(i, c.NSpecies()); err != nil {
		return 0, err
	}
	return checkKey(c.volume[i].Lookup(uc, vv))
}

// BasalArea returns the basal area variable of species i in class uc.
func (c *SpeciesCompatibility) BasalArea(i int, uc types.UtilizationClass) (float64, error) {
	if err := checkSpecies(i, c.NSpecies()); err != nil {
		return 0, err
	}
	if err := checkClass(uc); err != nil {
		return 0, err
	}
	return c.basalArea[i][uc], nil
}

// QuadMeanDiameter returns the quadratic mean diameter variable of species i in class uc.
func (c *SpeciesCompatibility) QuadMeanDiameter(i int, uc types.UtilizationClass) (float64, error) {
	if err := checkSpecies(i, c.NSpecies()); err != nil {
		return 0, err
	}
	if err := checkClass(uc); err != nil {
		return 0, err
	}
	return c.quadMeanDiameter[i][uc], nil
}

// Small returns the small-class variable sv of species i.
func (c *SpeciesCompatibility) Small(i int, sv types.SmallVariable) (float64, error) {
	if err := checkSpecies(i, c.NSpecies()); err != nil {
		return 0, err
	}
	if err := checkSmall(sv); err != nil {
		return 0, err
	}
	return c.small[i][sv], nil
}
