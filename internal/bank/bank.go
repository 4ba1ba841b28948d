package bank

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/bcgov/nr-vdyp-sub007/internal/compute"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

// Variable selects one of the per-class quantities held by a Bank.
type Variable int

// Bank variables.
const (
	BasalArea Variable = iota
	LoreyHeight
	QuadMeanDiameter
	TreesPerHectare
	WholeStemVolume
	CloseUtilizationVolume
	CloseUtilizationVolumeNetOfDecay
	CloseUtilizationVolumeNetOfDecayAndWaste
	CloseUtilizationVolumeNetOfDecayWasteAndBreakage
	variableCount
)

// Variables lists every bank variable.
var Variables = []Variable{
	BasalArea,
	LoreyHeight,
	QuadMeanDiameter,
	TreesPerHectare,
	WholeStemVolume,
	CloseUtilizationVolume,
	CloseUtilizationVolumeNetOfDecay,
	CloseUtilizationVolumeNetOfDecayAndWaste,
	CloseUtilizationVolumeNetOfDecayWasteAndBreakage,
}

// summed variables aggregate by plain sum across species.
var summed = []Variable{
	BasalArea,
	TreesPerHectare,
	WholeStemVolume,
	CloseUtilizationVolume,
	CloseUtilizationVolumeNetOfDecay,
	CloseUtilizationVolumeNetOfDecayAndWaste,
	CloseUtilizationVolumeNetOfDecayWasteAndBreakage,
}

var variableNames = [variableCount]string{
	"basal_area",
	"lorey_height",
	"quad_mean_diameter",
	"trees_per_hectare",
	"whole_stem_volume",
	"close_utilization_volume",
	"close_utilization_volume_net_of_decay",
	"close_utilization_volume_net_of_decay_and_waste",
	"close_utilization_volume_net_of_decay_waste_and_breakage",
}

func (v Variable) String() string {
	if v < 0 || v >= variableCount {
		return fmt.Sprintf("Variable(%d)", int(v))
	}
	return variableNames[v]
}

// Bank is the vectorized state of one layer. Row 0 is the all-species aggregate, rows
// 1..NSpecies are the included species in layer order. Columns are utilization class
// storage indexes (see types.UtilizationClass.StorageIndex).
//
// The shape is fixed at construction. A Bank is not safe for concurrent use.
type Bank struct {
	layerType types.LayerType
	genera    []string
	percents  []float64
	values    [variableCount][]types.UtilizationVector
	computer  *compute.Computer
}

// New builds a bank from layer, keeping the species for which include returns true.
// A nil include keeps every species. Trees per hectare is derived from basal area and
// quadratic mean diameter where the input leaves it at zero. The aggregate row is then
// recomputed from the included species.
func New(layer *types.Layer, include func(types.Species) bool, computer *compute.Computer) (*Bank, error) {
	if layer == nil {
		return nil, &BuildError{Message: "layer is nil"}
	}
	if computer == nil {
		computer = compute.NewComputer()
	}

	b := &Bank{
		layerType: layer.LayerType,
		genera:    []string{""},
		percents:  []float64{100},
		computer:  computer,
	}
	for v := range b.values {
		b.values[v] = []types.UtilizationVector{{}}
	}

	seen := make(map[string]bool, len(layer.Species))
	for i := range layer.Species {
		sp := layer.Species[i]
		if include != nil && !include(sp) {
			continue
		}
		if seen[sp.Genus] {
			return nil, &BuildError{Message: fmt.Sprintf("duplicate species %q in %s layer", sp.Genus, layer.LayerType)}
		}
		seen[sp.Genus] = true

		b.genera = append(b.genera, sp.Genus)
		b.percents = append(b.percents, sp.PercentGenus)
		vectors := speciesVectors(&sp)
		for v := range b.values {
			b.values[v] = append(b.values[v], *vectors[v])
		}
	}

	for i := 1; i < len(b.genera); i++ {
		for _, uc := range types.UtilizationClasses {
			if b.cell(TreesPerHectare, i, uc) > 0 {
				continue
			}
			tph := computer.TreesPerHectare(b.cell(BasalArea, i, uc), b.cell(QuadMeanDiameter, i, uc))
			b.values[TreesPerHectare][i].Set(uc, tph)
		}
	}

	b.RecomputeAggregate()
	return b, nil
}

// LayerType returns the type of the layer the bank was built from.
func (b *Bank) LayerType() types.LayerType {
	return b.layerType
}

// NSpecies returns the number of included species.
func (b *Bank) NSpecies() int {
	return len(b.genera) - 1
}

// Genus returns the genus at species index i (1..NSpecies).
func (b *Bank) Genus(i int) (string, error) {
	if i < 1 || i > b.NSpecies() {
		return "", &IndexError{Index: i, NSpecies: b.NSpecies()}
	}
	return b.genera[i], nil
}

// PercentGenus returns the percentage of the layer for species index i.
func (b *Bank) PercentGenus(i int) (float64, error) {
	if err := b.checkIndex(i); err != nil {
		return 0, err
	}
	return b.percents[i], nil
}

// SpeciesIndex returns the index of genus and whether it is in the bank.
func (b *Bank) SpeciesIndex(genus string) (int, bool) {
	for i := 1; i < len(b.genera); i++ {
		if b.genera[i] == genus {
			return i, true
		}
	}
	return 0, false
}

func (b *Bank) checkIndex(i int) error {
	if i < 0 || i > b.NSpecies() {
		return &IndexError{Index: i, NSpecies: b.NSpecies()}
	}
	return nil
}

func (b *Bank) cell(v Variable, i int, uc types.UtilizationClass) float64 {
	return b.values[v][i].Get(uc)
}

// Get returns variable v of species i (0 for the aggregate) in class uc.
func (b *Bank) Get(v Variable, i int, uc types.UtilizationClass) (float64, error) {
	if err := b.checkIndex(i); err != nil {
		return 0, err
	}
	return b.cell(v, i, uc), nil
}

// Set stores variable v of species i in class uc. Setting a species row does not update
// the aggregate; call RecomputeAggregate when done.
func (b *Bank) Set(v Variable, i int, uc types.UtilizationClass, value float64) error {
	if err := b.checkIndex(i); err != nil {
		return err
	}
	b.values[v][i].Set(uc, value)
	return nil
}

// Row returns a copy of every class value of variable v for species i.
func (b *Bank) Row(v Variable, i int) (types.UtilizationVector, error) {
	if err := b.checkIndex(i); err != nil {
		return types.UtilizationVector{}, err
	}
	return b.values[v][i], nil
}

// RecomputeAggregate rebuilds row 0 from the species rows: sums for basal area, density
// and volumes, the basal-area weighted mean for Lorey height, and quadratic mean
// diameter from the summed basal area and density.
func (b *Bank) RecomputeAggregate() {
	n := b.NSpecies()
	basal := make([]float64, n)
	column := make([]float64, n)

	for _, uc := range types.UtilizationClasses {
		for _, v := range summed {
			for i := 1; i <= n; i++ {
				column[i-1] = b.cell(v, i, uc)
			}
			b.values[v][0].Set(uc, floats.Sum(column))
		}

		for i := 1; i <= n; i++ {
			basal[i-1] = b.cell(BasalArea, i, uc)
			column[i-1] = b.cell(LoreyHeight, i, uc)
		}
		b.values[LoreyHeight][0].Set(uc, b.computer.LoreyHeight(column, basal))

		qmd := b.computer.QuadMeanDiameter(b.cell(BasalArea, 0, uc), b.cell(TreesPerHectare, 0, uc))
		b.values[QuadMeanDiameter][0].Set(uc, qmd)
	}
}

// WriteTo folds the bank back into layer: the aggregate row into the layer vectors and
// each species row into the species with the same genus. Species the bank excluded are
// left as they are.
func (b *Bank) WriteTo(layer *types.Layer) error {
	if layer == nil {
		return &BuildError{Message: "cannot write to nil layer"}
	}
	if layer.LayerType != b.layerType {
		return &BuildError{Message: fmt.Sprintf("bank of %s layer cannot be written to %s layer", b.layerType, layer.LayerType)}
	}

	aggregate := layerVectors(layer)
	for v := range b.values {
		*aggregate[v] = b.values[v][0]
	}

	for i := 1; i <= b.NSpecies(); i++ {
		sp, ok := layer.FindSpecies(b.genera[i])
		if !ok {
			return &BuildError{Message: fmt.Sprintf("species %q missing from %s layer", b.genera[i], layer.LayerType)}
		}
		sp.PercentGenus = b.percents[i]
		vectors := speciesVectors(sp)
		for v := range b.values {
			*vectors[v] = b.values[v][i]
		}
	}
	return nil
}

func speciesVectors(s *types.Species) [variableCount]*types.UtilizationVector {
	return [variableCount]*types.UtilizationVector{
		&s.BasalArea,
		&s.LoreyHeight,
		&s.QuadMeanDiameter,
		&s.TreesPerHectare,
		&s.WholeStemVolume,
		&s.CloseUtilizationVolume,
		&s.CloseUtilizationVolumeNetOfDecay,
		&s.CloseUtilizationVolumeNetOfDecayAndWaste,
		&s.CloseUtilizationVolumeNetOfDecayWasteAndBreakage,
	}
}

func layerVectors(l *types.Layer) [variableCount]*types.UtilizationVector {
	return [variableCount]*types.UtilizationVector{
		&l.BasalArea,
		&l.LoreyHeight,
		&l.QuadMeanDiameter,
		&l.TreesPerHectare,
		&l.WholeStemVolume,
		&l.CloseUtilizationVolume,
		&l.CloseUtilizationVolumeNetOfDecay,
		&l.CloseUtilizationVolumeNetOfDecayAndWaste,
		&l.CloseUtilizationVolumeNetOfDecayWasteAndBreakage,
	}
}
