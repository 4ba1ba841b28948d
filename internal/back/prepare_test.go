package back

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcgov/nr-vdyp-sub007/internal/control"
	"github.com/bcgov/nr-vdyp-sub007/internal/estimate"
	"github.com/bcgov/nr-vdyp-sub007/internal/processing"
	"github.com/bcgov/nr-vdyp-sub007/internal/types"
)

func newSpecies(genus string, basalArea, loreyHeight, qmd float64) types.Species {
	sp := types.Species{Genus: genus, PercentGenus: 100}
	sp.BasalArea.Set(types.UtilizationAll, basalArea)
	sp.LoreyHeight.Set(types.UtilizationAll, loreyHeight)
	sp.QuadMeanDiameter.Set(types.UtilizationAll, qmd)
	return sp
}

func newPolygon(primary []types.Species, veteran []types.Species, veteranStatedBasalArea float64) *types.Polygon {
	p := &types.Polygon{
		Identifier: types.PolygonIdentifier{Base: "01002 S000001 00", Year: 1970},
		BecZone:    "CWH",
		Layers: map[types.LayerType]*types.Layer{
			types.LayerPrimary: {LayerType: types.LayerPrimary, Species: primary},
		},
	}
	if veteran != nil {
		layer := &types.Layer{LayerType: types.LayerVeteran, Species: veteran}
		layer.BasalArea.Set(types.UtilizationAll, veteranStatedBasalArea)
		p.Layers[types.LayerVeteran] = layer
	}
	return p
}

func newTestState(t *testing.T, logger *slog.Logger) *State {
	t.Helper()
	m, err := control.Default()
	require.NoError(t, err)
	return NewState(m, estimate.NewTableEstimator(m), nil, logger)
}

// Test compatibility variable values. The class term uses the storage index (ALL is 0)
// and the layer term is (ordinal+1)*5, so PRIMARY contributes 5.
func volumeCV(uc types.UtilizationClass, vv types.VolumeVariable, lt types.LayerType) float64 {
	return float64(11 + int(vv)*2 + uc.StorageIndex()*3 + (int(lt)+1)*5)
}

func basalAreaCV(uc types.UtilizationClass, lt types.LayerType) float64 {
	return float64(11 + uc.StorageIndex()*3 + (int(lt)+1)*5)
}

func qmdCV(uc types.UtilizationClass, lt types.LayerType) float64 {
	return float64(15 + uc.StorageIndex()*3 + (int(lt)+1)*5)
}

func installFormulaCVs(t *testing.T, s *State) {
	t.Helper()
	primary, err := s.Primary()
	require.NoError(t, err)

	n := primary.NSpecies()
	volume := make([]*processing.VolumeMatrix, n+1)
	basalArea := make([]*processing.ClassMatrix, n+1)
	qmd := make([]*processing.ClassMatrix, n+1)
	small := make([]map[types.SmallVariable]float64, n+1)
	for i := 1; i <= n; i++ {
		volume[i] = processing.NewVolumeMatrix()
		basalArea[i] = processing.NewClassMatrix()
		qmd[i] = processing.NewClassMatrix()
		small[i] = map[types.SmallVariable]float64{}
		for _, uc := range types.CompatibilityClasses {
			for _, lt := range types.LayerTypes {
				for _, vv := range types.VolumeVariables {
					require.NoError(t, volume[i].Put(uc, vv, lt, volumeCV(uc, vv, lt)))
				}
				require.NoError(t, basalArea[i].Put(uc, lt, basalAreaCV(uc, lt)))
				require.NoError(t, qmd[i].Put(uc, lt, qmdCV(uc, lt)))
			}
		}
		for j, sv := range types.SmallVariables {
			small[i][sv] = float64(j + 1)
		}
	}
	require.NoError(t, primary.SetCompatibilityVariableDetails(volume, basalArea, qmd, small))
}

func TestPrepare_BaseAreaVeteran(t *testing.T) {
	tests := []struct {
		name        string
		polygon     *types.Polygon
		wantPresent bool
		want        float64
	}{
		{
			name:    "primary only",
			polygon: newPolygon([]types.Species{newSpecies("B", 35, 22, 30)}, nil, 0),
		},
		{
			name: "veteran consistent with species",
			polygon: newPolygon(
				[]types.Species{newSpecies("B", 35, 22, 30)},
				[]types.Species{newSpecies("H", 20, 35, 60)},
				20,
			),
			wantPresent: true,
			want:        20,
		},
		{
			name: "veteran aggregate disagrees with species",
			polygon: newPolygon(
				[]types.Species{newSpecies("B", 35, 22, 30)},
				[]types.Species{newSpecies("H", 12, 35, 60), newSpecies("C", 8, 30, 55)},
				42,
			),
			wantPresent: true,
			want:        20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState(t, nil)
			require.NoError(t, s.SetPolygon(tt.polygon))
			require.NoError(t, Prepare(s, StepBaseAreaVeteran))

			ba, ok := s.BaseAreaVeteran()
			assert.Equal(t, tt.wantPresent, ok)
			assert.Equal(t, tt.want, ba)
		})
	}
}

func TestPrepare_CompatibilityVariableSlicing(t *testing.T) {
	s := newTestState(t, nil)
	require.NoError(t, s.SetPolygon(newPolygon([]types.Species{newSpecies("B", 35, 22, 30)}, nil, 0)))
	installFormulaCVs(t, s)

	require.NoError(t, Prepare(s, StepCompatibilityVariables))

	wantBasalArea := []float64{16, 19, 22, 25, 28}
	wantQMD := []float64{20, 23, 26, 29, 32}
	for k, uc := range types.CompatibilityClasses {
		ba, err := s.CVBasalArea(1, uc)
		require.NoError(t, err)
		assert.Equal(t, wantBasalArea[k], ba, "basal area %s", uc)

		qmd, err := s.CVQuadraticMeanDiameter(1, uc)
		require.NoError(t, err)
		assert.Equal(t, wantQMD[k], qmd, "quadratic mean diameter %s", uc)

		for _, vv := range types.VolumeVariables {
			v, err := s.CVVolume(1, uc, vv)
			require.NoError(t, err)
			assert.Equal(t, volumeCV(uc, vv, types.LayerPrimary), v)
		}
	}

	small, err := s.CVSmall(1, types.SmallWholeStemVolume)
	require.NoError(t, err)
	assert.Equal(t, 4.0, small)

	_, err = s.SizeLimits(1)
	assert.Equal(t, "size limits not set", processing.Invariant(err), "later steps did not run")
}

func TestPrepare_CompatibilityVariableKeyOutOfRange(t *testing.T) {
	s := newTestState(t, nil)
	require.NoError(t, s.SetPolygon(newPolygon([]types.Species{newSpecies("B", 35, 22, 30)}, nil, 0)))
	installFormulaCVs(t, s)
	require.NoError(t, Prepare(s, StepCompatibilityVariables))

	_, err := s.CVBasalArea(1, types.UtilizationSmall)
	assert.Equal(t, processing.InvariantCompatibilityKey, processing.Invariant(err))
	_, err = s.CVQuadraticMeanDiameter(1, types.UtilizationClass(99))
	assert.Equal(t, processing.InvariantCompatibilityKey, processing.Invariant(err))
	_, err = s.CVVolume(1, types.UtilizationSmall, types.WholeStemVolume)
	assert.Equal(t, processing.InvariantCompatibilityKey, processing.Invariant(err))
}

func TestPrepare_SizeLimits(t *testing.T) {
	s := newTestState(t, nil)
	require.NoError(t, s.SetPolygon(newPolygon([]types.Species{newSpecies("B", 35, 22.9584007, 31.5006275)}, nil, 0)))
	installFormulaCVs(t, s)

	require.NoError(t, Prepare(s, StepAll))

	limits, err := s.SizeLimits(1)
	require.NoError(t, err)
	assert.InDelta(t, 39.9, limits.LoreyHeightMaximum, 0.0001)
	assert.InDelta(t, 75.8, limits.QuadMeanDiameterMaximum, 0.0001)
	assert.InDelta(t, 0.792, limits.MinQuadMeanDiameterLoreyHeightRatio, 0.0001)
	assert.InDelta(t, 2.155, limits.MaxQuadMeanDiameterLoreyHeightRatio, 0.0001)

	final, err := s.SpeciesFinalDiameter(1)
	require.NoError(t, err)
	assert.InDelta(t, 31.5006275, final, 1e-9)

	polygonFinal, err := s.PolygonFinalDiameter()
	require.NoError(t, err)
	assert.InDelta(t, 31.5006275, polygonFinal, 1e-6)
}

func TestPrepare_SizeLimitsWidenAndLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := newTestState(t, logger)
	require.NoError(t, s.SetPolygon(newPolygon([]types.Species{
		newSpecies("B", 20, 45, 100),
		newSpecies("H", 10, 20, 30),
	}, nil, 0)))
	installFormulaCVs(t, s)
	require.NoError(t, Prepare(s, StepAll))

	limits, err := s.SizeLimits(1)
	require.NoError(t, err)
	assert.Equal(t, 45.0, limits.LoreyHeightMaximum)
	assert.Equal(t, 100.0, limits.QuadMeanDiameterMaximum)
	assert.Equal(t, 0.792, limits.MinQuadMeanDiameterLoreyHeightRatio)
	assert.InDelta(t, 100.0/45.0, limits.MaxQuadMeanDiameterLoreyHeightRatio, 1e-9)

	assert.Contains(t, buf.String(), "size limits reconciled")
	assert.Contains(t, buf.String(), "species=B")
	assert.NotContains(t, buf.String(), "species=H", "limits inside the baseline are not logged")

	polygonFinal, err := s.PolygonFinalDiameter()
	require.NoError(t, err)
	final1, _ := s.SpeciesFinalDiameter(1)
	final2, _ := s.SpeciesFinalDiameter(2)
	assert.Equal(t, 100.0, final1)
	assert.Equal(t, 30.0, final2)
	assert.Greater(t, polygonFinal, final2)
	assert.Less(t, polygonFinal, final1)

	_, err = s.SpeciesFinalDiameter(3)
	assert.Equal(t, processing.InvariantSpeciesIndexOutOfRange, processing.Invariant(err))
	_, err = s.SizeLimits(0)
	assert.Equal(t, processing.InvariantSpeciesIndexOutOfRange, processing.Invariant(err))
}

func TestPrepare_ZeroLoreyHeightIsProcessingError(t *testing.T) {
	s := newTestState(t, nil)
	require.NoError(t, s.SetPolygon(newPolygon([]types.Species{newSpecies("B", 35, 0, 30)}, nil, 0)))
	installFormulaCVs(t, s)

	err := Prepare(s, StepAll)
	var procErr *processing.Error
	require.True(t, errors.As(err, &procErr))
	assert.False(t, processing.IsContractError(err))
	assert.Contains(t, err.Error(), "Lorey height")
}

func TestPrepare_MissingBaseline(t *testing.T) {
	s := newTestState(t, nil)
	require.NoError(t, s.SetPolygon(newPolygon([]types.Species{newSpecies("ZZ", 35, 20, 30)}, nil, 0)))
	installFormulaCVs(t, s)

	err := Prepare(s, StepAll)
	var lookupErr *estimate.LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.False(t, processing.IsContractError(err))
}

func TestPrepare_CompatibilityVariablesRequired(t *testing.T) {
	s := newTestState(t, nil)
	require.NoError(t, s.SetPolygon(newPolygon([]types.Species{newSpecies("B", 35, 20, 30)}, nil, 0)))

	err := Prepare(s, StepCompatibilityVariables)
	assert.Equal(t, processing.InvariantCompatibilityNotSet, processing.Invariant(err))
}

func TestState_WriteOnce(t *testing.T) {
	s := newTestState(t, nil)
	require.NoError(t, s.SetPolygon(newPolygon([]types.Species{newSpecies("B", 35, 20, 30)}, nil, 0)))
	installFormulaCVs(t, s)
	require.NoError(t, Prepare(s, StepCompatibilityVariables))

	err := s.SetCompatibilityVariableDetails(
		[]*processing.SpeciesVolumeMatrix{nil, processing.NewSpeciesVolumeMatrix()},
		[]map[types.UtilizationClass]float64{nil, {types.UtilizationAll: 999}},
		[]map[types.UtilizationClass]float64{nil, {}},
		[]map[types.SmallVariable]float64{nil, {}},
	)
	assert.Equal(t, processing.InvariantCompatibilityAlreadySet, processing.Invariant(err))

	ba, err := s.CVBasalArea(1, types.UtilizationAll)
	require.NoError(t, err)
	assert.Equal(t, 16.0, ba)

	err = Prepare(s, StepCompatibilityVariables)
	assert.Equal(t, processing.InvariantCompatibilityAlreadySet, processing.Invariant(err), "preparing twice is a contract violation")

	primary, err := s.Primary()
	require.NoError(t, err)
	err = primary.SetCompatibilityVariableDetails(nil, nil, nil, nil)
	assert.Equal(t, processing.InvariantCompatibilityAlreadySet, processing.Invariant(err))
}

func TestState_ReadBeforeWrite(t *testing.T) {
	s := newTestState(t, nil)
	require.NoError(t, s.SetPolygon(newPolygon([]types.Species{newSpecies("B", 35, 20, 30)}, nil, 0)))

	calls := map[string]func() error{
		"volume":      func() error { _, err := s.CVVolume(1, types.UtilizationAll, types.WholeStemVolume); return err },
		"basal area":  func() error { _, err := s.CVBasalArea(1, types.UtilizationAll); return err },
		"diameter":    func() error { _, err := s.CVQuadraticMeanDiameter(1, types.UtilizationAll); return err },
		"small":       func() error { _, err := s.CVSmall(1, types.SmallBasalArea); return err },
		"layer small": func() error { p, _ := s.Primary(); _, err := p.CVSmall(1, types.SmallBasalArea); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, processing.InvariantCompatibilityNotSet, processing.Invariant(call()))
		})
	}
}

func TestState_SetPolygonClearsPreparedValues(t *testing.T) {
	s := newTestState(t, nil)
	require.NoError(t, s.SetPolygon(newPolygon(
		[]types.Species{newSpecies("B", 35, 20, 30)},
		[]types.Species{newSpecies("H", 20, 35, 60)},
		20,
	)))
	installFormulaCVs(t, s)
	require.NoError(t, Prepare(s, StepAll))

	require.NoError(t, s.SetPolygon(newPolygon([]types.Species{newSpecies("B", 35, 20, 30)}, nil, 0)))
	_, ok := s.BaseAreaVeteran()
	assert.False(t, ok)
	_, err := s.CVBasalArea(1, types.UtilizationAll)
	assert.Equal(t, processing.InvariantCompatibilityNotSet, processing.Invariant(err))
}

func TestSteps(t *testing.T) {
	assert.Equal(t, StepNone, Steps.First())
	assert.Equal(t, StepAll, Steps.Last())

	_, err := Steps.Predecessor(StepNone)
	assert.Equal(t, processing.InvariantNoPredecessor, processing.Invariant(err))
	_, err = Steps.Successor(StepAll)
	assert.Equal(t, processing.InvariantNoSuccessor, processing.Invariant(err))

	steps := Steps.Steps()
	for _, step := range steps[1 : len(steps)-1] {
		prev, err := Steps.Predecessor(step)
		require.NoError(t, err)
		back, err := Steps.Successor(prev)
		require.NoError(t, err)
		assert.Equal(t, step, back)
	}

	parsed, err := Steps.Parse("size-limits")
	require.NoError(t, err)
	assert.Equal(t, StepSizeLimits, parsed)

	err = Prepare(newTestState(t, nil), ExecutionStep(42))
	assert.Equal(t, processing.InvariantUnknownStep, processing.Invariant(err))
}
