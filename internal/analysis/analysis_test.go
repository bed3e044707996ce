package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/excikin/excikin/internal/kinetics"
	"github.com/excikin/excikin/internal/model"
	"github.com/excikin/excikin/internal/rates"
)

func testTrajectory(times []float64, conc []float64, nStates int) *kinetics.Trajectory {
	return &kinetics.Trajectory{
		Times: times,
		Conc:  mat.NewDense(len(times), nStates, conc),
	}
}

func TestProductRatios(t *testing.T) {
	t.Parallel()

	reg, err := model.NewRegistry([]model.State{
		{Name: "S1_fc", Conc: 1, Role: model.RoleReactant, Reference: true},
		{Name: "S0_cis", Label: "cis", Role: model.RoleProduct},
		{Name: "S0_trans_a", Label: "trans", Role: model.RoleProduct},
		{Name: "S0_trans_b", Label: "trans", Role: model.RoleProduct},
	})
	require.NoError(t, err)

	tr := testTrajectory(
		[]float64{0, 1e-9},
		[]float64{
			1.0, 0.0, 0.0, 0.0,
			0.1, 0.3, 0.4, 0.2,
		}, 4)

	ratios, err := ProductRatios(tr, reg)
	require.NoError(t, err)
	require.Len(t, ratios, 2)

	// Labels sort alphabetically; shared labels pool their population.
	// Intermediates are excluded from the denominator.
	assert.Equal(t, "cis", ratios[0].Label)
	assert.InDelta(t, 100*0.3/0.9, ratios[0].Percent, 1e-12)
	assert.Equal(t, "trans", ratios[1].Label)
	assert.InDelta(t, 100*0.6/0.9, ratios[1].Percent, 1e-12)
	assert.InDelta(t, 100, ratios[0].Percent+ratios[1].Percent, 1e-12)
}

func TestProductRatios_SequentialThreeState(t *testing.T) {
	t.Parallel()

	// A → B → C with k1 = 2 and k2 = 1 over [0, 10]: essentially all
	// population reaches the single product, so it takes the whole ratio.
	reg, err := model.NewRegistry([]model.State{
		{Name: "A", Conc: 1, Role: model.RoleReactant, Reference: true},
		{Name: "B"},
		{Name: "C", Label: "C", Role: model.RoleProduct},
	})
	require.NoError(t, err)
	m := &rates.Matrices{
		Rates: mat.NewDense(3, 3, []float64{
			0, 2, 0,
			0, 0, 1,
			0, 0, 0,
		}),
		DeltaE: mat.NewDense(3, 3, nil),
	}
	sys, err := kinetics.NewSystem(reg, m)
	require.NoError(t, err)

	tr, err := kinetics.NewDormandPrince().Integrate(sys, kinetics.TimeGrid(10, 1000))
	require.NoError(t, err)

	ratios, err := ProductRatios(tr, reg)
	require.NoError(t, err)
	require.Len(t, ratios, 1)
	assert.Equal(t, "C", ratios[0].Label)
	assert.InDelta(t, 100, ratios[0].Percent, 1e-12)
}

func TestProductRatios_NoProducts(t *testing.T) {
	t.Parallel()

	reg, err := model.NewRegistry([]model.State{
		{Name: "a", Conc: 1, Reference: true},
	})
	require.NoError(t, err)

	tr := testTrajectory([]float64{0}, []float64{1.0}, 1)
	_, err = ProductRatios(tr, reg)
	assert.ErrorIs(t, err, ErrNoProducts)
}

func TestProductRatios_ZeroPopulation(t *testing.T) {
	t.Parallel()

	reg, err := model.NewRegistry([]model.State{
		{Name: "a", Conc: 1, Reference: true},
		{Name: "p", Role: model.RoleProduct},
	})
	require.NoError(t, err)

	tr := testTrajectory([]float64{0}, []float64{1.0, 0.0}, 2)
	_, err = ProductRatios(tr, reg)
	assert.ErrorIs(t, err, ErrNoProductPopulation)
}

func TestGroupSeries(t *testing.T) {
	t.Parallel()

	reg, err := model.NewRegistry([]model.State{
		{Name: "a", Conc: 1, Reference: true},
		{Name: "b"},
		{Name: "c"},
	})
	require.NoError(t, err)

	tr := testTrajectory(
		[]float64{0, 1},
		[]float64{
			1.0, 0.0, 0.0,
			0.2, 0.5, 0.3,
		}, 3)

	sum, err := GroupSeries(tr, reg, []string{"b", "c"})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sum[0], 1e-15)
	assert.InDelta(t, 0.8, sum[1], 1e-15)

	_, err = GroupSeries(tr, reg, []string{"missing"})
	assert.ErrorIs(t, err, model.ErrStateNotFound)

	_, err = GroupSeries(tr, reg, nil)
	assert.Error(t, err)
}

func TestFitExponential_RecoversDecay(t *testing.T) {
	t.Parallel()

	const (
		amp    = 0.9
		k      = -2.0e9
		offset = 0.1
	)
	times := kinetics.TimeGrid(3e-9, 60)
	values := make([]float64, len(times))
	for i, ti := range times {
		values[i] = amp*math.Exp(k*ti) + offset
	}

	fit, err := FitExponential(times, values)
	require.NoError(t, err)
	assert.InDelta(t, amp, fit.Amplitude, 1e-3)
	assert.InDelta(t, k, fit.RateK, math.Abs(k)*1e-3)
	assert.InDelta(t, offset, fit.Offset, 1e-3)
	assert.InDelta(t, 1/math.Abs(k), fit.Lifetime(), math.Abs(1/k)*1e-3)
}

func TestExpFit_LifetimePositiveEitherSign(t *testing.T) {
	t.Parallel()

	// The time constant is 1/|k| regardless of which sign the optimizer
	// lands on.
	assert.InDelta(t, 0.5e-9, ExpFit{RateK: -2e9}.Lifetime(), 1e-18)
	assert.InDelta(t, 0.5e-9, ExpFit{RateK: 2e9}.Lifetime(), 1e-18)
}

func TestFitExponential_RecoversRise(t *testing.T) {
	t.Parallel()

	// Product growth: negative amplitude, positive plateau.
	const (
		amp    = -0.7
		k      = -1.0e9
		offset = 0.7
	)
	times := kinetics.TimeGrid(5e-9, 60)
	values := make([]float64, len(times))
	for i, ti := range times {
		values[i] = amp*math.Exp(k*ti) + offset
	}

	fit, err := FitExponential(times, values)
	require.NoError(t, err)
	assert.InDelta(t, amp, fit.Amplitude, 1e-3)
	assert.InDelta(t, k, fit.RateK, math.Abs(k)*1e-3)
	assert.InDelta(t, offset, fit.Offset, 1e-3)
}

func TestFitExponential_InputErrors(t *testing.T) {
	t.Parallel()

	_, err := FitExponential([]float64{0, 1}, []float64{1})
	assert.Error(t, err)

	_, err = FitExponential([]float64{0, 1, 2}, []float64{1, 0.5, 0.3})
	assert.Error(t, err)
}

func TestExpFit_Eval(t *testing.T) {
	t.Parallel()

	f := ExpFit{Amplitude: 2, RateK: -1, Offset: 0.5}
	assert.InDelta(t, 2.5, f.Eval(0), 1e-15)
	assert.InDelta(t, 2/math.E+0.5, f.Eval(1), 1e-15)
}
