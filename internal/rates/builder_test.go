package rates

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excikin/excikin/internal/model"
	"github.com/excikin/excikin/internal/physchem"
)

const testAtoms = 21 // 3N−6 = 57

// branchedGraph: A (reactant) → B by relaxation, B → TS → C over a barrier.
func branchedGraph(t *testing.T) *model.Graph {
	t.Helper()
	g, err := model.NewGraph([]model.StateDecl{
		{
			State:  model.State{Name: "A", Conc: 1, Role: model.RoleReactant, Reference: true},
			Direct: []model.DirectDecl{{Final: "B", Kind: model.KindRelaxation, NormalModes: 1}},
		},
		{
			State:    model.State{Name: "B", Role: model.RoleIntermediate},
			Barriers: []model.BarrierDecl{{Barrier: "TS", Final: "C"}},
		},
		{State: model.State{Name: "TS"}},
		{State: model.State{Name: "C", Role: model.RoleProduct}},
	})
	require.NoError(t, err)
	return g
}

func TestBuild_RatesAndDeltaE(t *testing.T) {
	g := branchedGraph(t)
	energies := []float64{0, -50e3, 20e3, -100e3} // A, B, TS, C in J/mol

	b := NewBuilder(NewCalculator(), testAtoms)
	m, err := b.Build(g, energies)
	require.NoError(t, err)

	// A → B: relaxation at the bath temperature, reactant edge.
	modes := float64(physchem.NormalModes(testAtoms))
	wantAB := physchem.Boltzmann * physchem.StandardTemperature / physchem.Planck *
		math.Exp(-(1*(-50e3-0))/(modes*physchem.GasConstant*physchem.StandardTemperature))
	assert.InDelta(t, wantAB, m.Rates.At(0, 1), wantAB*1e-12)
	assert.Equal(t, -50e3, m.DeltaE.At(0, 1))

	// B → C: Eyring over the barrier at the branch's local temperature.
	teq := physchem.StandardTemperature + (0-(-50e3))/(modes*physchem.GasConstant)
	activation := 20e3 - (-50e3)
	wantBC := physchem.Boltzmann * teq / physchem.Planck *
		math.Exp(-activation/(physchem.GasConstant*teq))
	assert.InDelta(t, wantBC, m.Rates.At(1, 3), wantBC*1e-12)
	assert.Equal(t, activation, m.DeltaE.At(1, 3))

	// No other cells are populated.
	var nonzero int
	r, c := m.Rates.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.Rates.At(i, j) != 0 {
				nonzero++
			}
		}
	}
	assert.Equal(t, 2, nonzero)
}

func TestBuild_LocalTemperatureRaisesHotBranchRate(t *testing.T) {
	g := branchedGraph(t)
	energies := []float64{0, -50e3, 20e3, -100e3}

	m, err := NewBuilder(NewCalculator(), testAtoms).Build(g, energies)
	require.NoError(t, err)

	// The same barrier crossing at the plain bath temperature would be
	// slower than at the elevated local-equilibrium temperature.
	cold := NewEyring().Rate(70e3, physchem.StandardTemperature)
	assert.Greater(t, m.Rates.At(1, 3), cold)
}

func TestBuild_BarrierDominatesDirectEdge(t *testing.T) {
	g, err := model.NewGraph([]model.StateDecl{
		{
			State:    model.State{Name: "A", Conc: 1, Role: model.RoleReactant, Reference: true},
			Direct:   []model.DirectDecl{{Final: "B", Kind: model.KindRelaxation, NormalModes: 1}},
			Barriers: []model.BarrierDecl{{Barrier: "TS", Final: "B"}},
		},
		{State: model.State{Name: "TS"}},
		{State: model.State{Name: "B", Role: model.RoleProduct}},
	})
	require.NoError(t, err)

	energies := []float64{0, 30e3, -80e3}
	m, err := NewBuilder(NewCalculator(), testAtoms).Build(g, energies)
	require.NoError(t, err)

	// The surviving value is the Eyring rate for the barrier, not the
	// relaxation rate, and the ΔE cell holds the activation energy.
	want := NewEyring().Rate(30e3, physchem.StandardTemperature)
	assert.InDelta(t, want, m.Rates.At(0, 2), want*1e-12)
	assert.Equal(t, 30e3, m.DeltaE.At(0, 2))
}

func TestBuild_TwoBarrierPathsSamePairConflict(t *testing.T) {
	g, err := model.NewGraph([]model.StateDecl{
		{
			State: model.State{Name: "A", Conc: 1, Role: model.RoleReactant, Reference: true},
			Barriers: []model.BarrierDecl{
				{Barrier: "TS1", Final: "B"},
				{Barrier: "TS2", Final: "B"},
			},
		},
		{State: model.State{Name: "TS1"}},
		{State: model.State{Name: "TS2"}},
		{State: model.State{Name: "B", Role: model.RoleProduct}},
	})
	require.NoError(t, err)

	_, err = NewBuilder(NewCalculator(), testAtoms).Build(g, []float64{0, 30e3, 40e3, -80e3})
	require.Error(t, err)
	assert.True(t, IsConflict(err), "expected a ConflictError, got %v", err)
}

func TestBuild_EmissionEdgeRecordsGapOnly(t *testing.T) {
	g, err := model.NewGraph([]model.StateDecl{
		{
			State:  model.State{Name: "S1", Conc: 1, Role: model.RoleReactant},
			Direct: []model.DirectDecl{{Final: "S0", Kind: model.KindEmission}},
		},
		{State: model.State{Name: "S0", Role: model.RoleProduct, Reference: true}},
	})
	require.NoError(t, err)

	m, err := NewBuilder(NewCalculator(), testAtoms).Build(g, []float64{250e3, 0})
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Rates.At(0, 1), "emission is not wired into the rate matrix")
	assert.Equal(t, -250e3, m.DeltaE.At(0, 1))
}

func TestBuild_EnergyDimensionMismatch(t *testing.T) {
	g := branchedGraph(t)
	_, err := NewBuilder(NewCalculator(), testAtoms).Build(g, []float64{0, 1})
	assert.ErrorIs(t, err, ErrEnergyDimension)
}

func TestBuild_DiatomicRelaxationFails(t *testing.T) {
	g := branchedGraph(t)
	_, err := NewBuilder(NewCalculator(), 2).Build(g, []float64{0, -50e3, 20e3, -100e3})
	assert.ErrorIs(t, err, ErrTooFewAtoms)
}

func TestBuild_ReversibleBarrier(t *testing.T) {
	g := branchedGraph(t)
	energies := []float64{0, -50e3, 20e3, -100e3}

	m, err := NewBuilder(NewCalculator(), testAtoms, WithReversible()).Build(g, energies)
	require.NoError(t, err)

	// The forward crossing B → C gains a C → B partner with the
	// activation energy seen from the product side. The relaxation
	// A → B stays one-way.
	assert.Greater(t, m.Rates.At(1, 3), 0.0)
	assert.Greater(t, m.Rates.At(3, 1), 0.0)
	assert.Equal(t, 20e3-(-100e3), m.DeltaE.At(3, 1))
	assert.Equal(t, 0.0, m.Rates.At(1, 0))

	// The exothermic direction is the faster of the pair.
	assert.Greater(t, m.Rates.At(1, 3), m.Rates.At(3, 1))
}
