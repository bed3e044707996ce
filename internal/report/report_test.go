package report

import (
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/excikin/excikin/internal/analysis"
	"github.com/excikin/excikin/internal/model"
	"github.com/excikin/excikin/internal/physchem"
	"github.com/excikin/excikin/internal/rates"
)

func testGraph(t *testing.T) *model.Graph {
	t.Helper()
	g, err := model.NewGraph([]model.StateDecl{
		{
			State: model.State{Name: "FC_S1", Conc: 1, Role: model.RoleReactant, Reference: true},
			Direct: []model.DirectDecl{
				{Final: "S1_min", Kind: model.KindRelaxation, NormalModes: 1},
			},
		},
		{
			State: model.State{Name: "S1_min"},
			Barriers: []model.BarrierDecl{
				{Barrier: "TS_rot", Final: "S0_trans"},
			},
		},
		{State: model.State{Name: "TS_rot"}},
		{State: model.State{Name: "S0_trans", Label: "trans", Role: model.RoleProduct}},
	})
	require.NoError(t, err)
	return g
}

func TestMechanismDOT(t *testing.T) {
	t.Parallel()

	dot := MechanismDOT(testGraph(t), "azobenzene mechanism")

	g := goldie.New(t)
	g.Assert(t, "mechanism", []byte(dot))
}

func TestMechanismDOT_DuplicateDisplayEdgesCollapse(t *testing.T) {
	t.Parallel()

	// Two barrier paths through the same transition state share the
	// entry edge; the drawing keeps a single arrow.
	g, err := model.NewGraph([]model.StateDecl{
		{
			State: model.State{Name: "A", Conc: 1, Reference: true},
			Barriers: []model.BarrierDecl{
				{Barrier: "TS", Final: "B"},
				{Barrier: "TS", Final: "C"},
			},
		},
		{State: model.State{Name: "TS"}},
		{State: model.State{Name: "B"}},
		{State: model.State{Name: "C"}},
	})
	require.NoError(t, err)

	dot := MechanismDOT(g, "shared barrier")
	assert.Equal(t, 1, countOccurrences(dot, "n0 -> n1;"))
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}

func TestDocument_Marshal(t *testing.T) {
	t.Parallel()

	g := testGraph(t)
	reg := g.Registry()

	doc := &Document{
		Molecule:    "azobenzene",
		Temperature: 298.15,
		Integrator:  "rk45",
		Duration:    1e-9,
	}
	doc.AddEnergies(reg, []float64{0, -50e3, 30e3, -200e3})
	doc.AddRatios([]analysis.Ratio{{Label: "trans", Percent: 100}})
	doc.AddLifetime("S1", 0.02, analysis.ExpFit{Amplitude: 1, RateK: -2e9, Offset: 0}, nil)
	doc.AddLifetime("S0", 0.98, analysis.ExpFit{}, errors.New("flat series"))

	out, err := doc.Marshal()
	require.NoError(t, err)

	var back Document
	require.NoError(t, yaml.Unmarshal(out, &back))

	assert.Equal(t, "azobenzene", back.Molecule)
	require.Len(t, back.Energies, 4)
	assert.Equal(t, "FC_S1", back.Energies[0].State)
	assert.InDelta(t, -50e3*physchem.JoulePerMolToEV, back.Energies[1].EnergyEV, 1e-9)

	// Lifetime lines sort by group; the failed fit keeps its line and
	// surfaces as a warning.
	require.Len(t, back.Lifetimes, 2)
	assert.Equal(t, "S0", back.Lifetimes[0].Group)
	assert.False(t, back.Lifetimes[0].Fitted)
	assert.InDelta(t, 0.98, back.Lifetimes[0].FinalPop, 1e-12)
	assert.Equal(t, "S1", back.Lifetimes[1].Group)
	assert.True(t, back.Lifetimes[1].Fitted)
	assert.InDelta(t, 0.5e-9, back.Lifetimes[1].LifetimeS, 1e-18)
	assert.InDelta(t, 0.02, back.Lifetimes[1].FinalPop, 1e-12)
	require.Len(t, back.Warnings, 1)
	assert.Contains(t, back.Warnings[0], "S0")
}

func TestDocument_AddRates(t *testing.T) {
	t.Parallel()

	g := testGraph(t)
	n := g.Registry().Len()

	m := &rates.Matrices{
		Rates:  mat.NewDense(n, n, nil),
		DeltaE: mat.NewDense(n, n, nil),
	}
	m.Rates.Set(0, 1, 4.2e11)
	m.DeltaE.Set(0, 1, -50e3)
	m.Rates.Set(1, 3, 7.5e8)
	m.DeltaE.Set(1, 3, 80e3)

	doc := &Document{Molecule: "azobenzene"}
	doc.AddRates(g, m)

	require.Len(t, doc.Rates, 2)
	assert.Equal(t, "FC_S1", doc.Rates[0].Init)
	assert.Equal(t, "S1_min", doc.Rates[0].Final)
	assert.Equal(t, model.KindRelaxation.String(), doc.Rates[0].Kind)
	assert.InDelta(t, 4.2e11, doc.Rates[0].RatePerS, 1)
	assert.InDelta(t, -50e3*physchem.JoulePerMolToEV, doc.Rates[0].DeltaEEV, 1e-9)
	assert.Equal(t, "S0_trans", doc.Rates[1].Final)
}
