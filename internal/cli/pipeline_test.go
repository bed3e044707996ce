package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/excikin/excikin/internal/physchem"
	"github.com/excikin/excikin/internal/report"
)

const fixtureConfig = "testdata/azo.toml"

func TestLoadPipeline(t *testing.T) {
	t.Parallel()

	p, err := LoadPipeline(fixtureConfig)
	require.NoError(t, err)
	assert.Equal(t, "azobenzene", p.Config.Molecule.Name)
	assert.Equal(t, 2, p.Graph.Registry().Len())
	assert.Len(t, p.Graph.Reactions(), 1)
}

func TestLoadPipeline_MissingConfig(t *testing.T) {
	t.Parallel()

	_, err := LoadPipeline("testdata/does-not-exist.toml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPipeline_Energies(t *testing.T) {
	t.Parallel()

	p, err := LoadPipeline(fixtureConfig)
	require.NoError(t, err)

	energies, err := p.Energies()
	require.NoError(t, err)
	require.Len(t, energies, 2)

	// FC_S1 sits 0.1 Hartree above the S0_min reference.
	assert.InDelta(t, 0.1*physchem.HartreeToJoulePerMol, energies[0], 1e-3)
	assert.Zero(t, energies[1])
}

func TestPipeline_Simulate(t *testing.T) {
	t.Parallel()

	p, err := LoadPipeline(fixtureConfig)
	require.NoError(t, err)

	_, m, tr, err := p.Simulate()
	require.NoError(t, err)
	assert.Greater(t, m.Rates.At(0, 1), 0.0)
	require.Len(t, tr.Times, 11)

	// A steep downhill relaxation drains the excited state completely
	// within a picosecond.
	final := tr.Final()
	assert.InDelta(t, 0.0, final[0], 1e-6)
	assert.InDelta(t, 1.0, final[1], 1e-6)
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	stdout, _, err := execute(t, "validate", fixtureConfig)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "validate_ok", []byte(stdout))
}

func TestValidateCommand_MissingOutput(t *testing.T) {
	t.Parallel()

	// A config naming a state with no calculation folder fails
	// validation but parses fine.
	dir := t.TempDir()
	cfg := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
[molecule]
name = "azobenzene"
total_atoms = 24
calculation_path = "testdata/calc"

[simulation]
duration = 1.0e-12
points = 11

[[state]]
name = "T1_min"
conc = 1.0
reference = true
`), 0o644))

	stdout, _, err := execute(t, "validate", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ Validation failed")
}

func TestEnergiesCommand_JSON(t *testing.T) {
	t.Parallel()

	stdout, _, err := execute(t, "--format", "json", "energies", fixtureConfig)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   EnergiesResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Levels, 2)
	assert.Equal(t, "FC_S1", resp.Data.Levels[0].State)
	assert.InDelta(t, 0.1*physchem.HartreeToJoulePerMol, resp.Data.Levels[0].EnergyJPM, 1e-3)
}

func TestRatesCommand(t *testing.T) {
	t.Parallel()

	stdout, _, err := execute(t, "rates", fixtureConfig)
	require.NoError(t, err)
	assert.Contains(t, stdout, "FC_S1")
	assert.Contains(t, stdout, "S0_min")
	assert.Contains(t, stdout, "relaxation")
}

func TestMechanismCommand(t *testing.T) {
	t.Parallel()

	stdout, _, err := execute(t, "mechanism", fixtureConfig)
	require.NoError(t, err)
	assert.Contains(t, stdout, "digraph mechanism {")
	assert.Contains(t, stdout, `label="azobenzene"`)
	assert.Contains(t, stdout, "n0 -> n1;")
}

func TestSimulateCommand_SummaryAndArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	summaryPath := filepath.Join(dir, "summary.yaml")
	dbPath := filepath.Join(dir, "runs.db")

	_, _, err := execute(t, "simulate", fixtureConfig, "-o", summaryPath, "--db", dbPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(summaryPath)
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, "azobenzene", doc.Molecule)
	assert.Equal(t, 11, doc.Points)
	require.Len(t, doc.Rates, 1)
	assert.Equal(t, "FC_S1", doc.Rates[0].Init)
	assert.Equal(t, "S0_min", doc.Rates[0].Final)
	require.Len(t, doc.Ratios, 1)
	assert.Equal(t, "trans", doc.Ratios[0].Label)
	assert.InDelta(t, 100, doc.Ratios[0].Percent, 1e-9)
	require.Len(t, doc.Lifetimes, 2)

	// The asymptotic fraction is the group population at the last grid
	// point, fit or no fit.
	assert.Equal(t, "S0", doc.Lifetimes[0].Group)
	assert.InDelta(t, 1.0, doc.Lifetimes[0].FinalPop, 1e-6)
	assert.Equal(t, "S1", doc.Lifetimes[1].Group)
	assert.InDelta(t, 0.0, doc.Lifetimes[1].FinalPop, 1e-6)

	// The archive lists the run.
	stdout, _, err := execute(t, "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "azobenzene")
}

func TestRunsCommand_EmptyArchive(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "empty.db")
	stdout, _, err := execute(t, "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "no archived runs")
}
