package qc

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile_WrongExtension(t *testing.T) {
	t.Parallel()

	_, err := ReadFile("testdata/calc/1_S0_min/sp/tc.in")
	assert.ErrorIs(t, err, ErrWrongFileType)
}

func TestReadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := ReadFile("testdata/nonexistent.out")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWrongFileType)
}

func TestReadFile_Unfinished(t *testing.T) {
	t.Parallel()

	_, err := ReadFile("testdata/unfinished.out")
	assert.ErrorIs(t, err, ErrUnfinished)
}

func TestOutput_FinalEnergy(t *testing.T) {
	t.Parallel()

	o, err := ReadFile("testdata/calc/1_S0_min/sp/tc.out")
	require.NoError(t, err)
	assert.True(t, o.Converged())

	e, err := o.FinalEnergy()
	require.NoError(t, err)
	assert.InDelta(t, -572.2001234567, e, 1e-12)
}

func TestOutput_CIEnergy(t *testing.T) {
	t.Parallel()

	o, err := ReadFile("testdata/calc/1_S0_min/sp/tc.out")
	require.NoError(t, err)

	energies, foscs, err := o.CIEnergy(3)
	require.NoError(t, err)
	require.Len(t, energies, 3)
	assert.InDelta(t, -572.2001234567, energies[0], 1e-12)
	assert.InDelta(t, -572.1020000000, energies[1], 1e-12)
	assert.InDelta(t, -572.0450000000, energies[2], 1e-12)

	// Oscillator strengths start at the second root: foscs[i-1]
	// belongs to energies[i].
	require.Len(t, foscs, 2)
	assert.InDelta(t, 0.0234, foscs[0], 1e-12)
	assert.InDelta(t, 0.4100, foscs[1], 1e-12)
}

func TestOutput_CIEnergy_ShortTable(t *testing.T) {
	t.Parallel()

	o, err := ReadFile("testdata/calc/2_S1_min/sp/tc.out")
	require.NoError(t, err)

	energies, foscs, err := o.CIEnergy(5)
	require.NoError(t, err)
	assert.Len(t, energies, 2, "table ends before the requested root count")
	assert.Len(t, foscs, 1)
}

func TestOutput_CIEnergy_NoTable(t *testing.T) {
	t.Parallel()

	o, err := ReadFile("testdata/ground_only.out")
	require.NoError(t, err)

	_, _, err = o.CIEnergy(3)
	assert.ErrorIs(t, err, ErrNoRootTable)
}

func TestStatePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state string
		want  string
	}{
		{name: "numbered folder", state: "S0_min", want: filepath.Join("testdata/calc", "1_S0_min", "sp", "tc.out")},
		{name: "franck-condon star stripped", state: "S1_min*", want: filepath.Join("testdata/calc", "2_S1_min", "sp", "tc.out")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := StatePath("testdata/calc", tc.state)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStatePath_Missing(t *testing.T) {
	t.Parallel()

	_, err := StatePath("testdata/calc", "T1_min")
	assert.ErrorIs(t, err, ErrStateOutputMissing)
}

func TestDirSource(t *testing.T) {
	t.Parallel()

	src := DirSource{Root: "testdata/calc"}

	ground, err := src.GroundEnergy("S0_min")
	require.NoError(t, err)
	assert.InDelta(t, -572.2001234567, ground, 1e-12)

	roots, err := src.ExcitedEnergies("S1_min", 2)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.InDelta(t, -572.1123400000, roots[0], 1e-12)

	foscs, err := src.OscillatorStrengths("S0_min", 3)
	require.NoError(t, err)
	require.Len(t, foscs, 2)
	assert.InDelta(t, 0.0234, foscs[0], 1e-12)
}
