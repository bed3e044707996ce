// Package qc reads quantum-chemistry output files. The core treats these
// files as an opaque energy source; everything format-specific stays here.
//
// The reader targets TeraChem-style text output: a single-point "FINAL
// ENERGY" line for the ground state and a root table ("Root   Mult.   Total
// Energy") for excited-state calculations. Files are read fully into memory;
// searches run from the end of the file so restarted jobs resolve to their
// latest section.
package qc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Reader errors.
var (
	// ErrWrongFileType indicates a path without the .out extension was
	// handed to the output reader. This is a wiring bug, not bad data.
	ErrWrongFileType = errors.New("qc: not a .out calculation output")

	// ErrUnfinished indicates the calculation did not run to completion.
	ErrUnfinished = errors.New("qc: calculation did not finish")

	// ErrNoFinalEnergy indicates no FINAL ENERGY line was found.
	ErrNoFinalEnergy = errors.New("qc: no final energy in output")

	// ErrNoRootTable indicates no excited-state root table was found.
	ErrNoRootTable = errors.New("qc: no excited-state roots in output")

	// ErrStateOutputMissing indicates no calculation folder matches a
	// state name under the calculation root.
	ErrStateOutputMissing = errors.New("qc: no calculation output for state")
)

// tailWindow bounds how far from the end of the file the completion markers
// are searched.
const tailWindow = 200

// Output is one parsed calculation output.
type Output struct {
	path  string
	lines []string
}

// ReadFile loads a calculation output and verifies it finished. An
// unfinished calculation is a hard input error: its energies are not
// trustworthy and must not leak into the rate matrix.
func ReadFile(path string) (*Output, error) {
	if !strings.HasSuffix(path, ".out") {
		return nil, fmt.Errorf("%w: %s", ErrWrongFileType, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("qc: read %s: %w", path, err)
	}

	o := &Output{path: path, lines: strings.Split(string(raw), "\n")}
	if !o.finished() {
		return nil, fmt.Errorf("%w: %s", ErrUnfinished, path)
	}
	return o, nil
}

func (o *Output) finished() bool {
	return o.tailContains(" Job finished:")
}

// Converged reports whether the geometry optimization converged.
func (o *Output) Converged() bool {
	return o.tailContains("Converged!")
}

func (o *Output) tailContains(substring string) bool {
	n := len(o.lines)
	limit := tailWindow
	if n < limit {
		limit = n
	}
	for i := 1; i <= limit; i++ {
		if strings.Contains(o.lines[n-i], substring) {
			return true
		}
	}
	return false
}

// searchLatest returns the index of the last line containing substring, or
// −1 when absent.
func (o *Output) searchLatest(substring string) int {
	for i := len(o.lines) - 1; i >= 0; i-- {
		if strings.Contains(o.lines[i], substring) {
			return i
		}
	}
	return -1
}

// FinalEnergy extracts the ground-state single-point total energy in
// Hartree from the last FINAL ENERGY line.
func (o *Output) FinalEnergy() (float64, error) {
	j := o.searchLatest("FINAL ENERGY")
	if j < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoFinalEnergy, o.path)
	}
	fields := strings.Fields(o.lines[j])
	if len(fields) < 3 {
		return 0, fmt.Errorf("qc: malformed final energy line %q in %s", o.lines[j], o.path)
	}
	e, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0, fmt.Errorf("qc: final energy in %s: %w", o.path, err)
	}
	return e, nil
}

// CIEnergy extracts up to maxRoots excited-state root energies (Hartree)
// and the oscillator strengths of roots ≥ 2 from the last root table.
//
// The oscillator slice is offset by one: foscs[i−1] belongs to energies[i];
// the first root has no transition into itself. Fewer rows than requested is
// not an error here; callers check the returned length against the root
// they need, so a short table surfaces as a missing-root condition instead
// of a silent truncation.
func (o *Output) CIEnergy(maxRoots int) (energies, foscs []float64, err error) {
	j := o.searchLatest("Root   Mult.   Total Energy (a.u.)")
	if j < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoRootTable, o.path)
	}

	j += 2 // header row plus separator line
	for i := 0; i < maxRoots && j+i < len(o.lines); i++ {
		fields := strings.Fields(o.lines[j+i])
		if len(fields) < 3 || fields[0] != strconv.Itoa(i+1) {
			break
		}
		e, perr := strconv.ParseFloat(fields[2], 64)
		if perr != nil {
			return nil, nil, fmt.Errorf("qc: root %d in %s: %w", i+1, o.path, perr)
		}
		energies = append(energies, e)
		if i != 0 {
			f, perr := strconv.ParseFloat(fields[len(fields)-1], 64)
			if perr != nil {
				return nil, nil, fmt.Errorf("qc: oscillator strength of root %d in %s: %w", i+1, o.path, perr)
			}
			foscs = append(foscs, f)
		}
	}
	if len(energies) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoRootTable, o.path)
	}
	return energies, foscs, nil
}

// StatePath locates the single-point output backing a state: the folder
// under root whose name ends with the state name (a trailing "*" on the
// state name is stripped; Franck–Condon points reuse the output of the
// optimized state they were spawned from), with the fixed sp/tc.out layout
// below it.
func StatePath(root, stateName string) (string, error) {
	target := strings.TrimSuffix(stateName, "*")

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("qc: scan %s: %w", root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.HasSuffix(name, target) {
			return filepath.Join(root, name, "sp", "tc.out"), nil
		}
	}
	return "", fmt.Errorf("%w: %q under %s", ErrStateOutputMissing, stateName, root)
}

// DirSource resolves state energies from a calculation directory tree. It
// satisfies the energy resolver's source interface.
type DirSource struct {
	// Root is the calculation directory containing one folder per state.
	Root string
}

// GroundEnergy returns the ground-state single-point energy of a state in
// Hartree.
func (d DirSource) GroundEnergy(state string) (float64, error) {
	o, err := d.open(state)
	if err != nil {
		return 0, err
	}
	return o.FinalEnergy()
}

// ExcitedEnergies returns up to maxRoots excited-state root energies of a
// state in Hartree.
func (d DirSource) ExcitedEnergies(state string, maxRoots int) ([]float64, error) {
	o, err := d.open(state)
	if err != nil {
		return nil, err
	}
	energies, _, err := o.CIEnergy(maxRoots)
	return energies, err
}

// OscillatorStrengths returns the oscillator strengths of roots ≥ 2, offset
// by one against the energies.
func (d DirSource) OscillatorStrengths(state string, maxRoots int) ([]float64, error) {
	o, err := d.open(state)
	if err != nil {
		return nil, err
	}
	_, foscs, err := o.CIEnergy(maxRoots)
	return foscs, err
}

func (d DirSource) open(state string) (*Output, error) {
	path, err := StatePath(d.Root, state)
	if err != nil {
		return nil, err
	}
	return ReadFile(path)
}
