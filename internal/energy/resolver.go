// Package energy resolves the relative energy of every state in a registry
// from a backing quantum-chemistry data source.
//
// All energies are reported in J/mol relative to the reference state, which
// resolves to exactly zero without touching the source arithmetic twice.
package energy

import (
	"errors"
	"fmt"

	"github.com/excikin/excikin/internal/model"
	"github.com/excikin/excikin/internal/physchem"
)

// ErrMissingRoot indicates a spin channel selector points past the roots
// the calculation actually produced.
var ErrMissingRoot = errors.New("energy: excited-state root not available")

// RootError carries the detail behind ErrMissingRoot.
type RootError struct {
	State string
	Want  int // 1-based root index requested
	Have  int // roots present in the calculation output
}

func (e *RootError) Error() string {
	return fmt.Sprintf("energy: state %q: root %d requested, output has %d", e.State, e.Want, e.Have)
}

func (e *RootError) Unwrap() error { return ErrMissingRoot }

// Source supplies raw electronic energies in Hartree. qc.DirSource is the
// production implementation; tests substitute a map-backed fake.
type Source interface {
	GroundEnergy(state string) (float64, error)
	ExcitedEnergies(state string, maxRoots int) ([]float64, error)
}

// Resolver turns registry states into relative energies.
type Resolver struct {
	src Source
	reg *model.Registry
}

// NewResolver builds a resolver over src for the states in reg.
func NewResolver(src Source, reg *model.Registry) *Resolver {
	return &Resolver{src: src, reg: reg}
}

// Resolve returns the energy of s in J/mol relative to the reference state.
//
// The baseline is taken at the same theory level as s: states read from the
// ground-state single point subtract the reference single point, states read
// from an excited-state root table subtract the lowest root of the
// reference. Total energies are only comparable within one level of theory,
// so mixing the two baselines would shift every excited state by the
// level-of-theory offset.
func (r *Resolver) Resolve(s model.State) (float64, error) {
	if s.Reference {
		return 0, nil
	}
	raw, err := r.raw(s)
	if err != nil {
		return 0, err
	}

	ref := r.reg.Reference()
	baseline, err := r.levelEnergy(ref.Name, s.Channel.Ground())
	if err != nil {
		return 0, err
	}
	return (raw - baseline) * physchem.HartreeToJoulePerMol, nil
}

// ResolveAll returns the relative energies of every state in registry index
// order.
func (r *Resolver) ResolveAll() ([]float64, error) {
	states := r.reg.States()
	out := make([]float64, len(states))
	for i, s := range states {
		e, err := r.Resolve(s)
		if err != nil {
			return nil, fmt.Errorf("state %q: %w", s.Name, err)
		}
		out[i] = e
	}
	return out, nil
}

// raw sums the electronic energies of the state's substates, or reads the
// state itself when it is not a composite.
func (r *Resolver) raw(s model.State) (float64, error) {
	names := s.Substates
	if len(names) == 0 {
		names = []string{s.Name}
	}
	var sum float64
	for _, name := range names {
		e, err := r.channelEnergy(name, s.Channel)
		if err != nil {
			return 0, err
		}
		sum += e
	}
	return sum, nil
}

// channelEnergy reads one calculation output at the level and roots the
// channel selects: the ground single point for channel zero, otherwise the
// mean of the selected root window.
func (r *Resolver) channelEnergy(name string, ch model.SpinChannel) (float64, error) {
	if ch.Ground() {
		return r.src.GroundEnergy(name)
	}
	// Roots are 1-based; a window reaching below root 1 would walk off
	// the front of the table.
	if ch.From < 1 {
		return 0, fmt.Errorf("energy: state %q: window [%d, %d] starts below root 1", name, ch.From, ch.To)
	}
	roots, err := r.src.ExcitedEnergies(name, ch.To)
	if err != nil {
		return 0, err
	}
	if len(roots) < ch.To {
		return 0, &RootError{State: name, Want: ch.To, Have: len(roots)}
	}
	var sum float64
	for i := ch.From; i <= ch.To; i++ {
		sum += roots[i-1]
	}
	return sum / float64(ch.Width()), nil
}

// levelEnergy reads a state at a theory level rather than through its own
// channel: the ground single point, or the lowest excited-state root.
func (r *Resolver) levelEnergy(name string, ground bool) (float64, error) {
	if ground {
		return r.src.GroundEnergy(name)
	}
	roots, err := r.src.ExcitedEnergies(name, 1)
	if err != nil {
		return 0, err
	}
	if len(roots) < 1 {
		return 0, &RootError{State: name, Want: 1, Have: 0}
	}
	return roots[0], nil
}
