package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry construction and lookups.
var (
	// ErrEmptyStateName indicates a state was declared without a name.
	ErrEmptyStateName = errors.New("model: state name is empty")

	// ErrDuplicateState indicates two states share the same name.
	ErrDuplicateState = errors.New("model: duplicate state name")

	// ErrStateNotFound indicates a lookup referenced an unknown state.
	ErrStateNotFound = errors.New("model: state not found")

	// ErrMultipleReferences indicates more than one state carries the
	// reference-energy marker.
	ErrMultipleReferences = errors.New("model: more than one reference state")

	// ErrNoReference indicates no state carries the reference-energy marker.
	ErrNoReference = errors.New("model: no reference state declared")

	// ErrNegativeConcentration indicates a starting concentration below zero.
	ErrNegativeConcentration = errors.New("model: negative starting concentration")
)

// Role tags the part a state plays in the mechanism. It controls product
// grouping in the analysis and node styling in the mechanism export, never
// the kinetics itself.
type Role string

const (
	RoleReactant     Role = "reactant"
	RoleProduct      Role = "product"
	RoleIntermediate Role = "intermediate"
	RoleUnspecified  Role = ""
)

// SpinChannel selects which excited-state roots back a state's energy.
//
// A single channel is encoded as From == To. A window From < To means the
// energies of channels From..To (inclusive) are averaged. Channel 0 is the
// ground channel and resolves against the ground-state single-point energy.
type SpinChannel struct {
	From int
	To   int
}

// Channel returns a single-channel selector.
func Channel(n int) SpinChannel { return SpinChannel{From: n, To: n} }

// Ground reports whether the selector addresses only the ground channel.
func (c SpinChannel) Ground() bool { return c.From == 0 && c.To == 0 }

// Width returns how many channels the selector spans.
func (c SpinChannel) Width() int { return c.To - c.From + 1 }

// State is one node of the kinetic network. States are immutable after
// registry construction; Index is assigned by the registry and is stable for
// the lifetime of the run.
type State struct {
	// Name uniquely identifies the state within the model.
	Name string

	// Index is the stable position of this state in every vector and matrix.
	Index int

	// Label is the display name used by mechanism export and reports.
	Label string

	// SpinMultiplicity is the spin multiplicity 2S+1 of the state.
	SpinMultiplicity int

	// Channel selects the backing quantum-chemistry roots.
	Channel SpinChannel

	// Conc is the starting concentration, ≥ 0.
	Conc float64

	// Role tags the state as reactant, product, or intermediate.
	Role Role

	// Reference marks the zero of the relative energy scale. At most one
	// state in a registry carries this marker.
	Reference bool

	// Substates lists the sub-calculations a composite state sums over.
	// Empty for plain states.
	Substates []string
}

// Registry assigns stable indices to states in first-seen order and answers
// name and index lookups. It is immutable after construction.
type Registry struct {
	states []State
	byName map[string]int
	refIdx int
}

// NewRegistry builds a registry from states in declaration order.
//
// Validation: names must be non-empty and unique, concentrations must be
// ≥ 0, and exactly one state must carry the reference marker.
func NewRegistry(states []State) (*Registry, error) {
	r := &Registry{
		states: make([]State, len(states)),
		byName: make(map[string]int, len(states)),
		refIdx: -1,
	}

	for i, s := range states {
		if s.Name == "" {
			return nil, fmt.Errorf("%w (position %d)", ErrEmptyStateName, i)
		}
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateState, s.Name)
		}
		if s.Conc < 0 {
			return nil, fmt.Errorf("%w: %q (%g)", ErrNegativeConcentration, s.Name, s.Conc)
		}
		if s.Reference {
			if r.refIdx >= 0 {
				return nil, fmt.Errorf("%w: %q and %q", ErrMultipleReferences, r.states[r.refIdx].Name, s.Name)
			}
			r.refIdx = i
		}

		s.Index = i
		if s.Label == "" {
			s.Label = s.Name
		}
		r.states[i] = s
		r.byName[s.Name] = i
	}

	if r.refIdx < 0 {
		return nil, ErrNoReference
	}
	return r, nil
}

// Len returns the number of registered states.
func (r *Registry) Len() int { return len(r.states) }

// ByIndex returns the state at the given index.
func (r *Registry) ByIndex(i int) (State, error) {
	if i < 0 || i >= len(r.states) {
		return State{}, fmt.Errorf("%w: index %d", ErrStateNotFound, i)
	}
	return r.states[i], nil
}

// ByName returns the state with the given name.
func (r *Registry) ByName(name string) (State, error) {
	i, ok := r.byName[name]
	if !ok {
		return State{}, fmt.Errorf("%w: %q", ErrStateNotFound, name)
	}
	return r.states[i], nil
}

// Index returns the stable index for a state name.
func (r *Registry) Index(name string) (int, error) {
	i, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrStateNotFound, name)
	}
	return i, nil
}

// Reference returns the reference state.
func (r *Registry) Reference() State { return r.states[r.refIdx] }

// States returns all states in index order. The returned slice is a copy.
func (r *Registry) States() []State {
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

// InitialConcentrations returns the starting concentration vector in index
// order.
func (r *Registry) InitialConcentrations() []float64 {
	c := make([]float64, len(r.states))
	for i, s := range r.states {
		c[i] = s.Conc
	}
	return c
}

// Reactants returns the indices of all reactant-role states in index order.
func (r *Registry) Reactants() []int {
	var out []int
	for _, s := range r.states {
		if s.Role == RoleReactant {
			out = append(out, s.Index)
		}
	}
	return out
}

// Products returns the indices of all product-role states in index order.
func (r *Registry) Products() []int {
	var out []int
	for _, s := range r.states {
		if s.Role == RoleProduct {
			out = append(out, s.Index)
		}
	}
	return out
}
