package rates

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/excikin/excikin/internal/model"
	"github.com/excikin/excikin/internal/physchem"
)

// Builder errors.
var (
	// ErrEnergyDimension indicates the energy vector does not match the
	// state count of the graph.
	ErrEnergyDimension = errors.New("rates: energy vector length does not match state count")
)

// ConflictError reports two rate-assignment rules of equal precedence
// targeting the same (init, final) matrix cell. The build aborts instead of
// letting the later write win.
type ConflictError struct {
	Init, Final string
	First       string // description of the assignment already in place
	Second      string // description of the rejected assignment
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("rates: conflicting assignments for %s → %s: %s vs %s",
		e.Init, e.Final, e.First, e.Second)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Matrices holds the dense rate-constant matrix and the matching
// energy-difference matrix, both N×N in registry index order. For
// transition-state reactions the ΔE entry is the activation energy
// E(ts)−E(init), stored under the final target of the path; for direct
// reactions it is E(final)−E(init).
type Matrices struct {
	Rates  *mat.Dense
	DeltaE *mat.Dense
}

// Builder turns graph connectivity plus state energies into rate matrices.
type Builder struct {
	calc       *Calculator
	totalAtoms int
	bathT      float64
	reversible bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBathTemperature overrides the default bath temperature (298.15 K)
// applied to edges outside any local-equilibrium branch.
func WithBathTemperature(t float64) BuilderOption {
	return func(b *Builder) { b.bathT = t }
}

// WithReversible also assigns the reverse of every barrier crossing, with
// the activation energy seen from the product side. Relaxation edges stay
// one-way; population does not climb back up a vibrational cascade.
func WithReversible() BuilderOption {
	return func(b *Builder) { b.reversible = true }
}

// NewBuilder creates a Builder for a molecule with the given total atom
// count.
func NewBuilder(calc *Calculator, totalAtoms int, opts ...BuilderOption) *Builder {
	b := &Builder{
		calc:       calc,
		totalAtoms: totalAtoms,
		bathT:      physchem.StandardTemperature,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// assignment records who wrote a matrix cell, for precedence and conflict
// reporting.
type assignment struct {
	kind model.ReactionKind
	desc string
}

// Build assembles the rate and ΔE matrices for the graph. energies must be
// the relative state energies in J/mol, in registry index order.
//
// Assignment order and precedence:
//  1. transition-state reactions (Eyring, activation energy over the
//     barrier),
//  2. relaxation reactions (ad hoc ansatz); a relaxation write to a cell
//     already owned by a transition-state path is dropped, since the
//     barrier crossing dominates,
//  3. emission reactions contribute their ΔE entry only; wiring the
//     Einstein coefficient into the matrix is an open extension.
//
// Two writes of equal precedence to one cell fail with a ConflictError.
func (b *Builder) Build(g *model.Graph, energies []float64) (*Matrices, error) {
	reg := g.Registry()
	n := reg.Len()
	if len(energies) != n {
		return nil, fmt.Errorf("%w: %d energies for %d states", ErrEnergyDimension, len(energies), n)
	}

	localT, err := b.localTemperatures(g, energies)
	if err != nil {
		return nil, err
	}

	m := &Matrices{
		Rates:  mat.NewDense(n, n, nil),
		DeltaE: mat.NewDense(n, n, nil),
	}
	assigned := make(map[model.Edge]assignment)

	edgeName := func(i int) string {
		s, _ := reg.ByIndex(i)
		return s.Name
	}

	// Pass 1: barrier crossings.
	for _, rx := range g.Reactions() {
		if rx.Kind != model.KindTransitionState {
			continue
		}
		e := rx.Edge()
		desc := fmt.Sprintf("transition state via %s", edgeName(rx.Barrier))
		if prev, ok := assigned[e]; ok {
			return nil, &ConflictError{
				Init: edgeName(e.Init), Final: edgeName(e.Final),
				First: prev.desc, Second: desc,
			}
		}

		activation := energies[rx.Barrier] - energies[rx.Init]
		k := b.calc.Reaction().Rate(activation, b.temperature(e, localT))
		m.Rates.Set(e.Init, e.Final, k)
		m.DeltaE.Set(e.Init, e.Final, activation)
		assigned[e] = assignment{kind: rx.Kind, desc: desc}

		if b.reversible {
			rev := model.Edge{Init: e.Final, Final: e.Init}
			revDesc := fmt.Sprintf("reverse transition state via %s", edgeName(rx.Barrier))
			if prev, ok := assigned[rev]; ok {
				return nil, &ConflictError{
					Init: edgeName(rev.Init), Final: edgeName(rev.Final),
					First: prev.desc, Second: revDesc,
				}
			}
			revActivation := energies[rx.Barrier] - energies[rx.Final]
			revK := b.calc.Reaction().Rate(revActivation, b.temperature(rev, localT))
			m.Rates.Set(rev.Init, rev.Final, revK)
			m.DeltaE.Set(rev.Init, rev.Final, revActivation)
			assigned[rev] = assignment{kind: rx.Kind, desc: revDesc}
		}
	}

	// Pass 2: direct edges.
	for _, rx := range g.Reactions() {
		if rx.Kind == model.KindTransitionState {
			continue
		}
		e := rx.Edge()
		gap := energies[e.Final] - energies[e.Init]

		if rx.Kind == model.KindEmission {
			// Extension point: energy gap recorded, no rate assigned.
			if _, ok := assigned[e]; !ok {
				m.DeltaE.Set(e.Init, e.Final, gap)
			}
			continue
		}

		desc := "direct relaxation"
		if prev, ok := assigned[e]; ok {
			if prev.kind == model.KindTransitionState {
				// Barrier crossing dominates the direct edge.
				continue
			}
			return nil, &ConflictError{
				Init: edgeName(e.Init), Final: edgeName(e.Final),
				First: prev.desc, Second: desc,
			}
		}

		k, err := b.calc.Relaxation().Rate(gap, rx.NormalModes, b.totalAtoms, b.temperature(e, localT))
		if err != nil {
			return nil, fmt.Errorf("relaxation %s → %s: %w", edgeName(e.Init), edgeName(e.Final), err)
		}
		m.Rates.Set(e.Init, e.Final, k)
		m.DeltaE.Set(e.Init, e.Final, gap)
		assigned[e] = assignment{kind: rx.Kind, desc: desc}
	}

	return m, nil
}

// temperature picks the local-equilibrium temperature when the edge sits
// inside a reactant branch, the bath temperature otherwise.
func (b *Builder) temperature(e model.Edge, localT map[model.Edge]float64) float64 {
	if t, ok := localT[e]; ok {
		return t
	}
	return b.bathT
}

// localTemperatures derives the effective temperature of every edge inside a
// descendant group:
//
//	T_eq = T_bath + (E(reactant) − E(branch)) / ((3N−6)·R)
//
// Hot intermediates below an exothermic branch re-equilibrate above the bath
// temperature. An edge claimed by two branches with different T_eq is
// ambiguous and fails the build.
func (b *Builder) localTemperatures(g *model.Graph, energies []float64) (map[model.Edge]float64, error) {
	reg := g.Registry()
	localT := make(map[model.Edge]float64)

	for _, reactant := range reg.Reactants() {
		groups := g.DescendantGroups(reactant)
		if len(groups) == 0 {
			continue
		}
		modes := physchem.NormalModes(b.totalAtoms)
		if modes <= 0 {
			return nil, fmt.Errorf("%w: N=%d", ErrTooFewAtoms, b.totalAtoms)
		}
		for _, grp := range groups {
			teq := b.bathT + (energies[reactant]-energies[grp.Branch])/(float64(modes)*physchem.GasConstant)
			for _, e := range grp.Edges {
				if prev, ok := localT[e]; ok && prev != teq {
					initS, _ := reg.ByIndex(e.Init)
					finS, _ := reg.ByIndex(e.Final)
					branchS, _ := reg.ByIndex(grp.Branch)
					return nil, &ConflictError{
						Init: initS.Name, Final: finS.Name,
						First:  fmt.Sprintf("local temperature %.4g K", prev),
						Second: fmt.Sprintf("local temperature %.4g K (branch %s)", teq, branchS.Name),
					}
				}
				localT[e] = teq
			}
		}
	}
	return localT, nil
}
