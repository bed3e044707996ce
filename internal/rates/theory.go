package rates

import (
	"errors"
	"fmt"
	"math"

	"github.com/excikin/excikin/internal/physchem"
)

// ErrTooFewAtoms indicates a relaxation rate was requested for a molecule
// with fewer than three atoms, for which 3N−6 vanishes and the ansatz is
// undefined.
var ErrTooFewAtoms = errors.New("rates: relaxation undefined for fewer than 3 atoms")

// ReactionTheory computes a barrier-crossing rate constant in 1/s from an
// activation free energy in J/mol at temperature T.
type ReactionTheory interface {
	Rate(dG, T float64) float64
}

// RelaxationTheory computes a vibrational relaxation rate constant in 1/s
// from an energy gap in J/mol.
type RelaxationTheory interface {
	Rate(dE, nModes float64, nAtoms int, T float64) (float64, error)
}

// EmissionTheory computes a spontaneous-emission rate constant in 1/s from
// an excitation frequency and oscillator strength.
type EmissionTheory interface {
	Rate(nu, f12, g1, g2 float64) float64
}

// Eyring is transition-state theory in the Eyring form
//
//	k = κ · (k_B·T / h) · exp(−ΔG‡ / (R·T))
//
// No sign guard is applied to ΔG‡: a negative activation energy is the
// caller's responsibility and yields k > κ·k_B·T/h.
type Eyring struct {
	// Kappa is the transmission coefficient κ.
	Kappa float64
}

// NewEyring returns Eyring theory with the default transmission
// coefficient κ = 1.
func NewEyring() Eyring { return Eyring{Kappa: 1} }

// Rate computes the Eyring rate constant for activation free energy dG
// (J/mol) at temperature T (K).
func (e Eyring) Rate(dG, T float64) float64 {
	return e.Kappa * physchem.Boltzmann * T / physchem.Planck * math.Exp(-dG/(physchem.GasConstant*T))
}

// AdhocRelaxation approximates the decay of a vibrationally excited
// structure through its normal modes:
//
//	k = (k_B·T / h) · exp(−n·ΔE / ((3N−6)·R·T))
//
// with n participating modes out of 3N−6 for N atoms.
type AdhocRelaxation struct{}

// Rate computes the relaxation rate constant for energy gap dE (J/mol).
// Fails with ErrTooFewAtoms when 3N−6 ≤ 0.
func (AdhocRelaxation) Rate(dE, nModes float64, nAtoms int, T float64) (float64, error) {
	modes := physchem.NormalModes(nAtoms)
	if modes <= 0 {
		return 0, fmt.Errorf("%w: N=%d", ErrTooFewAtoms, nAtoms)
	}
	k := physchem.Boltzmann * T / physchem.Planck *
		math.Exp(-(nModes*dE)/(float64(modes)*physchem.GasConstant*T))
	return k, nil
}

// EinsteinA is the spontaneous-emission coefficient
//
//	A₂₁ = 2π·ν²·e² / (ε₀·m_e) · (g₁/g₂) · f₁₂
//
// It is part of the closed theory set but is not wired into the default
// rate-matrix assembly; emission edges carry their energy gap in the ΔE
// matrix and no rate until the assembly grows an emission pass.
type EinsteinA struct{}

// Rate computes the emission coefficient for excitation frequency nu (1/s),
// oscillator strength f12, and degeneracies g1, g2 (pass 1 for both when
// unknown).
func (EinsteinA) Rate(nu, f12, g1, g2 float64) float64 {
	prefactor := 2 * math.Pi * nu * nu * physchem.ElementaryCharge * physchem.ElementaryCharge /
		(physchem.VacuumPermittivity * physchem.ElectronMass)
	return prefactor * g1 / g2 * f12
}

// Calculator binds one theory per concern. The bindings are fixed at
// construction; there are no setters.
type Calculator struct {
	reaction   ReactionTheory
	relaxation RelaxationTheory
	emission   EmissionTheory
}

// CalculatorOption overrides one of the default theory bindings.
type CalculatorOption func(*Calculator)

// WithReactionTheory overrides the barrier-crossing theory.
func WithReactionTheory(t ReactionTheory) CalculatorOption {
	return func(c *Calculator) { c.reaction = t }
}

// WithRelaxationTheory overrides the vibrational relaxation theory.
func WithRelaxationTheory(t RelaxationTheory) CalculatorOption {
	return func(c *Calculator) { c.relaxation = t }
}

// WithEmissionTheory overrides the emission theory.
func WithEmissionTheory(t EmissionTheory) CalculatorOption {
	return func(c *Calculator) { c.emission = t }
}

// NewCalculator returns a Calculator with the default theory set: Eyring
// (κ=1), ad hoc relaxation, Einstein A coefficient.
func NewCalculator(opts ...CalculatorOption) *Calculator {
	c := &Calculator{
		reaction:   NewEyring(),
		relaxation: AdhocRelaxation{},
		emission:   EinsteinA{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reaction returns the bound barrier-crossing theory.
func (c *Calculator) Reaction() ReactionTheory { return c.reaction }

// Relaxation returns the bound relaxation theory.
func (c *Calculator) Relaxation() RelaxationTheory { return c.relaxation }

// Emission returns the bound emission theory.
func (c *Calculator) Emission() EmissionTheory { return c.emission }
