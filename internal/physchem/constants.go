// Package physchem holds the physical constants shared by every rate theory
// and energy conversion in excikin.
//
// All constants are 2019 SI exact values (CODATA). They are declared once
// here so that no rate formula can drift from another by redefining its own
// copy locally.
package physchem

// Fundamental constants, SI units.
const (
	// GasConstant is the molar gas constant R in J/(mol·K).
	GasConstant = 8.31446261815324

	// Planck is the Planck constant h in J·s.
	Planck = 6.62607015e-34

	// Boltzmann is the Boltzmann constant k_B in J/K.
	Boltzmann = 1.380649e-23

	// ElementaryCharge is the elementary charge e in C.
	ElementaryCharge = 1.602176634e-19

	// ElectronMass is the electron rest mass m_e in kg.
	ElectronMass = 9.1093837015e-31

	// VacuumPermittivity is the vacuum electric permittivity ε₀ in F/m.
	VacuumPermittivity = 8.8541878128e-12

	// SpeedOfLight is the speed of light in vacuum c in m/s.
	SpeedOfLight = 299792458.0
)

// Unit conversions and thermal defaults.
const (
	// HartreeToJoulePerMol converts total electronic energies from Hartree
	// (atomic units) to J/mol: 1 Eh = 2625.5 kJ/mol.
	HartreeToJoulePerMol = 2625.5e3

	// JoulePerMolToEV converts molar energies from J/mol to eV per particle,
	// for display tables only.
	JoulePerMolToEV = 1.0 / 96485.33212

	// StandardTemperature is the default bath temperature in K used when a
	// reaction has no local-equilibrium context of its own.
	StandardTemperature = 298.15
)

// NormalModes returns the number of vibrational normal modes 3N−6 for a
// non-linear molecule with n atoms. The result is not guarded here; callers
// that divide by it must reject n < 3 themselves.
func NormalModes(nAtoms int) int {
	return 3*nAtoms - 6
}
