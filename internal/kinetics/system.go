// Package kinetics integrates the population dynamics of a reaction
// network. The rate matrix fixes a linear time-invariant system
//
//	dC/dt = G·C
//
// whose generator G collects inflow on the off-diagonal and total outflow on
// the diagonal, so mass is conserved by construction. Two integrators are
// provided: an adaptive Dormand–Prince stepper and a matrix-exponential
// propagator for stiff networks.
package kinetics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/excikin/excikin/internal/model"
	"github.com/excikin/excikin/internal/rates"
)

var (
	// ErrNegativeRate indicates a rate constant below zero reached the
	// integrator. Rates are physical frequencies; a negative entry means
	// the matrix build is broken upstream.
	ErrNegativeRate = errors.New("kinetics: negative rate constant")

	// ErrNonFiniteRate indicates a NaN or infinite rate constant.
	ErrNonFiniteRate = errors.New("kinetics: non-finite rate constant")

	// ErrBadGrid indicates a time grid that is empty or not strictly
	// increasing.
	ErrBadGrid = errors.New("kinetics: time grid must be strictly increasing")

	// ErrStepLimit indicates the adaptive stepper hit its step budget
	// before reaching the end of the grid.
	ErrStepLimit = errors.New("kinetics: step limit exceeded")
)

// System is a validated, ready-to-integrate kinetic network.
type System struct {
	reg *model.Registry
	gen *mat.Dense
}

// NewSystem validates the rate matrix and assembles the generator. Every
// entry must be finite and non-negative.
func NewSystem(reg *model.Registry, m *rates.Matrices) (*System, error) {
	n := reg.Len()
	r, c := m.Rates.Dims()
	if r != n || c != n {
		return nil, fmt.Errorf("kinetics: %d×%d rate matrix for %d states", r, c, n)
	}

	gen := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			k := m.Rates.At(i, j)
			if math.IsNaN(k) || math.IsInf(k, 0) {
				return nil, cellError(ErrNonFiniteRate, reg, i, j, k)
			}
			if k < 0 {
				return nil, cellError(ErrNegativeRate, reg, i, j, k)
			}
			if i == j {
				continue
			}
			// Flow i→j appears as inflow at row j and outflow on
			// the diagonal of row i.
			gen.Set(j, i, gen.At(j, i)+k)
			gen.Set(i, i, gen.At(i, i)-k)
		}
	}
	return &System{reg: reg, gen: gen}, nil
}

func cellError(sentinel error, reg *model.Registry, i, j int, k float64) error {
	si, _ := reg.ByIndex(i)
	sj, _ := reg.ByIndex(j)
	return fmt.Errorf("%w: %s → %s (%g)", sentinel, si.Name, sj.Name, k)
}

// Registry returns the state registry of the system.
func (s *System) Registry() *model.Registry { return s.reg }

// Generator returns a copy of the generator matrix G.
func (s *System) Generator() *mat.Dense {
	var out mat.Dense
	out.CloneFrom(s.gen)
	return &out
}

// Derivative writes G·conc into dst. Both slices are in registry index
// order; dst and conc may not alias.
func (s *System) Derivative(dst, conc []float64) {
	n := s.reg.Len()
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += s.gen.At(i, j) * conc[j]
		}
		dst[i] = sum
	}
}

// Initial returns the starting concentration vector.
func (s *System) Initial() []float64 {
	return s.reg.InitialConcentrations()
}

// TimeGrid returns n points spanning [0, end] inclusive.
func TimeGrid(end float64, n int) []float64 {
	grid := make([]float64, n)
	floats.Span(grid, 0, end)
	return grid
}

// checkGrid rejects empty or non-increasing grids.
func checkGrid(times []float64) error {
	if len(times) == 0 {
		return ErrBadGrid
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return fmt.Errorf("%w: t[%d]=%g after t[%d]=%g", ErrBadGrid, i, times[i], i-1, times[i-1])
		}
	}
	return nil
}

// Trajectory is the integrated population history on a fixed time grid.
// Conc is len(Times)×N in registry index order.
type Trajectory struct {
	Times []float64
	Conc  *mat.Dense
}

// Series returns the population history of one state.
func (tr *Trajectory) Series(state int) []float64 {
	out := make([]float64, len(tr.Times))
	mat.Col(out, state, tr.Conc)
	return out
}

// Final returns the concentration vector at the last grid point.
func (tr *Trajectory) Final() []float64 {
	_, n := tr.Conc.Dims()
	out := make([]float64, n)
	mat.Row(out, len(tr.Times)-1, tr.Conc)
	return out
}

// Integrator produces a trajectory of the system on a time grid.
type Integrator interface {
	Integrate(sys *System, times []float64) (*Trajectory, error)
}
