package kinetics

import (
	"gonum.org/v1/gonum/mat"
)

// Propagator integrates the system exactly through the matrix exponential:
//
//	C(t+Δt) = exp(G·Δt)·C(t)
//
// The generator is time-invariant, so one exponential per distinct grid
// spacing suffices; a uniform grid costs a single Padé evaluation. Unlike an
// explicit stepper the propagator does not care how stiff the network is,
// which makes it the safer choice when fast relaxations and slow barrier
// crossings share one matrix.
type Propagator struct{}

// NewPropagator returns a matrix-exponential integrator.
func NewPropagator() *Propagator { return &Propagator{} }

// Integrate advances the system across times by repeated application of the
// interval propagator.
func (p *Propagator) Integrate(sys *System, times []float64) (*Trajectory, error) {
	if err := checkGrid(times); err != nil {
		return nil, err
	}
	n := sys.Registry().Len()
	tr := &Trajectory{
		Times: append([]float64(nil), times...),
		Conc:  mat.NewDense(len(times), n, nil),
	}

	gen := sys.Generator()
	y := mat.NewVecDense(n, append([]float64(nil), sys.Initial()...))
	tr.Conc.SetRow(0, y.RawVector().Data)

	var (
		step   mat.Dense
		scaled mat.Dense
		next   mat.VecDense
		lastDt = -1.0
	)
	for gi := 1; gi < len(times); gi++ {
		dt := times[gi] - times[gi-1]
		if dt != lastDt {
			scaled.Scale(dt, gen)
			step.Exp(&scaled)
			lastDt = dt
		}
		next.MulVec(&step, y)
		y.CopyVec(&next)
		tr.Conc.SetRow(gi, y.RawVector().Data)
	}
	return tr, nil
}
