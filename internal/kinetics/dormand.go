package kinetics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Dormand–Prince 5(4) tableau. The seventh stage equals the fifth-order
// solution (FSAL), so an accepted step reuses it as the first stage of the
// next one.
var (
	dpC = [7]float64{0, 1. / 5, 3. / 10, 4. / 5, 8. / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1. / 5},
		{3. / 40, 9. / 40},
		{44. / 45, -56. / 15, 32. / 9},
		{19372. / 6561, -25360. / 2187, 64448. / 6561, -212. / 729},
		{9017. / 3168, -355. / 33, 46732. / 5247, 49. / 176, -5103. / 18656},
		{35. / 384, 0, 500. / 1113, 125. / 192, -2187. / 6784, 11. / 84},
	}
	dpB5 = [7]float64{35. / 384, 0, 500. / 1113, 125. / 192, -2187. / 6784, 11. / 84, 0}
	dpB4 = [7]float64{5179. / 57600, 0, 7571. / 16695, 393. / 640, -92097. / 339200, 187. / 2100, 1. / 40}
)

// DormandPrince is an adaptive explicit Runge–Kutta 5(4) integrator. The
// step size is controlled against the embedded fourth-order solution; grid
// points are hit exactly by clamping the step.
type DormandPrince struct {
	// Atol and Rtol are the absolute and relative error tolerances.
	Atol, Rtol float64

	// MaxSteps bounds the total number of attempted steps.
	MaxSteps int
}

// NewDormandPrince returns an integrator with the default tolerances
// (atol 1e-12, rtol 1e-8).
func NewDormandPrince() *DormandPrince {
	return &DormandPrince{Atol: 1e-12, Rtol: 1e-8, MaxSteps: 1_000_000}
}

// Integrate advances the system across times, sampling the solution at every
// grid point. times[0] is the initial time and carries the initial
// concentrations unchanged.
func (dp *DormandPrince) Integrate(sys *System, times []float64) (*Trajectory, error) {
	if err := checkGrid(times); err != nil {
		return nil, err
	}
	n := sys.Registry().Len()
	tr := &Trajectory{
		Times: append([]float64(nil), times...),
		Conc:  mat.NewDense(len(times), n, nil),
	}

	y := append([]float64(nil), sys.Initial()...)
	tr.Conc.SetRow(0, y)

	var stages [7][]float64
	for i := range stages {
		stages[i] = make([]float64, n)
	}
	ytmp := make([]float64, n)
	y5 := make([]float64, n)
	y4 := make([]float64, n)

	sys.Derivative(stages[0], y)
	t := times[0]
	h := dp.initialStep(times)
	steps := 0

	for gi := 1; gi < len(times); gi++ {
		for t < times[gi] {
			if steps++; steps > dp.MaxSteps {
				return nil, ErrStepLimit
			}
			hFull := h
			clamped := false
			if t+h >= times[gi] {
				h = times[gi] - t
				clamped = true
			}

			// Stages 2..7; stage 1 is the FSAL derivative.
			for s := 1; s < 7; s++ {
				copy(ytmp, y)
				for j := 0; j < s; j++ {
					if dpA[s][j] != 0 {
						floats.AddScaled(ytmp, h*dpA[s][j], stages[j])
					}
				}
				sys.Derivative(stages[s], ytmp)
			}

			copy(y5, y)
			copy(y4, y)
			for s := 0; s < 7; s++ {
				if dpB5[s] != 0 {
					floats.AddScaled(y5, h*dpB5[s], stages[s])
				}
				if dpB4[s] != 0 {
					floats.AddScaled(y4, h*dpB4[s], stages[s])
				}
			}

			norm := dp.errorNorm(y, y5, y4)
			if norm <= 1 {
				t += h
				if clamped {
					t = times[gi] // kill the round-off residue
				}
				copy(y, y5)
				copy(stages[0], stages[6]) // FSAL
			}
			if clamped && norm <= 1 {
				// Keep the pre-clamp step for the next interval.
				h = hFull
			} else {
				h *= stepFactor(norm)
			}
		}
		tr.Conc.SetRow(gi, y)
	}
	return tr, nil
}

// errorNorm is the RMS of the embedded error scaled by the mixed tolerance.
func (dp *DormandPrince) errorNorm(y, y5, y4 []float64) float64 {
	var sum float64
	for i := range y {
		scale := dp.Atol + dp.Rtol*math.Max(math.Abs(y[i]), math.Abs(y5[i]))
		d := (y5[i] - y4[i]) / scale
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(y)))
}

// stepFactor maps an error norm to a bounded step-size multiplier.
func stepFactor(norm float64) float64 {
	if norm == 0 {
		return 5
	}
	f := 0.9 * math.Pow(norm, -1./5)
	return math.Min(5, math.Max(0.2, f))
}

// initialStep seeds the step size from the grid spacing. The controller
// shrinks it within a few steps if the dynamics are faster.
func (dp *DormandPrince) initialStep(times []float64) float64 {
	return (times[1] - times[0]) / 10
}
