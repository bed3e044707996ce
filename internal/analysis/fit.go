package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// ErrFitFailed indicates the exponential fit did not converge. Lifetime
// fits are diagnostic output; callers report the failure per group and keep
// going.
var ErrFitFailed = errors.New("analysis: exponential fit did not converge")

// FitError carries the group behind a failed fit.
type FitError struct {
	Group string
	Cause error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("analysis: fit of group %q: %v", e.Group, e.Cause)
}

func (e *FitError) Unwrap() error { return ErrFitFailed }

// ExpFit is a fitted y = A·exp(k·t) + C model. Decay has k < 0; the
// lifetime is 1/|k|.
type ExpFit struct {
	Amplitude float64
	RateK     float64
	Offset    float64
}

// Lifetime returns 1/|k|, the 1/e time of the fit. Rising groups fit with
// k > 0 and still report a positive time constant.
func (f ExpFit) Lifetime() float64 { return 1 / math.Abs(f.RateK) }

// Eval evaluates the model at t.
func (f ExpFit) Eval(t float64) float64 {
	return f.Amplitude*math.Exp(f.RateK*t) + f.Offset
}

// FitExponential fits y = A·exp(k·t) + C to a population series by
// minimizing the sum of squared residuals with Nelder–Mead. The initial
// guess is derived from the data: the offset from the last sample, the
// amplitude from the first, and the rate from the time it takes the series
// to cover two thirds of that span.
func FitExponential(times, values []float64) (ExpFit, error) {
	if len(times) != len(values) {
		return ExpFit{}, fmt.Errorf("analysis: %d times for %d values", len(times), len(values))
	}
	if len(times) < 4 {
		return ExpFit{}, fmt.Errorf("analysis: %d samples is too few for a three-parameter fit", len(times))
	}

	guess := initialGuess(times, values)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			var sse float64
			for i, t := range times {
				r := x[0]*math.Exp(x[1]*t) + x[2] - values[i]
				sse += r * r
			}
			return sse
		},
	}

	result, err := optimize.Minimize(problem, guess, nil, &optimize.NelderMead{})
	if err != nil {
		return ExpFit{}, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}
	if status := result.Status; status == optimize.Failure || status == optimize.NotTerminated {
		return ExpFit{}, fmt.Errorf("%w: optimizer status %v", ErrFitFailed, status)
	}

	x := result.X
	if math.IsNaN(x[0]) || math.IsNaN(x[1]) || math.IsNaN(x[2]) {
		return ExpFit{}, ErrFitFailed
	}
	return ExpFit{Amplitude: x[0], RateK: x[1], Offset: x[2]}, nil
}

func initialGuess(times, values []float64) []float64 {
	n := len(values)
	offset := values[n-1]
	amplitude := values[0] - offset

	// Rate guess: time at which the series has covered 1−1/e of the span
	// between its first and last samples.
	k := -1 / times[n-1]
	if amplitude != 0 {
		target := offset + amplitude/math.E
		for i, v := range values {
			crossed := (amplitude > 0 && v <= target) || (amplitude < 0 && v >= target)
			if crossed && times[i] > 0 {
				k = -1 / times[i]
				break
			}
		}
	}
	return []float64{amplitude, k, offset}
}
