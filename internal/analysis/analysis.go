// Package analysis extracts chemistry-facing numbers from an integrated
// trajectory: product branching ratios and exponential lifetimes of
// spin-resolved population groups.
package analysis

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/excikin/excikin/internal/kinetics"
	"github.com/excikin/excikin/internal/model"
)

var (
	// ErrNoProducts indicates no state in the registry carries the
	// product role.
	ErrNoProducts = errors.New("analysis: no product states")

	// ErrNoProductPopulation indicates the products hold zero total
	// population at the end of the trajectory, so ratios are undefined.
	ErrNoProductPopulation = errors.New("analysis: no population reached a product")
)

// Ratio is the share of one product group in the final population,
// normalized so all groups sum to 100.
type Ratio struct {
	Label   string
	Percent float64
}

// ProductRatios groups the final-time populations of product states by label
// and normalizes them to percent. States sharing a label (cis/trans pairs,
// degenerate rotamers) pool their population.
func ProductRatios(tr *kinetics.Trajectory, reg *model.Registry) ([]Ratio, error) {
	products := reg.Products()
	if len(products) == 0 {
		return nil, ErrNoProducts
	}

	final := tr.Final()
	byLabel := make(map[string]float64)
	for _, idx := range products {
		s, err := reg.ByIndex(idx)
		if err != nil {
			return nil, err
		}
		byLabel[s.Label] += final[idx]
	}

	var total float64
	for _, v := range byLabel {
		total += v
	}
	if total <= 0 {
		return nil, ErrNoProductPopulation
	}

	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make([]Ratio, len(labels))
	for i, label := range labels {
		out[i] = Ratio{Label: label, Percent: 100 * byLabel[label] / total}
	}
	return out, nil
}

// GroupSeries sums the population histories of the named states. Unknown
// names fail; an empty group is a wiring bug upstream.
func GroupSeries(tr *kinetics.Trajectory, reg *model.Registry, names []string) ([]float64, error) {
	if len(names) == 0 {
		return nil, errors.New("analysis: empty state group")
	}
	sum := make([]float64, len(tr.Times))
	for _, name := range names {
		idx, err := reg.Index(name)
		if err != nil {
			return nil, err
		}
		floats.Add(sum, tr.Series(idx))
	}
	return sum, nil
}
