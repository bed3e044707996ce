// Package report renders simulation results for people and downstream
// tools: a YAML summary document and a Graphviz DOT drawing of the reaction
// mechanism.
package report

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/excikin/excikin/internal/analysis"
	"github.com/excikin/excikin/internal/model"
	"github.com/excikin/excikin/internal/physchem"
	"github.com/excikin/excikin/internal/rates"
)

// Document is the flat YAML summary of one simulation run. Energies are in
// eV for readability; lifetimes in seconds.
type Document struct {
	Molecule    string  `yaml:"molecule"`
	RunID       string  `yaml:"run_id,omitempty"`
	Temperature float64 `yaml:"temperature_k"`
	Integrator  string  `yaml:"integrator"`
	Duration    float64 `yaml:"duration_s"`

	// Points is the number of trajectory samples the run produced.
	Points int `yaml:"points"`

	Energies  []EnergyLine   `yaml:"energies"`
	Rates     []RateLine     `yaml:"rates,omitempty"`
	Ratios    []RatioLine    `yaml:"product_ratios,omitempty"`
	Lifetimes []LifetimeLine `yaml:"lifetimes,omitempty"`
	Warnings  []string       `yaml:"warnings,omitempty"`
}

// EnergyLine is one state energy in the summary.
type EnergyLine struct {
	State    string  `yaml:"state"`
	EnergyEV float64 `yaml:"energy_ev"`
}

// RateLine is one populated rate-matrix cell.
type RateLine struct {
	Init     string  `yaml:"init"`
	Final    string  `yaml:"final"`
	Kind     string  `yaml:"kind"`
	RatePerS float64 `yaml:"rate_per_s"`
	DeltaEEV float64 `yaml:"delta_e_ev"`
}

// RatioLine is one product branching entry.
type RatioLine struct {
	Label   string  `yaml:"label"`
	Percent float64 `yaml:"percent"`
}

// LifetimeLine is one fitted group lifetime. A failed fit keeps the line
// with Fitted false so the group is visibly accounted for; the asymptotic
// fraction is the population at the last grid point, so it survives a
// failed fit.
type LifetimeLine struct {
	Group     string  `yaml:"group"`
	Fitted    bool    `yaml:"fitted"`
	LifetimeS float64 `yaml:"lifetime_s,omitempty"`
	Amplitude float64 `yaml:"amplitude,omitempty"`
	FinalPop  float64 `yaml:"final_population"`
}

// AddEnergies fills the energy section from a J/mol vector in registry
// index order.
func (d *Document) AddEnergies(reg *model.Registry, energies []float64) {
	for i, s := range reg.States() {
		d.Energies = append(d.Energies, EnergyLine{
			State:    s.Name,
			EnergyEV: energies[i] * physchem.JoulePerMolToEV,
		})
	}
}

// AddRates fills the sparse rate table from the populated matrix cells of
// the collapsed elementary edges.
func (d *Document) AddRates(g *model.Graph, m *rates.Matrices) {
	reg := g.Registry()
	n := reg.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rate := m.Rates.At(i, j)
			dE := m.DeltaE.At(i, j)
			if rate == 0 && dE == 0 {
				continue
			}
			init, _ := reg.ByIndex(i)
			final, _ := reg.ByIndex(j)
			d.Rates = append(d.Rates, RateLine{
				Init:     init.Name,
				Final:    final.Name,
				Kind:     g.Kind(i, j).String(),
				RatePerS: rate,
				DeltaEEV: dE * physchem.JoulePerMolToEV,
			})
		}
	}
}

// AddRatios fills the product-ratio section.
func (d *Document) AddRatios(ratios []analysis.Ratio) {
	for _, r := range ratios {
		d.Ratios = append(d.Ratios, RatioLine{Label: r.Label, Percent: r.Percent})
	}
}

// AddLifetime records one group fit. finalPop is the group population at
// the last grid point and is kept whether or not the fit converged; a nil
// error marks the line as fitted, otherwise the failure lands in the
// warnings section and the line stays unfitted.
func (d *Document) AddLifetime(group string, finalPop float64, fit analysis.ExpFit, err error) {
	if err != nil {
		d.Lifetimes = append(d.Lifetimes, LifetimeLine{Group: group, FinalPop: finalPop})
		d.Warnings = append(d.Warnings, fmt.Sprintf("lifetime fit of %s failed: %v", group, err))
		return
	}
	d.Lifetimes = append(d.Lifetimes, LifetimeLine{
		Group:     group,
		Fitted:    true,
		LifetimeS: fit.Lifetime(),
		Amplitude: fit.Amplitude,
		FinalPop:  finalPop,
	})
}

// Marshal renders the document as YAML with deterministic ordering: energy
// lines keep registry order, ratios and lifetimes sort by name.
func (d *Document) Marshal() ([]byte, error) {
	sort.Slice(d.Ratios, func(i, j int) bool { return d.Ratios[i].Label < d.Ratios[j].Label })
	sort.Slice(d.Lifetimes, func(i, j int) bool { return d.Lifetimes[i].Group < d.Lifetimes[j].Group })
	return yaml.Marshal(d)
}
