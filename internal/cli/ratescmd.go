package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// RateResult is one populated rate-matrix cell.
type RateResult struct {
	Init   string  `json:"init"`
	Final  string  `json:"final"`
	Kind   string  `json:"kind"`
	Rate   float64 `json:"rate_per_s"`
	DeltaE float64 `json:"delta_e_jmol"`
}

// RatesResult is the payload of the rates command.
type RatesResult struct {
	Molecule string       `json:"molecule"`
	Edges    []RateResult `json:"edges"`
}

// String renders the text table.
func (r RatesResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s rate constants\n", r.Molecule)
	fmt.Fprintf(&b, "%-16s %-16s %-18s %12s %14s\n", "init", "final", "kind", "k (1/s)", "ΔE (kJ/mol)")
	for _, e := range r.Edges {
		fmt.Fprintf(&b, "%-16s %-16s %-18s %12.4e %14.2f\n", e.Init, e.Final, e.Kind, e.Rate, e.DeltaE/1e3)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewRatesCommand creates the rates command.
func NewRatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rates <config.toml>",
		Short:         "Assemble and print the rate matrix",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRates(rootOpts, args[0], cmd)
		},
	}
}

func runRates(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	p, err := LoadPipeline(path)
	if err != nil {
		return outputError(formatter, errCodeOf(err, ErrCodeConfig), err)
	}
	energies, err := p.Energies()
	if err != nil {
		return outputError(formatter, ErrCodeQC, err)
	}
	m, err := p.Matrices(energies)
	if err != nil {
		return outputError(formatter, ErrCodeRates, err)
	}

	reg := p.Graph.Registry()
	result := RatesResult{Molecule: p.Config.Molecule.Name}
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
			result.Edges = append(result.Edges, RateResult{
				Init:   init.Name,
				Final:  final.Name,
				Kind:   p.Graph.Kind(i, j).String(),
				Rate:   rate,
				DeltaE: dE,
			})
		}
	}
	return formatter.Success(result)
}
