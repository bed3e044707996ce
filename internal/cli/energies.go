package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/excikin/excikin/internal/physchem"
)

// EnergyResult is one resolved state energy.
type EnergyResult struct {
	State     string  `json:"state"`
	EnergyJPM float64 `json:"energy_jmol"`
	EnergyEV  float64 `json:"energy_ev"`
}

// EnergiesResult is the payload of the energies command.
type EnergiesResult struct {
	Molecule string         `json:"molecule"`
	Levels   []EnergyResult `json:"levels"`
}

// String renders the text table.
func (r EnergiesResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s energy levels (relative, reference = 0)\n", r.Molecule)
	fmt.Fprintf(&b, "%-20s %14s %10s\n", "state", "kJ/mol", "eV")
	for _, l := range r.Levels {
		fmt.Fprintf(&b, "%-20s %14.2f %10.3f\n", l.State, l.EnergyJPM/1e3, l.EnergyEV)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewEnergiesCommand creates the energies command.
func NewEnergiesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "energies <config.toml>",
		Short:         "Resolve and print the relative state energies",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnergies(rootOpts, args[0], cmd)
		},
	}
}

func runEnergies(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	p, err := LoadPipeline(path)
	if err != nil {
		return outputError(formatter, errCodeOf(err, ErrCodeConfig), err)
	}
	energies, err := p.Energies()
	if err != nil {
		return outputError(formatter, ErrCodeQC, err)
	}

	result := EnergiesResult{Molecule: p.Config.Molecule.Name}
	for i, s := range p.Graph.Registry().States() {
		result.Levels = append(result.Levels, EnergyResult{
			State:     s.Name,
			EnergyJPM: energies[i],
			EnergyEV:  energies[i] * physchem.JoulePerMolToEV,
		})
	}
	return formatter.Success(result)
}
