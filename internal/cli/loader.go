package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/excikin/excikin/internal/config"
	"github.com/excikin/excikin/internal/energy"
	"github.com/excikin/excikin/internal/kinetics"
	"github.com/excikin/excikin/internal/model"
	"github.com/excikin/excikin/internal/qc"
	"github.com/excikin/excikin/internal/rates"
)

// Error codes reported in command output.
const (
	ErrCodeConfig  = "E001" // configuration parse or validation error
	ErrCodeGraph   = "E002" // reaction graph construction error
	ErrCodeQC      = "E003" // calculation outputs missing or unusable
	ErrCodeRates   = "E004" // rate matrix assembly error
	ErrCodeSim     = "E005" // integration or analysis error
	ErrCodeArchive = "E006" // run archive error
)

// Pipeline bundles the loaded configuration with the reaction graph derived
// from it. Subcommands share it so every stage reads the network the same
// way.
type Pipeline struct {
	Path   string
	Config *config.Config
	Graph  *model.Graph
}

// LoadPipeline reads and validates a configuration file and builds the
// reaction graph.
func LoadPipeline(path string) (*Pipeline, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitFailure, ErrCodeConfig, err)
	}
	g, err := model.NewGraph(cfg.Decls())
	if err != nil {
		return nil, WrapExitError(ExitFailure, ErrCodeGraph, err)
	}
	return &Pipeline{Path: path, Config: cfg, Graph: g}, nil
}

// Source returns the calculation-directory energy source of the pipeline.
func (p *Pipeline) Source() qc.DirSource {
	return qc.DirSource{Root: p.Config.Molecule.CalculationPath}
}

// Energies resolves the relative energy of every state in J/mol, registry
// index order.
func (p *Pipeline) Energies() ([]float64, error) {
	out, err := energy.NewResolver(p.Source(), p.Graph.Registry()).ResolveAll()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeQC, err)
	}
	return out, nil
}

// Matrices assembles the rate matrix from resolved energies.
func (p *Pipeline) Matrices(energies []float64) (*rates.Matrices, error) {
	opts := []rates.BuilderOption{
		rates.WithBathTemperature(p.Config.Simulation.Temperature),
	}
	if p.Config.Simulation.Reversible {
		opts = append(opts, rates.WithReversible())
	}
	b := rates.NewBuilder(rates.NewCalculator(), p.Config.Molecule.TotalAtoms, opts...)
	m, err := b.Build(p.Graph, energies)
	if err != nil {
		return nil, WrapExitError(ExitFailure, ErrCodeRates, err)
	}
	return m, nil
}

// Integrator picks the configured integrator implementation.
func (p *Pipeline) Integrator() kinetics.Integrator {
	if p.Config.Simulation.Integrator == "propagator" {
		return kinetics.NewPropagator()
	}
	return kinetics.NewDormandPrince()
}

// Simulate runs the full pipeline through integration and returns the
// energies, matrices, and trajectory.
func (p *Pipeline) Simulate() ([]float64, *rates.Matrices, *kinetics.Trajectory, error) {
	energies, err := p.Energies()
	if err != nil {
		return nil, nil, nil, err
	}
	m, err := p.Matrices(energies)
	if err != nil {
		return nil, nil, nil, err
	}
	sys, err := kinetics.NewSystem(p.Graph.Registry(), m)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitFailure, ErrCodeSim, err)
	}

	times := kinetics.TimeGrid(p.Config.Simulation.Duration, p.Config.Simulation.Points)
	tr, err := p.Integrator().Integrate(sys, times)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitFailure, ErrCodeSim, err)
	}
	return energies, m, tr, nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// outputError reports err through the formatter and converts it to an
// ExitError for the command runner.
func outputError(f *OutputFormatter, code string, err error) error {
	message := err.Error()
	if exitErr, ok := err.(*ExitError); ok {
		if exitErr.Err != nil {
			message = exitErr.Err.Error()
		}
		_ = f.Error(code, message, nil)
		return exitErr
	}
	_ = f.Error(code, message, nil)
	return WrapExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message), err)
}
