package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/excikin/excikin/internal/analysis"
	"github.com/excikin/excikin/internal/kinetics"
	"github.com/excikin/excikin/internal/rates"
	"github.com/excikin/excikin/internal/report"
	"github.com/excikin/excikin/internal/store"
)

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		output string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "simulate <config.toml>",
		Short: "Run the full kinetics simulation and report the results",
		Long: `Resolve energies, assemble the rate matrix, integrate the population
dynamics, and write a YAML summary with product ratios and fitted
lifetimes. With --db the run is archived for later comparison.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, args[0], output, dbPath, cmd)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the YAML summary to a file instead of stdout")
	cmd.Flags().StringVar(&dbPath, "db", "", "archive the run in this SQLite database")
	return cmd
}

func runSimulate(opts *RootOptions, path, output, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	started := time.Now()

	p, err := LoadPipeline(path)
	if err != nil {
		return outputError(formatter, errCodeOf(err, ErrCodeConfig), err)
	}
	slog.Info("simulation starting",
		"molecule", p.Config.Molecule.Name,
		"states", p.Graph.Registry().Len(),
		"integrator", p.Config.Simulation.Integrator,
	)

	energies, m, tr, err := p.Simulate()
	if err != nil {
		return outputError(formatter, errCodeOf(err, ErrCodeSim), err)
	}
	slog.Info("integration finished", "points", len(tr.Times))

	doc := &report.Document{
		Molecule:    p.Config.Molecule.Name,
		Temperature: p.Config.Simulation.Temperature,
		Integrator:  p.Config.Simulation.Integrator,
		Duration:    p.Config.Simulation.Duration,
		Points:      len(tr.Times),
	}
	doc.AddEnergies(p.Graph.Registry(), energies)
	doc.AddRates(p.Graph, m)

	ratios, err := analysis.ProductRatios(tr, p.Graph.Registry())
	switch {
	case err == nil:
		doc.AddRatios(ratios)
	case errors.Is(err, analysis.ErrNoProducts), errors.Is(err, analysis.ErrNoProductPopulation):
		doc.Warnings = append(doc.Warnings, err.Error())
	default:
		return outputError(formatter, ErrCodeSim, err)
	}

	// Lifetime fits are diagnostic; a group that will not fit becomes a
	// warning, not a failed run.
	for _, label := range p.Config.SpinGroupLabels() {
		series, err := analysis.GroupSeries(tr, p.Graph.Registry(), p.Config.Analysis.SpinGroups[label])
		if err != nil {
			return outputError(formatter, ErrCodeSim, err)
		}
		fit, err := analysis.FitExponential(tr.Times, series)
		doc.AddLifetime(label, series[len(series)-1], fit, err)
	}

	if dbPath != "" {
		runID, err := archiveRun(p, dbPath, started, doc, energies, m, tr)
		if err != nil {
			return outputError(formatter, ErrCodeArchive, err)
		}
		doc.RunID = runID
		slog.Info("run archived", "db", dbPath, "run_id", runID)
	}

	yamlDoc, err := doc.Marshal()
	if err != nil {
		return outputError(formatter, ErrCodeSim, err)
	}
	if output != "" {
		if err := os.WriteFile(output, yamlDoc, 0o644); err != nil {
			return outputError(formatter, ErrCodeArchive,
				WrapExitError(ExitCommandError, "write summary", err))
		}
		formatter.VerboseLog("summary written to %s", output)
		return nil
	}
	if formatter.Format == "json" {
		return formatter.Success(doc)
	}
	fmt.Fprint(formatter.Writer, string(yamlDoc))
	return nil
}

func archiveRun(p *Pipeline, dbPath string, started time.Time, doc *report.Document, energies []float64, m *rates.Matrices, tr *kinetics.Trajectory) (string, error) {
	summary, err := doc.Marshal()
	if err != nil {
		return "", err
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "open archive", err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Error("closing archive", "error", closeErr)
		}
	}()

	return s.WriteRun(context.Background(), store.UUIDv7Generator{}, store.Run{
		Molecule:    p.Config.Molecule.Name,
		ConfigPath:  p.Path,
		Temperature: p.Config.Simulation.Temperature,
		Integrator:  p.Config.Simulation.Integrator,
		Duration:    p.Config.Simulation.Duration,
		StartedAt:   started,
		SummaryYAML: string(summary),
	}, p.Graph, energies, m, tr)
}
