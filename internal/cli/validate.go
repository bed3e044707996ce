package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/excikin/excikin/internal/qc"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	States int      `json:"states"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.toml>",
		Short: "Validate a configuration without running anything",
		Long: `Parse the configuration, build the reaction graph, and check that every
state resolves to a finished calculation output. No energies are computed
and nothing is integrated.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	p, err := LoadPipeline(path)
	if err != nil {
		return outputError(formatter, errCodeOf(err, ErrCodeConfig), err)
	}

	reg := p.Graph.Registry()
	formatter.VerboseLog("configuration %s: %d states, %d reactions", path, reg.Len(), len(p.Graph.Reactions()))

	// Composite states read their substates' outputs, never their own.
	var problems []string
	for _, s := range reg.States() {
		names := s.Substates
		if len(names) == 0 {
			names = []string{s.Name}
		}
		for _, name := range names {
			if _, err := qc.StatePath(p.Config.Molecule.CalculationPath, name); err != nil {
				problems = append(problems, err.Error())
			}
		}
	}
	if len(problems) > 0 {
		result := ValidationResult{Valid: false, States: reg.Len(), Errors: problems}
		if formatter.Format == "json" {
			_ = formatter.Success(result)
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Validation failed")
			for _, msg := range problems {
				fmt.Fprintf(formatter.Writer, "  %s\n", msg)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(problems)))
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, States: reg.Len()})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s: %d states, %d reactions\n", p.Config.Molecule.Name, reg.Len(), len(p.Graph.Reactions()))
	return nil
}

// errCodeOf maps an ExitError back to the code its stage reported.
func errCodeOf(err error, fallback string) string {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.Message {
		case ErrCodeConfig, ErrCodeGraph, ErrCodeQC, ErrCodeRates, ErrCodeSim, ErrCodeArchive:
			return exitErr.Message
		}
	}
	return fallback
}
