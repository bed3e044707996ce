package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/excikin/excikin/internal/report"
)

// NewMechanismCommand creates the mechanism command.
func NewMechanismCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "mechanism <config.toml>",
		Short: "Export the reaction network as a Graphviz DOT drawing",
		Long: `Render the reaction network in DOT notation, with barrier states drawn
between their endpoints. Pipe the output through dot -Tpdf for a picture.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMechanism(rootOpts, args[0], output, cmd)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write DOT to a file instead of stdout")
	return cmd
}

func runMechanism(opts *RootOptions, path, output string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	p, err := LoadPipeline(path)
	if err != nil {
		return outputError(formatter, errCodeOf(err, ErrCodeConfig), err)
	}

	dot := report.MechanismDOT(p.Graph, p.Config.Molecule.Name)
	if output == "" {
		fmt.Fprint(cmd.OutOrStdout(), dot)
		return nil
	}
	if err := os.WriteFile(output, []byte(dot), 0o644); err != nil {
		return outputError(formatter, ErrCodeArchive,
			WrapExitError(ExitCommandError, "write mechanism", err))
	}
	formatter.VerboseLog("mechanism written to %s", output)
	return nil
}
