package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/excikin/excikin/internal/store"
)

// RunLine is one archived run in the runs listing.
type RunLine struct {
	ID        string  `json:"id"`
	Molecule  string  `json:"molecule"`
	StartedAt string  `json:"started_at"`
	Duration  float64 `json:"duration_s"`
}

// RunsResult is the payload of the runs command.
type RunsResult struct {
	Runs []RunLine `json:"runs"`
}

// String renders the text listing.
func (r RunsResult) String() string {
	if len(r.Runs) == 0 {
		return "no archived runs"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-16s %-22s %12s\n", "run", "molecule", "started", "duration (s)")
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "%-38s %-16s %-22s %12.3e\n", run.ID, run.Molecule, run.StartedAt, run.Duration)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:           "runs",
		Short:         "List archived simulation runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(rootOpts, dbPath, cmd)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "excikin.db", "SQLite archive to read")
	return cmd
}

func runRuns(opts *RootOptions, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := store.Open(dbPath)
	if err != nil {
		return outputError(formatter, ErrCodeArchive,
			WrapExitError(ExitCommandError, "open archive", err))
	}
	defer s.Close()

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		return outputError(formatter, ErrCodeArchive,
			WrapExitError(ExitCommandError, "list runs", err))
	}

	result := RunsResult{}
	for _, run := range runs {
		result.Runs = append(result.Runs, RunLine{
			ID:        run.ID,
			Molecule:  run.Molecule,
			StartedAt: run.StartedAt.Format(time.RFC3339),
			Duration:  run.Duration,
		})
	}
	return formatter.Success(result)
}
