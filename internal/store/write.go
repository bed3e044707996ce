package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/excikin/excikin/internal/kinetics"
	"github.com/excikin/excikin/internal/model"
	"github.com/excikin/excikin/internal/rates"
)

// Run is the archive record of one simulation.
type Run struct {
	ID          string
	Molecule    string
	ConfigPath  string
	Temperature float64
	Integrator  string
	Duration    float64
	StartedAt   time.Time
	SummaryYAML string
}

// IDGenerator mints run identifiers. Production uses UUIDv7 so run IDs
// sort by creation time; tests pin a fixed generator.
type IDGenerator interface {
	NewID() (string, error)
}

// UUIDv7Generator mints time-ordered UUIDs.
type UUIDv7Generator struct{}

func (UUIDv7Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}

// FixedGenerator always returns the same identifier.
type FixedGenerator struct{ ID string }

func (g FixedGenerator) NewID() (string, error) { return g.ID, nil }

// WriteRun archives a run together with its energies, rate constants and
// trajectory samples in one transaction. energies is in registry index
// order; tr may be nil when only the static tables are wanted. Returns the
// run ID.
func (s *Store) WriteRun(ctx context.Context, gen IDGenerator, run Run, g *model.Graph, energies []float64, m *rates.Matrices, tr *kinetics.Trajectory) (string, error) {
	id, err := gen.NewID()
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, molecule, config_path, temperature_k, integrator, duration_s, started_at, summary_yaml)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		run.Molecule,
		run.ConfigPath,
		run.Temperature,
		run.Integrator,
		run.Duration,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.SummaryYAML,
	)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}

	reg := g.Registry()
	for i, state := range reg.States() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO energy_levels (run_id, state_idx, state, energy_jmol)
			VALUES (?, ?, ?, ?)
		`, id, i, state.Name, energies[i])
		if err != nil {
			return "", fmt.Errorf("write energy of %s: %w", state.Name, err)
		}
	}

	// Scan the matrices rather than the declared edges so cells the
	// assembly added on its own, reverse crossings included, are archived
	// alongside the configured ones.
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
			_, err = tx.ExecContext(ctx, `
				INSERT INTO rate_constants (run_id, init_state, final_state, kind, rate_per_s, delta_e_jmol)
				VALUES (?, ?, ?, ?, ?, ?)
			`,
				id,
				init.Name,
				final.Name,
				int(g.Kind(i, j)),
				rate,
				dE,
			)
			if err != nil {
				return "", fmt.Errorf("write rate %s → %s: %w", init.Name, final.Name, err)
			}
		}
	}

	if tr != nil {
		states := reg.States()
		for si, t := range tr.Times {
			for j, state := range states {
				_, err = tx.ExecContext(ctx, `
					INSERT INTO trajectory_samples (run_id, sample_idx, state, t_s, conc)
					VALUES (?, ?, ?, ?, ?)
				`, id, si, state.Name, t, tr.Conc.At(si, j))
				if err != nil {
					return "", fmt.Errorf("write trajectory sample %d: %w", si, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write run: commit: %w", err)
	}
	return id, nil
}
