package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound indicates no run with the requested ID exists in the
// archive.
var ErrRunNotFound = errors.New("store: run not found")

// ListRuns returns all archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, molecule, config_path, temperature_k, integrator, duration_s, started_at, summary_yaml
		FROM runs
		ORDER BY started_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one archived run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, molecule, config_path, temperature_k, integrator, duration_s, started_at, summary_yaml
		FROM runs
		WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// EnergyLevel is one archived state energy.
type EnergyLevel struct {
	StateIdx int
	State    string
	Energy   float64
}

// RunEnergies returns the archived energy levels of a run in registry
// index order.
func (s *Store) RunEnergies(ctx context.Context, runID string) ([]EnergyLevel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state_idx, state, energy_jmol
		FROM energy_levels
		WHERE run_id = ?
		ORDER BY state_idx
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run energies: %w", err)
	}
	defer rows.Close()

	var levels []EnergyLevel
	for rows.Next() {
		var l EnergyLevel
		if err := rows.Scan(&l.StateIdx, &l.State, &l.Energy); err != nil {
			return nil, fmt.Errorf("run energies: %w", err)
		}
		levels = append(levels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run energies: %w", err)
	}
	return levels, nil
}

// RateConstant is one archived matrix cell.
type RateConstant struct {
	Init   string
	Final  string
	Kind   int
	Rate   float64
	DeltaE float64
}

// RunRates returns the archived rate constants of a run sorted by edge.
func (s *Store) RunRates(ctx context.Context, runID string) ([]RateConstant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT init_state, final_state, kind, rate_per_s, delta_e_jmol
		FROM rate_constants
		WHERE run_id = ?
		ORDER BY init_state, final_state
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run rates: %w", err)
	}
	defer rows.Close()

	var out []RateConstant
	for rows.Next() {
		var rc RateConstant
		if err := rows.Scan(&rc.Init, &rc.Final, &rc.Kind, &rc.Rate, &rc.DeltaE); err != nil {
			return nil, fmt.Errorf("run rates: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run rates: %w", err)
	}
	return out, nil
}

// TrajectorySample is one archived (time, state) population value.
type TrajectorySample struct {
	SampleIdx int
	State     string
	Time      float64
	Conc      float64
}

// RunTrajectory returns the archived population history of a run ordered by
// sample index, then state name.
func (s *Store) RunTrajectory(ctx context.Context, runID string) ([]TrajectorySample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sample_idx, state, t_s, conc
		FROM trajectory_samples
		WHERE run_id = ?
		ORDER BY sample_idx, state
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run trajectory: %w", err)
	}
	defer rows.Close()

	var out []TrajectorySample
	for rows.Next() {
		var ts TrajectorySample
		if err := rows.Scan(&ts.SampleIdx, &ts.State, &ts.Time, &ts.Conc); err != nil {
			return nil, fmt.Errorf("run trajectory: %w", err)
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run trajectory: %w", err)
	}
	return out, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (Run, error) {
	var (
		r       Run
		started string
	)
	err := row.Scan(&r.ID, &r.Molecule, &r.ConfigPath, &r.Temperature, &r.Integrator, &r.Duration, &started, &r.SummaryYAML)
	if err != nil {
		return Run{}, err
	}
	r.StartedAt, err = time.Parse(time.RFC3339, started)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", started, err)
	}
	return r, nil
}
