// Package config loads and validates the TOML model document describing a
// kinetic simulation: the molecule, the states, their connectivity, and the
// analysis groupings.
//
// The document is decoded once into typed structs and validated eagerly:
// malformed input fails at load time with a field-qualified error, never deep
// inside rate computation. Downstream packages consume model.StateDecl
// values produced here and never touch raw configuration keys.
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/excikin/excikin/internal/model"
	"github.com/excikin/excikin/internal/physchem"
)

// Error is a configuration error tied to the field that caused it.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func fieldErr(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Config is the root of the model document.
type Config struct {
	Molecule   Molecule    `toml:"molecule"`
	Simulation Simulation  `toml:"simulation"`
	States     []StateSpec `toml:"state"`
	Analysis   Analysis    `toml:"analysis"`
}

// Molecule carries molecule-level metadata shared by every rate formula.
type Molecule struct {
	Name            string `toml:"name"`
	TotalAtoms      int    `toml:"total_atoms"`
	CalculationPath string `toml:"calculation_path"`
}

// Simulation sets the integration window and environment.
type Simulation struct {
	// Duration is the simulated time span in seconds.
	Duration float64 `toml:"duration"`

	// Points is the number of trajectory samples over [0, Duration].
	Points int `toml:"points"`

	// Temperature is the bath temperature in K; 0 means the standard
	// 298.15 K.
	Temperature float64 `toml:"temperature"`

	// Reversible enables the reverse-flux variant of the ODE system.
	Reversible bool `toml:"reversible"`

	// Integrator selects the scheme: "rk45" (default) or "propagator".
	Integrator string `toml:"integrator"`
}

// StateSpec is one [[state]] entry.
type StateSpec struct {
	Name             string   `toml:"name"`
	Label            string   `toml:"label"`
	SpinMultiplicity int      `toml:"spin_multiplicity"`
	Conc             float64  `toml:"conc"`
	Role             string   `toml:"role"`
	Reference        bool     `toml:"reference"`
	Substates        []string `toml:"substates"`

	// TargetSpinChannel is either a single channel index or a [from, to]
	// window whose root energies are averaged. Decoded loosely and
	// normalized by Validate.
	TargetSpinChannel any `toml:"target_spin_channel"`

	// Final maps a target state name to its direct-edge metadata.
	Final map[string]DirectSpec `toml:"final"`

	// TS maps a barrier state name to its transition-state path metadata.
	TS map[string]BarrierSpec `toml:"ts"`

	channel model.SpinChannel
}

// DirectSpec is the metadata of one direct edge.
type DirectSpec struct {
	ReactionType string  `toml:"reaction_type"`
	NormalModes  float64 `toml:"normal_modes"`
}

// BarrierSpec is the metadata of one transition-state path.
type BarrierSpec struct {
	Final string `toml:"final"`
}

// Analysis declares the reporting groupings.
type Analysis struct {
	// SpinGroups maps a group label to the states summed into one scalar
	// trajectory for the exponential fit.
	SpinGroups map[string][]string `toml:"spin_groups"`
}

// Load reads and validates a model document.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and normalizes loose values. It is called by
// Load; tests and programmatic construction call it directly.
func (c *Config) Validate() error {
	if c.Molecule.TotalAtoms < 1 {
		return fieldErr("molecule.total_atoms", "must be ≥ 1, got %d", c.Molecule.TotalAtoms)
	}
	if c.Simulation.Duration <= 0 {
		return fieldErr("simulation.duration", "must be > 0, got %g", c.Simulation.Duration)
	}
	if c.Simulation.Points < 2 {
		return fieldErr("simulation.points", "must be ≥ 2, got %d", c.Simulation.Points)
	}
	if c.Simulation.Temperature < 0 {
		return fieldErr("simulation.temperature", "must be ≥ 0, got %g", c.Simulation.Temperature)
	}
	if c.Simulation.Temperature == 0 {
		c.Simulation.Temperature = physchem.StandardTemperature
	}
	switch c.Simulation.Integrator {
	case "":
		c.Simulation.Integrator = "rk45"
	case "rk45", "propagator":
	default:
		return fieldErr("simulation.integrator", "unknown scheme %q", c.Simulation.Integrator)
	}

	if len(c.States) == 0 {
		return fieldErr("state", "no states declared")
	}

	names := make(map[string]bool, len(c.States))
	for i := range c.States {
		s := &c.States[i]
		field := fmt.Sprintf("state[%d]", i)
		if s.Name != "" {
			field = fmt.Sprintf("state.%s", s.Name)
		}

		if s.Name == "" {
			return fieldErr(field+".name", "missing")
		}
		if names[s.Name] {
			return fieldErr(field, "duplicate state name")
		}
		names[s.Name] = true

		if s.Conc < 0 {
			return fieldErr(field+".conc", "must be ≥ 0, got %g", s.Conc)
		}
		switch model.Role(s.Role) {
		case model.RoleReactant, model.RoleProduct, model.RoleIntermediate, model.RoleUnspecified:
		default:
			return fieldErr(field+".role", "unknown role %q", s.Role)
		}

		ch, err := parseChannel(s.TargetSpinChannel)
		if err != nil {
			return fieldErr(field+".target_spin_channel", "%v", err)
		}
		s.channel = ch

		for target, d := range s.Final {
			if _, err := model.KindFromConfig(d.ReactionType); err != nil {
				return fieldErr(fmt.Sprintf("%s.final.%s.reaction_type", field, target), "%v", err)
			}
			if d.NormalModes < 0 {
				return fieldErr(fmt.Sprintf("%s.final.%s.normal_modes", field, target), "must be ≥ 0, got %g", d.NormalModes)
			}
		}
		for barrier, b := range s.TS {
			if b.Final == "" {
				return fieldErr(fmt.Sprintf("%s.ts.%s.final", field, barrier), "missing")
			}
		}
	}

	for group, members := range c.Analysis.SpinGroups {
		if len(members) == 0 {
			return fieldErr("analysis.spin_groups."+group, "empty group")
		}
		for _, name := range members {
			if !names[name] {
				return fieldErr("analysis.spin_groups."+group, "unknown state %q", name)
			}
		}
	}

	return nil
}

// parseChannel normalizes the loose target_spin_channel value: absent means
// the ground channel, an integer selects one channel, a [from, to] pair
// selects an averaging window.
func parseChannel(v any) (model.SpinChannel, error) {
	switch x := v.(type) {
	case nil:
		return model.Channel(0), nil
	case int64:
		if x < 0 {
			return model.SpinChannel{}, fmt.Errorf("must be ≥ 0, got %d", x)
		}
		return model.Channel(int(x)), nil
	case []any:
		if len(x) != 2 {
			return model.SpinChannel{}, fmt.Errorf("window needs exactly 2 entries, got %d", len(x))
		}
		from, okF := x[0].(int64)
		to, okT := x[1].(int64)
		if !okF || !okT {
			return model.SpinChannel{}, fmt.Errorf("window entries must be integers")
		}
		// Window roots are 1-based; root 0 (the ground state) has no row
		// in the root table.
		if from < 1 {
			return model.SpinChannel{}, fmt.Errorf("window [%d, %d] must start at root 1 or above", from, to)
		}
		if to < from {
			return model.SpinChannel{}, fmt.Errorf("window [%d, %d] is not ordered", from, to)
		}
		return model.SpinChannel{From: int(from), To: int(to)}, nil
	default:
		return model.SpinChannel{}, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

// Channel returns the normalized spin-channel selector of a state. Valid
// only after Validate.
func (s *StateSpec) Channel() model.SpinChannel { return s.channel }

// Decls converts the validated configuration into graph declarations, in
// document order with edge targets sorted by name for determinism.
func (c *Config) Decls() []model.StateDecl {
	decls := make([]model.StateDecl, 0, len(c.States))
	for i := range c.States {
		s := &c.States[i]
		decl := model.StateDecl{
			State: model.State{
				Name:             s.Name,
				Label:            s.Label,
				SpinMultiplicity: s.SpinMultiplicity,
				Channel:          s.channel,
				Conc:             s.Conc,
				Role:             model.Role(s.Role),
				Reference:        s.Reference,
				Substates:        s.Substates,
			},
		}

		for _, target := range sortedKeys(s.Final) {
			d := s.Final[target]
			kind, _ := model.KindFromConfig(d.ReactionType)
			modes := d.NormalModes
			if modes == 0 {
				modes = 1 // placeholder until per-edge mode counts are curated
			}
			decl.Direct = append(decl.Direct, model.DirectDecl{
				Final:       target,
				Kind:        kind,
				NormalModes: modes,
			})
		}
		for _, barrier := range sortedKeys(s.TS) {
			decl.Barriers = append(decl.Barriers, model.BarrierDecl{
				Barrier: barrier,
				Final:   s.TS[barrier].Final,
			})
		}
		decls = append(decls, decl)
	}
	return decls
}

// SpinGroupLabels returns the analysis group labels in sorted order.
func (c *Config) SpinGroupLabels() []string {
	return sortedKeys(c.Analysis.SpinGroups)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
