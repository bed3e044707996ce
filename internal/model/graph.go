package model

import (
	"errors"
	"fmt"
	"sort"
)

// Graph construction errors.
var (
	// ErrUnknownKind indicates a direct edge with a reaction type outside
	// the supported set.
	ErrUnknownKind = errors.New("model: unknown reaction type")

	// ErrSelfReaction indicates an edge from a state to itself.
	ErrSelfReaction = errors.New("model: reaction from state to itself")
)

// ReactionKind classifies an elementary reaction. The numeric values match
// the kind codes used in archived rate tables.
type ReactionKind int

const (
	KindUnspecified     ReactionKind = 0
	KindTransitionState ReactionKind = 1
	KindRelaxation      ReactionKind = 2
	KindEmission        ReactionKind = 3
)

// String returns the configuration spelling of the kind.
func (k ReactionKind) String() string {
	switch k {
	case KindTransitionState:
		return "transition_state"
	case KindRelaxation:
		return "relaxation"
	case KindEmission:
		return "emission"
	default:
		return "unspecified"
	}
}

// KindFromConfig maps a reaction_type field to a ReactionKind.
func KindFromConfig(s string) (ReactionKind, error) {
	switch s {
	case "relaxation":
		return KindRelaxation, nil
	case "emission":
		return KindEmission, nil
	default:
		return KindUnspecified, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Edge is a directed (init, final) pair of state indices.
type Edge struct {
	Init  int
	Final int
}

// Reaction is one elementary population-transfer step. For a
// transition-state-mediated path, Barrier holds the index of the barrier
// state and the activation energy is E(barrier)−E(init); for direct
// reactions Barrier is −1.
type Reaction struct {
	Init    int
	Final   int
	Barrier int
	Kind    ReactionKind

	// NormalModes is the number of normal modes participating in a
	// relaxation step, from the per-edge configuration. Zero for other
	// kinds.
	NormalModes float64
}

// Edge returns the collapsed (init, final) pair of the reaction.
func (rx Reaction) Edge() Edge { return Edge{Init: rx.Init, Final: rx.Final} }

// DirectDecl declares a direct edge from its owning state.
type DirectDecl struct {
	Final       string
	Kind        ReactionKind
	NormalModes float64
}

// BarrierDecl declares a transition-state-mediated path from its owning
// state through Barrier to Final.
type BarrierDecl struct {
	Barrier string
	Final   string
}

// StateDecl couples a state with its outgoing connectivity. The config
// layer produces these; nothing here reads configuration directly.
type StateDecl struct {
	State    State
	Direct   []DirectDecl
	Barriers []BarrierDecl
}

// Graph is the immutable reaction network: the registry plus the elementary
// reaction list and the expanded display edges.
type Graph struct {
	reg       *Registry
	reactions []Reaction
	display   []Edge
	adjacency map[int][]int
}

// NewGraph builds the reaction graph from state declarations. States are
// registered in declaration order; reactions are flattened in declaration
// order with each state's barrier paths before its direct edges, matching
// the order rate assignment walks them.
func NewGraph(decls []StateDecl) (*Graph, error) {
	states := make([]State, len(decls))
	for i, d := range decls {
		states[i] = d.State
	}
	reg, err := NewRegistry(states)
	if err != nil {
		return nil, err
	}

	g := &Graph{reg: reg, adjacency: make(map[int][]int)}

	for _, d := range decls {
		init, err := reg.Index(d.State.Name)
		if err != nil {
			return nil, err
		}

		for _, b := range d.Barriers {
			ts, err := reg.Index(b.Barrier)
			if err != nil {
				return nil, fmt.Errorf("barrier of %q: %w", d.State.Name, err)
			}
			fin, err := reg.Index(b.Final)
			if err != nil {
				return nil, fmt.Errorf("barrier %q final: %w", b.Barrier, err)
			}
			if fin == init {
				return nil, fmt.Errorf("%w: %q via %q", ErrSelfReaction, d.State.Name, b.Barrier)
			}
			g.reactions = append(g.reactions, Reaction{
				Init:    init,
				Final:   fin,
				Barrier: ts,
				Kind:    KindTransitionState,
			})
			g.display = append(g.display, Edge{init, ts}, Edge{ts, fin})
			g.link(init, fin)
		}

		for _, e := range d.Direct {
			fin, err := reg.Index(e.Final)
			if err != nil {
				return nil, fmt.Errorf("final of %q: %w", d.State.Name, err)
			}
			if fin == init {
				return nil, fmt.Errorf("%w: %q", ErrSelfReaction, d.State.Name)
			}
			if e.Kind != KindRelaxation && e.Kind != KindEmission {
				return nil, fmt.Errorf("%w: %q → %q (%v)", ErrUnknownKind, d.State.Name, e.Final, e.Kind)
			}
			g.reactions = append(g.reactions, Reaction{
				Init:        init,
				Final:       fin,
				Barrier:     -1,
				Kind:        e.Kind,
				NormalModes: e.NormalModes,
			})
			g.display = append(g.display, Edge{init, fin})
			g.link(init, fin)
		}
	}

	return g, nil
}

func (g *Graph) link(init, fin int) {
	for _, s := range g.adjacency[init] {
		if s == fin {
			return
		}
	}
	g.adjacency[init] = append(g.adjacency[init], fin)
	sort.Ints(g.adjacency[init])
}

// Registry returns the state registry backing the graph.
func (g *Graph) Registry() *Registry { return g.reg }

// Reactions returns the elementary reaction list in declaration order. The
// returned slice is a copy.
//
// The same (init, final) pair may appear more than once when distinct paths
// target the same final state; the rate-matrix builder is responsible for
// detecting conflicting assignments to the shared matrix cell.
func (g *Graph) Reactions() []Reaction {
	out := make([]Reaction, len(g.reactions))
	copy(out, g.reactions)
	return out
}

// Edges returns the collapsed elementary edges, deduplicated, in declaration
// order of first appearance.
func (g *Graph) Edges() []Edge {
	seen := make(map[Edge]bool, len(g.reactions))
	var out []Edge
	for _, rx := range g.reactions {
		e := rx.Edge()
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// DisplayEdges returns the expanded edge list for mechanism export, with
// transition-state paths as two chained edges. Duplicates are preserved.
func (g *Graph) DisplayEdges() []Edge {
	out := make([]Edge, len(g.display))
	copy(out, g.display)
	return out
}

// Successors returns the direct successor indices of a state in ascending
// order, considering collapsed elementary edges.
func (g *Graph) Successors(state int) []int {
	out := make([]int, len(g.adjacency[state]))
	copy(out, g.adjacency[state])
	return out
}

// Kind returns the classification of the collapsed edge (init, final), or
// KindUnspecified when no such reaction exists. Transition-state paths
// dominate when a direct edge targets the same pair.
func (g *Graph) Kind(init, final int) ReactionKind {
	kind := KindUnspecified
	for _, rx := range g.reactions {
		if rx.Init != init || rx.Final != final {
			continue
		}
		if rx.Kind == KindTransitionState {
			return KindTransitionState
		}
		kind = rx.Kind
	}
	return kind
}

// DescendantGroup maps each direct successor of a reactant to the edges of
// the subtree hanging below it.
type DescendantGroup struct {
	// Branch is the direct successor of the reactant that roots the group.
	Branch int

	// Edges are all (parent, child) pairs reachable from Branch, in
	// depth-first order with ascending successor visiting.
	Edges []Edge
}

// DescendantGroups computes, for one reactant state, the depth-first closure
// below each of its direct successors. The reactant's own outgoing edges are
// not part of any group; revisiting a state already on the current walk is
// cut off so cyclic mechanisms terminate.
func (g *Graph) DescendantGroups(reactant int) []DescendantGroup {
	var groups []DescendantGroup
	for _, branch := range g.Successors(reactant) {
		visited := map[int]bool{reactant: true, branch: true}
		var edges []Edge
		g.walk(branch, visited, &edges)
		groups = append(groups, DescendantGroup{Branch: branch, Edges: edges})
	}
	return groups
}

func (g *Graph) walk(parent int, visited map[int]bool, edges *[]Edge) {
	for _, child := range g.Successors(parent) {
		*edges = append(*edges, Edge{parent, child})
		if visited[child] {
			continue
		}
		visited[child] = true
		g.walk(child, visited, edges)
	}
}
