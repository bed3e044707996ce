// Package model defines the reaction-network data model: electronic states
// with stable integer indices, the directed reaction graph connecting them,
// and the flattened elementary-reaction list the kinetics engine consumes.
//
// The state registry is the single source of index truth. Every downstream
// structure (energy vector, rate matrix, trajectory columns, product
// groupings) addresses states through the indices assigned here, in
// first-seen order over the configured state collection. Nothing else in the
// system may re-derive an index.
//
// Transition-state-mediated reactions are stored twice: expanded as the two
// display edges init→ts and ts→final for mechanism export, and collapsed
// into one elementary reaction init→final whose activation energy is
// E(ts)−E(init).
package model
