// Package rates implements the kinetic rate theories and assembles the dense
// rate-constant matrix for a reaction graph.
//
// Three theories are provided: the Eyring equation for barrier crossings, an
// ad hoc ansatz for vibrational relaxation, and the Einstein A coefficient
// for spontaneous emission. The theory set is closed: a Calculator binds one
// implementation per concern at construction and cannot be re-pointed
// mid-run.
//
// The Builder walks the elementary reaction list once and writes each rate
// into rates[init][final]. Transition-state assignments take precedence over
// direct-edge assignments to the same cell; two assignments of equal
// precedence targeting one cell abort the build with a ConflictError rather
// than silently overwriting.
package rates
