// Package core defines the data model and consumed/exposed interfaces of the
// constraint activation core: the in-memory graph of atomic and composite
// constraints, the trigger and composition types attached to them, and the
// small set of collaborator interfaces (LibraryLoader, Clock, StructuredLogger)
// the rest of the packages in this module are built against.
//
// core holds no behavior beyond construction-time validation. Resolution,
// matching, composition bookkeeping, and activation each live in their own
// package (pkg/resolver, pkg/matcher, pkg/composition, pkg/activation) and
// depend on core's types rather than the other way around.
package core
