// Package composition implements the Composition Engine (spec.md §4.5): the
// per-(session_id, composite_id) CompositionContext state machine deciding
// which atoms of a resolved composite plan are active right now. The Engine
// itself (active_components/advance/mark_completed) is pure; Registry adds
// the per-key mutex serialization and per-session storage spec.md §5
// requires on top of it.
package composition
