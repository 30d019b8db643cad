// Package resolver implements the Resolver (spec.md §4.2): expansion of a
// composite ConstraintID into its ordered atomic-leaf Plan, with cycle
// detection and caching.
//
// Concurrency follows spec.md §5: the Plan cache is a lock-free-read
// concurrent map; duplicate concurrent first-time resolutions of the same
// id are collapsed with golang.org/x/sync/singleflight (the same module
// theRebelliousNerd-codenerd uses for its errgroup-based parallel work in
// this retrieval pack); ResolveMany fans the set out with
// golang.org/x/sync/errgroup. Metric updates happen under one mutex after a
// resolve returns; cache lookups never take it.
package resolver
