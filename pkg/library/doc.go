// Package library implements the Library Store (spec.md §4.1): the single
// source of truth for atomic and composite constraints. It enforces id
// uniqueness and reference integrity at insert time, and never performs
// global cycle detection — that is the Resolver's job (pkg/resolver), which
// discovers cycles lazily at resolve time.
package library
