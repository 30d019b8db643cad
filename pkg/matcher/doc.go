// Package matcher implements the Trigger Matcher (spec.md §4.4): pure,
// side-effect-free scoring of a core.TriggerConfiguration against a
// core.TriggerContext. Whether each glob is well formed is memoised in a
// concurrent map keyed by the raw pattern string, since the same
// file_patterns entry is scored repeatedly across many activate() calls.
package matcher
