// Package context implements the Context Analyzer (spec.md §4.3): it turns
// a raw tool-call blob into the normalized core.TriggerContext the Trigger
// Matcher scores against. It performs no I/O and no regex compilation per
// call.
package context
