// Package activation implements the Activator and Injection Formatter
// (spec.md §4.6): the orchestration algorithm tying the Context Analyzer,
// Trigger Matcher, Resolver, and Composition Engine together into one
// activate() call, and the deterministic renderer turning the selected
// atoms into the outgoing message.
package activation
