package core

import "context"

// RawContext is the raw tool-call blob the transport hands the Activator.
// It is the input the Context Analyzer normalizes into a TriggerContext
// (spec.md §4.3). The transport/dispatcher that produces this value is out
// of scope for the core (spec.md §1); this is simply the shape it hands in.
type RawContext struct {
	// UserInput is free text the Context Analyzer tokenizes into keywords.
	UserInput string
	// FilePaths are the file paths the tool call touches.
	FilePaths []string
	// ActivityType is a caller-supplied activity hint (e.g. "testing").
	ActivityType string
	// AdditionalContextTags are extra activity tags beyond ActivityType.
	AdditionalContextTags []string
	// AntiPatternTags are caller-supplied anti-pattern tags (e.g. "hotfix").
	AntiPatternTags []string
}

// Plan is the flattened sequence of atomic leaves obtained by resolving a
// constraint id (spec.md glossary). Entries may be shadow copies carrying
// reference overlays (spec.md §4.2) rather than the library's own records.
type Plan []*AtomicConstraint

// IDs returns the ids of the atoms in the plan, in order.
func (p Plan) IDs() []ConstraintID {
	ids := make([]ConstraintID, len(p))
	for i, a := range p {
		ids[i] = a.ID
	}
	return ids
}

// ResolverMetrics is the diagnostic snapshot exposed by resolver_metrics()
// (spec.md §6).
type ResolverMetrics struct {
	TotalResolutions       int64
	CacheHits              int64
	CacheMisses            int64
	AverageResolutionNanos int64
	PeakResolutionNanos    int64
}

// Resolver turns a ConstraintID into a Plan, per spec.md §4.2.
type Resolver interface {
	Resolve(id ConstraintID) (Plan, error)
	ResolveMany(ids []ConstraintID) map[ConstraintID]ResolveOutcome
	Metrics() ResolverMetrics
}

// ResolveOutcome is one entry of a ResolveMany result: either a Plan or an
// error, never both.
type ResolveOutcome struct {
	Plan Plan
	Err  error
}

// ContextAnalyzer normalizes a RawContext into a TriggerContext (spec.md §4.3).
type ContextAnalyzer interface {
	Analyze(raw RawContext) TriggerContext
}

// TriggerMatcher scores a TriggerContext against one TriggerConfiguration
// and decides fire/no-fire (spec.md §4.4).
type TriggerMatcher interface {
	Score(triggers TriggerConfiguration, ctx TriggerContext) float64
	Matches(triggers TriggerConfiguration, ctx TriggerContext) bool
}

// CompositionEngine tracks per-session composition state and decides which
// atoms of a resolved composite are active right now (spec.md §4.5).
type CompositionEngine interface {
	ActiveComponents(composite *CompositeConstraint, plan Plan, ctx CompositionContext) []*AtomicConstraint
	Advance(composite *CompositeConstraint, plan Plan, ctx CompositionContext) CompositionContext
	MarkCompleted(ctx CompositionContext, id ConstraintID) CompositionContext
}

// ActivatedConstraint pairs a selected atom with the id it was selected
// under (the id it was fired or resolved through).
type ActivatedConstraint struct {
	ID     ConstraintID
	Atomic *AtomicConstraint
}

// ActivationResult is the ordered outcome of one activate() call plus its
// rendered injection payload (spec.md §3/§4.6).
type ActivationResult struct {
	Activated     []ActivatedConstraint
	Message       string
	InteractionID string
	BudgetExceeded bool
}

// InjectionFormatter deterministically renders selected atoms into the
// outgoing message (spec.md §4.6/§7).
type InjectionFormatter interface {
	Format(activated []ActivatedConstraint, sessionID string, interactionNumber int64) string
}

// ActivationApi is the single exposed entry point of the core (spec.md §6).
type ActivationApi interface {
	Activate(ctx context.Context, raw RawContext, sessionID string, interactionNumber int64) (ActivationResult, error)
	LibraryStats() LibraryStats
	ResolverMetrics() ResolverMetrics
}

// LibraryLoader is consumed at startup to obtain the initial Library. The
// core does not dictate the on-disk format (spec.md §6); loader/yamlloader
// is this repository's concrete implementation.
type LibraryLoader interface {
	Load(ctx context.Context) (Library, error)
}

// StructuredLogger is the consumed logging contract (spec.md §6): records
// carry at least a timestamp, an event kind, and event-specific payload.
// pkg/logger.Logger satisfies this structurally via its Event method.
type StructuredLogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Event(kind string, payload map[string]interface{})
}
