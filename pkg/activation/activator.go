package activation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/constraintd/constraintd/core"
	"github.com/constraintd/constraintd/pkg/composition"
)

// DefaultSoftDeadline is the per-activation budget (spec.md §4.6).
const DefaultSoftDeadline = 45 * time.Millisecond

// Activator is the concrete Activator (spec.md §4.6): it ties the Context
// Analyzer, Trigger Matcher, Resolver, and Composition Engine together into
// one activate() call.
type Activator struct {
	lib       core.LibraryReader
	analyzer  core.ContextAnalyzer
	matcher   core.TriggerMatcher
	resolver  core.Resolver
	sessions  *composition.Registry
	formatter core.InjectionFormatter
	clock     core.Clock
	logger    core.StructuredLogger
	tracer    trace.Tracer

	softDeadline time.Duration
}

// Option configures an Activator.
type Option func(*Activator)

// WithSoftDeadline overrides DefaultSoftDeadline.
func WithSoftDeadline(d time.Duration) Option {
	return func(a *Activator) { a.softDeadline = d }
}

// WithTracer has Activate open a span around each call. Without it, tracing
// is skipped entirely.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Activator) { a.tracer = tracer }
}

// New builds an Activator from its collaborators.
func New(
	lib core.LibraryReader,
	analyzer core.ContextAnalyzer,
	matcher core.TriggerMatcher,
	resolver core.Resolver,
	sessions *composition.Registry,
	formatter core.InjectionFormatter,
	clock core.Clock,
	logger core.StructuredLogger,
	opts ...Option,
) *Activator {
	a := &Activator{
		lib:          lib,
		analyzer:     analyzer,
		matcher:      matcher,
		resolver:     resolver,
		sessions:     sessions,
		formatter:    formatter,
		clock:        clock,
		logger:       logger,
		softDeadline: DefaultSoftDeadline,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Activate implements core.ActivationApi.
func (a *Activator) Activate(ctx context.Context, raw core.RawContext, sessionID string, interactionNumber int64) (core.ActivationResult, error) {
	if a.tracer != nil {
		var span trace.Span
		ctx, span = a.tracer.Start(ctx, "activate")
		defer span.End()
	}

	correlationID := uuid.New().String()
	start := a.clock.Now()
	deadline := start.Add(a.softDeadline)

	triggerCtx := a.analyzer.Analyze(raw)

	var firedAtomics []*core.AtomicConstraint
	var firedComposites []*core.CompositeConstraint

	for _, atom := range a.lib.IterAtomic() {
		if a.matcher.Matches(atom.Triggers, triggerCtx) {
			firedAtomics = append(firedAtomics, atom)
		}
	}
	for _, c := range a.lib.IterComposite() {
		if a.matcher.Matches(c.Triggers, triggerCtx) {
			firedComposites = append(firedComposites, c)
		}
	}

	byID := make(map[core.ConstraintID]*core.AtomicConstraint, len(firedAtomics))
	var order []core.ConstraintID
	addAtom := func(atom *core.AtomicConstraint) {
		if _, ok := byID[atom.ID]; ok {
			return
		}
		byID[atom.ID] = atom
		order = append(order, atom.ID)
	}

	for _, atom := range firedAtomics {
		addAtom(atom)
	}

	budgetExceeded := false
	knownCycleMembers := make(map[core.ConstraintID]struct{})
	for _, c := range firedComposites {
		if a.clock.Now().After(deadline) {
			budgetExceeded = true
			a.logger.Event("activation_budget_exceeded", map[string]interface{}{
				"correlation_id": correlationID,
				"composite_id":   string(c.ID),
			})
			continue
		}

		// c.ID already surfaced in a cycle another composite resolved this
		// call; the resolver would just walk the same ring and log
		// resolve_cycle again, so skip straight to isolating it.
		if _, seen := knownCycleMembers[c.ID]; seen {
			continue
		}

		plan, err := a.resolver.Resolve(c.ID)
		if err != nil {
			var cycle *core.CircularReferenceError
			if errors.As(err, &cycle) {
				for _, id := range cycle.Chain {
					knownCycleMembers[id] = struct{}{}
				}
			}
			continue
		}

		active := a.sessions.ActiveComponents(sessionID, c, plan)
		for _, atom := range active {
			addAtom(atom)
		}
	}

	selected := make([]*core.AtomicConstraint, 0, len(order))
	for _, id := range order {
		selected = append(selected, byID[id])
	}
	sortByActivationOrder(selected)

	activated := make([]core.ActivatedConstraint, len(selected))
	for i, atom := range selected {
		activated[i] = core.ActivatedConstraint{ID: atom.ID, Atomic: atom}
	}

	message := a.formatter.Format(activated, sessionID, interactionNumber)

	a.logger.Event("activation_summary", map[string]interface{}{
		"correlation_id":  correlationID,
		"session_id":      sessionID,
		"selected_count":  len(activated),
		"budget_exceeded": budgetExceeded,
		"duration_ms":     a.clock.Now().Sub(start).Milliseconds(),
	})

	return core.ActivationResult{
		Activated:      activated,
		Message:        message,
		InteractionID:  fmt.Sprintf("%s:%d", sessionID, interactionNumber),
		BudgetExceeded: budgetExceeded,
	}, nil
}

// LibraryStats implements core.ActivationApi.
func (a *Activator) LibraryStats() core.LibraryStats {
	return a.lib.Stats()
}

// ResolverMetrics implements core.ActivationApi.
func (a *Activator) ResolverMetrics() core.ResolverMetrics {
	return a.resolver.Metrics()
}

// sortByActivationOrder sorts descending by priority, ascending by id,
// the deterministic tiebreak spec.md §8 requires.
func sortByActivationOrder(atoms []*core.AtomicConstraint) {
	sort.Slice(atoms, func(i, j int) bool {
		if atoms[i].Priority != atoms[j].Priority {
			return atoms[j].Priority.Less(atoms[i].Priority)
		}
		return atoms[i].ID.Less(atoms[j].ID)
	})
}

var _ core.ActivationApi = (*Activator)(nil)
