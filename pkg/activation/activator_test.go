package activation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/constraintd/constraintd/core"
	"github.com/constraintd/constraintd/pkg/activation"
	"github.com/constraintd/constraintd/pkg/composition"
	"github.com/constraintd/constraintd/pkg/matcher"
)

// --- fakes shared across this file's tests ---

type fakeLib struct {
	atomics    []*core.AtomicConstraint
	composites []*core.CompositeConstraint
}

func (f *fakeLib) Get(id core.ConstraintID) (core.ConstraintEntry, error) {
	for _, a := range f.atomics {
		if a.ID == id {
			return core.ConstraintEntry{Kind: core.KindAtomic, Atomic: a}, nil
		}
	}
	for _, c := range f.composites {
		if c.ID == id {
			return core.ConstraintEntry{Kind: core.KindComposite, Composite: c}, nil
		}
	}
	return core.ConstraintEntry{}, &core.NotFoundError{ID: id}
}
func (f *fakeLib) Contains(id core.ConstraintID) bool { _, err := f.Get(id); return err == nil }
func (f *fakeLib) IterAtomic() []*core.AtomicConstraint {
	return f.atomics
}
func (f *fakeLib) IterComposite() []*core.CompositeConstraint { return f.composites }
func (f *fakeLib) Stats() core.LibraryStats                   { return core.LibraryStats{} }

type fakeAnalyzer struct {
	ctx core.TriggerContext
}

func (a *fakeAnalyzer) Analyze(core.RawContext) core.TriggerContext { return a.ctx }

type fakeLogger struct {
	mu     sync.Mutex
	events []string
}

func (l *fakeLogger) Debug(string, ...interface{}) {}
func (l *fakeLogger) Info(string, ...interface{})  {}
func (l *fakeLogger) Warn(string, ...interface{})  {}
func (l *fakeLogger) Error(string, ...interface{}) {}
func (l *fakeLogger) Event(kind string, _ map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, kind)
}
func (l *fakeLogger) count(kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e == kind {
			n++
		}
	}
	return n
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Microsecond)
	return c.now
}

func mustTriggerConfig(t *testing.T, opts ...core.TriggerOption) core.TriggerConfiguration {
	t.Helper()
	tc, err := core.NewTriggerConfiguration(opts...)
	require.NoError(t, err)
	return tc
}

func mustAtom(t *testing.T, id string, priority float64, triggers core.TriggerConfiguration, reminders []string, opts ...core.AtomicOption) *core.AtomicConstraint {
	t.Helper()
	a, err := core.NewAtomicConstraint(core.ConstraintID(id), "title-"+id, core.Priority(priority), triggers, reminders, opts...)
	require.NoError(t, err)
	return a
}

// simpleResolver resolves directly against the fakeLib's atomics/composites
// without cache or singleflight complexity, reusing pkg/resolver would
// require importing it; this minimal stand-in is enough to drive the
// Activator's orchestration logic under test. It mirrors pkg/resolver's
// resolve_cycle logging so cross-package dedup behavior can be asserted here.
type simpleResolver struct {
	lib    *fakeLib
	logger *fakeLogger
}

func (r *simpleResolver) Resolve(id core.ConstraintID) (core.Plan, error) {
	plan, err := r.resolveChain(id, map[core.ConstraintID]struct{}{}, nil)
	if err != nil && r.logger != nil {
		var cycle *core.CircularReferenceError
		if errors.As(err, &cycle) {
			r.logger.Event("resolve_cycle", map[string]interface{}{"id": string(id)})
		}
	}
	return plan, err
}

func (r *simpleResolver) resolveChain(id core.ConstraintID, seen map[core.ConstraintID]struct{}, chain []core.ConstraintID) (core.Plan, error) {
	if _, ok := seen[id]; ok {
		return nil, &core.CircularReferenceError{Chain: append(append([]core.ConstraintID(nil), chain...), id)}
	}
	entry, err := r.lib.Get(id)
	if err != nil {
		return nil, err
	}
	if entry.Kind == core.KindAtomic {
		return core.Plan{entry.Atomic}, nil
	}
	nextSeen := make(map[core.ConstraintID]struct{}, len(seen)+1)
	for k := range seen {
		nextSeen[k] = struct{}{}
	}
	nextSeen[id] = struct{}{}
	nextChain := append(append([]core.ConstraintID(nil), chain...), id)

	var plan core.Plan
	for _, ref := range entry.Composite.ComponentReferences {
		sub, err := r.resolveChain(ref.ConstraintID, nextSeen, nextChain)
		if err != nil {
			return nil, err
		}
		plan = append(plan, sub...)
	}
	return plan, nil
}

func (r *simpleResolver) ResolveMany(ids []core.ConstraintID) map[core.ConstraintID]core.ResolveOutcome {
	out := make(map[core.ConstraintID]core.ResolveOutcome, len(ids))
	for _, id := range ids {
		plan, err := r.Resolve(id)
		out[id] = core.ResolveOutcome{Plan: plan, Err: err}
	}
	return out
}

func (r *simpleResolver) Metrics() core.ResolverMetrics { return core.ResolverMetrics{} }

func newActivator(t *testing.T, lib *fakeLib, ctx core.TriggerContext, logger *fakeLogger) *activation.Activator {
	t.Helper()
	m, err := matcher.New()
	require.NoError(t, err)
	return activation.New(
		lib,
		&fakeAnalyzer{ctx: ctx},
		m,
		&simpleResolver{lib: lib, logger: logger},
		composition.NewRegistry(composition.New()),
		activation.NewFormatter(),
		&stepClock{},
		logger,
	)
}

// TestS1AtomicMatchesByKeyword reproduces spec scenario S1.
func TestS1AtomicMatchesByKeyword(t *testing.T) {
	triggers := mustTriggerConfig(t, core.WithKeywords("test", "tdd"), core.WithConfidenceThreshold(0.7))
	atom := mustAtom(t, "testing.write-test-first", 0.92, triggers, []string{
		"Start with a failing test (RED)",
		"Ensure it fails for the right reason",
	})
	lib := &fakeLib{atomics: []*core.AtomicConstraint{atom}}

	ctx := core.NewTriggerContext()
	ctx.KeywordsPresent["tdd"] = struct{}{}
	ctx.KeywordsPresent["implementation"] = struct{}{}

	logger := &fakeLogger{}
	a := newActivator(t, lib, ctx, logger)
	result, err := a.Activate(context.Background(), core.RawContext{}, "s1", 1)
	require.NoError(t, err)
	assert.Empty(t, result.Activated)

	ctx2 := core.NewTriggerContext()
	ctx2.KeywordsPresent["test"] = struct{}{}
	ctx2.KeywordsPresent["tdd"] = struct{}{}
	a2 := newActivator(t, lib, ctx2, logger)
	result2, err := a2.Activate(context.Background(), core.RawContext{}, "s1", 1)
	require.NoError(t, err)
	require.Len(t, result2.Activated, 1)
	assert.Equal(t, core.ConstraintID("testing.write-test-first"), result2.Activated[0].ID)
}

// TestS2AntiPatternVeto reproduces spec scenario S2.
func TestS2AntiPatternVeto(t *testing.T) {
	triggers := mustTriggerConfig(t,
		core.WithKeywords("test", "tdd"),
		core.WithAntiPatterns("hotfix"),
		core.WithConfidenceThreshold(0.7),
	)
	atom := mustAtom(t, "testing.write-test-first", 0.92, triggers, []string{"r"})
	lib := &fakeLib{atomics: []*core.AtomicConstraint{atom}}

	ctx := core.NewTriggerContext()
	ctx.KeywordsPresent["test"] = struct{}{}
	ctx.KeywordsPresent["tdd"] = struct{}{}
	ctx.AntiPatternsPresent["hotfix"] = struct{}{}

	a := newActivator(t, lib, ctx, &fakeLogger{})
	result, err := a.Activate(context.Background(), core.RawContext{}, "s2", 1)
	require.NoError(t, err)
	assert.Empty(t, result.Activated)
}

// TestS5CycleIsIsolated reproduces spec scenario S5.
func TestS5CycleIsIsolated(t *testing.T) {
	firingTriggers := mustTriggerConfig(t, core.WithKeywords("go"), core.WithConfidenceThreshold(0.1))

	refX, err := core.NewConstraintReference("Y")
	require.NoError(t, err)
	refY, err := core.NewConstraintReference("X")
	require.NoError(t, err)
	x, err := core.NewCompositeConstraint("X", "X", 0.5, firingTriggers, core.Parallel, []core.ConstraintReference{refX})
	require.NoError(t, err)
	y, err := core.NewCompositeConstraint("Y", "Y", 0.5, firingTriggers, core.Parallel, []core.ConstraintReference{refY})
	require.NoError(t, err)

	plainAtom := mustAtom(t, "a", 0.5, firingTriggers, []string{"r"})

	lib := &fakeLib{
		atomics:    []*core.AtomicConstraint{plainAtom},
		composites: []*core.CompositeConstraint{x, y},
	}

	ctx := core.NewTriggerContext()
	ctx.KeywordsPresent["go"] = struct{}{}

	logger := &fakeLogger{}
	a := newActivator(t, lib, ctx, logger)
	result, err := a.Activate(context.Background(), core.RawContext{}, "s5", 1)
	require.NoError(t, err)

	require.Len(t, result.Activated, 1)
	assert.Equal(t, core.ConstraintID("a"), result.Activated[0].ID)

	// X and Y both fire and both sit on the same X<->Y cycle; the Activator
	// must dedupe so the cycle is reported exactly once for this call.
	assert.Equal(t, 1, logger.count("resolve_cycle"))
}

// TestWithTracerWrapsActivateWithoutChangingResult confirms WithTracer only
// adds a span around the call and leaves selection untouched.
func TestWithTracerWrapsActivateWithoutChangingResult(t *testing.T) {
	triggers := mustTriggerConfig(t, core.WithKeywords("go"), core.WithConfidenceThreshold(0.1))
	atom := mustAtom(t, "a.x", 0.5, triggers, []string{"r"})
	lib := &fakeLib{atomics: []*core.AtomicConstraint{atom}}

	ctx := core.NewTriggerContext()
	ctx.KeywordsPresent["go"] = struct{}{}

	m, err := matcher.New()
	require.NoError(t, err)
	tracer := noop.NewTracerProvider().Tracer("test")
	a := activation.New(
		lib,
		&fakeAnalyzer{ctx: ctx},
		m,
		&simpleResolver{lib: lib},
		composition.NewRegistry(composition.New()),
		activation.NewFormatter(),
		&stepClock{},
		&fakeLogger{},
		activation.WithTracer(tracer),
	)

	result, err := a.Activate(context.Background(), core.RawContext{}, "traced", 1)
	require.NoError(t, err)
	require.Len(t, result.Activated, 1)
	assert.Equal(t, core.ConstraintID("a.x"), result.Activated[0].ID)
}

// TestS6DeterminismUnderEqualPriority reproduces spec scenario S6.
func TestS6DeterminismUnderEqualPriority(t *testing.T) {
	triggers := mustTriggerConfig(t, core.WithKeywords("go"), core.WithConfidenceThreshold(0.1))
	bx := mustAtom(t, "b.x", 0.5, triggers, []string{"r"})
	ax := mustAtom(t, "a.x", 0.5, triggers, []string{"r"})
	lib := &fakeLib{atomics: []*core.AtomicConstraint{bx, ax}}

	ctx := core.NewTriggerContext()
	ctx.KeywordsPresent["go"] = struct{}{}

	a := newActivator(t, lib, ctx, &fakeLogger{})
	result, err := a.Activate(context.Background(), core.RawContext{}, "s6", 1)
	require.NoError(t, err)

	require.Len(t, result.Activated, 2)
	assert.Equal(t, core.ConstraintID("a.x"), result.Activated[0].ID)
	assert.Equal(t, core.ConstraintID("b.x"), result.Activated[1].ID)
}

// TestSequentialCompositeAdvancesAcrossCalls reproduces spec scenario S3.
func TestSequentialCompositeAdvancesAcrossCalls(t *testing.T) {
	triggers := mustTriggerConfig(t, core.WithKeywords("go"), core.WithConfidenceThreshold(0.1))
	a1 := mustAtom(t, "a1", 0.5, mustTriggerConfig(t), []string{"r"}, core.WithSequenceOrder(1))
	a2 := mustAtom(t, "a2", 0.5, mustTriggerConfig(t), []string{"r"}, core.WithSequenceOrder(2))
	a3 := mustAtom(t, "a3", 0.5, mustTriggerConfig(t), []string{"r"}, core.WithSequenceOrder(3))

	r1, _ := core.NewConstraintReference("a1")
	r2, _ := core.NewConstraintReference("a2")
	r3, _ := core.NewConstraintReference("a3")
	cycle, err := core.NewCompositeConstraint("tdd.cycle", "cycle", 0.5, triggers, core.Sequential, []core.ConstraintReference{r1, r2, r3})
	require.NoError(t, err)

	lib := &fakeLib{atomics: []*core.AtomicConstraint{a1, a2, a3}, composites: []*core.CompositeConstraint{cycle}}

	ctx := core.NewTriggerContext()
	ctx.KeywordsPresent["go"] = struct{}{}

	logger := &fakeLogger{}
	m, err := matcher.New()
	require.NoError(t, err)
	analyzer := &fakeAnalyzer{ctx: ctx}
	resolver := &simpleResolver{lib: lib, logger: logger}
	sessions := composition.NewRegistry(composition.New())
	act := activation.New(lib, analyzer, m, resolver, sessions, activation.NewFormatter(), &stepClock{}, logger)

	result, err := act.Activate(context.Background(), core.RawContext{}, "session", 1)
	require.NoError(t, err)
	require.Len(t, result.Activated, 1)
	assert.Equal(t, core.ConstraintID("a1"), result.Activated[0].ID)

	plan, err := resolver.Resolve("tdd.cycle")
	require.NoError(t, err)
	sessions.Advance("session", cycle, plan)

	result2, err := act.Activate(context.Background(), core.RawContext{}, "session", 2)
	require.NoError(t, err)
	require.Len(t, result2.Activated, 1)
	assert.Equal(t, core.ConstraintID("a2"), result2.Activated[0].ID)
}
