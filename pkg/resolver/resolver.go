package resolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/constraintd/constraintd/core"
)

// MetricsRecorder receives per-resolution telemetry. pkg/telemetry.Provider
// satisfies this structurally; it is optional so callers that don't wire
// telemetry pay nothing for it.
type MetricsRecorder interface {
	RecordResolution(ctx context.Context, hit bool, duration time.Duration)
}

// Resolver is the concrete spec.md §4.2 Resolver. It is safe for concurrent
// use from multiple goroutines.
type Resolver struct {
	lib      core.LibraryReader
	clock    core.Clock
	logger   core.StructuredLogger
	recorder MetricsRecorder

	cache sync.Map // core.ConstraintID -> core.Plan
	group singleflight.Group

	metricsMu sync.Mutex
	metrics   core.ResolverMetrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetricsRecorder makes Resolve/ResolveMany report each resolution's
// cache hit/miss and duration to recorder in addition to the internal
// counters Metrics() exposes.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(r *Resolver) { r.recorder = recorder }
}

// New returns a Resolver reading from lib. clock drives the duration
// metrics; logger receives resolve_ok/resolve_cycle/resolve_not_found
// structured events.
func New(lib core.LibraryReader, clock core.Clock, logger core.StructuredLogger, opts ...Option) *Resolver {
	r := &Resolver{lib: lib, clock: clock, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns id's flattened atomic Plan. A stable library makes this
// idempotent and referentially transparent: repeated calls return the same
// Plan without re-walking, and resolve_many({id})[id] agrees with it.
func (r *Resolver) Resolve(id core.ConstraintID) (core.Plan, error) {
	start := r.clock.Now()

	if cached, ok := r.cache.Load(id); ok {
		d := r.clock.Now().Sub(start)
		r.recordResolution(true, d)
		if r.recorder != nil {
			r.recorder.RecordResolution(context.Background(), true, d)
		}
		return cached.(core.Plan), nil
	}

	v, err, _ := r.group.Do(string(id), func() (interface{}, error) {
		// Re-check the cache: another goroutine may have filled it in while
		// this one was waiting to enter Do.
		if cached, ok := r.cache.Load(id); ok {
			return cached, nil
		}
		plan, err := r.resolveTracked(id, map[core.ConstraintID]struct{}{}, nil)
		if err != nil {
			return nil, err
		}
		r.cache.Store(id, plan)
		return plan, nil
	})

	missDuration := r.clock.Now().Sub(start)
	r.recordResolution(false, missDuration)
	if r.recorder != nil {
		r.recorder.RecordResolution(context.Background(), false, missDuration)
	}

	if err != nil {
		r.logFailure(id, err)
		return nil, err
	}
	r.logger.Event("resolve_ok", map[string]interface{}{"id": string(id)})
	return v.(core.Plan), nil
}

func (r *Resolver) logFailure(id core.ConstraintID, err error) {
	var cycle *core.CircularReferenceError
	if errors.As(err, &cycle) {
		chain := make([]string, len(cycle.Chain))
		for i, c := range cycle.Chain {
			chain[i] = string(c)
		}
		r.logger.Event("resolve_cycle", map[string]interface{}{"id": string(id), "chain": chain})
		return
	}
	var notFound *core.NotFoundError
	if errors.As(err, &notFound) {
		r.logger.Event("resolve_not_found", map[string]interface{}{"id": string(id)})
		return
	}
	r.logger.Event("resolve_error", map[string]interface{}{"id": string(id), "error": err.Error()})
}

// resolveTracked performs the actual recursive expansion. inProgress and
// chain describe the current call's ancestry; a stable library and a
// correctly-disjoint call path make this path-independent, which is exactly
// what justifies caching the result keyed on id alone.
func (r *Resolver) resolveTracked(id core.ConstraintID, inProgress map[core.ConstraintID]struct{}, chain []core.ConstraintID) (core.Plan, error) {
	if _, ok := inProgress[id]; ok {
		return nil, &core.CircularReferenceError{Chain: append(append([]core.ConstraintID(nil), chain...), id)}
	}

	entry, err := r.lib.Get(id)
	if err != nil {
		return nil, err
	}

	if entry.Kind == core.KindAtomic {
		return core.Plan{entry.Atomic}, nil
	}

	composite := entry.Composite
	if len(composite.Components) > 0 {
		plan := make(core.Plan, len(composite.Components))
		for i := range composite.Components {
			a := composite.Components[i]
			plan[i] = a.Clone()
		}
		return plan, nil
	}

	nextInProgress := make(map[core.ConstraintID]struct{}, len(inProgress)+1)
	for k := range inProgress {
		nextInProgress[k] = struct{}{}
	}
	nextInProgress[id] = struct{}{}
	nextChain := append(append([]core.ConstraintID(nil), chain...), id)

	var plan core.Plan
	for _, ref := range composite.ComponentReferences {
		subPlan, err := r.resolveTracked(ref.ConstraintID, nextInProgress, nextChain)
		if err != nil {
			return nil, err
		}
		for _, atom := range subPlan {
			plan = append(plan, overlayReference(atom, ref))
		}
	}
	return plan, nil
}

// overlayReference produces the shadow copy described in spec.md §4.2: the
// library record itself is never mutated, but the atom the caller sees has
// the reference's sequence_order/hierarchy_level overlaid and its metadata
// merged in (reference wins on key conflict).
func overlayReference(atom *core.AtomicConstraint, ref core.ConstraintReference) *core.AtomicConstraint {
	shadow := atom.Clone()
	if ref.SequenceOrder != nil {
		v := *ref.SequenceOrder
		shadow.SequenceOrder = &v
	}
	if ref.HierarchyLevel != nil {
		v := *ref.HierarchyLevel
		shadow.HierarchyLevel = &v
	}
	if len(ref.Metadata) > 0 {
		merged := make(map[string]interface{}, len(shadow.Metadata)+len(ref.Metadata))
		for k, v := range shadow.Metadata {
			merged[k] = v
		}
		for k, v := range ref.Metadata {
			merged[k] = v
		}
		shadow.Metadata = merged
	}
	return shadow
}

// ResolveMany resolves a set of ids in parallel with errgroup; individual
// failures surface as per-id entries rather than aborting the whole batch.
func (r *Resolver) ResolveMany(ids []core.ConstraintID) map[core.ConstraintID]core.ResolveOutcome {
	results := make(map[core.ConstraintID]core.ResolveOutcome, len(ids))
	var mu sync.Mutex

	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			plan, err := r.Resolve(id)
			mu.Lock()
			results[id] = core.ResolveOutcome{Plan: plan, Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // individual errors are captured per-id above, never aggregated

	return results
}

func (r *Resolver) recordResolution(hit bool, d time.Duration) {
	r.metricsMu.Lock()
	defer r.metricsMu.Unlock()

	r.metrics.TotalResolutions++
	if hit {
		r.metrics.CacheHits++
	} else {
		r.metrics.CacheMisses++
	}

	nanos := d.Nanoseconds()
	total := r.metrics.TotalResolutions
	// incremental average: avg_n = avg_(n-1) + (x_n - avg_(n-1)) / n
	r.metrics.AverageResolutionNanos += (nanos - r.metrics.AverageResolutionNanos) / total
	if nanos > r.metrics.PeakResolutionNanos {
		r.metrics.PeakResolutionNanos = nanos
	}
}

// Metrics returns a snapshot of resolver performance counters.
func (r *Resolver) Metrics() core.ResolverMetrics {
	r.metricsMu.Lock()
	defer r.metricsMu.Unlock()
	return r.metrics
}

var _ core.Resolver = (*Resolver)(nil)
