package resolver_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraintd/constraintd/core"
	"github.com/constraintd/constraintd/pkg/resolver"
)

// fakeLibrary is a minimal in-memory core.LibraryReader for resolver tests.
type fakeLibrary struct {
	mu         sync.Mutex
	atomics    map[core.ConstraintID]*core.AtomicConstraint
	composites map[core.ConstraintID]*core.CompositeConstraint
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		atomics:    make(map[core.ConstraintID]*core.AtomicConstraint),
		composites: make(map[core.ConstraintID]*core.CompositeConstraint),
	}
}

func (f *fakeLibrary) Get(id core.ConstraintID) (core.ConstraintEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.atomics[id]; ok {
		return core.ConstraintEntry{Kind: core.KindAtomic, Atomic: a}, nil
	}
	if c, ok := f.composites[id]; ok {
		return core.ConstraintEntry{Kind: core.KindComposite, Composite: c}, nil
	}
	return core.ConstraintEntry{}, &core.NotFoundError{ID: id}
}

func (f *fakeLibrary) Contains(id core.ConstraintID) bool {
	_, err := f.Get(id)
	return err == nil
}

func (f *fakeLibrary) IterAtomic() []*core.AtomicConstraint       { return nil }
func (f *fakeLibrary) IterComposite() []*core.CompositeConstraint { return nil }
func (f *fakeLibrary) Stats() core.LibraryStats                  { return core.LibraryStats{} }

func (f *fakeLibrary) addAtomic(t *testing.T, id string) *core.AtomicConstraint {
	t.Helper()
	triggers, err := core.NewTriggerConfiguration(core.WithKeywords("x"))
	require.NoError(t, err)
	a, err := core.NewAtomicConstraint(core.ConstraintID(id), "title", 0.5, triggers, []string{"remember this"})
	require.NoError(t, err)
	f.mu.Lock()
	f.atomics[a.ID] = a
	f.mu.Unlock()
	return a
}

func (f *fakeLibrary) addComposite(t *testing.T, id string, refs ...core.ConstraintReference) *core.CompositeConstraint {
	t.Helper()
	triggers, err := core.NewTriggerConfiguration()
	require.NoError(t, err)
	c, err := core.NewCompositeConstraint(core.ConstraintID(id), "title", 0.5, triggers, core.Parallel, refs)
	require.NoError(t, err)
	f.mu.Lock()
	f.composites[c.ID] = c
	f.mu.Unlock()
	return c
}

// fakeLogger records emitted events; safe for concurrent use.
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

func (l *fakeLogger) has(kind string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e == kind {
			return true
		}
	}
	return false
}

// offsetClock lets a test advance wall time deterministically without the
// forbidden time.Now()/time.Sleep() races.
type offsetClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *offsetClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Microsecond)
	return c.now
}

func TestResolveAtomicIsIdempotent(t *testing.T) {
	lib := newFakeLibrary()
	lib.addAtomic(t, "a1")
	r := resolver.New(lib, &offsetClock{}, &fakeLogger{})

	p1, err := r.Resolve("a1")
	require.NoError(t, err)
	p2, err := r.Resolve("a1")
	require.NoError(t, err)

	assert.Equal(t, p1.IDs(), p2.IDs())
	assert.Equal(t, []core.ConstraintID{"a1"}, p1.IDs())
}

func TestResolveNotFound(t *testing.T) {
	lib := newFakeLibrary()
	log := &fakeLogger{}
	r := resolver.New(lib, &offsetClock{}, log)

	_, err := r.Resolve("missing")
	require.Error(t, err)
	var nf *core.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.True(t, log.has("resolve_not_found"))
}

func TestResolveFlattensCompositeInOrder(t *testing.T) {
	lib := newFakeLibrary()
	lib.addAtomic(t, "a1")
	lib.addAtomic(t, "a2")
	r1, _ := core.NewConstraintReference("a1")
	r2, _ := core.NewConstraintReference("a2")
	lib.addComposite(t, "c1", r1, r2)

	r := resolver.New(lib, &offsetClock{}, &fakeLogger{})
	plan, err := r.Resolve("c1")
	require.NoError(t, err)
	assert.Equal(t, []core.ConstraintID{"a1", "a2"}, plan.IDs())
}

func TestResolveDetectsCircularReference(t *testing.T) {
	lib := newFakeLibrary()
	refB, _ := core.NewConstraintReference("b1")
	refA, _ := core.NewConstraintReference("a1")
	lib.addComposite(t, "a1", refB)
	lib.addComposite(t, "b1", refA)

	log := &fakeLogger{}
	r := resolver.New(lib, &offsetClock{}, log)

	_, err := r.Resolve("a1")
	require.Error(t, err)
	var cycle *core.CircularReferenceError
	require.ErrorAs(t, err, &cycle)
	// the chain both begins and ends at the id that closes the loop
	require.NotEmpty(t, cycle.Chain)
	assert.Equal(t, cycle.Chain[0], cycle.Chain[len(cycle.Chain)-1])
	assert.True(t, log.has("resolve_cycle"))
}

func TestResolveOverlaysReferenceSequenceOrder(t *testing.T) {
	lib := newFakeLibrary()
	lib.addAtomic(t, "a1")
	overridden := 7
	ref, err := core.NewConstraintReference("a1", core.WithReferenceSequenceOrder(overridden))
	require.NoError(t, err)
	lib.addComposite(t, "c1", ref)

	r := resolver.New(lib, &offsetClock{}, &fakeLogger{})
	plan, err := r.Resolve("c1")
	require.NoError(t, err)
	require.Len(t, plan, 1)
	require.NotNil(t, plan[0].SequenceOrder)
	assert.Equal(t, overridden, *plan[0].SequenceOrder)

	// library's own record is untouched by the overlay
	entry, err := lib.Get("a1")
	require.NoError(t, err)
	assert.Nil(t, entry.Atomic.SequenceOrder)
}

func TestResolveManyIsolatesPerIDFailures(t *testing.T) {
	lib := newFakeLibrary()
	lib.addAtomic(t, "a1")

	r := resolver.New(lib, &offsetClock{}, &fakeLogger{})
	results := r.ResolveMany([]core.ConstraintID{"a1", "missing"})

	require.Len(t, results, 2)
	assert.NoError(t, results["a1"].Err)
	assert.Equal(t, []core.ConstraintID{"a1"}, results["a1"].Plan.IDs())

	require.Error(t, results["missing"].Err)
	var nf *core.NotFoundError
	require.ErrorAs(t, results["missing"].Err, &nf)
}

func TestMetricsTrackHitsAndMisses(t *testing.T) {
	lib := newFakeLibrary()
	lib.addAtomic(t, "a1")
	r := resolver.New(lib, &offsetClock{}, &fakeLogger{})

	_, err := r.Resolve("a1")
	require.NoError(t, err)
	_, err = r.Resolve("a1")
	require.NoError(t, err)

	m := r.Metrics()
	assert.Equal(t, int64(2), m.TotalResolutions)
	assert.Equal(t, int64(1), m.CacheMisses)
	assert.Equal(t, int64(1), m.CacheHits)
}

// fakeRecorder stands in for pkg/telemetry.Provider in tests that don't want
// a real OTel SDK wired up.
type fakeRecorder struct {
	mu    sync.Mutex
	calls int
	hits  int
}

func (f *fakeRecorder) RecordResolution(_ context.Context, hit bool, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if hit {
		f.hits++
	}
}

func TestWithMetricsRecorderReceivesHitsAndMisses(t *testing.T) {
	lib := newFakeLibrary()
	lib.addAtomic(t, "a1")
	rec := &fakeRecorder{}
	r := resolver.New(lib, &offsetClock{}, &fakeLogger{}, resolver.WithMetricsRecorder(rec))

	_, err := r.Resolve("a1")
	require.NoError(t, err)
	_, err = r.Resolve("a1")
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 2, rec.calls)
	assert.Equal(t, 1, rec.hits)
}

func TestResolveConcurrentDuplicateCallsCollapse(t *testing.T) {
	lib := newFakeLibrary()
	lib.addAtomic(t, "a1")
	r := resolver.New(lib, &offsetClock{}, &fakeLogger{})

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Resolve("a1")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	m := r.Metrics()
	assert.Equal(t, int64(n), m.TotalResolutions)
}
