package composition

import (
	"sync"

	"github.com/constraintd/constraintd/core"
)

type sessionKey struct {
	sessionID   string
	compositeID core.ConstraintID
}

// Registry owns in-memory CompositionContext storage, keyed by
// (session_id, composite_id), and serializes access per key so that
// concurrent activate() calls for the same session/composite never
// interleave an advance (spec.md §4.5/§5). It never survives a restart —
// spec.md §6 requires session state to start fresh every process lifetime.
type Registry struct {
	engine *Engine

	mu    sync.Mutex // guards locks and contexts maps themselves, not their contents
	locks map[sessionKey]*sync.Mutex
	ctxs  map[sessionKey]core.CompositionContext
}

// NewRegistry returns an empty Registry backed by engine.
func NewRegistry(engine *Engine) *Registry {
	return &Registry{
		engine: engine,
		locks:  make(map[sessionKey]*sync.Mutex),
		ctxs:   make(map[sessionKey]core.CompositionContext),
	}
}

func (r *Registry) keyLock(key sessionKey) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	return l
}

// contextFor returns the key's current context, creating a fresh one if this
// is the first time this (session_id, composite_id) pair has been seen.
func (r *Registry) contextFor(key sessionKey) core.CompositionContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.ctxs[key]
	if !ok {
		ctx = core.NewCompositionContext()
	}
	return ctx
}

func (r *Registry) store(key sessionKey, ctx core.CompositionContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctxs[key] = ctx
}

// ActiveComponents returns the atoms of composite's plan active right now
// for sessionID, without mutating state.
func (r *Registry) ActiveComponents(sessionID string, composite *core.CompositeConstraint, plan core.Plan) []*core.AtomicConstraint {
	key := sessionKey{sessionID: sessionID, compositeID: composite.ID}
	lock := r.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	ctx := r.contextFor(key)
	return r.engine.ActiveComponents(composite, plan, ctx)
}

// Advance moves sessionID's bookkeeping for composite to its next step and
// persists the result, returning the new context.
func (r *Registry) Advance(sessionID string, composite *core.CompositeConstraint, plan core.Plan) core.CompositionContext {
	key := sessionKey{sessionID: sessionID, compositeID: composite.ID}
	lock := r.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	ctx := r.contextFor(key)
	next := r.engine.Advance(composite, plan, ctx)
	r.store(key, next)
	return next
}

// MarkCompleted records id completed for sessionID/composite and persists
// the result, returning the new context. Required before a Layered
// composite's next level opens up.
func (r *Registry) MarkCompleted(sessionID string, composite *core.CompositeConstraint, id core.ConstraintID) core.CompositionContext {
	key := sessionKey{sessionID: sessionID, compositeID: composite.ID}
	lock := r.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	ctx := r.contextFor(key)
	next := r.engine.MarkCompleted(ctx, id)
	r.store(key, next)
	return next
}
