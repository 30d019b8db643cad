package core

// CompositionState is the lifecycle state of one composite's per-session
// bookkeeping.
type CompositionState string

const (
	NotStarted CompositionState = "not_started"
	InProgress CompositionState = "in_progress"
	Completed  CompositionState = "completed"
)

// CompositionContext is per-composite, per-session mutable bookkeeping.
// Values are immutable: every "advance" in the Composition Engine produces a
// new CompositionContext rather than mutating this one in place (spec.md §3).
type CompositionContext struct {
	State                CompositionState
	SequenceStep         int // >=1
	HierarchyLevel       int // >=0
	ProgressionLevel     int // >=1
	CompletedComponentIDs map[ConstraintID]struct{}
}

// NewCompositionContext returns the fresh-start value a (session_id,
// composite_id) pair begins with: step 1, level 0, progression 1, nothing
// completed. spec.md §9 fixes composition state lifetime as always starting
// fresh per session — it never inherits from another session.
func NewCompositionContext() CompositionContext {
	return CompositionContext{
		State:                 NotStarted,
		SequenceStep:          1,
		HierarchyLevel:        0,
		ProgressionLevel:      1,
		CompletedComponentIDs: map[ConstraintID]struct{}{},
	}
}

// WithState returns a copy with State replaced.
func (c CompositionContext) WithState(s CompositionState) CompositionContext {
	c.CompletedComponentIDs = cloneIDSet(c.CompletedComponentIDs)
	c.State = s
	return c
}

// WithSequenceStep returns a copy with SequenceStep replaced.
func (c CompositionContext) WithSequenceStep(step int) CompositionContext {
	c.CompletedComponentIDs = cloneIDSet(c.CompletedComponentIDs)
	c.SequenceStep = step
	return c
}

// WithHierarchyLevel returns a copy with HierarchyLevel replaced.
func (c CompositionContext) WithHierarchyLevel(level int) CompositionContext {
	c.CompletedComponentIDs = cloneIDSet(c.CompletedComponentIDs)
	c.HierarchyLevel = level
	return c
}

// WithProgressionLevel returns a copy with ProgressionLevel replaced.
func (c CompositionContext) WithProgressionLevel(level int) CompositionContext {
	c.CompletedComponentIDs = cloneIDSet(c.CompletedComponentIDs)
	c.ProgressionLevel = level
	return c
}

// WithCompletedComponent returns a copy with id added to CompletedComponentIDs.
func (c CompositionContext) WithCompletedComponent(id ConstraintID) CompositionContext {
	next := cloneIDSet(c.CompletedComponentIDs)
	next[id] = struct{}{}
	c.CompletedComponentIDs = next
	return c
}

// HasCompleted reports whether id is in CompletedComponentIDs.
func (c CompositionContext) HasCompleted(id ConstraintID) bool {
	_, ok := c.CompletedComponentIDs[id]
	return ok
}

func cloneIDSet(s map[ConstraintID]struct{}) map[ConstraintID]struct{} {
	next := make(map[ConstraintID]struct{}, len(s))
	for k := range s {
		next[k] = struct{}{}
	}
	return next
}
