package composition

import (
	"sort"

	"github.com/constraintd/constraintd/core"
)

// defaultHierarchyLevel is substituted for atoms whose HierarchyLevel is nil
// when a Progressive composite consults it (spec.md §4.5).
const defaultHierarchyLevel = 1

// Engine is the concrete, stateless Composition Engine. It never stores a
// CompositionContext itself — Registry owns storage and per-key
// serialization; Engine only computes the pure active_components/advance/
// mark_completed transitions.
type Engine struct{}

// New returns a ready-to-use Engine.
func New() *Engine { return &Engine{} }

// ActiveComponents implements core.CompositionEngine.
func (e *Engine) ActiveComponents(composite *core.CompositeConstraint, plan core.Plan, ctx core.CompositionContext) []*core.AtomicConstraint {
	switch composite.CompositionType {
	case core.Sequential:
		return sequentialActive(plan, ctx)
	case core.Parallel:
		return append([]*core.AtomicConstraint(nil), plan...)
	case core.Hierarchical:
		return hierarchicalActive(plan, ctx.HierarchyLevel)
	case core.Progressive:
		return progressiveActive(plan, ctx.ProgressionLevel)
	case core.Layered:
		return layeredActive(plan, ctx)
	default:
		return nil
	}
}

// Advance implements core.CompositionEngine.
func (e *Engine) Advance(composite *core.CompositeConstraint, plan core.Plan, ctx core.CompositionContext) core.CompositionContext {
	switch composite.CompositionType {
	case core.Sequential:
		next := ctx.WithSequenceStep(ctx.SequenceStep + 1)
		if next.SequenceStep > maxSequenceOrder(plan) {
			next = next.WithState(core.Completed)
		} else {
			next = next.WithState(core.InProgress)
		}
		return next

	case core.Parallel:
		return ctx.WithState(core.Completed)

	case core.Hierarchical:
		next := ctx.WithHierarchyLevel(ctx.HierarchyLevel + 1)
		if next.HierarchyLevel > maxHierarchyLevel(plan) {
			next = next.WithState(core.Completed)
		} else {
			next = next.WithState(core.InProgress)
		}
		return next

	case core.Progressive:
		next := ctx.WithProgressionLevel(ctx.ProgressionLevel + 1)
		if next.ProgressionLevel > maxEffectiveLevel(plan) {
			next = next.WithState(core.Completed)
		} else {
			next = next.WithState(core.InProgress)
		}
		return next

	case core.Layered:
		next := ctx.WithHierarchyLevel(ctx.HierarchyLevel + 1)
		if next.HierarchyLevel > maxHierarchyLevel(plan) {
			next = next.WithState(core.Completed)
		} else {
			next = next.WithState(core.InProgress)
		}
		return next

	default:
		return ctx
	}
}

// MarkCompleted implements core.CompositionEngine: it only records id as
// completed, it never advances the level on its own — Layered composites
// require the caller to call this explicitly before the guarded level opens up.
func (e *Engine) MarkCompleted(ctx core.CompositionContext, id core.ConstraintID) core.CompositionContext {
	return ctx.WithCompletedComponent(id)
}

func sequentialActive(plan core.Plan, ctx core.CompositionContext) []*core.AtomicConstraint {
	var out []*core.AtomicConstraint
	for _, a := range plan {
		if a.SequenceOrder != nil && *a.SequenceOrder == ctx.SequenceStep {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].SequenceOrder < *out[j].SequenceOrder })
	return out
}

func hierarchicalActive(plan core.Plan, level int) []*core.AtomicConstraint {
	var out []*core.AtomicConstraint
	for _, a := range plan {
		if a.HierarchyLevel != nil && *a.HierarchyLevel == level {
			out = append(out, a)
		}
	}
	sortByLevelThenID(out)
	return out
}

func progressiveActive(plan core.Plan, progressionLevel int) []*core.AtomicConstraint {
	var out []*core.AtomicConstraint
	for _, a := range plan {
		if effectiveLevel(a) <= progressionLevel {
			out = append(out, a)
		}
	}
	sortByLevelThenID(out)
	return out
}

// layeredActive applies Hierarchical's level selection plus the completion
// guard: the current level only opens once every strictly-lower-level atom
// has been marked completed.
func layeredActive(plan core.Plan, ctx core.CompositionContext) []*core.AtomicConstraint {
	for _, a := range plan {
		if a.HierarchyLevel != nil && *a.HierarchyLevel < ctx.HierarchyLevel {
			if !ctx.HasCompleted(a.ID) {
				return nil
			}
		}
	}
	return hierarchicalActive(plan, ctx.HierarchyLevel)
}

func sortByLevelThenID(atoms []*core.AtomicConstraint) {
	sort.Slice(atoms, func(i, j int) bool {
		li, lj := effectiveLevel(atoms[i]), effectiveLevel(atoms[j])
		if li != lj {
			return li < lj
		}
		return atoms[i].ID.Less(atoms[j].ID)
	})
}

func effectiveLevel(a *core.AtomicConstraint) int {
	if a.HierarchyLevel == nil {
		return defaultHierarchyLevel
	}
	return *a.HierarchyLevel
}

func maxSequenceOrder(plan core.Plan) int {
	max := 0
	for _, a := range plan {
		if a.SequenceOrder != nil && *a.SequenceOrder > max {
			max = *a.SequenceOrder
		}
	}
	return max
}

func maxHierarchyLevel(plan core.Plan) int {
	max := 0
	for _, a := range plan {
		if a.HierarchyLevel != nil && *a.HierarchyLevel > max {
			max = *a.HierarchyLevel
		}
	}
	return max
}

func maxEffectiveLevel(plan core.Plan) int {
	max := 0
	for _, a := range plan {
		if l := effectiveLevel(a); l > max {
			max = l
		}
	}
	return max
}

var _ core.CompositionEngine = (*Engine)(nil)
