package library

import (
	"sync"

	"github.com/constraintd/constraintd/core"
)

// Store is the concrete Library Store. All operations are pure with
// respect to the rest of the system: no logging, no I/O. It is guarded by a
// reader-writer lock; activation paths that only read take the read lock,
// mutation operations take the write lock, and there is no lock upgrade
// (spec.md §5).
type Store struct {
	mu sync.RWMutex

	atomics    map[core.ConstraintID]*core.AtomicConstraint
	composites map[core.ConstraintID]*core.CompositeConstraint

	// order preserves insertion order for deterministic iteration.
	atomicOrder    []core.ConstraintID
	compositeOrder []core.ConstraintID
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		atomics:    make(map[core.ConstraintID]*core.AtomicConstraint),
		composites: make(map[core.ConstraintID]*core.CompositeConstraint),
	}
}

// AddAtomic inserts a, failing with a *core.DuplicateIDError if the id
// already exists in either map.
func (s *Store) AddAtomic(a *core.AtomicConstraint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.containsLocked(a.ID) {
		return &core.DuplicateIDError{ID: a.ID}
	}
	s.atomics[a.ID] = a.Clone()
	s.atomicOrder = append(s.atomicOrder, a.ID)
	return nil
}

// AddComposite inserts c, enforcing reference integrity (I2), sequential
// uniqueness (I3), and hierarchy-level non-negativity (I4) before
// committing. Every referenced id must already be present in the store,
// otherwise it fails with a *core.ReferenceValidationError listing the
// missing ids. It never performs global cycle detection; cycles are caught
// by the resolver, not here.
func (s *Store) AddComposite(c *core.CompositeConstraint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.containsLocked(c.ID) {
		return &core.DuplicateIDError{ID: c.ID}
	}

	var missing []core.ConstraintID
	for _, ref := range c.ComponentReferences {
		if !s.containsLocked(ref.ConstraintID) {
			missing = append(missing, ref.ConstraintID)
		}
	}
	if len(missing) > 0 {
		return &core.ReferenceValidationError{Missing: missing}
	}

	if c.CompositionType == core.Sequential {
		if err := s.checkSequentialUniquenessLocked(c); err != nil {
			return err
		}
	}
	if c.CompositionType == core.Hierarchical || c.CompositionType == core.Progressive || c.CompositionType == core.Layered {
		if err := s.checkHierarchyLevelsLocked(c); err != nil {
			return err
		}
	}

	s.composites[c.ID] = c
	s.compositeOrder = append(s.compositeOrder, c.ID)
	return nil
}

// effectiveSequenceOrder returns the sequence order the given reference
// carries once its overlay (if any) and the referenced atom's own value (if
// the reference targets an atomic constraint) are accounted for.
func (s *Store) effectiveSequenceOrder(ref core.ConstraintReference) *int {
	if ref.SequenceOrder != nil {
		return ref.SequenceOrder
	}
	if a, ok := s.atomics[ref.ConstraintID]; ok {
		return a.SequenceOrder
	}
	return nil
}

func (s *Store) effectiveHierarchyLevel(ref core.ConstraintReference) *int {
	if ref.HierarchyLevel != nil {
		return ref.HierarchyLevel
	}
	if a, ok := s.atomics[ref.ConstraintID]; ok {
		return a.HierarchyLevel
	}
	return nil
}

func (s *Store) checkSequentialUniquenessLocked(c *core.CompositeConstraint) error {
	seen := make(map[int]struct{})
	for _, ref := range c.ComponentReferences {
		order := s.effectiveSequenceOrder(ref)
		if order == nil {
			continue
		}
		if _, ok := seen[*order]; ok {
			return &core.ValidationError{
				Field:  "sequence_order",
				Reason: "sequential composite has duplicate sequence_order across referenced atoms",
			}
		}
		seen[*order] = struct{}{}
	}
	return nil
}

func (s *Store) checkHierarchyLevelsLocked(c *core.CompositeConstraint) error {
	for _, ref := range c.ComponentReferences {
		level := s.effectiveHierarchyLevel(ref)
		if level != nil && *level < 0 {
			return &core.ValidationError{Field: "hierarchy_level", Reason: "must be >= 0"}
		}
	}
	return nil
}

// Get returns the constraint for id, or a *core.NotFoundError.
func (s *Store) Get(id core.ConstraintID) (core.ConstraintEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(id)
}

func (s *Store) getLocked(id core.ConstraintID) (core.ConstraintEntry, error) {
	if a, ok := s.atomics[id]; ok {
		return core.ConstraintEntry{Kind: core.KindAtomic, Atomic: a}, nil
	}
	if c, ok := s.composites[id]; ok {
		return core.ConstraintEntry{Kind: core.KindComposite, Composite: c}, nil
	}
	return core.ConstraintEntry{}, &core.NotFoundError{ID: id}
}

// Contains reports whether id exists in either map.
func (s *Store) Contains(id core.ConstraintID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.containsLocked(id)
}

func (s *Store) containsLocked(id core.ConstraintID) bool {
	if _, ok := s.atomics[id]; ok {
		return true
	}
	_, ok := s.composites[id]
	return ok
}

// IterAtomic returns every atomic constraint, in insertion order.
func (s *Store) IterAtomic() []*core.AtomicConstraint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.AtomicConstraint, 0, len(s.atomicOrder))
	for _, id := range s.atomicOrder {
		out = append(out, s.atomics[id])
	}
	return out
}

// IterComposite returns every composite constraint, in insertion order.
func (s *Store) IterComposite() []*core.CompositeConstraint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.CompositeConstraint, 0, len(s.compositeOrder))
	for _, id := range s.compositeOrder {
		out = append(out, s.composites[id])
	}
	return out
}

// Stats summarizes the library's contents.
func (s *Store) Stats() core.LibraryStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := make(map[core.CompositionType]int)
	for _, c := range s.composites {
		byType[c.CompositionType]++
	}
	return core.LibraryStats{
		AtomicCount:       len(s.atomics),
		CompositeCount:    len(s.composites),
		ByCompositionType: byType,
	}
}

// Remove deletes id, failing with *core.ConstraintInUseError if any
// composite still references it.
func (s *Store) Remove(id core.ConstraintID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.containsLocked(id) {
		return &core.NotFoundError{ID: id}
	}

	var referencedBy []core.ConstraintID
	for _, c := range s.composites {
		for _, ref := range c.ComponentReferences {
			if ref.ConstraintID == id {
				referencedBy = append(referencedBy, c.ID)
				break
			}
		}
	}
	if len(referencedBy) > 0 {
		return &core.ConstraintInUseError{ID: id, ReferencedBy: referencedBy}
	}

	if _, ok := s.atomics[id]; ok {
		delete(s.atomics, id)
		s.atomicOrder = removeID(s.atomicOrder, id)
		return nil
	}
	delete(s.composites, id)
	s.compositeOrder = removeID(s.compositeOrder, id)
	return nil
}

func removeID(ids []core.ConstraintID, target core.ConstraintID) []core.ConstraintID {
	out := ids[:0:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// Merge builds a new Store containing this store's constraints plus
// other's. Any duplicate id between the two aborts the whole merge; no
// reference-integrity re-check is performed since each source library
// already satisfied it independently and the ids involved remain disjoint
// from the other side once duplicates are ruled out.
func (s *Store) Merge(other core.LibraryReader) (core.Library, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := New()
	for _, id := range s.atomicOrder {
		merged.atomics[id] = s.atomics[id]
		merged.atomicOrder = append(merged.atomicOrder, id)
	}
	for _, id := range s.compositeOrder {
		merged.composites[id] = s.composites[id]
		merged.compositeOrder = append(merged.compositeOrder, id)
	}

	for _, a := range other.IterAtomic() {
		if merged.containsLocked(a.ID) {
			return nil, &core.DuplicateIDError{ID: a.ID}
		}
		merged.atomics[a.ID] = a
		merged.atomicOrder = append(merged.atomicOrder, a.ID)
	}
	for _, c := range other.IterComposite() {
		if merged.containsLocked(c.ID) {
			return nil, &core.DuplicateIDError{ID: c.ID}
		}
		merged.composites[c.ID] = c
		merged.compositeOrder = append(merged.compositeOrder, c.ID)
	}
	return merged, nil
}

// Clone returns a new Store with the same constraints, for callers that
// want to try a mutation against a scratch copy before committing it.
func (s *Store) Clone() core.Library {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := New()
	for _, id := range s.atomicOrder {
		clone.atomics[id] = s.atomics[id]
		clone.atomicOrder = append(clone.atomicOrder, id)
	}
	for _, id := range s.compositeOrder {
		clone.composites[id] = s.composites[id]
		clone.compositeOrder = append(clone.compositeOrder, id)
	}
	return clone
}

var _ core.Library = (*Store)(nil)
