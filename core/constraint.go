package core

import "strings"

// CompositionType is the closed set of ways a composite constraint's
// components can be brought into play. See the Composition Engine,
// spec.md §4.5.
type CompositionType string

const (
	Sequential   CompositionType = "sequential"
	Parallel     CompositionType = "parallel"
	Hierarchical CompositionType = "hierarchical"
	Progressive  CompositionType = "progressive"
	Layered      CompositionType = "layered"
)

// Valid reports whether t is one of the five defined composition types.
func (t CompositionType) Valid() bool {
	switch t {
	case Sequential, Parallel, Hierarchical, Progressive, Layered:
		return true
	}
	return false
}

// AtomicConstraint is a single reminder rule with triggers and reminder
// text; it is not built from other constraints.
type AtomicConstraint struct {
	ID             ConstraintID
	Title          string
	Priority       Priority
	Triggers       TriggerConfiguration
	Reminders      []string
	SequenceOrder  *int // >0; meaning only when referenced by a Sequential composite
	HierarchyLevel *int // >=0; meaning only when referenced by a Hierarchical/Progressive/Layered composite
	Metadata       map[string]interface{}
}

// NewAtomicConstraint validates and constructs an AtomicConstraint.
func NewAtomicConstraint(id ConstraintID, title string, priority Priority, triggers TriggerConfiguration, reminders []string, opts ...AtomicOption) (*AtomicConstraint, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if err := priority.Validate(); err != nil {
		return nil, err
	}
	if len(reminders) == 0 {
		return nil, &ValidationError{Field: "reminders", Reason: "must contain at least one entry"}
	}
	for i, r := range reminders {
		if strings.TrimSpace(r) == "" {
			return nil, &ValidationError{Field: "reminders", Reason: "entries must be non-empty"}
		}
		reminders[i] = r
	}

	a := &AtomicConstraint{
		ID:        id,
		Title:     title,
		Priority:  priority,
		Triggers:  triggers,
		Reminders: append([]string(nil), reminders...),
		Metadata:  nil,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// AtomicOption configures optional AtomicConstraint fields.
type AtomicOption func(*AtomicConstraint) error

// WithSequenceOrder sets the atom's default sequence order (>0). Meaningful
// only when the atom is referenced from a Sequential composite.
func WithSequenceOrder(order int) AtomicOption {
	return func(a *AtomicConstraint) error {
		if order <= 0 {
			return &ValidationError{Field: "sequence_order", Reason: "must be > 0"}
		}
		o := order
		a.SequenceOrder = &o
		return nil
	}
}

// WithHierarchyLevel sets the atom's default hierarchy level (>=0).
// Meaningful only when the atom is referenced from a Hierarchical,
// Progressive, or Layered composite.
func WithHierarchyLevel(level int) AtomicOption {
	return func(a *AtomicConstraint) error {
		if level < 0 {
			return &ValidationError{Field: "hierarchy_level", Reason: "must be >= 0"}
		}
		l := level
		a.HierarchyLevel = &l
		return nil
	}
}

// WithMetadata attaches opaque metadata to the atom.
func WithMetadata(metadata map[string]interface{}) AtomicOption {
	return func(a *AtomicConstraint) error {
		a.Metadata = metadata
		return nil
	}
}

// Clone returns a deep-enough copy of the atom so that shadow overlays
// performed by the resolver (spec.md §4.2) never mutate the library's copy.
func (a *AtomicConstraint) Clone() *AtomicConstraint {
	clone := *a
	clone.Reminders = append([]string(nil), a.Reminders...)
	if a.SequenceOrder != nil {
		v := *a.SequenceOrder
		clone.SequenceOrder = &v
	}
	if a.HierarchyLevel != nil {
		v := *a.HierarchyLevel
		clone.HierarchyLevel = &v
	}
	if a.Metadata != nil {
		m := make(map[string]interface{}, len(a.Metadata))
		for k, v := range a.Metadata {
			m[k] = v
		}
		clone.Metadata = m
	}
	return &clone
}

// ConstraintReference is a referent inside a composite. Equality is by
// ConstraintID alone (spec.md §3) — SequenceOrder/HierarchyLevel/Metadata
// here are overlays applied on top of whatever the referenced constraint
// already carries, not part of its identity.
type ConstraintReference struct {
	ConstraintID   ConstraintID
	SequenceOrder  *int
	HierarchyLevel *int
	Metadata       map[string]interface{}
}

// Equals compares two references by ConstraintID alone.
func (r ConstraintReference) Equals(other ConstraintReference) bool {
	return r.ConstraintID == other.ConstraintID
}

// NewConstraintReference validates and builds a ConstraintReference.
func NewConstraintReference(id ConstraintID, opts ...ReferenceOption) (ConstraintReference, error) {
	if err := id.Validate(); err != nil {
		return ConstraintReference{}, err
	}
	r := ConstraintReference{ConstraintID: id}
	for _, opt := range opts {
		if err := opt(&r); err != nil {
			return ConstraintReference{}, err
		}
	}
	return r, nil
}

// ReferenceOption configures optional ConstraintReference fields.
type ReferenceOption func(*ConstraintReference) error

// WithReferenceSequenceOrder overlays a sequence order (>0) for this reference only.
func WithReferenceSequenceOrder(order int) ReferenceOption {
	return func(r *ConstraintReference) error {
		if order <= 0 {
			return &ValidationError{Field: "sequence_order", Reason: "must be > 0"}
		}
		o := order
		r.SequenceOrder = &o
		return nil
	}
}

// WithReferenceHierarchyLevel overlays a hierarchy level (>=0) for this reference only.
func WithReferenceHierarchyLevel(level int) ReferenceOption {
	return func(r *ConstraintReference) error {
		if level < 0 {
			return &ValidationError{Field: "hierarchy_level", Reason: "must be >= 0"}
		}
		l := level
		r.HierarchyLevel = &l
		return nil
	}
}

// WithReferenceMetadata attaches per-reference metadata, merged into the
// resolved atom's metadata with the reference winning on key conflict.
func WithReferenceMetadata(metadata map[string]interface{}) ReferenceOption {
	return func(r *ConstraintReference) error {
		r.Metadata = metadata
		return nil
	}
}

// CompositeConstraint is a constraint assembled from other constraints by
// reference, with a CompositionType governing how its components are
// activated. A well-formed, library-based composite populates
// ComponentReferences and leaves Components nil; Components exists to model
// the (never library-persisted) inline form spec.md §3 allows.
type CompositeConstraint struct {
	ID                  ConstraintID
	Title               string
	Priority            Priority
	Triggers            TriggerConfiguration
	CompositionType     CompositionType
	Components          []AtomicConstraint
	ComponentReferences []ConstraintReference
	Reminders           []string
	CompositionRules    map[string]interface{}
}

// NewCompositeConstraint validates and constructs a CompositeConstraint
// backed by component references (the library-persisted form).
func NewCompositeConstraint(id ConstraintID, title string, priority Priority, triggers TriggerConfiguration, compositionType CompositionType, references []ConstraintReference, opts ...CompositeOption) (*CompositeConstraint, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if err := priority.Validate(); err != nil {
		return nil, err
	}
	if !compositionType.Valid() {
		return nil, &ValidationError{Field: "composition_type", Reason: "must be one of sequential, parallel, hierarchical, progressive, layered"}
	}
	if len(references) == 0 {
		return nil, &ValidationError{Field: "component_references", Reason: "must reference at least one constraint"}
	}

	c := &CompositeConstraint{
		ID:                  id,
		Title:               title,
		Priority:            priority,
		Triggers:            triggers,
		CompositionType:     compositionType,
		ComponentReferences: append([]ConstraintReference(nil), references...),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// CompositeOption configures optional CompositeConstraint fields.
type CompositeOption func(*CompositeConstraint) error

// WithCompositeReminders sets the composite's own reminder text (may be empty).
func WithCompositeReminders(reminders []string) CompositeOption {
	return func(c *CompositeConstraint) error {
		c.Reminders = reminders
		return nil
	}
}

// WithCompositionRules attaches opaque, user-defined composition tags.
func WithCompositionRules(rules map[string]interface{}) CompositeOption {
	return func(c *CompositeConstraint) error {
		c.CompositionRules = rules
		return nil
	}
}

// ReferencedIDs returns the ids this composite references, in order.
func (c *CompositeConstraint) ReferencedIDs() []ConstraintID {
	ids := make([]ConstraintID, len(c.ComponentReferences))
	for i, r := range c.ComponentReferences {
		ids[i] = r.ConstraintID
	}
	return ids
}
