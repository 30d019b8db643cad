package core

// ConstraintKind tags which of the two disjoint maps a ConstraintEntry
// came from (spec.md §3: "a constraint belongs to exactly one of the two
// maps").
type ConstraintKind string

const (
	KindAtomic    ConstraintKind = "atomic"
	KindComposite ConstraintKind = "composite"
)

// ConstraintEntry is the sum type returned by Library.Get: exactly one of
// Atomic/Composite is set, matching Kind.
type ConstraintEntry struct {
	Kind      ConstraintKind
	Atomic    *AtomicConstraint
	Composite *CompositeConstraint
}

// LibraryStats summarizes a Library's contents for the diagnostic
// library_stats() operation (spec.md §6).
type LibraryStats struct {
	AtomicCount       int
	CompositeCount    int
	ByCompositionType map[CompositionType]int
}

// LibraryReader is the read-only surface of the Library Store (spec.md
// §4.1): get, contains, iteration, and stats. Activation paths take only
// this surface so the read/write split in spec.md §5 is visible in the type
// system, not just in the locking discipline underneath it.
type LibraryReader interface {
	Get(id ConstraintID) (ConstraintEntry, error)
	Contains(id ConstraintID) bool
	IterAtomic() []*AtomicConstraint
	IterComposite() []*CompositeConstraint
	Stats() LibraryStats
}

// LibraryAdmin is the mutation surface of the Library Store (spec.md §6):
// add_atomic, add_composite, remove, merge, clone. Every operation either
// fully commits or fully fails — none of them partially apply.
type LibraryAdmin interface {
	AddAtomic(a *AtomicConstraint) error
	AddComposite(c *CompositeConstraint) error
	Remove(id ConstraintID) error
	Merge(other LibraryReader) (Library, error)
	Clone() Library
}

// Library is the full Library Store surface: LibraryReader + LibraryAdmin.
// The concrete implementation lives in pkg/library; core only names the
// contract so that the resolver, matcher, composition engine, and activator
// can all depend on it without depending on its implementation.
type Library interface {
	LibraryReader
	LibraryAdmin
}
