package yamlloader

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/constraintd/constraintd/core"
	"github.com/constraintd/constraintd/pkg/library"
)

// Loader reads a single YAML file into a core.Library at startup.
type Loader struct {
	path string
}

// New returns a Loader reading from path.
func New(path string) *Loader {
	return &Loader{path: path}
}

// Load implements core.LibraryLoader.
func (l *Loader) Load(ctx context.Context) (core.Library, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &core.LoadError{Reason: fmt.Sprintf("reading %s", l.path), Err: err}
	}

	var file libraryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, &core.LoadError{Reason: fmt.Sprintf("parsing %s", l.path), Err: err}
	}

	lib := library.New()

	for _, def := range file.Atomics {
		a, err := buildAtomic(def)
		if err != nil {
			return nil, &core.LoadError{Reason: fmt.Sprintf("atomic %q", def.ID), Err: err}
		}
		if err := lib.AddAtomic(a); err != nil {
			return nil, &core.LoadError{Reason: fmt.Sprintf("atomic %q", def.ID), Err: err}
		}
	}

	for _, def := range file.Composites {
		c, err := buildComposite(def)
		if err != nil {
			return nil, &core.LoadError{Reason: fmt.Sprintf("composite %q", def.ID), Err: err}
		}
		if err := lib.AddComposite(c); err != nil {
			return nil, &core.LoadError{Reason: fmt.Sprintf("composite %q", def.ID), Err: err}
		}
	}

	return lib, nil
}

func buildTriggers(def triggerDef) (core.TriggerConfiguration, error) {
	var opts []core.TriggerOption
	if len(def.Keywords) > 0 {
		opts = append(opts, core.WithKeywords(def.Keywords...))
	}
	if len(def.FilePatterns) > 0 {
		opts = append(opts, core.WithFilePatterns(def.FilePatterns...))
	}
	if len(def.ContextPatterns) > 0 {
		opts = append(opts, core.WithContextPatterns(def.ContextPatterns...))
	}
	if len(def.AntiPatterns) > 0 {
		opts = append(opts, core.WithAntiPatterns(def.AntiPatterns...))
	}
	if def.ConfidenceThreshold != nil {
		opts = append(opts, core.WithConfidenceThreshold(*def.ConfidenceThreshold))
	}
	return core.NewTriggerConfiguration(opts...)
}

func buildAtomic(def atomicDef) (*core.AtomicConstraint, error) {
	triggers, err := buildTriggers(def.Triggers)
	if err != nil {
		return nil, err
	}

	var opts []core.AtomicOption
	if def.SequenceOrder != nil {
		opts = append(opts, core.WithSequenceOrder(*def.SequenceOrder))
	}
	if def.HierarchyLevel != nil {
		opts = append(opts, core.WithHierarchyLevel(*def.HierarchyLevel))
	}
	if def.Metadata != nil {
		opts = append(opts, core.WithMetadata(def.Metadata))
	}

	return core.NewAtomicConstraint(
		core.ConstraintID(def.ID),
		def.Title,
		core.Priority(def.Priority),
		triggers,
		def.Reminders,
		opts...,
	)
}

func buildComposite(def compositeDef) (*core.CompositeConstraint, error) {
	triggers, err := buildTriggers(def.Triggers)
	if err != nil {
		return nil, err
	}

	refs := make([]core.ConstraintReference, 0, len(def.References))
	for _, r := range def.References {
		var opts []core.ReferenceOption
		if r.SequenceOrder != nil {
			opts = append(opts, core.WithReferenceSequenceOrder(*r.SequenceOrder))
		}
		if r.HierarchyLevel != nil {
			opts = append(opts, core.WithReferenceHierarchyLevel(*r.HierarchyLevel))
		}
		if r.Metadata != nil {
			opts = append(opts, core.WithReferenceMetadata(r.Metadata))
		}
		ref, err := core.NewConstraintReference(core.ConstraintID(r.ID), opts...)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	var opts []core.CompositeOption
	if len(def.Reminders) > 0 {
		opts = append(opts, core.WithCompositeReminders(def.Reminders))
	}
	if def.CompositionRules != nil {
		opts = append(opts, core.WithCompositionRules(def.CompositionRules))
	}

	return core.NewCompositeConstraint(
		core.ConstraintID(def.ID),
		def.Title,
		core.Priority(def.Priority),
		triggers,
		core.CompositionType(def.CompositionType),
		refs,
		opts...,
	)
}

var _ core.LibraryLoader = (*Loader)(nil)
