package core

import "strings"

// DefaultConfidenceThreshold is applied when a caller builds a
// TriggerConfiguration without specifying one explicitly.
const DefaultConfidenceThreshold = 0.7

// TriggerConfiguration describes when a constraint should be considered for
// activation. Keywords and context_patterns/anti_patterns are sets;
// file_patterns is an ordered sequence of glob-style strings. See spec.md §3
// and the Trigger Matcher (§4.4) for the scoring semantics.
type TriggerConfiguration struct {
	keywords            []string // lowercased, trimmed, deduplicated
	filePatterns        []string // ordered, as given
	contextPatterns     []string // deduplicated
	antiPatterns        []string // deduplicated
	confidenceThreshold float64
}

// Keywords returns the normalized (lowercase, trimmed, deduplicated) keyword set.
func (t TriggerConfiguration) Keywords() []string { return t.keywords }

// FilePatterns returns the ordered glob pattern sequence.
func (t TriggerConfiguration) FilePatterns() []string { return t.filePatterns }

// ContextPatterns returns the deduplicated context/activity tag set.
func (t TriggerConfiguration) ContextPatterns() []string { return t.contextPatterns }

// AntiPatterns returns the deduplicated anti-pattern tag set.
func (t TriggerConfiguration) AntiPatterns() []string { return t.antiPatterns }

// ConfidenceThreshold returns the minimum weighted score required to match.
func (t TriggerConfiguration) ConfidenceThreshold() float64 { return t.confidenceThreshold }

// IsInert reports whether this configuration has no activation criteria at
// all (spec.md §3/§4.4 rule 2): an inert configuration never fires,
// regardless of the context it is scored against.
func (t TriggerConfiguration) IsInert() bool {
	return len(t.keywords) == 0 && len(t.filePatterns) == 0 &&
		len(t.contextPatterns) == 0 && len(t.antiPatterns) == 0
}

// TriggerOption configures a TriggerConfiguration under construction.
type TriggerOption func(*triggerBuilder)

type triggerBuilder struct {
	keywords            []string
	filePatterns        []string
	contextPatterns     []string
	antiPatterns        []string
	confidenceThreshold float64
	thresholdSet        bool
}

// WithKeywords sets the case-insensitive keyword trigger set. Each entry
// must be non-empty after trimming.
func WithKeywords(keywords ...string) TriggerOption {
	return func(b *triggerBuilder) { b.keywords = keywords }
}

// WithFilePatterns sets the ordered glob pattern sequence.
func WithFilePatterns(patterns ...string) TriggerOption {
	return func(b *triggerBuilder) { b.filePatterns = patterns }
}

// WithContextPatterns sets the context/activity tag set.
func WithContextPatterns(tags ...string) TriggerOption {
	return func(b *triggerBuilder) { b.contextPatterns = tags }
}

// WithAntiPatterns sets the anti-pattern veto tag set.
func WithAntiPatterns(tags ...string) TriggerOption {
	return func(b *triggerBuilder) { b.antiPatterns = tags }
}

// WithConfidenceThreshold overrides DefaultConfidenceThreshold.
func WithConfidenceThreshold(threshold float64) TriggerOption {
	return func(b *triggerBuilder) {
		b.confidenceThreshold = threshold
		b.thresholdSet = true
	}
}

// NewTriggerConfiguration validates and builds a TriggerConfiguration.
func NewTriggerConfiguration(opts ...TriggerOption) (TriggerConfiguration, error) {
	b := &triggerBuilder{confidenceThreshold: DefaultConfidenceThreshold}
	for _, opt := range opts {
		opt(b)
	}

	keywords, err := normalizeNonEmptySet(b.keywords, true)
	if err != nil {
		return TriggerConfiguration{}, &ValidationError{Field: "keywords", Reason: err.Error()}
	}
	contextPatterns, err := normalizeNonEmptySet(b.contextPatterns, false)
	if err != nil {
		return TriggerConfiguration{}, &ValidationError{Field: "context_patterns", Reason: err.Error()}
	}
	antiPatterns, err := normalizeNonEmptySet(b.antiPatterns, false)
	if err != nil {
		return TriggerConfiguration{}, &ValidationError{Field: "anti_patterns", Reason: err.Error()}
	}
	filePatterns, err := dedupeOrdered(b.filePatterns)
	if err != nil {
		return TriggerConfiguration{}, &ValidationError{Field: "file_patterns", Reason: err.Error()}
	}

	if b.thresholdSet {
		p := Priority(b.confidenceThreshold)
		if err := p.Validate(); err != nil {
			return TriggerConfiguration{}, &ValidationError{Field: "confidence_threshold", Reason: "must be in [0.0, 1.0]"}
		}
	}

	return TriggerConfiguration{
		keywords:            keywords,
		filePatterns:        filePatterns,
		contextPatterns:     contextPatterns,
		antiPatterns:        antiPatterns,
		confidenceThreshold: b.confidenceThreshold,
	}, nil
}

func normalizeNonEmptySet(raw []string, lowercase bool) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return nil, errEmptyAfterTrim
		}
		if lowercase {
			trimmed = strings.ToLower(trimmed)
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out, nil
}

func dedupeOrdered(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			return nil, errEmptyAfterTrim
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

var errEmptyAfterTrim = emptyAfterTrimError{}

type emptyAfterTrimError struct{}

func (emptyAfterTrimError) Error() string { return "entries must be non-empty after trim" }

// TriggerContext is the per-request view of the caller's situation, built by
// the Context Analyzer from a raw tool-call. It is immutable for the
// lifetime of a request.
type TriggerContext struct {
	KeywordsPresent     map[string]struct{}
	FilePatternsPresent []string
	ContextTagsPresent  map[string]struct{}
	AntiPatternsPresent map[string]struct{}
}

// NewTriggerContext builds an empty TriggerContext with its sets allocated;
// the Context Analyzer fills the maps and slice in directly before passing
// it to the matcher.
func NewTriggerContext() TriggerContext {
	return TriggerContext{
		KeywordsPresent:     make(map[string]struct{}),
		FilePatternsPresent: nil,
		ContextTagsPresent:  make(map[string]struct{}),
		AntiPatternsPresent: make(map[string]struct{}),
	}
}
