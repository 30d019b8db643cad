package matcher

import (
	"path/filepath"
	"sync"

	"github.com/constraintd/constraintd/core"
)

// Default subscore weights (spec.md §4.4); configurable per Matcher instance
// but must sum to 1.0 within 0.001.
const (
	DefaultKeywordWeight = 0.4
	DefaultFileWeight    = 0.3
	DefaultContextWeight = 0.3

	weightTolerance = 0.001
)

// Matcher is the concrete Trigger Matcher. It is pure and side-effect free
// apart from memoising glob validity; a zero-value Matcher is not ready to
// use, construct one with New.
type Matcher struct {
	keywordWeight float64
	fileWeight    float64
	contextWeight float64

	globCache sync.Map // pattern string -> bool: whether the pattern is a well-formed glob (filepath.Match has no compiled form)
}

// Option configures a Matcher's subscore weights.
type Option func(*Matcher)

// WithWeights overrides the default keyword/file/context weights. They must
// sum to 1.0 within 0.001 or New returns an error.
func WithWeights(keyword, file, context float64) Option {
	return func(m *Matcher) {
		m.keywordWeight = keyword
		m.fileWeight = file
		m.contextWeight = context
	}
}

// New builds a Matcher, defaulting to the 0.4/0.3/0.3 split.
func New(opts ...Option) (*Matcher, error) {
	m := &Matcher{
		keywordWeight: DefaultKeywordWeight,
		fileWeight:    DefaultFileWeight,
		contextWeight: DefaultContextWeight,
	}
	for _, opt := range opts {
		opt(m)
	}
	sum := m.keywordWeight + m.fileWeight + m.contextWeight
	if sum < 1.0-weightTolerance || sum > 1.0+weightTolerance {
		return nil, &core.ValidationError{Field: "weights", Reason: "keyword+file+context weights must sum to ~1.0"}
	}
	return m, nil
}

// Score implements core.TriggerMatcher.
func (m *Matcher) Score(triggers core.TriggerConfiguration, ctx core.TriggerContext) float64 {
	if setIntersectsMap(triggers.AntiPatterns(), ctx.AntiPatternsPresent) {
		return 0
	}
	if triggers.IsInert() {
		return 0
	}

	keywordScore, keywordActive := m.keywordSubscore(triggers, ctx)
	fileScore, fileActive := m.fileSubscore(triggers, ctx)
	contextScore, contextActive := m.contextSubscore(triggers, ctx)

	weights := []float64{0, 0, 0}
	actives := []bool{keywordActive, fileActive, contextActive}
	base := []float64{m.keywordWeight, m.fileWeight, m.contextWeight}

	activeWeightSum := 0.0
	for i, active := range actives {
		if active {
			activeWeightSum += base[i]
		}
	}
	if activeWeightSum == 0 {
		return 0
	}
	for i, active := range actives {
		if active {
			weights[i] = base[i] / activeWeightSum
		}
	}

	return weights[0]*keywordScore + weights[1]*fileScore + weights[2]*contextScore
}

// Matches implements core.TriggerMatcher.
func (m *Matcher) Matches(triggers core.TriggerConfiguration, ctx core.TriggerContext) bool {
	if setIntersectsMap(triggers.AntiPatterns(), ctx.AntiPatternsPresent) {
		return false
	}
	if triggers.IsInert() {
		return false
	}
	return m.Score(triggers, ctx) >= triggers.ConfidenceThreshold()
}

// keywordSubscore returns (score, active): active is false when the
// trigger's keyword set is empty, signalling its weight should be
// redistributed across the other two subscores.
func (m *Matcher) keywordSubscore(triggers core.TriggerConfiguration, ctx core.TriggerContext) (float64, bool) {
	keywords := triggers.Keywords()
	if len(keywords) == 0 {
		return 0, false
	}
	hits := 0
	for _, k := range keywords {
		if _, ok := ctx.KeywordsPresent[k]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords)), true
}

func (m *Matcher) fileSubscore(triggers core.TriggerConfiguration, ctx core.TriggerContext) (float64, bool) {
	patterns := triggers.FilePatterns()
	if len(patterns) == 0 {
		return 0, false
	}
	hits := 0
	for _, pattern := range patterns {
		if m.anyPathMatches(pattern, ctx.FilePatternsPresent) {
			hits++
		}
	}
	return float64(hits) / float64(len(patterns)), true
}

func (m *Matcher) contextSubscore(triggers core.TriggerConfiguration, ctx core.TriggerContext) (float64, bool) {
	patterns := triggers.ContextPatterns()
	if len(patterns) == 0 {
		return 0, false
	}
	hits := 0
	for _, tag := range patterns {
		if _, ok := ctx.ContextTagsPresent[tag]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(patterns)), true
}

// anyPathMatches reports whether pattern glob-matches any of paths. The
// validity of pattern is memoised so a malformed glob is only evaluated by
// filepath.Match once regardless of how many times it's scored.
func (m *Matcher) anyPathMatches(pattern string, paths []string) bool {
	validRaw, ok := m.globCache.Load(pattern)
	if !ok {
		validRaw, _ = m.globCache.LoadOrStore(pattern, isValidPattern(pattern))
	}
	if !validRaw.(bool) {
		return false
	}
	for _, p := range paths {
		if ok, err := filepath.Match(pattern, p); err == nil && ok {
			return true
		}
	}
	return false
}

func isValidPattern(pattern string) bool {
	_, err := filepath.Match(pattern, "")
	return err == nil
}

func setIntersectsMap(set []string, present map[string]struct{}) bool {
	for _, s := range set {
		if _, ok := present[s]; ok {
			return true
		}
	}
	return false
}

var _ core.TriggerMatcher = (*Matcher)(nil)
