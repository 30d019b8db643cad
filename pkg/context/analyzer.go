package context

import (
	"regexp"
	"strings"

	"github.com/constraintd/constraintd/core"
)

// wordPattern matches runs of Unicode letters; tokens shorter than three
// runes are dropped by the caller, not by the pattern itself, so the same
// compiled expression serves every call.
var wordPattern = regexp.MustCompile(`\p{L}+`)

// Analyzer is the concrete Context Analyzer. It is pure and holds no mutable
// state beyond the package-level compiled tokenizer, so a zero value is
// ready to use.
type Analyzer struct{}

// New returns a ready-to-use Analyzer.
func New() *Analyzer { return &Analyzer{} }

// Analyze implements core.ContextAnalyzer.
func (a *Analyzer) Analyze(raw core.RawContext) core.TriggerContext {
	ctx := core.NewTriggerContext()

	for _, tok := range wordPattern.FindAllString(raw.UserInput, -1) {
		if len([]rune(tok)) < 3 {
			continue
		}
		ctx.KeywordsPresent[strings.ToLower(tok)] = struct{}{}
	}

	ctx.FilePatternsPresent = append([]string(nil), raw.FilePaths...)

	if raw.ActivityType != "" {
		ctx.ContextTagsPresent[strings.ToLower(strings.TrimSpace(raw.ActivityType))] = struct{}{}
	}
	for _, tag := range raw.AdditionalContextTags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			ctx.ContextTagsPresent[tag] = struct{}{}
		}
	}

	for _, tag := range raw.AntiPatternTags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			ctx.AntiPatternsPresent[tag] = struct{}{}
		}
	}

	return ctx
}

var _ core.ContextAnalyzer = (*Analyzer)(nil)
