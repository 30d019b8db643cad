package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/constraintd/constraintd/core"
	"github.com/constraintd/constraintd/loader/yamlloader"
	"github.com/constraintd/constraintd/pkg/resolver"
	"github.com/constraintd/constraintd/resilience"
)

var statsCmd = &cobra.Command{
	Use:   "stats [library-path]",
	Short: "Print library stats, resolve every composite, and print aggregate resolver stats",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.Library.Path
	if len(args) == 1 {
		path = args[0]
	}

	lib, err := resilience.RetryLoad(cmd.Context(), yamlloader.New(path), resilience.DefaultRetryConfig())
	if err != nil {
		return fmt.Errorf("stats %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	stats := lib.Stats()
	fmt.Fprintf(out, "atomics:    %d\n", stats.AtomicCount)
	fmt.Fprintf(out, "composites: %d\n", stats.CompositeCount)
	for t, n := range stats.ByCompositionType {
		fmt.Fprintf(out, "  %-12s %d\n", t, n)
	}

	noopLogger := noopStructuredLogger{}
	r := resolver.New(lib, core.SystemClock{}, noopLogger)
	for _, c := range lib.IterComposite() {
		if _, err := r.Resolve(c.ID); err != nil {
			fmt.Fprintf(out, "resolve %s: %v\n", c.ID, err)
		}
	}

	m := r.Metrics()
	fmt.Fprintf(out, "resolutions: %d (hits=%d misses=%d)\n", m.TotalResolutions, m.CacheHits, m.CacheMisses)
	return nil
}

type noopStructuredLogger struct{}

func (noopStructuredLogger) Debug(string, ...interface{})         {}
func (noopStructuredLogger) Info(string, ...interface{})          {}
func (noopStructuredLogger) Warn(string, ...interface{})          {}
func (noopStructuredLogger) Error(string, ...interface{})         {}
func (noopStructuredLogger) Event(string, map[string]interface{}) {}
