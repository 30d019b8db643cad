package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/constraintd/constraintd/loader/yamlloader"
	"github.com/constraintd/constraintd/resilience"
)

var validateCmd = &cobra.Command{
	Use:   "validate [library-path]",
	Short: "Load a library file and report structural errors",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("validate %s: %w", path, err)
	}

	stats := lib.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d atomics, %d composites)\n", path, stats.AtomicCount, stats.CompositeCount)
	return nil
}
