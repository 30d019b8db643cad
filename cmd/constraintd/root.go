package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/constraintd/constraintd/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "constraintd",
	Short: "Constraint activation core",
	Long:  "constraintd loads a constraint library and activates matching constraints against incoming context.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults, file, then CONSTRAINTD_ env vars)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
