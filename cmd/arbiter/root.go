package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Arbiter - tiered policy evaluation service",
	Long: `Arbiter is a policy evaluation service that routes governance decisions
to the cheapest engine able to answer them.

Simple policies are answered by a compiled rule engine in-process; complex
ones are dispatched to one of four externally hosted reasoning tiers selected
by request complexity and urgency. Every request passes a constitutional
compliance gate first, and every decision leaves exactly one audit record.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
