package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"arbiter-hq/arbiter/pkg/cli"
	"arbiter-hq/arbiter/pkg/policy/source"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Work with compiled policy documents",
	Long: `Work with compiled policy documents outside the running service.

Subcommands:
  lint - Validate policy YAML documents
  list - Show policies persisted in a registry database

Examples:
  # Validate a directory of policies before deploying them
  arbiter policy lint --dir policies/

  # Inspect what a registry database holds
  arbiter policy list --registry arbiter-registry.db`,
}

var lintFlags struct {
	file   string
	dir    string
	format string
}

var policyLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate policy documents",
	Long: `Validate compiled policy documents for structural errors.

Lint parses policy YAML and checks everything the engine would reject at load
time: required fields, decision values, condition operators, and rule
structure. Provenance tokens are not checked; they are a property of the
deployment, not of the document.

Examples:
  # Lint single file
  arbiter policy lint --file policy.yaml

  # Lint directory
  arbiter policy lint --dir policies/

  # JSON output for CI/CD
  arbiter policy lint --dir policies/ --format json`,
	RunE: lintPolicies,
}

var listFlags struct {
	registry string
	format   string
}

var policyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List policies in a registry database",
	Long: `List the policies persisted in a registry SQLite database.

The registry holds policies loaded over the API so they survive restarts.

Examples:
  arbiter policy list --registry arbiter-registry.db
  arbiter policy list --registry arbiter-registry.db --format json`,
	RunE: listPolicies,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyLintCmd)
	policyCmd.AddCommand(policyListCmd)

	policyLintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "policy file to validate")
	policyLintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of policy files")
	policyLintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")

	policyListCmd.Flags().StringVar(&listFlags.registry, "registry", "", "registry database path")
	policyListCmd.Flags().StringVar(&listFlags.format, "format", "text", "output format: text, json")
}

// lintResult is the validation outcome for a single policy file.
type lintResult struct {
	File     string `json:"file"`
	PolicyID string `json:"policy_id,omitempty"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

func lintPolicies(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string
	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}
	if lintFlags.dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(lintFlags.dir, pattern))
			if err != nil {
				return fmt.Errorf("failed to list policy files: %w", err)
			}
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no policy files found")
	}

	results := make([]lintResult, 0, len(files))
	failures := 0
	for _, file := range files {
		result := lintResult{File: file, Valid: true}
		policy, err := source.LoadFile(file)
		if err != nil {
			result.Valid = false
			result.Error = err.Error()
			failures++
		} else {
			result.PolicyID = policy.ID
		}
		results = append(results, result)
	}

	if lintFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(os.Stdout, results); err != nil {
			return err
		}
	} else {
		for _, result := range results {
			if result.Valid {
				fmt.Printf("✓ %s (%s)\n", result.File, result.PolicyID)
			} else {
				fmt.Printf("✗ %s: %s\n", result.File, result.Error)
			}
		}
		fmt.Printf("\n%d file(s), %d error(s)\n", len(results), failures)
	}

	if failures > 0 {
		return cli.NewCommandError("policy lint", fmt.Errorf("validation failed"))
	}
	return nil
}

// registryEntry is the wire form of one listed registry policy.
type registryEntry struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	Category string `json:"category"`
	Rules    int    `json:"rules"`
}

func listPolicies(cmd *cobra.Command, args []string) error {
	if listFlags.registry == "" {
		return fmt.Errorf("--registry must be specified")
	}

	store, err := source.NewStore(source.StoreConfig{DBPath: listFlags.registry})
	if err != nil {
		return cli.NewCommandError("policy list", fmt.Errorf("failed to open registry: %w", err))
	}
	defer store.Close()

	policies, err := store.LoadAll(context.Background())
	if err != nil {
		return cli.NewCommandError("policy list", err)
	}

	entries := make([]registryEntry, 0, len(policies))
	for _, p := range policies {
		entries = append(entries, registryEntry{
			ID:       p.ID,
			Version:  p.Version,
			Category: string(p.Category),
			Rules:    len(p.Rules),
		})
	}

	if listFlags.format == "json" {
		formatter := cli.NewFormatter(cli.FormatJSON)
		return formatter.FormatTo(os.Stdout, entries)
	}

	if len(entries) == 0 {
		fmt.Println("Registry is empty.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  v%s  %s  (%d rules)\n", e.ID, e.Version, e.Category, e.Rules)
	}
	fmt.Printf("\n%d policy(ies)\n", len(entries))
	return nil
}
