package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reflex",
	Short: "Task router & skill cache",
	Long: `Reflex routes free-text tasks to specialized handlers, coordinates
hand-offs between them, and caches expensive skill calls in a persistent,
semantically-searchable per-project store.

Core capabilities:
- Deterministic keyword routing with a configurable rule table
- Bounded handler handoff chains with per-step timeouts
- Skill invocation with allow-lists and TTL-aware result caching
- Project-partitioned vector cache for context and skill results`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
