package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/reflex/internal/store"
)

var (
	sweepProject string
	sweepDelete  bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired cache entries",
	Long: `Scan a project's cache collection and delete every entry whose TTL
has elapsed. With --delete-project the entire collection is removed instead.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepProject, "project", "", "Project id to sweep (default collection when empty)")
	sweepCmd.Flags().BoolVar(&sweepDelete, "delete-project", false, "Delete the project's whole collection")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(0, 0)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer s.Close()

	projectID := sweepProject
	if projectID == "" {
		projectID = cfg.Cache.ProjectID
	}
	if projectID == "" {
		projectID = store.DefaultProject
	}

	if sweepDelete {
		n, err := s.DeleteProject(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted collection %q (%d entries)\n", projectID, n)
		return nil
	}

	removed, err := s.SweepExpired(cmd.Context(), projectID)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d expired entries from %q\n", removed, projectID)
	return nil
}
