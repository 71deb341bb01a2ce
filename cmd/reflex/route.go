package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/reflex/pkg/models"
)

var (
	routeHandler  string
	routeProject  string
	routeTimeout  time.Duration
	routeMaxDepth int
	routeJSON     bool
)

var routeCmd = &cobra.Command{
	Use:   "route <task>",
	Short: "Route a task to a handler and run the handoff chain",
	Long: `Resolve a free-text task to a handler via the keyword routing table
and execute the resulting handoff chain.

The selected handler may request hand-offs to other handlers; the chain runs
until no handoff is requested, a step fails, or the depth limit is reached.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeHandler, "handler", "", "Bypass routing and use this handler")
	routeCmd.Flags().StringVar(&routeProject, "project", "", "Project id for cache partitioning")
	routeCmd.Flags().DurationVar(&routeTimeout, "timeout", 0, "Per-step wall-clock budget (e.g. 90s)")
	routeCmd.Flags().IntVar(&routeMaxDepth, "max-depth", 0, "Maximum handoff transitions")
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "Print the result as JSON")
}

func runRoute(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	cfg, err := loadConfig(routeTimeout, routeMaxDepth)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	projectID := routeProject
	if projectID == "" {
		projectID = cfg.Cache.ProjectID
	}

	cwd, _ := os.Getwd()
	project := models.ProjectContext{
		ProjectID:  projectID,
		WorkingDir: cwd,
	}

	result, err := rt.orchestrator.RouteTask(cmd.Context(), task, project, routeHandler)
	if err != nil {
		return err
	}

	return printResult(result)
}

func printResult(result *models.AgentResult) error {
	if routeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.Success {
		fmt.Printf("%s completed in %s\n", color.GreenString("✓"), result.Duration.Round(time.Millisecond))
	} else {
		fmt.Printf("%s failed\n", color.RedString("✗"))
	}
	fmt.Printf("\n%v\n", result.Output)

	for _, a := range result.Artifacts {
		fmt.Printf("\n--- %s (%s) ---\n%s\n", a.Name, a.Type, a.Content)
	}
	return nil
}
