package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/reflex/internal/state"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent routing sessions",
	Long: `Display recent routing sessions from the audit database: which
handler each task resolved to, how the chain ended, and the steps taken.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of sessions to show")
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := state.OpenGlobal()
	if err != nil {
		return fmt.Errorf("open audit database: %w", err)
	}
	defer db.Close()

	sessions, err := db.RecentSessions(statusLimit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded. Run 'reflex route <task>' to start.")
		return nil
	}

	fmt.Println(headerStyle.Render("Recent sessions"))
	for _, s := range sessions {
		marker := successStyle.Render("✓")
		switch s.Status {
		case state.SessionFailed:
			marker = failStyle.Render("✗")
		case state.SessionActive:
			marker = dimStyle.Render("…")
		}

		fmt.Printf("%s %s %s %s\n", marker, dimStyle.Render(s.ID),
			s.Task, dimStyle.Render(s.StartedAt.Local().Format(time.DateTime)))

		steps, err := db.ListSteps(s.ID)
		if err != nil {
			continue
		}
		for _, step := range steps {
			line := fmt.Sprintf("  %d. %s (%s)", step.Index+1, step.Handler, step.Duration.Round(time.Millisecond))
			if step.HandoffTo != "" {
				line += " → " + step.HandoffTo
				if step.HandoffReason != "" {
					line += dimStyle.Render(" ("+step.HandoffReason+")")
				}
			}
			fmt.Println(line)
		}
	}
	return nil
}
