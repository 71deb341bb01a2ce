package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List registered skills",
	Long: `List every registered skill: the built-in completion skill (when an
API key is configured) plus any command-backed skills loaded from the
configured manifest directory.`,
	RunE: runSkills,
}

func runSkills(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(0, 0)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	all := rt.skills.List()
	if len(all) == 0 {
		fmt.Println("No skills registered. Set skills.dir in the config to load manifests.")
		return nil
	}

	for _, s := range all {
		cacheNote := ""
		if s.Cacheable {
			if s.TTL > 0 {
				cacheNote = fmt.Sprintf(" (cached %s)", s.TTL)
			} else {
				cacheNote = " (cached forever)"
			}
		}
		fmt.Printf("%s %s%s\n", color.CyanString(s.Name), s.Description, cacheNote)
	}
	return nil
}
