package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ShayCichocki/reflex/internal/skills"
	"github.com/ShayCichocki/reflex/pkg/models"
)

// CompletionSkill is the name of the LLM completion skill the default
// handlers lean on when it is registered.
const CompletionSkill = "complete"

// defaultHandlers describes the built-in handler set. Each runs its task
// through the completion skill with a role-specific system prompt; without a
// registered completion skill it degrades to an offline acknowledgment so
// routing still works end to end.
var defaultHandlers = []struct {
	name        string
	description string
	system      string
}{
	{
		name:        "coder",
		description: "implements features and fixes",
		system:      "You are a senior software engineer. Implement the requested change and describe the edits you made.",
	},
	{
		name:        "reviewer",
		description: "reviews changes for defects",
		system:      "You are a meticulous code reviewer. List concrete findings with file references, or state that the change looks good.",
	},
	{
		name:        "tester",
		description: "writes and runs tests",
		system:      "You are a test engineer. Propose the tests that cover the described behavior and point out gaps.",
	},
	{
		name:        "documenter",
		description: "writes docs and changelogs",
		system:      "You are a technical writer. Produce clear documentation for the described change.",
	},
	{
		name:        "researcher",
		description: "investigates and compares options",
		system:      "You are a research assistant. Investigate the question and summarize findings with trade-offs.",
	},
}

// RegisterDefaultAgents fills a registry with the built-in handlers matching
// the default routing table.
func RegisterDefaultAgents(registry *AgentRegistry) error {
	for _, h := range defaultHandlers {
		system := h.system
		agent := NewAgent(h.name, h.description, []string{CompletionSkill},
			func(ctx context.Context, actx models.AgentContext, tools *Toolbox) (*models.AgentResult, error) {
				return runCompletion(ctx, system, actx, tools)
			})
		if err := registry.Register(agent); err != nil {
			return err
		}
	}
	return nil
}

func runCompletion(ctx context.Context, system string, actx models.AgentContext, tools *Toolbox) (*models.AgentResult, error) {
	prompt := actx.Task
	if actx.PreviousOutput != nil {
		prompt = fmt.Sprintf("%s\n\nPrevious handler output:\n%v", actx.Task, actx.PreviousOutput)
	}

	output, err := tools.UseSkill(ctx, CompletionSkill, map[string]any{
		"system": system,
		"prompt": prompt,
	})
	if errors.Is(err, skills.ErrNotFound) {
		// No LLM wired up; acknowledge the routing so chains stay usable.
		return &models.AgentResult{
			Success: true,
			Output:  fmt.Sprintf("task acknowledged (no completion skill registered): %s", actx.Task),
		}, nil
	}
	if err != nil {
		return models.FailureResult(err), nil
	}
	return &models.AgentResult{Success: true, Output: output}, nil
}
