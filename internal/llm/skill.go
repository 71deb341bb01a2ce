package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ShayCichocki/reflex/internal/skills"
)

// NewCompletionSkill wraps a client as the "complete" skill used by the
// built-in handlers. Input: {system?, prompt, max_tokens?}. Output: the
// response text. Completions for identical inputs are cached for an hour.
func NewCompletionSkill(client *Client) skills.Skill {
	return skills.Skill{
		Name:        "complete",
		Description: "single-turn LLM completion",
		InputSchema: map[string]any{
			"system":     "optional system prompt",
			"prompt":     "user prompt",
			"max_tokens": "optional response cap",
		},
		OutputSchema: map[string]any{
			"text": "completion text",
		},
		Cacheable: true,
		TTL:       time.Hour,
		Execute: func(ctx context.Context, input any, _ skills.SkillContext) (any, error) {
			fields, ok := input.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("completion input must be an object, got %T", input)
			}
			prompt, _ := fields["prompt"].(string)
			if prompt == "" {
				return nil, fmt.Errorf("completion input has no prompt")
			}
			system, _ := fields["system"].(string)

			var maxTokens int64
			if v, ok := fields["max_tokens"].(float64); ok {
				maxTokens = int64(v)
			}

			return client.Complete(ctx, system, prompt, maxTokens)
		},
	}
}
