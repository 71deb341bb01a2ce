// Package skills defines the skill contract and the registry that invokes
// skills through the cache.
package skills

import (
	"context"
	"time"
)

// ExecuteFunc is a skill's execution function. Input and output are opaque
// JSON-serializable values; the registry serializes them for hashing and
// storage but never interprets their contents.
type ExecuteFunc func(ctx context.Context, input any, sctx SkillContext) (any, error)

// Skill is a named external capability.
type Skill struct {
	// Name uniquely identifies the skill.
	Name string
	// Description is shown in skill listings.
	Description string
	// InputSchema and OutputSchema describe the payload shapes. The registry
	// treats them as documentation; it does not validate against them.
	InputSchema  map[string]any
	OutputSchema map[string]any
	// Cacheable marks results as safe to reuse for identical inputs.
	Cacheable bool
	// TTL bounds how long a cached result stays valid; 0 means forever.
	TTL time.Duration
	// Execute runs the skill.
	Execute ExecuteFunc
}

// SkillContext tells a skill's execution function where it is running.
type SkillContext struct {
	// ProjectID is the cache partition for this invocation.
	ProjectID string
	// CollectionID names the cache collection for the current chain.
	CollectionID string
	// SessionID identifies the routing session.
	SessionID string
	// Handler is the name of the handler that invoked the skill.
	Handler string
}
