// Package models defines the shared data types passed between the router,
// the handoff coordinator, and agent implementations.
package models

// ProjectContext identifies the project a task is being routed for.
type ProjectContext struct {
	// ProjectID partitions the cache store; empty means the default project.
	ProjectID string `json:"project_id"`
	// WorkingDir is the project root on disk, if known.
	WorkingDir string `json:"working_dir,omitempty"`
	// Branch is the active VCS branch, if known.
	Branch string `json:"branch,omitempty"`
	// Files lists files the caller considers relevant to the task.
	Files []string `json:"files,omitempty"`
}

// AgentContext carries everything one agent execution step needs.
// Each handoff step receives a freshly derived context; a context is never
// mutated after it has been handed to an agent, so concurrent late writers
// from an abandoned step cannot alias the next step's state.
type AgentContext struct {
	// Task is the free-text task description being worked on.
	Task string `json:"task"`
	// Project identifies the project partition for cache reads/writes.
	Project ProjectContext `json:"project"`
	// PreviousOutput is the prior agent's output when this step follows a
	// handoff; nil on the first step.
	PreviousOutput any `json:"previous_output,omitempty"`
	// CollectionID names the cache collection for this chain.
	CollectionID string `json:"collection_id"`
	// SessionID identifies the routing session this step belongs to.
	SessionID string `json:"session_id"`
	// Depth is the number of handoffs performed before this step.
	Depth int `json:"depth"`
	// Metadata holds chain annotations (handoff reason, caller hints).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Derive builds the context for the next step of a handoff chain.
// The previous output is carried forward, the depth is incremented, and the
// handoff request's context and reason are merged into a copied metadata map.
// The receiver is left untouched.
func (c AgentContext) Derive(prev *AgentResult, handoff *HandoffRequest) AgentContext {
	next := c
	next.Depth = c.Depth + 1

	next.Metadata = make(map[string]any, len(c.Metadata)+3)
	for k, v := range c.Metadata {
		next.Metadata[k] = v
	}
	next.Metadata["handoff_depth"] = next.Depth

	if prev != nil {
		next.PreviousOutput = prev.Output
	}
	if handoff != nil {
		if handoff.Reason != "" {
			next.Metadata["handoff_reason"] = handoff.Reason
		}
		for k, v := range handoff.Context {
			next.Metadata[k] = v
		}
	}

	return next
}
