package models

import "time"

// Artifact is a typed, named piece of output produced by an agent step.
type Artifact struct {
	// Name identifies the artifact (e.g. a filename or label).
	Name string `json:"name"`
	// Type tags the artifact content (e.g. "diff", "report", "file").
	Type string `json:"type"`
	// Content is the artifact body.
	Content string `json:"content"`
}

// AgentResult is the outcome of one agent execution step.
type AgentResult struct {
	// Success reports whether the step completed normally.
	Success bool `json:"success"`
	// Output is the opaque payload produced by the agent.
	Output any `json:"output,omitempty"`
	// Artifacts are optional typed outputs attached to the result.
	Artifacts []Artifact `json:"artifacts,omitempty"`
	// NextAgent, when set, asks the coordinator to hand the chain off to
	// the named agent.
	NextAgent string `json:"next_agent,omitempty"`
	// HandoffContext carries agent-specific context for the next step.
	HandoffContext map[string]any `json:"handoff_context,omitempty"`
	// Duration is how long the step took, when measured.
	Duration time.Duration `json:"duration,omitempty"`
}

// HandoffRequest asks the coordinator to continue the chain with another
// agent. It is produced by an agent's result and consumed only by the
// coordinator.
type HandoffRequest struct {
	// TargetAgent is the name of the agent to execute next.
	TargetAgent string `json:"target_agent"`
	// Reason explains why the handoff was requested.
	Reason string `json:"reason,omitempty"`
	// Context is opaque data for the next agent.
	Context map[string]any `json:"context,omitempty"`
	// Priority is an optional hint; the coordinator records it but runs a
	// single sequential chain, so it does not affect ordering.
	Priority int `json:"priority,omitempty"`
}

// Handoff extracts the handoff request embedded in a result, or nil when
// the result does not ask for one.
func (r *AgentResult) Handoff() *HandoffRequest {
	if r == nil || r.NextAgent == "" {
		return nil
	}
	req := &HandoffRequest{
		TargetAgent: r.NextAgent,
		Context:     r.HandoffContext,
	}
	if reason, ok := r.HandoffContext["reason"].(string); ok {
		req.Reason = reason
	}
	// Priority arrives as an int from Go agents and as a float64 when the
	// handoff context round-tripped through JSON.
	switch p := r.HandoffContext["priority"].(type) {
	case int:
		req.Priority = p
	case float64:
		req.Priority = int(p)
	}
	return req
}

// FailureResult builds the uniform failed result shape returned to callers:
// success false with the error message under the "error" output key.
func FailureResult(err error) *AgentResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &AgentResult{
		Success: false,
		Output:  map[string]any{"error": msg},
	}
}
