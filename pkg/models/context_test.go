package models

import "testing"

func TestDerive_IncrementsDepthAndCarriesOutput(t *testing.T) {
	base := AgentContext{
		Task:         "review the pull request",
		SessionID:    "abc12345",
		CollectionID: "proj-1",
		Metadata:     map[string]any{"origin": "cli"},
	}

	prev := &AgentResult{Success: true, Output: "found two issues"}
	handoff := &HandoffRequest{
		TargetAgent: "coder",
		Reason:      "issues found during review",
		Context:     map[string]any{"issue_count": 2},
	}

	next := base.Derive(prev, handoff)

	if next.Depth != 1 {
		t.Errorf("Depth = %d, want 1", next.Depth)
	}
	if next.PreviousOutput != "found two issues" {
		t.Errorf("PreviousOutput = %v, want previous agent output", next.PreviousOutput)
	}
	if next.Metadata["handoff_reason"] != "issues found during review" {
		t.Errorf("handoff_reason = %v, want reason from request", next.Metadata["handoff_reason"])
	}
	if next.Metadata["issue_count"] != 2 {
		t.Errorf("issue_count = %v, want 2", next.Metadata["issue_count"])
	}
	if next.Metadata["origin"] != "cli" {
		t.Errorf("origin = %v, want carried-forward value", next.Metadata["origin"])
	}
}

func TestDerive_DoesNotMutateParent(t *testing.T) {
	base := AgentContext{
		Task:     "implement OAuth login",
		Metadata: map[string]any{"origin": "cli"},
	}

	next := base.Derive(&AgentResult{Output: "x"}, nil)
	next.Metadata["origin"] = "handoff"
	next.Metadata["extra"] = true

	if base.Metadata["origin"] != "cli" {
		t.Errorf("parent metadata mutated: origin = %v", base.Metadata["origin"])
	}
	if _, ok := base.Metadata["extra"]; ok {
		t.Error("parent metadata gained key written to derived context")
	}
	if base.Depth != 0 {
		t.Errorf("parent Depth = %d, want 0", base.Depth)
	}
	if base.PreviousOutput != nil {
		t.Errorf("parent PreviousOutput = %v, want nil", base.PreviousOutput)
	}
}

func TestHandoff_NilWhenNoNextAgent(t *testing.T) {
	r := &AgentResult{Success: true, Output: "done"}
	if req := r.Handoff(); req != nil {
		t.Errorf("Handoff() = %+v, want nil", req)
	}

	var nilResult *AgentResult
	if req := nilResult.Handoff(); req != nil {
		t.Errorf("Handoff() on nil result = %+v, want nil", req)
	}
}

func TestHandoff_BuildsRequestFromResult(t *testing.T) {
	r := &AgentResult{
		Success:        true,
		NextAgent:      "coder",
		HandoffContext: map[string]any{"reason": "fix the findings", "priority": 2},
	}

	req := r.Handoff()
	if req == nil {
		t.Fatal("Handoff() = nil, want request")
	}
	if req.TargetAgent != "coder" {
		t.Errorf("TargetAgent = %q, want %q", req.TargetAgent, "coder")
	}
	if req.Reason != "fix the findings" {
		t.Errorf("Reason = %q, want reason from handoff context", req.Reason)
	}
	if req.Priority != 2 {
		t.Errorf("Priority = %d, want 2", req.Priority)
	}
}

func TestHandoff_PriorityFromJSONNumber(t *testing.T) {
	// A handoff context that round-tripped through JSON carries numbers as
	// float64.
	r := &AgentResult{
		NextAgent:      "tester",
		HandoffContext: map[string]any{"priority": float64(3)},
	}

	req := r.Handoff()
	if req == nil {
		t.Fatal("Handoff() = nil, want request")
	}
	if req.Priority != 3 {
		t.Errorf("Priority = %d, want 3", req.Priority)
	}
}

func TestFailureResult_Shape(t *testing.T) {
	r := FailureResult(errTest("boom"))
	if r.Success {
		t.Error("Success = true, want false")
	}
	out, ok := r.Output.(map[string]any)
	if !ok {
		t.Fatalf("Output type = %T, want map[string]any", r.Output)
	}
	if out["error"] != "boom" {
		t.Errorf("Output[error] = %v, want %q", out["error"], "boom")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
