package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ShayCichocki/reflex/internal/skills"
	"github.com/ShayCichocki/reflex/pkg/models"
)

// RunFunc is a handler's body. It receives the step context and a toolbox
// scoped to the handler's skill allow-list.
type RunFunc func(ctx context.Context, actx models.AgentContext, tools *Toolbox) (*models.AgentResult, error)

// Agent is a named task handler with a skill allow-list.
type Agent struct {
	name          string
	description   string
	allowedSkills map[string]bool
	services      []string
	run           RunFunc
}

// NewAgent creates a handler. allowedSkills lists the skills the handler may
// invoke; the single entry "*" allows every registered skill.
func NewAgent(name, description string, allowedSkills []string, run RunFunc) *Agent {
	allowed := make(map[string]bool, len(allowedSkills))
	for _, s := range allowedSkills {
		allowed[s] = true
	}
	return &Agent{
		name:          name,
		description:   description,
		allowedSkills: allowed,
		run:           run,
	}
}

// RequireServices declares auxiliary services the handler depends on. The
// coordinator starts them best-effort before each of the handler's steps.
// Returns the agent for chaining at registration time.
func (a *Agent) RequireServices(names ...string) *Agent {
	a.services = append(a.services, names...)
	return a
}

// Services returns the handler's declared auxiliary services.
func (a *Agent) Services() []string { return a.services }

// Name returns the handler's name.
func (a *Agent) Name() string { return a.name }

// Description returns the handler's description.
func (a *Agent) Description() string { return a.description }

// AllowedSkills returns the handler's allow-list, sorted.
func (a *Agent) AllowedSkills() []string {
	out := make([]string, 0, len(a.allowedSkills))
	for s := range a.allowedSkills {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Execute runs the handler with a toolbox bound to this step.
func (a *Agent) Execute(ctx context.Context, actx models.AgentContext, registry *skills.Registry) (*models.AgentResult, error) {
	tools := &Toolbox{
		agent:    a,
		registry: registry,
		sctx: skills.SkillContext{
			ProjectID:    actx.Project.ProjectID,
			CollectionID: actx.CollectionID,
			SessionID:    actx.SessionID,
			Handler:      a.name,
		},
	}
	return a.run(ctx, actx, tools)
}

// Toolbox is the skill surface handed to a running handler. Every invocation
// goes through the allow-list first; an unauthorized skill is rejected
// before it can execute.
type Toolbox struct {
	agent    *Agent
	registry *skills.Registry
	sctx     skills.SkillContext
}

// UseSkill invokes a skill on the handler's behalf.
func (t *Toolbox) UseSkill(ctx context.Context, name string, input any) (any, error) {
	if !t.agent.allowedSkills["*"] && !t.agent.allowedSkills[name] {
		return nil, &AuthorizationError{Handler: t.agent.name, Skill: name}
	}
	if t.registry == nil {
		return nil, fmt.Errorf("%w: %q", skills.ErrNotFound, name)
	}
	return t.registry.Invoke(ctx, name, input, t.sctx)
}

// AgentRegistry holds the handlers the orchestrator can route to.
// Safe for concurrent use; registering a name twice replaces in place.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewAgentRegistry creates an empty handler registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string]*Agent)}
}

// Register adds a handler, replacing any existing handler with the same name.
func (r *AgentRegistry) Register(a *Agent) error {
	if a == nil || a.name == "" {
		return fmt.Errorf("agent has no name")
	}
	if a.run == nil {
		return fmt.Errorf("agent %q has no run function", a.name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.name] = a
	return nil
}

// Get returns a handler by name.
func (r *AgentRegistry) Get(name string) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Names returns all registered handler names, sorted.
func (r *AgentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.agents))
	for name := range r.agents {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
