// Package orchestrator routes free-text tasks to handlers and coordinates
// handoff chains between them.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/reflex/internal/events"
	"github.com/ShayCichocki/reflex/internal/services"
	"github.com/ShayCichocki/reflex/internal/skills"
	"github.com/ShayCichocki/reflex/internal/state"
	"github.com/ShayCichocki/reflex/internal/store"
	"github.com/ShayCichocki/reflex/pkg/models"
)

const (
	// DefaultMaxDepth bounds how many handoff transitions one chain may make.
	DefaultMaxDepth = 5
	// DefaultStepTimeout is the wall-clock budget for one handler execution.
	DefaultStepTimeout = 5 * time.Minute
)

// Options configures an Orchestrator. Agents and Skills are required; the
// rest degrade to no-ops when nil.
type Options struct {
	Router *Router
	Agents *AgentRegistry
	Skills *skills.Registry
	// Store receives the terminal context entry of successful chains.
	Store *store.Store
	// Bus receives lifecycle events.
	Bus *events.Bus
	// State receives session and step audit records.
	State *state.DB
	// Services starts handlers' declared auxiliary services before their
	// steps; nil disables service management.
	Services *services.Manager
	// Logger receives debug traces; nil means no tracing.
	Logger *DebugLogger
	// MaxDepth caps handoff transitions; 0 means DefaultMaxDepth.
	MaxDepth int
	// StepTimeout is the per-step budget; 0 means DefaultStepTimeout.
	StepTimeout time.Duration
}

// Orchestrator resolves tasks to handlers and runs bounded handoff chains.
type Orchestrator struct {
	router      *Router
	agents      *AgentRegistry
	skills      *skills.Registry
	store       *store.Store
	bus         *events.Bus
	state       *state.DB
	services    *services.Manager
	logger      *DebugLogger
	maxDepth    int
	stepTimeout time.Duration
}

// New creates an orchestrator from options.
func New(opts Options) (*Orchestrator, error) {
	if opts.Agents == nil {
		return nil, fmt.Errorf("agent registry is required")
	}
	if opts.Skills == nil {
		return nil, fmt.Errorf("skill registry is required")
	}

	router := opts.Router
	if router == nil {
		router = NewRouter(DefaultRules, DefaultFallback)
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	stepTimeout := opts.StepTimeout
	if stepTimeout <= 0 {
		stepTimeout = DefaultStepTimeout
	}

	return &Orchestrator{
		router:      router,
		agents:      opts.Agents,
		skills:      opts.Skills,
		store:       opts.Store,
		bus:         opts.Bus,
		state:       opts.State,
		services:    opts.Services,
		logger:      opts.Logger,
		maxDepth:    maxDepth,
		stepTimeout: stepTimeout,
	}, nil
}

// Router returns the orchestrator's router.
func (o *Orchestrator) Router() *Router {
	return o.router
}

// RouteTask resolves the task to a handler and runs the handoff chain to
// completion. override, when non-empty, bypasses keyword routing but must
// still name a registered handler. The chain ends when a step requests no
// handoff, when the handoff depth limit is reached (the last good result is
// returned, not an error), or when a step fails or times out.
func (o *Orchestrator) RouteTask(ctx context.Context, task string, project models.ProjectContext, override string) (*models.AgentResult, error) {
	sessionID := uuid.New().String()[:8]
	projectID := project.ProjectID
	if projectID == "" {
		projectID = store.DefaultProject
	}

	o.emit(events.SessionStart, sessionID, projectID, map[string]any{
		"task": task,
	})

	handlerName, err := o.resolveHandler(task, override)
	if err != nil {
		o.logger.Log("session %s: routing failed: %v", sessionID, err)
		o.finish(sessionID, projectID, state.SessionFailed, "", err)
		return models.FailureResult(err), err
	}
	o.logger.Log("session %s: task routed to %s", sessionID, handlerName)

	if dberr := o.state.CreateSession(state.Session{
		ID:        sessionID,
		Task:      task,
		ProjectID: projectID,
		Handler:   handlerName,
		StartedAt: time.Now(),
	}); dberr != nil {
		log.Printf("[orchestrator] warning: recording session: %v", dberr)
	}

	actx := models.AgentContext{
		Task:         task,
		Project:      project,
		CollectionID: projectID,
		SessionID:    sessionID,
	}

	var last *models.AgentResult
	for step := 0; ; step++ {
		agent, ok := o.agents.Get(handlerName)
		if !ok {
			err := &RoutingError{Handler: handlerName}
			o.finish(sessionID, projectID, state.SessionFailed, handlerName, err)
			return models.FailureResult(err), err
		}

		o.startServices(ctx, agent)

		start := time.Now()
		result, err := o.executeStep(ctx, agent, actx)
		elapsed := time.Since(start)

		if err != nil {
			o.logger.Log("session %s: step %d (%s) failed after %s: %v", sessionID, step, handlerName, elapsed, err)
			o.recordStep(sessionID, step, handlerName, false, elapsed, nil)
			o.finish(sessionID, projectID, state.SessionFailed, handlerName, err)
			return models.FailureResult(err), err
		}
		result.Duration = elapsed

		if !result.Success {
			o.logger.Log("session %s: step %d (%s) returned failure", sessionID, step, handlerName)
			o.recordStep(sessionID, step, handlerName, false, elapsed, nil)
			o.finish(sessionID, projectID, state.SessionFailed, handlerName, nil)
			return result, nil
		}

		last = result
		handoff := result.Handoff()
		o.recordStep(sessionID, step, handlerName, true, elapsed, handoff)

		if handoff == nil {
			break
		}
		if actx.Depth+1 > o.maxDepth {
			// Depth exhausted: not an error, the chain just stops here.
			o.logger.Log("session %s: handoff depth limit (%d) reached, stopping at %s", sessionID, o.maxDepth, handlerName)
			break
		}
		if _, ok := o.agents.Get(handoff.TargetAgent); !ok {
			err := &RoutingError{Handler: handoff.TargetAgent}
			o.finish(sessionID, projectID, state.SessionFailed, handlerName, err)
			return models.FailureResult(err), err
		}

		o.emit(events.PreHandoff, sessionID, projectID, map[string]any{
			"from":   handlerName,
			"to":     handoff.TargetAgent,
			"reason": handoff.Reason,
			"depth":  actx.Depth + 1,
		})

		actx = actx.Derive(result, handoff)
		handlerName = handoff.TargetAgent
	}

	o.persistContext(ctx, projectID, sessionID, handlerName, task, last)
	o.finish(sessionID, projectID, state.SessionCompleted, handlerName, nil)
	return last, nil
}

func (o *Orchestrator) resolveHandler(task, override string) (string, error) {
	if override != "" {
		if _, ok := o.agents.Get(override); !ok {
			return "", &RoutingError{Handler: override}
		}
		return override, nil
	}

	decision := o.router.Resolve(task)
	if _, ok := o.agents.Get(decision.Handler); !ok {
		return "", &RoutingError{Handler: decision.Handler}
	}
	return decision.Handler, nil
}

// startServices brings up the handler's declared auxiliary services.
// Best-effort: a service that fails to start is logged and the step proceeds.
func (o *Orchestrator) startServices(ctx context.Context, agent *Agent) {
	if o.services == nil {
		return
	}
	for _, name := range agent.Services() {
		if err := o.services.Start(ctx, name); err != nil {
			log.Printf("[orchestrator] warning: starting service %s for %s: %v", name, agent.Name(), err)
		}
	}
}

type stepOutcome struct {
	result *models.AgentResult
	err    error
}

// executeStep runs one handler under the step budget. On timeout the step is
// abandoned without signaling the handler; a late completion goes nowhere
// because the next step derives a fresh context.
func (o *Orchestrator) executeStep(ctx context.Context, agent *Agent, actx models.AgentContext) (*models.AgentResult, error) {
	outcome := make(chan stepOutcome, 1)

	go func() {
		result, err := agent.Execute(ctx, actx, o.skills)
		if err == nil && result == nil {
			err = fmt.Errorf("handler %q returned no result", agent.Name())
		}
		outcome <- stepOutcome{result: result, err: err}
	}()

	timer := time.NewTimer(o.stepTimeout)
	defer timer.Stop()

	select {
	case out := <-outcome:
		return out.result, out.err
	case <-timer.C:
		return nil, &TimeoutError{Handler: agent.Name(), Budget: o.stepTimeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// persistContext caches the terminal result for future session priming.
// Best-effort: storage failures are logged and swallowed.
func (o *Orchestrator) persistContext(ctx context.Context, projectID, sessionID, handler, task string, result *models.AgentResult) {
	if o.store == nil || result == nil {
		return
	}

	_, err := o.store.Store(ctx, projectID, store.Content{
		Text:   fmt.Sprint(result.Output),
		Type:   store.TypeContext,
		Source: handler,
		Metadata: map[string]any{
			"session": sessionID,
			"task":    task,
		},
	})
	if err != nil {
		log.Printf("[orchestrator] warning: caching session context: %v", err)
	}
}

func (o *Orchestrator) recordStep(sessionID string, idx int, handler string, success bool, elapsed time.Duration, handoff *models.HandoffRequest) {
	step := state.Step{
		SessionID: sessionID,
		Index:     idx,
		Handler:   handler,
		Success:   success,
		Duration:  elapsed,
	}
	if handoff != nil {
		step.HandoffTo = handoff.TargetAgent
		step.HandoffReason = handoff.Reason
		step.HandoffPriority = handoff.Priority
	}
	if err := o.state.RecordStep(step); err != nil {
		log.Printf("[orchestrator] warning: recording step: %v", err)
	}
}

func (o *Orchestrator) finish(sessionID, projectID string, status state.SessionStatus, handler string, cause error) {
	if err := o.state.FinishSession(sessionID, status, handler); err != nil {
		log.Printf("[orchestrator] warning: finishing session: %v", err)
	}

	if cause != nil {
		o.emit(events.Error, sessionID, projectID, map[string]any{
			"error": cause.Error(),
		})
	}
	o.emit(events.SessionEnd, sessionID, projectID, map[string]any{
		"status":  string(status),
		"handler": handler,
	})
}

// emit folds the session and project ids into the payload before dispatch;
// the bus itself stamps the timestamp.
func (o *Orchestrator) emit(event, sessionID, projectID string, data map[string]any) {
	if o.bus == nil {
		return
	}
	if data == nil {
		data = make(map[string]any, 2)
	}
	data["session"] = sessionID
	data["project"] = projectID
	o.bus.Emit(event, data)
}
