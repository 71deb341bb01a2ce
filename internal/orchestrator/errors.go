package orchestrator

import (
	"fmt"
	"time"
)

// RoutingError means a task could not be resolved to a registered handler,
// either because an explicit override named an unknown handler or because a
// handoff requested one. Fails the chain fast; never retried.
type RoutingError struct {
	Handler string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no handler named %q", e.Handler)
}

// AuthorizationError means a handler tried to invoke a skill outside its
// allow-list. The skill is never executed.
type AuthorizationError struct {
	Handler string
	Skill   string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("handler %q is not authorized to use skill %q", e.Handler, e.Skill)
}

// TimeoutError means a handler step exceeded its wall-clock budget. The step
// is abandoned and the chain ends in failure; no retry.
type TimeoutError struct {
	Handler string
	Budget  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("handler %q exceeded its %s step budget", e.Handler, e.Budget)
}
