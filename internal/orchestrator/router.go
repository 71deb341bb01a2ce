package orchestrator

import (
	"strings"
)

// Rule maps a handler to the keywords that select it. Matching is plain
// case-insensitive substring containment; no stemming, no word boundaries.
// Rule order is priority order: the first rule with any matching keyword
// wins, so more specific handlers belong earlier in the table.
type Rule struct {
	Handler  string
	Keywords []string
}

// Decision explains how a task was routed.
type Decision struct {
	// Handler is the selected handler name.
	Handler string
	// MatchedKeyword is the keyword that triggered the selection, empty when
	// the fallback was used.
	MatchedKeyword string
	// Reason is a human-readable explanation for logs.
	Reason string
}

// Router resolves free-text tasks to handler names.
type Router struct {
	rules    []Rule
	fallback string
}

// NewRouter creates a router with the given rule table and fallback handler.
func NewRouter(rules []Rule, fallback string) *Router {
	return &Router{rules: rules, fallback: fallback}
}

// DefaultRules is the built-in routing table. Review/test/docs handlers come
// before research so that e.g. "review the pull request" never lands on the
// researcher via a broader keyword. The coder owns no keywords and is reached
// only through the fallback, so a task that mixes an implementation verb with
// another handler's keyword ("implement the tests") goes to that handler.
var DefaultRules = []Rule{
	{Handler: "reviewer", Keywords: []string{"review", "audit", "critique", "code quality"}},
	{Handler: "tester", Keywords: []string{"test", "coverage", "regression", "flaky"}},
	{Handler: "documenter", Keywords: []string{"document", "docs", "readme", "changelog"}},
	{Handler: "researcher", Keywords: []string{"research", "investigate", "explore", "compare", "find out"}},
}

// DefaultFallback handles everything no keyword claims.
const DefaultFallback = "coder"

// Resolve picks the handler for a task. It never fails: a task no keyword
// matches goes to the fallback handler.
func (r *Router) Resolve(task string) Decision {
	lower := strings.ToLower(task)

	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return Decision{
					Handler:        rule.Handler,
					MatchedKeyword: kw,
					Reason:         "matched keyword " + kw,
				}
			}
		}
	}

	return Decision{
		Handler: r.fallback,
		Reason:  "no keyword match, using default handler",
	}
}

// Fallback returns the router's default handler name.
func (r *Router) Fallback() string {
	return r.fallback
}
