package skills

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/reflex/internal/events"
	"github.com/ShayCichocki/reflex/internal/store"
)

// ErrNotFound is wrapped by Invoke when the named skill is not registered.
var ErrNotFound = fmt.Errorf("skill not found")

// Cache is the slice of the store the registry needs. A nil Cache disables
// caching entirely; skills still execute.
type Cache interface {
	CheckCache(ctx context.Context, projectID, skillName, inputHash string) (*store.CacheHit, error)
	CacheResult(ctx context.Context, projectID, skillName string, input, result any, ttl time.Duration) (string, error)
}

// Registry holds registered skills and invokes them with cache integration.
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
	cache  Cache
	bus    *events.Bus
}

// NewRegistry creates a registry. cache and bus may be nil; both degrade to
// no-ops.
func NewRegistry(cache Cache, bus *events.Bus) *Registry {
	return &Registry{
		skills: make(map[string]Skill),
		cache:  cache,
		bus:    bus,
	}
}

// Register adds a skill. Registering a name twice replaces the earlier skill
// in place; last writer wins.
func (r *Registry) Register(s Skill) error {
	if s.Name == "" {
		return fmt.Errorf("skill has no name")
	}
	if s.Execute == nil {
		return fmt.Errorf("skill %q has no execution function", s.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.skills[s.Name]; exists {
		log.Printf("[skills] warning: replacing registered skill %q", s.Name)
	}
	r.skills[s.Name] = s
	return nil
}

// Get returns a registered skill by name.
func (r *Registry) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// List returns all registered skills sorted by name.
func (r *Registry) List() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke runs the named skill, consulting the cache first for cacheable
// skills and storing successful results afterwards. Cache failures are
// logged and ignored; the invocation proceeds without the cache benefit.
// Execution errors propagate unmodified; no retries happen here.
//
// Concurrent identical invocations are not deduplicated in flight, so a
// cacheable skill may execute more than once under contention.
func (r *Registry) Invoke(ctx context.Context, name string, input any, sctx SkillContext) (any, error) {
	skill, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	start := time.Now()

	if skill.Cacheable && r.cache != nil {
		hash, err := store.InputHash(name, input)
		if err != nil {
			log.Printf("[skills] warning: hashing input for %s: %v", name, err)
		} else {
			hit, err := r.cache.CheckCache(ctx, sctx.ProjectID, name, hash)
			if err != nil {
				log.Printf("[skills] warning: cache lookup for %s: %v", name, err)
			} else if hit != nil {
				r.emit(name, sctx, true, time.Since(start))
				return hit.Payload, nil
			}
		}
	}

	output, err := skill.Execute(ctx, input, sctx)
	if err != nil {
		log.Printf("[skills] skill %s failed: %v", name, err)
		return nil, err
	}

	if skill.Cacheable && r.cache != nil {
		if _, err := r.cache.CacheResult(ctx, sctx.ProjectID, name, input, output, skill.TTL); err != nil {
			log.Printf("[skills] warning: caching result for %s: %v", name, err)
		}
	}

	r.emit(name, sctx, false, time.Since(start))
	return output, nil
}

func (r *Registry) emit(name string, sctx SkillContext, cached bool, elapsed time.Duration) {
	if r.bus == nil {
		return
	}
	r.bus.Emit(events.PostSkillCall, map[string]any{
		"skill":    name,
		"handler":  sctx.Handler,
		"session":  sctx.SessionID,
		"project":  sctx.ProjectID,
		"cached":   cached,
		"duration": elapsed.String(),
	})
}
