package skills

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/reflex/internal/embed"
	"github.com/ShayCichocki/reflex/internal/events"
	"github.com/ShayCichocki/reflex/internal/store"
)

func newTestCache(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "cache.db"), embed.NewLocalEmbedder(64))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInvoke_UnknownSkill(t *testing.T) {
	r := NewRegistry(nil, nil)

	_, err := r.Invoke(context.Background(), "no-such-skill", nil, SkillContext{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRegister_ReplacesInPlace(t *testing.T) {
	r := NewRegistry(nil, nil)

	mk := func(desc string) Skill {
		return Skill{
			Name:        "search",
			Description: desc,
			Execute:     func(context.Context, any, SkillContext) (any, error) { return nil, nil },
		}
	}
	if err := r.Register(mk("first")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := r.Register(mk("second")); err != nil {
		t.Fatalf("re-register failed: %v", err)
	}

	s, ok := r.Get("search")
	if !ok {
		t.Fatal("skill not found after re-registration")
	}
	if s.Description != "second" {
		t.Errorf("description = %q, want the replacement", s.Description)
	}
	if len(r.List()) != 1 {
		t.Errorf("registry has %d skills, want 1", len(r.List()))
	}
}

func TestInvoke_CacheableExecutesOnce(t *testing.T) {
	r := NewRegistry(newTestCache(t), nil)

	executions := 0
	r.Register(Skill{
		Name:      "web-search",
		Cacheable: true,
		TTL:       time.Hour,
		Execute: func(_ context.Context, input any, _ SkillContext) (any, error) {
			executions++
			return map[string]any{"answer": "rain"}, nil
		},
	})

	sctx := SkillContext{ProjectID: "proj", Handler: "researcher"}
	input := map[string]any{"query": "weather in oslo"}

	first, err := r.Invoke(context.Background(), "web-search", input, sctx)
	if err != nil {
		t.Fatalf("first invoke failed: %v", err)
	}
	second, err := r.Invoke(context.Background(), "web-search", input, sctx)
	if err != nil {
		t.Fatalf("second invoke failed: %v", err)
	}

	if executions != 1 {
		t.Errorf("skill executed %d times, want 1", executions)
	}
	firstOut := first.(map[string]any)
	secondOut := second.(map[string]any)
	if firstOut["answer"] != secondOut["answer"] {
		t.Errorf("cached output %v differs from original %v", secondOut, firstOut)
	}
}

func TestInvoke_NonCacheableAlwaysExecutes(t *testing.T) {
	r := NewRegistry(newTestCache(t), nil)

	executions := 0
	r.Register(Skill{
		Name: "current-time",
		Execute: func(context.Context, any, SkillContext) (any, error) {
			executions++
			return executions, nil
		},
	})

	for i := 0; i < 3; i++ {
		if _, err := r.Invoke(context.Background(), "current-time", nil, SkillContext{ProjectID: "proj"}); err != nil {
			t.Fatalf("invoke failed: %v", err)
		}
	}
	if executions != 3 {
		t.Errorf("skill executed %d times, want 3", executions)
	}
}

func TestInvoke_ExecutionErrorPropagates(t *testing.T) {
	cache := newTestCache(t)
	r := NewRegistry(cache, nil)

	boom := errors.New("upstream API unavailable")
	r.Register(Skill{
		Name:      "web-search",
		Cacheable: true,
		Execute: func(context.Context, any, SkillContext) (any, error) {
			return nil, boom
		},
	})

	_, err := r.Invoke(context.Background(), "web-search", "q", SkillContext{ProjectID: "proj"})
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want the execution error unmodified", err)
	}

	// A failed execution must not be cached.
	hash, _ := store.InputHash("web-search", "q")
	hit, _ := cache.CheckCache(context.Background(), "proj", "web-search", hash)
	if hit != nil {
		t.Error("failed execution left a cache entry")
	}
}

type failingCache struct{}

func (failingCache) CheckCache(context.Context, string, string, string) (*store.CacheHit, error) {
	return nil, errors.New("database is locked")
}

func (failingCache) CacheResult(context.Context, string, string, any, any, time.Duration) (string, error) {
	return "", errors.New("database is locked")
}

func TestInvoke_CacheFailureIsNonFatal(t *testing.T) {
	r := NewRegistry(failingCache{}, nil)

	r.Register(Skill{
		Name:      "web-search",
		Cacheable: true,
		Execute: func(context.Context, any, SkillContext) (any, error) {
			return "rain", nil
		},
	})

	out, err := r.Invoke(context.Background(), "web-search", "oslo", SkillContext{ProjectID: "proj"})
	if err != nil {
		t.Fatalf("invoke failed despite cache being best-effort: %v", err)
	}
	if out != "rain" {
		t.Errorf("output = %v, want rain", out)
	}
}

func TestInvoke_EmitsPostSkillCall(t *testing.T) {
	bus := events.NewBus()
	r := NewRegistry(nil, bus)

	var got map[string]any
	bus.Register(events.PostSkillCall, func(data map[string]any) error {
		got = data
		return nil
	})

	r.Register(Skill{
		Name:    "echo",
		Execute: func(_ context.Context, input any, _ SkillContext) (any, error) { return input, nil },
	})

	if _, err := r.Invoke(context.Background(), "echo", "hi", SkillContext{Handler: "coder", ProjectID: "proj"}); err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if got == nil {
		t.Fatal("post_skill_call event not emitted")
	}
	if got["skill"] != "echo" || got["handler"] != "coder" {
		t.Errorf("event data = %v", got)
	}
	if got["cached"] != false {
		t.Errorf("cached = %v, want false", got["cached"])
	}
	if got["project"] != "proj" {
		t.Errorf("project = %v, want proj", got["project"])
	}
	if ts, _ := got["timestamp"].(string); ts == "" {
		t.Errorf("payload has no timestamp: %v", got)
	}
}
