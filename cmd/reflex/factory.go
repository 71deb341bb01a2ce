package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/reflex/internal/config"
	"github.com/ShayCichocki/reflex/internal/embed"
	"github.com/ShayCichocki/reflex/internal/events"
	"github.com/ShayCichocki/reflex/internal/exec"
	"github.com/ShayCichocki/reflex/internal/llm"
	"github.com/ShayCichocki/reflex/internal/orchestrator"
	"github.com/ShayCichocki/reflex/internal/services"
	"github.com/ShayCichocki/reflex/internal/skills"
	"github.com/ShayCichocki/reflex/internal/state"
	"github.com/ShayCichocki/reflex/internal/store"
)

// runtime bundles everything a command needs to route tasks.
type runtime struct {
	cfg          *config.Config
	store        *store.Store
	skills       *skills.Registry
	orchestrator *orchestrator.Orchestrator
	watcher      *skills.Watcher
	state        *state.DB
	services     *services.Manager
}

// close releases the runtime's resources.
func (rt *runtime) close() {
	if rt.services != nil {
		rt.services.StopAll()
	}
	if rt.watcher != nil {
		rt.watcher.Close()
	}
	if rt.store != nil {
		rt.store.Close()
	}
	if rt.state != nil {
		rt.state.Close()
	}
}

// newEmbedder builds the embedder the config selects.
func newEmbedder(cfg *config.Config) embed.Embedder {
	if cfg.Embedding.Provider == "openai" {
		return embed.NewOpenAIEmbedder(embed.OpenAIConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	}
	return embed.NewLocalEmbedder(cfg.Embedding.Dimensions)
}

// newStore opens the cache store at the configured or global path.
func newStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.Cache.Path
	if path == "" {
		path = store.GlobalDBPath()
	}
	return store.New(path, newEmbedder(cfg))
}

// newRuntime wires the full routing stack from configuration. Optional
// pieces (LLM client, audit database, manifest watcher) degrade with a
// warning instead of failing startup.
func newRuntime(cfg *config.Config) (*runtime, error) {
	s, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	rt := &runtime{cfg: cfg, store: s}

	bus := events.NewBus()
	registry := skills.NewRegistry(s, bus)
	rt.skills = registry

	// LLM completion skill, when credentials are available.
	client, err := llm.NewClient(llm.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.Bedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		log.Printf("[reflex] warning: completion skill unavailable: %v", err)
	} else {
		registry.Register(llm.NewCompletionSkill(client))
	}

	// Auxiliary services (local vector DBs, embedding servers). Failures are
	// non-fatal; routing proceeds without them.
	runner := exec.NewRunner()
	if len(cfg.Services) > 0 {
		manager := services.NewManager(runner)
		for _, sc := range cfg.Services {
			if err := manager.Register(services.Service{
				Name:    sc.Name,
				Command: sc.Command,
				WorkDir: sc.WorkDir,
			}); err != nil {
				log.Printf("[reflex] warning: registering service %s: %v", sc.Name, err)
				continue
			}
			if sc.AutoStart {
				if err := manager.Start(context.Background(), sc.Name); err != nil {
					log.Printf("[reflex] warning: starting service %s: %v", sc.Name, err)
				}
			}
		}
		rt.services = manager
	}

	// Manifest-backed skills.
	if cfg.Skills.Dir != "" {
		if cfg.Skills.Watch {
			watcher, err := skills.Watch(cfg.Skills.Dir, registry, runner)
			if err != nil {
				log.Printf("[reflex] warning: watching skill manifests: %v", err)
			} else {
				rt.watcher = watcher
			}
		} else if _, err := skills.LoadDir(cfg.Skills.Dir, registry, runner); err != nil {
			log.Printf("[reflex] warning: loading skill manifests: %v", err)
		}
	}

	agents := orchestrator.NewAgentRegistry()
	if err := orchestrator.RegisterDefaultAgents(agents); err != nil {
		rt.close()
		return nil, fmt.Errorf("register handlers: %w", err)
	}

	db, err := state.OpenGlobal()
	if err != nil {
		log.Printf("[reflex] warning: audit database unavailable: %v", err)
	} else {
		rt.state = db
	}

	o, err := orchestrator.New(orchestrator.Options{
		Router:      routerFromConfig(cfg),
		Agents:      agents,
		Skills:      registry,
		Store:       s,
		Bus:         bus,
		State:       rt.state,
		Services:    rt.services,
		MaxDepth:    cfg.Routing.MaxDepth,
		StepTimeout: cfg.Routing.StepTimeout,
	})
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.orchestrator = o

	return rt, nil
}

// routerFromConfig builds the router, preferring configured rules over the
// built-in table.
func routerFromConfig(cfg *config.Config) *orchestrator.Router {
	fallback := cfg.Routing.DefaultHandler
	if fallback == "" {
		fallback = orchestrator.DefaultFallback
	}

	if len(cfg.Routing.Rules) == 0 {
		return orchestrator.NewRouter(orchestrator.DefaultRules, fallback)
	}

	rules := make([]orchestrator.Rule, 0, len(cfg.Routing.Rules))
	for _, r := range cfg.Routing.Rules {
		rules = append(rules, orchestrator.Rule{Handler: r.Handler, Keywords: r.Keywords})
	}
	return orchestrator.NewRouter(rules, fallback)
}

// loadConfig loads config and applies flag-level overrides shared by
// commands.
func loadConfig(stepTimeout time.Duration, maxDepth int) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if stepTimeout > 0 {
		cfg.Routing.StepTimeout = stepTimeout
	}
	if maxDepth > 0 {
		cfg.Routing.MaxDepth = maxDepth
	}
	return cfg, nil
}
