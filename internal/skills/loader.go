package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/reflex/internal/exec"
)

// Manifest is the on-disk YAML description of a command-backed skill.
type Manifest struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	Cacheable    bool           `yaml:"cacheable"`
	TTLSeconds   int64          `yaml:"ttl_seconds"`
	Command      string         `yaml:"command"`
	WorkDir      string         `yaml:"work_dir"`
	InputSchema  map[string]any `yaml:"input_schema"`
	OutputSchema map[string]any `yaml:"output_schema"`
}

// LoadManifest parses one skill manifest file.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest

	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest %s: %w", filepath.Base(path), err)
	}
	if m.Name == "" {
		return m, fmt.Errorf("manifest %s has no name", filepath.Base(path))
	}
	if m.Command == "" {
		return m, fmt.Errorf("manifest %s has no command", filepath.Base(path))
	}
	return m, nil
}

// LoadDir reads every .yaml/.yml manifest in dir and registers a
// command-backed skill for each. Returns the names registered.
// A missing directory is not an error; it just registers nothing.
func LoadDir(dir string, registry *Registry, runner exec.CommandRunner) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skills directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		m, err := LoadManifest(filepath.Join(dir, entry.Name()))
		if err != nil {
			return names, err
		}
		if err := registry.Register(FromManifest(m, runner)); err != nil {
			return names, err
		}
		names = append(names, m.Name)
	}
	return names, nil
}

// FromManifest builds a skill whose execution function runs the manifest's
// shell command. The invocation input is passed as a single JSON argument
// appended to the command line; stdout is parsed as JSON when possible and
// returned as a plain string otherwise.
func FromManifest(m Manifest, runner exec.CommandRunner) Skill {
	return Skill{
		Name:         m.Name,
		Description:  m.Description,
		InputSchema:  m.InputSchema,
		OutputSchema: m.OutputSchema,
		Cacheable:    m.Cacheable,
		TTL:          time.Duration(m.TTLSeconds) * time.Second,
		Execute: func(ctx context.Context, input any, _ SkillContext) (any, error) {
			inputJSON, err := json.Marshal(input)
			if err != nil {
				return nil, fmt.Errorf("encode input for %s: %w", m.Name, err)
			}

			command := m.Command + " " + shellQuote(string(inputJSON))
			out, err := runner.RunShell(ctx, m.WorkDir, command)
			if err != nil {
				return nil, fmt.Errorf("skill %s: %w: %s", m.Name, err, strings.TrimSpace(string(out)))
			}

			trimmed := strings.TrimSpace(string(out))
			var parsed any
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				return parsed, nil
			}
			return trimmed, nil
		},
	}
}

// shellQuote wraps s in single quotes, escaping embedded single quotes, so it
// survives "sh -c" as one argument.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
