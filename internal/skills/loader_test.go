package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/reflex/internal/exec"
)

// fakeRunner records the last shell command and returns canned output.
type fakeRunner struct {
	lastCommand string
	output      string
}

func (f *fakeRunner) Run(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	return []byte(f.output), nil
}

func (f *fakeRunner) RunShell(ctx context.Context, workDir, command string) ([]byte, error) {
	f.lastCommand = command
	return []byte(f.output), nil
}

func (f *fakeRunner) Start(ctx context.Context, workDir, name string, args ...string) (exec.Process, error) {
	return nil, nil
}

const manifestYAML = `name: grep-todos
description: list TODO comments in the tree
cacheable: true
ttl_seconds: 600
command: grep -rn TODO .
`

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "grep.yaml", manifestYAML)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if m.Name != "grep-todos" {
		t.Errorf("name = %q", m.Name)
	}
	if !m.Cacheable || m.TTLSeconds != 600 {
		t.Errorf("cacheable/ttl = %v/%d, want true/600", m.Cacheable, m.TTLSeconds)
	}
}

func TestLoadManifest_RejectsIncomplete(t *testing.T) {
	dir := t.TempDir()

	noName := writeManifest(t, dir, "a.yaml", "command: ls\n")
	if _, err := LoadManifest(noName); err == nil {
		t.Error("expected error for manifest without a name")
	}

	noCommand := writeManifest(t, dir, "b.yaml", "name: lister\n")
	if _, err := LoadManifest(noCommand); err == nil {
		t.Error("expected error for manifest without a command")
	}
}

func TestLoadDir_RegistersSkills(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "grep.yaml", manifestYAML)
	writeManifest(t, dir, "notes.txt", "not a manifest")

	r := NewRegistry(nil, nil)
	names, err := LoadDir(dir, r, &fakeRunner{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(names) != 1 || names[0] != "grep-todos" {
		t.Errorf("names = %v, want [grep-todos]", names)
	}

	s, ok := r.Get("grep-todos")
	if !ok {
		t.Fatal("skill not registered")
	}
	if s.TTL != 10*time.Minute {
		t.Errorf("TTL = %v, want 10m", s.TTL)
	}
}

func TestLoadDir_MissingDirIsEmpty(t *testing.T) {
	r := NewRegistry(nil, nil)
	names, err := LoadDir(filepath.Join(t.TempDir(), "does-not-exist"), r, &fakeRunner{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v, want none", names)
	}
}

func TestFromManifest_PassesInputAndParsesJSON(t *testing.T) {
	runner := &fakeRunner{output: `{"matches": 3}`}
	s := FromManifest(Manifest{Name: "grep-todos", Command: "grep -rn TODO ."}, runner)

	out, err := s.Execute(context.Background(), map[string]any{"path": "src"}, SkillContext{})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	parsed, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("output type = %T, want decoded JSON map", out)
	}
	if parsed["matches"] != float64(3) {
		t.Errorf("matches = %v, want 3", parsed["matches"])
	}
	if want := `grep -rn TODO . '{"path":"src"}'`; runner.lastCommand != want {
		t.Errorf("command = %q, want %q", runner.lastCommand, want)
	}
}

func TestFromManifest_PlainTextOutput(t *testing.T) {
	runner := &fakeRunner{output: "no todos found\n"}
	s := FromManifest(Manifest{Name: "grep-todos", Command: "grep -rn TODO ."}, runner)

	out, err := s.Execute(context.Background(), nil, SkillContext{})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out != "no todos found" {
		t.Errorf("output = %q, want trimmed plain text", out)
	}
}

func TestWatch_ReloadsOnManifestChange(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "grep.yaml", manifestYAML)

	r := NewRegistry(nil, nil)
	w, err := Watch(dir, r, &fakeRunner{})
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer w.Close()

	if _, ok := r.Get("grep-todos"); !ok {
		t.Fatal("initial load did not register skill")
	}

	writeManifest(t, dir, "echo.yaml", "name: echo\ncommand: echo\n")

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := r.Get("echo"); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("new manifest was not picked up")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
