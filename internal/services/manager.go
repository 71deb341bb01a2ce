// Package services tracks auxiliary long-lived processes (local vector
// databases, embedding servers) that skills and the cache may depend on.
// Starting a service is best-effort: a service that fails to come up is
// recorded as errored, and callers degrade rather than abort.
package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/ShayCichocki/reflex/internal/exec"
)

// Status of a tracked service.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusError    Status = "error"
)

// Service describes an auxiliary process.
type Service struct {
	// Name uniquely identifies the service.
	Name string
	// Command is the shell command that starts it.
	Command string
	// WorkDir is the directory to start it in; empty means inherit.
	WorkDir string
}

// State is a point-in-time snapshot of one tracked service.
type State struct {
	Service Service
	Status  Status
	PID     int
	Err     error
}

type tracked struct {
	svc    Service
	status Status
	proc   exec.Process
	err    error
}

// Manager starts and tracks auxiliary services. Safe for concurrent use.
type Manager struct {
	runner   exec.CommandRunner
	mu       sync.RWMutex
	services map[string]*tracked
}

// NewManager creates a manager that starts services through runner.
func NewManager(runner exec.CommandRunner) *Manager {
	return &Manager{
		runner:   runner,
		services: make(map[string]*tracked),
	}
}

// Register adds a service in the stopped state. Registering the same name
// again replaces the definition but keeps the current status.
func (m *Manager) Register(svc Service) error {
	if svc.Name == "" {
		return fmt.Errorf("service has no name")
	}
	if svc.Command == "" {
		return fmt.Errorf("service %q has no command", svc.Name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.services[svc.Name]; ok {
		existing.svc = svc
		return nil
	}
	m.services[svc.Name] = &tracked{svc: svc, status: StatusStopped}
	return nil
}

// Start launches a registered service if it is not already running. The exit
// of the process is watched in the background; an early exit moves the
// service to the error state.
func (m *Manager) Start(ctx context.Context, name string) error {
	m.mu.Lock()
	t, ok := m.services[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown service %q", name)
	}
	if t.status == StatusRunning || t.status == StatusStarting {
		m.mu.Unlock()
		return nil
	}
	t.status = StatusStarting
	t.err = nil
	svc := t.svc
	m.mu.Unlock()

	proc, err := m.runner.Start(ctx, svc.WorkDir, "sh", "-c", svc.Command)
	if err != nil {
		m.setError(name, err)
		return fmt.Errorf("start service %s: %w", name, err)
	}

	m.mu.Lock()
	t.proc = proc
	t.status = StatusRunning
	m.mu.Unlock()

	go func() {
		err := proc.Wait()
		m.mu.Lock()
		defer m.mu.Unlock()
		if t.status != StatusRunning {
			// Stopped deliberately; Wait just reaped it.
			return
		}
		if err != nil {
			log.Printf("[services] warning: service %s exited: %v", name, err)
			t.status = StatusError
			t.err = err
		} else {
			t.status = StatusStopped
		}
		t.proc = nil
	}()

	return nil
}

// Stop kills a running service.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.services[name]
	if !ok {
		return fmt.Errorf("unknown service %q", name)
	}
	if t.proc == nil {
		t.status = StatusStopped
		return nil
	}

	proc := t.proc
	t.proc = nil
	t.status = StatusStopped
	return proc.Kill()
}

// StopAll kills every running service. Used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		if err := m.Stop(name); err != nil {
			log.Printf("[services] warning: stopping %s: %v", name, err)
		}
	}
}

// Status returns the current status of one service.
func (m *Manager) Status(name string) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.services[name]
	if !ok {
		return "", fmt.Errorf("unknown service %q", name)
	}
	return t.status, nil
}

// Snapshot returns the state of every tracked service, sorted by name.
func (m *Manager) Snapshot() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]State, 0, len(m.services))
	for _, t := range m.services {
		st := State{Service: t.svc, Status: t.status, Err: t.err}
		if t.proc != nil {
			st.PID = t.proc.Pid()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service.Name < out[j].Service.Name })
	return out
}

func (m *Manager) setError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.services[name]; ok {
		t.status = StatusError
		t.err = err
	}
}
