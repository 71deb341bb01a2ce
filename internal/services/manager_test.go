package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ShayCichocki/reflex/internal/exec"
)

// fakeProcess blocks in Wait until killed.
type fakeProcess struct {
	pid    int
	killed chan struct{}
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Wait() error {
	<-p.killed
	return errors.New("killed")
}

func (p *fakeProcess) Kill() error {
	close(p.killed)
	return nil
}

type fakeRunner struct {
	startErr error
	started  []string
}

func (f *fakeRunner) Run(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	return nil, nil
}

func (f *fakeRunner) RunShell(ctx context.Context, workDir, command string) ([]byte, error) {
	return nil, nil
}

func (f *fakeRunner) Start(ctx context.Context, workDir, name string, args ...string) (exec.Process, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, args[len(args)-1])
	return &fakeProcess{pid: 4242, killed: make(chan struct{})}, nil
}

func TestManager_StartAndStop(t *testing.T) {
	runner := &fakeRunner{}
	m := NewManager(runner)

	if err := m.Register(Service{Name: "qdrant", Command: "qdrant --storage-dir data"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := m.Start(context.Background(), "qdrant"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if st, _ := m.Status("qdrant"); st != StatusRunning {
		t.Errorf("status = %s, want running", st)
	}
	if len(runner.started) != 1 {
		t.Fatalf("started %d commands, want 1", len(runner.started))
	}

	// Starting again while running is a no-op.
	if err := m.Start(context.Background(), "qdrant"); err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if len(runner.started) != 1 {
		t.Errorf("second start launched another process")
	}

	if err := m.Stop("qdrant"); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if st, _ := m.Status("qdrant"); st != StatusStopped {
		t.Errorf("status after stop = %s, want stopped", st)
	}
}

func TestManager_StartFailureRecorded(t *testing.T) {
	m := NewManager(&fakeRunner{startErr: errors.New("binary not found")})

	m.Register(Service{Name: "qdrant", Command: "qdrant"})
	if err := m.Start(context.Background(), "qdrant"); err == nil {
		t.Fatal("expected start error")
	}
	if st, _ := m.Status("qdrant"); st != StatusError {
		t.Errorf("status = %s, want error", st)
	}
}

func TestManager_UnknownService(t *testing.T) {
	m := NewManager(&fakeRunner{})

	if err := m.Start(context.Background(), "ghost"); err == nil {
		t.Error("expected error for unknown service on Start")
	}
	if _, err := m.Status("ghost"); err == nil {
		t.Error("expected error for unknown service on Status")
	}
}

func TestManager_Snapshot(t *testing.T) {
	m := NewManager(&fakeRunner{})
	m.Register(Service{Name: "b-service", Command: "b"})
	m.Register(Service{Name: "a-service", Command: "a"})

	snap := m.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d entries, want 2", len(snap))
	}
	if snap[0].Service.Name != "a-service" || snap[1].Service.Name != "b-service" {
		t.Errorf("snapshot not sorted by name: %s, %s", snap[0].Service.Name, snap[1].Service.Name)
	}
	if snap[0].Status != StatusStopped {
		t.Errorf("initial status = %s, want stopped", snap[0].Status)
	}
}
