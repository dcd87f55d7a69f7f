package worker_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/smartdispatch/smartdispatch/pkg/command"
	"github.com/smartdispatch/smartdispatch/pkg/queue"
	"github.com/smartdispatch/smartdispatch/pkg/worker"
)

// fakeManager is an in-memory queue.Manager double, sufficient to drive
// Worker.Run without touching the filesystem-backed implementation.
type fakeManager struct {
	mu       sync.Mutex
	pending  []command.Command
	running  []command.Command
	finished []command.Command
	failed   []command.Command
	requeued []command.Command
}

func newFakeManager(commands ...command.Command) *fakeManager {
	return &fakeManager{pending: commands}
}

func (m *fakeManager) Seed(ctx context.Context, commands []command.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, commands...)
	return nil
}

func (m *fakeManager) Claim(ctx context.Context) (command.Command, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return "", false, nil
	}
	cmd := m.pending[0]
	m.pending = m.pending[1:]
	m.running = append(m.running, cmd)
	return cmd, true, nil
}

func (m *fakeManager) Complete(ctx context.Context, cmd command.Command, exitCode int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !removeCmd(&m.running, cmd) {
		return queue.ErrNotRunning
	}
	if exitCode == 0 {
		m.finished = append(m.finished, cmd)
	} else {
		m.failed = append(m.failed, cmd)
	}
	return nil
}

func (m *fakeManager) Requeue(ctx context.Context, cmd command.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !removeCmd(&m.running, cmd) {
		return queue.ErrNotRunning
	}
	m.requeued = append(m.requeued, cmd)
	m.pending = append(m.pending, cmd)
	return nil
}

func (m *fakeManager) ResetRunning(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.running, m.pending...)
	m.running = nil
	return nil
}

func (m *fakeManager) CountPending(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending), nil
}

func (m *fakeManager) ListFailed(ctx context.Context) ([]command.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed, nil
}

func removeCmd(list *[]command.Command, cmd command.Command) bool {
	for i, c := range *list {
		if c == cmd {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

var _ queue.Manager = (*fakeManager)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunDrainsPendingCommandsAndExitsCleanly(t *testing.T) {
	logsDir := t.TempDir()
	m := newFakeManager("echo one", "exit 3", "echo two")
	w := worker.New(m, worker.Config{LogsDir: logsDir, JobID: "123.server", Hostname: "node01"}, testLogger())

	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(m.finished) != 2 {
		t.Fatalf("got %d finished, want 2", len(m.finished))
	}
	if len(m.failed) != 1 || m.failed[0] != "exit 3" {
		t.Fatalf("got failed=%v, want [exit 3]", m.failed)
	}
	if len(m.pending) != 0 || len(m.running) != 0 {
		t.Fatalf("expected queue drained, got pending=%v running=%v", m.pending, m.running)
	}
}

func TestRunWritesBannerAndOutputToLogFiles(t *testing.T) {
	logsDir := t.TempDir()
	cmd := command.Command("echo hello-world")
	m := newFakeManager(cmd)
	w := worker.New(m, worker.Config{LogsDir: logsDir, JobID: "42.server", Hostname: "node07"}, testLogger())

	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(logsDir, cmd.UID()+".out")
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "SMART-DISPATCH - Started on:") {
		t.Fatalf("missing Started banner: %q", text)
	}
	if !strings.Contains(text, "In job: 42.server") {
		t.Fatalf("missing job id in banner: %q", text)
	}
	if !strings.Contains(text, "On nodes: node07") {
		t.Fatalf("missing hostname in banner: %q", text)
	}
	if !strings.Contains(text, "SMART-DISPATCH - Command: echo hello-world") {
		t.Fatalf("missing command banner: %q", text)
	}
	if !strings.Contains(text, "hello-world") {
		t.Fatalf("missing command output: %q", text)
	}
}

func TestRunDetectsResumeFromExistingLogFile(t *testing.T) {
	logsDir := t.TempDir()
	cmd := command.Command("echo again")

	outPath := filepath.Join(logsDir, cmd.UID()+".out")
	if err := os.WriteFile(outPath, []byte("## pre-existing content from a prior run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := newFakeManager(cmd)
	w := worker.New(m, worker.Config{LogsDir: logsDir, JobID: "1.server", Hostname: "node01"}, testLogger())
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Resumed on:") {
		t.Fatalf("expected Resumed banner, got %q", data)
	}
}

func TestRunWithEmptyQueueExitsImmediately(t *testing.T) {
	logsDir := t.TempDir()
	m := newFakeManager()
	w := worker.New(m, worker.Config{LogsDir: logsDir}, testLogger())
	if err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
}
