package filequeue

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/smartdispatch/smartdispatch/pkg/command"
	"github.com/smartdispatch/smartdispatch/pkg/lock"
	"github.com/smartdispatch/smartdispatch/pkg/queue"
)

const (
	pendingFile  = "commands.txt"
	runningFile  = "running_commands.txt"
	finishedFile = "finished_commands.txt"
	failedFile   = "failed_commands.txt"
)

// Manager implements queue.Manager over the four flat files living under
// dir (normally <batch>/commands/).
type Manager struct {
	dir      string
	provider lock.Provider
	log      zerolog.Logger
}

// New returns a file-backed Manager rooted at dir, using provider for
// every locked read-modify-write window.
func New(dir string, provider lock.Provider, log zerolog.Logger) *Manager {
	return &Manager{dir: dir, provider: provider, log: log}
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name)
}

// Seed implements queue.Manager.
func (m *Manager) Seed(ctx context.Context, commands []command.Command) error {
	if len(commands) == 0 {
		return nil
	}
	path := m.path(pendingFile)
	return lock.WithLock(m.provider, path, func() error {
		lines, err := readLines(path)
		if err != nil {
			return fmt.Errorf("filequeue: seed: read %s: %w", path, err)
		}
		for _, c := range commands {
			lines = append(lines, string(c))
		}
		if err := writeLines(path, lines); err != nil {
			return fmt.Errorf("filequeue: seed: write %s: %w", path, err)
		}
		m.log.Info().Int("count", len(commands)).Msg("seeded commands")
		return nil
	})
}

// Claim implements queue.Manager.
func (m *Manager) Claim(ctx context.Context) (command.Command, bool, error) {
	pendingPath := m.path(pendingFile)
	var claimed string
	var found bool

	err := lock.WithLock(m.provider, pendingPath, func() error {
		lines, err := readLines(pendingPath)
		if err != nil {
			return fmt.Errorf("filequeue: claim: read %s: %w", pendingPath, err)
		}
		if len(lines) == 0 {
			return nil
		}
		claimed = lines[0]
		found = true
		if err := writeLines(pendingPath, lines[1:]); err != nil {
			return fmt.Errorf("filequeue: claim: write %s: %w", pendingPath, err)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	runningPath := m.path(runningFile)
	err = lock.WithLock(m.provider, runningPath, func() error {
		if err := appendLine(runningPath, claimed); err != nil {
			return fmt.Errorf("filequeue: claim: append %s: %w", runningPath, err)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	m.log.Debug().Str("uid", command.Command(claimed).UID()).Msg("claimed command")
	return command.Command(claimed), true, nil
}

// Complete implements queue.Manager.
func (m *Manager) Complete(ctx context.Context, cmd command.Command, exitCode int) error {
	destination := finishedFile
	if exitCode != 0 {
		destination = failedFile
	}
	if err := m.moveFromRunning(string(cmd), destination); err != nil {
		return fmt.Errorf("filequeue: complete: %w", err)
	}
	m.log.Info().Str("uid", cmd.UID()).Int("exit_code", exitCode).Str("destination", destination).Msg("command completed")
	return nil
}

// Requeue implements queue.Manager.
func (m *Manager) Requeue(ctx context.Context, cmd command.Command) error {
	if err := m.moveFromRunning(string(cmd), pendingFile); err != nil {
		return fmt.Errorf("filequeue: requeue: %w", err)
	}
	m.log.Info().Str("uid", cmd.UID()).Msg("command requeued")
	return nil
}

// moveFromRunning implements the move primitive: remove the first
// occurrence of target from running under running's lock, then append
// it to destination under destination's own, independently acquired
// lock.
func (m *Manager) moveFromRunning(target, destination string) error {
	runningPath := m.path(runningFile)
	var removed bool

	err := lock.WithLock(m.provider, runningPath, func() error {
		lines, err := readLines(runningPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", runningPath, err)
		}
		lines, removed = removeFirst(lines, target)
		if !removed {
			return nil
		}
		return writeLines(runningPath, lines)
	})
	if err != nil {
		return err
	}
	if !removed {
		return queue.ErrNotRunning
	}

	destPath := m.path(destination)
	return lock.WithLock(m.provider, destPath, func() error {
		if err := appendLine(destPath, target); err != nil {
			return fmt.Errorf("append %s: %w", destPath, err)
		}
		return nil
	})
}

// ResetRunning implements queue.Manager.
func (m *Manager) ResetRunning(ctx context.Context) error {
	runningPath := m.path(runningFile)
	var toRequeue []string

	err := lock.WithLock(m.provider, runningPath, func() error {
		lines, err := readLines(runningPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", runningPath, err)
		}
		toRequeue = lines
		return writeLines(runningPath, nil)
	})
	if err != nil {
		return fmt.Errorf("filequeue: reset_running: %w", err)
	}
	if len(toRequeue) == 0 {
		return nil
	}

	pendingPath := m.path(pendingFile)
	err = lock.WithLock(m.provider, pendingPath, func() error {
		existing, err := readLines(pendingPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", pendingPath, err)
		}
		merged := make([]string, 0, len(toRequeue)+len(existing))
		merged = append(merged, toRequeue...)
		merged = append(merged, existing...)
		return writeLines(pendingPath, merged)
	})
	if err != nil {
		return fmt.Errorf("filequeue: reset_running: %w", err)
	}
	m.log.Info().Int("count", len(toRequeue)).Msg("reset running commands to pending")
	return nil
}

// CountPending implements queue.Manager.
func (m *Manager) CountPending(ctx context.Context) (int, error) {
	path := m.path(pendingFile)
	var count int
	err := lock.WithLock(m.provider, path, func() error {
		lines, err := readLines(path)
		if err != nil {
			return err
		}
		count = len(lines)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("filequeue: count_pending: %w", err)
	}
	return count, nil
}

// ListFailed implements queue.Manager.
func (m *Manager) ListFailed(ctx context.Context) ([]command.Command, error) {
	path := m.path(failedFile)
	var lines []string
	err := lock.WithLock(m.provider, path, func() error {
		var err error
		lines, err = readLines(path)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("filequeue: list_failed: %w", err)
	}
	out := make([]command.Command, len(lines))
	for i, l := range lines {
		out[i] = command.Command(l)
	}
	return out, nil
}

var _ queue.Manager = (*Manager)(nil)
