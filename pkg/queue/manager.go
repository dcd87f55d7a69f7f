package queue

import (
	"context"
	"errors"

	"github.com/smartdispatch/smartdispatch/pkg/command"
)

var (
	// ErrNotRunning is returned by Complete or Requeue when the given
	// command is not present in the running queue.
	ErrNotRunning = errors.New("queue: command not running")
)

// Manager is the Command Manager's storage-agnostic contract. Every
// command seeded into a Manager occupies exactly one of its four queues
// at any instant observable under the Lock Provider (spec invariant P1).
//
// Transitions are pending -> running -> finished, pending -> running ->
// failed, and running -> pending (graceful interrupt or explicit
// resume-reset). No other transition is legal.
type Manager interface {
	// Seed appends commands to the pending queue. It never reorders
	// existing entries and performs no de-duplication: the caller owns
	// that.
	Seed(ctx context.Context, commands []command.Command) error

	// Claim atomically pops the first line of pending and appends it to
	// running. It returns ok == false if pending is empty.
	Claim(ctx context.Context) (cmd command.Command, ok bool, err error)

	// Complete removes the first occurrence of cmd from running and
	// appends it to finished (exitCode == 0) or failed (otherwise).
	// Returns ErrNotRunning if cmd is not present in running.
	Complete(ctx context.Context, cmd command.Command, exitCode int) error

	// Requeue removes cmd from running and appends it back to pending.
	// Used by a worker being gracefully terminated whose interrupted
	// child exited with a non-zero code (a child that exited with 0 is
	// completed instead). Returns ErrNotRunning if cmd is not present
	// in running.
	Requeue(ctx context.Context, cmd command.Command) error

	// ResetRunning prepends every line currently in running to the head
	// of pending, in running's original order, then truncates running.
	// Used by resume, before any new worker starts.
	ResetRunning(ctx context.Context) error

	// CountPending returns a read-only snapshot of the number of
	// pending commands.
	CountPending(ctx context.Context) (int, error)

	// ListFailed returns a read-only snapshot of the failed queue.
	ListFailed(ctx context.Context) ([]command.Command, error)
}
