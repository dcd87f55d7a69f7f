package filequeue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/smartdispatch/smartdispatch/pkg/command"
	"github.com/smartdispatch/smartdispatch/pkg/lock"
	"github.com/smartdispatch/smartdispatch/pkg/queue"
	"github.com/smartdispatch/smartdispatch/pkg/queue/filequeue"
)

func newManager(t *testing.T) (*filequeue.Manager, string) {
	t.Helper()
	dir := t.TempDir()
	return filequeue.New(dir, lock.NewDirectoryLock(), zerolog.Nop()), dir
}

func TestSeedThenClaimAllThenComplete(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	seeded := []command.Command{"echo 1", "echo 2", "echo 3", "echo 4"}
	if err := m.Seed(ctx, seeded); err != nil {
		t.Fatal(err)
	}

	var claimedOrder []command.Command
	for {
		cmd, ok, err := m.Claim(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		claimedOrder = append(claimedOrder, cmd)
		if err := m.Complete(ctx, cmd, 0); err != nil {
			t.Fatal(err)
		}
	}

	if len(claimedOrder) != len(seeded) {
		t.Fatalf("claimed %d commands, want %d", len(claimedOrder), len(seeded))
	}
	for i, c := range claimedOrder {
		if c != seeded[i] {
			t.Fatalf("claim order mismatch at %d: got %q want %q", i, c, seeded[i])
		}
	}

	pending, err := m.CountPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 0 {
		t.Fatalf("expected 0 pending, got %d", pending)
	}
}

func TestCompleteRoutesByExitCode(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	if err := m.Seed(ctx, []command.Command{"will-fail", "will-pass"}); err != nil {
		t.Fatal(err)
	}

	cmd1, _, _ := m.Claim(ctx)
	cmd2, _, _ := m.Claim(ctx)

	if err := m.Complete(ctx, cmd1, 1); err != nil {
		t.Fatal(err)
	}
	if err := m.Complete(ctx, cmd2, 0); err != nil {
		t.Fatal(err)
	}

	failed, err := m.ListFailed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0] != cmd1 {
		t.Fatalf("expected failed queue to contain only %q, got %v", cmd1, failed)
	}
}

func TestResetRunningEmptiesRunningAndPrependsToPending(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	if err := m.Seed(ctx, []command.Command{"already-pending"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Seed(ctx, nil); err != nil { // no-op seed
		t.Fatal(err)
	}

	// Claim the pre-seeded command, leaving it in running.
	cmdA, ok, err := m.Claim(ctx)
	if err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	if cmdA != "already-pending" {
		t.Fatalf("unexpected claim order: %q", cmdA)
	}

	if err := m.Seed(ctx, []command.Command{"newly-pending"}); err != nil {
		t.Fatal(err)
	}

	if err := m.ResetRunning(ctx); err != nil {
		t.Fatal(err)
	}

	var order []command.Command
	for {
		cmd, ok, err := m.Claim(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		order = append(order, cmd)
	}

	want := []command.Command{"already-pending", "newly-pending"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("reset_running order mismatch: got %v, want %v", order, want)
		}
	}
}

func TestCompleteUnknownCommandReturnsErrNotRunning(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	err := m.Complete(ctx, "never claimed", 0)
	if !errors.Is(err, queue.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestRequeuePutsCommandBackInPending(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	if err := m.Seed(ctx, []command.Command{"interruptible"}); err != nil {
		t.Fatal(err)
	}
	cmd, _, _ := m.Claim(ctx)

	if err := m.Requeue(ctx, cmd); err != nil {
		t.Fatal(err)
	}

	pending, err := m.CountPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 1 {
		t.Fatalf("expected 1 pending after requeue, got %d", pending)
	}

	again, ok, err := m.Claim(ctx)
	if err != nil || !ok || again != cmd {
		t.Fatalf("expected to reclaim %q, got %q ok=%v err=%v", cmd, again, ok, err)
	}
}

func TestDuplicateCommandsAreDistinctTokens(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	if err := m.Seed(ctx, []command.Command{"dup", "dup"}); err != nil {
		t.Fatal(err)
	}
	pending, err := m.CountPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 2 {
		t.Fatalf("expected 2 pending duplicate entries, got %d", pending)
	}

	cmd1, _, _ := m.Claim(ctx)
	if err := m.Complete(ctx, cmd1, 0); err != nil {
		t.Fatal(err)
	}

	pending, err = m.CountPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 1 {
		t.Fatalf("completing one duplicate must leave exactly one pending, got %d", pending)
	}
}
