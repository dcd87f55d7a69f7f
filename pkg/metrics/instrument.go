package metrics

import (
	"context"
	"time"

	"github.com/smartdispatch/smartdispatch/pkg/command"
	"github.com/smartdispatch/smartdispatch/pkg/lock"
	"github.com/smartdispatch/smartdispatch/pkg/queue"
)

// instrumentedManager decorates a queue.Manager so every Claim/Complete/
// Requeue call updates the package's Commands* metrics, labeled by the
// batch they belong to.
type instrumentedManager struct {
	queue.Manager
	batchUID string
	claimed  map[string]time.Time
}

// InstrumentManager wraps m so its Claim/Complete/Requeue calls are
// reflected in CommandsRunning, CommandsFinishedTotal,
// CommandsFailedTotal, CommandsRequeuedTotal and CommandDuration,
// labeled by batchUID.
func InstrumentManager(m queue.Manager, batchUID string) queue.Manager {
	return &instrumentedManager{Manager: m, batchUID: batchUID, claimed: make(map[string]time.Time)}
}

func (im *instrumentedManager) Claim(ctx context.Context) (command.Command, bool, error) {
	cmd, ok, err := im.Manager.Claim(ctx)
	if err != nil || !ok {
		return cmd, ok, err
	}
	im.claimed[cmd.UID()] = time.Now()
	CommandsRunning.WithLabelValues(im.batchUID).Inc()
	return cmd, ok, nil
}

func (im *instrumentedManager) Complete(ctx context.Context, cmd command.Command, exitCode int) error {
	err := im.Manager.Complete(ctx, cmd, exitCode)
	if err != nil {
		return err
	}
	im.observeDone(cmd, exitCode == 0)
	return nil
}

func (im *instrumentedManager) Requeue(ctx context.Context, cmd command.Command) error {
	err := im.Manager.Requeue(ctx, cmd)
	if err != nil {
		return err
	}
	CommandsRunning.WithLabelValues(im.batchUID).Dec()
	CommandsRequeuedTotal.WithLabelValues(im.batchUID).Inc()
	delete(im.claimed, cmd.UID())
	return nil
}

func (im *instrumentedManager) observeDone(cmd command.Command, success bool) {
	CommandsRunning.WithLabelValues(im.batchUID).Dec()
	if success {
		CommandsFinishedTotal.WithLabelValues(im.batchUID).Inc()
	} else {
		CommandsFailedTotal.WithLabelValues(im.batchUID).Inc()
	}
	if startedAt, ok := im.claimed[cmd.UID()]; ok {
		CommandDuration.WithLabelValues(im.batchUID).Observe(time.Since(startedAt).Seconds())
		delete(im.claimed, cmd.UID())
	}
}

// instrumentedProvider decorates a lock.Provider so every Lock call
// records its wait time in LockWaitDuration.
type instrumentedProvider struct {
	lock.Provider
}

// InstrumentLockProvider wraps p so the time spent inside Lock (the
// retry/backoff loop of the underlying strategy) is observed by
// LockWaitDuration.
func InstrumentLockProvider(p lock.Provider) lock.Provider {
	return instrumentedProvider{Provider: p}
}

func (p instrumentedProvider) Lock(path string) (lock.Handle, error) {
	timer := NewTimer()
	h, err := p.Provider.Lock(path)
	timer.ObserveDuration(LockWaitDuration)
	return h, err
}
