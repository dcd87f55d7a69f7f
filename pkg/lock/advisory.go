package lock

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// AdvisoryMaxAttempts bounds how many times the advisory strategy will
// reopen and retry after an EDEADLK from the kernel's lock manager.
const AdvisoryMaxAttempts = 1000

// AdvisoryRetryBackoff is the fixed sleep between EDEADLK retries. At
// AdvisoryMaxAttempts attempts this bounds total wait time to roughly 15
// minutes, matching spec §4.A.
const AdvisoryRetryBackoff = 900 * time.Millisecond

// AdvisoryLock takes an exclusive whole-file flock(2). It blocks on
// contention and only gives up on repeated EDEADLK from the kernel,
// which it treats as transient: close, back off, reopen, retry.
type AdvisoryLock struct{}

// NewAdvisoryLock returns the flock(2)-based Provider, preferred on
// filesystems that honor a global (not node-local) advisory lock.
func NewAdvisoryLock() *AdvisoryLock {
	return &AdvisoryLock{}
}

type advisoryHandle struct {
	file *os.File
}

func (h *advisoryHandle) Unlock() error {
	if err := unix.Flock(int(h.file.Fd()), unix.LOCK_UN); err != nil {
		_ = h.file.Close()
		return err
	}
	return h.file.Close()
}

// Lock implements Provider.
func (a *AdvisoryLock) Lock(path string) (Handle, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("advisory lock: open %s: %w", path, err)
	}

	for attempt := 0; ; attempt++ {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err == nil {
			return &advisoryHandle{file: f}, nil
		}
		if !errors.Is(err, unix.EDEADLK) {
			_ = f.Close()
			return nil, fmt.Errorf("advisory lock: flock %s: %w", path, err)
		}
		_ = f.Close()
		if attempt+1 >= AdvisoryMaxAttempts {
			return nil, fmt.Errorf("advisory lock: %s: %w", path, ErrLockExhausted)
		}
		time.Sleep(AdvisoryRetryBackoff)
		f, err = os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, fmt.Errorf("advisory lock: reopen %s: %w", path, err)
		}
	}
}
