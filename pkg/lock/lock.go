package lock

import (
	"errors"
	"fmt"
	"os"
)

// ErrLockExhausted is returned when a strategy's retry budget is spent
// without acquiring the lock. The spec is explicit that this surfaces as
// a fatal error with no silent fallback.
var ErrLockExhausted = errors.New("lock: exhausted retry attempts")

// Handle represents a held lock. Unlock must be idempotent-safe to call
// exactly once; callers release it via a deferred call or WithLock.
type Handle interface {
	Unlock() error
}

// Provider serializes access to a shared path. Implementations must
// guarantee the returned Handle, once acquired, is released on every
// caller exit path when used through WithLock.
type Provider interface {
	// Lock blocks until the lock identified by path is acquired, or
	// returns ErrLockExhausted after the strategy's bounded retry
	// budget is spent.
	Lock(path string) (Handle, error)
}

// WithLock acquires path under p, runs fn, and releases the lock
// regardless of whether fn panics or returns an error.
func WithLock(p Provider, path string, fn func() error) (err error) {
	h, err := p.Lock(path)
	if err != nil {
		return fmt.Errorf("lock: acquire %s: %w", path, err)
	}
	defer func() {
		if uerr := h.Unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("lock: release %s: %w", path, uerr)
		}
	}()
	return fn()
}

// FSType identifies the filesystem class hosting a working directory, as
// resolved by the (out-of-core) filesystem probe described in spec §4.A.
type FSType int

const (
	// FSUnknown means the probe could not determine the filesystem, or
	// determined it to be one with no known global-lock support.
	FSUnknown FSType = iota
	// FSLustreFlock is Lustre mounted with "flock" and without
	// "localflock" — the only Lustre configuration with a cluster-wide
	// advisory lock.
	FSLustreFlock
	// FSGPFS is IBM Spectrum Scale / GPFS, which always supports a
	// cluster-wide advisory lock.
	FSGPFS
)

// Select returns the Provider appropriate for fsType: the advisory
// (flock) strategy for filesystems known to support a cluster-wide lock,
// and the directory-creation fallback for everything else. The choice is
// made once, at process start, and never changes mid-run.
func Select(fsType FSType) Provider {
	switch fsType {
	case FSLustreFlock, FSGPFS:
		return NewAdvisoryLock()
	default:
		return NewDirectoryLock()
	}
}

func ensureParentDir(path string) error {
	dir := parentDir(path)
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
