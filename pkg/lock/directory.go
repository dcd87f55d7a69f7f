package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirectoryMaxAttempts bounds how many times the directory strategy will
// retry an EEXIST before giving up.
const DirectoryMaxAttempts = 1000

// DirectoryRetryInterval is the fixed sleep between directory-creation
// retries.
const DirectoryRetryInterval = 2 * time.Second

// DirectoryLock uses atomic directory creation as the lock token: a
// sibling directory "<dir>/.<file>" exists if and only if the lock is
// held. This is the fallback strategy for filesystems with no reliable
// cross-host advisory lock.
type DirectoryLock struct{}

// NewDirectoryLock returns the mkdir-based fallback Provider.
func NewDirectoryLock() *DirectoryLock {
	return &DirectoryLock{}
}

type directoryHandle struct {
	tokenPath string
}

func (h *directoryHandle) Unlock() error {
	return os.Remove(h.tokenPath)
}

func tokenPathFor(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return filepath.Join(dir, "."+base)
}

// Lock implements Provider.
func (d *DirectoryLock) Lock(path string) (Handle, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, fmt.Errorf("directory lock: %w", err)
	}

	token := tokenPathFor(path)
	for attempt := 0; attempt < DirectoryMaxAttempts; attempt++ {
		err := os.Mkdir(token, 0o755)
		if err == nil {
			return &directoryHandle{tokenPath: token}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("directory lock: mkdir %s: %w", token, err)
		}
		time.Sleep(DirectoryRetryInterval)
	}
	return nil, fmt.Errorf("directory lock: %s: %w", path, ErrLockExhausted)
}
