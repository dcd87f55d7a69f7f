package lock_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartdispatch/smartdispatch/pkg/lock"
)

func TestDirectoryLockExcludesConcurrentHolders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commands.txt")

	p := lock.NewDirectoryLock()
	h, err := p.Lock(path)
	if err != nil {
		t.Fatal(err)
	}

	token := filepath.Join(dir, ".commands.txt")
	if _, err := os.Stat(token); err != nil {
		t.Fatalf("expected lock token directory to exist: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		h2, err := p.Lock(path)
		if err != nil {
			t.Error(err)
			return
		}
		_ = h2.Unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock call returned before the first was released")
	case <-time.After(50 * time.Millisecond):
	}

	if err := h.Unlock(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second Lock call never acquired the lock after release")
	}

	if _, err := os.Stat(token); !os.IsNotExist(err) {
		t.Fatalf("expected lock token directory to be removed, stat err = %v", err)
	}
}

func TestAdvisoryLockExcludesConcurrentHolders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "running_commands.txt")

	p := lock.NewAdvisoryLock()
	h, err := p.Lock(path)
	if err != nil {
		t.Fatal(err)
	}

	acquired := make(chan struct{})
	go func() {
		h2, err := p.Lock(path)
		if err != nil {
			t.Error(err)
			return
		}
		_ = h2.Unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock call returned before the first was released")
	case <-time.After(50 * time.Millisecond):
	}

	if err := h.Unlock(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second Lock call never acquired the lock after release")
	}
}

func TestSelectPicksStrategyByFSType(t *testing.T) {
	if _, ok := lock.Select(lock.FSGPFS).(*lock.AdvisoryLock); !ok {
		t.Fatalf("GPFS must select the advisory strategy")
	}
	if _, ok := lock.Select(lock.FSLustreFlock).(*lock.AdvisoryLock); !ok {
		t.Fatalf("Lustre+flock must select the advisory strategy")
	}
	if _, ok := lock.Select(lock.FSUnknown).(*lock.DirectoryLock); !ok {
		t.Fatalf("unknown filesystems must fall back to the directory strategy")
	}
}
