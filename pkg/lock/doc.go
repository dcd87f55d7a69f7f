// Package lock implements the Lock Provider: a single operation,
// WithLock, that serializes access to a shared file across hosts and
// guarantees release on every exit path.
//
// Two interchangeable strategies are provided, chosen once at process
// start (never switched mid-run, per Design Notes in spec §9):
//
//   - Advisory: an exclusive whole-file flock(2), for filesystems known
//     to support a cluster-wide lock (Lustre with the "flock" mount
//     option and without "localflock", or GPFS). Ported from the
//     advisory-lock pattern in the retrieval pack's buildlock.go
//     (syscall.Flock / LOCK_EX), using golang.org/x/sys/unix for the
//     syscall wrapper.
//
//   - Directory: atomic directory creation as the lock token, for
//     filesystems with no reliable cross-host flock (most local and
//     NFS mounts). Ported from nikolasavic-lokt's internal/lock/acquire.go
//     "create, EEXIST means held" pattern.
//
// Which filesystem a given working directory sits on, and therefore
// which strategy applies, is a probing concern the spec deliberately
// places outside the core (§1, "filesystem-type probing"); pkg/lock
// only implements the two strategies and a Select function taking an
// already-determined FSType.
package lock
