// Package filequeue implements queue.Manager over the four flat text
// files spec §3 and §6 mandate: commands.txt, running_commands.txt,
// finished_commands.txt, failed_commands.txt, each one command per line,
// newline-terminated, a command's membership in exactly one file being
// its entire state.
//
// Every observable operation runs under a pkg/lock.Provider. The move
// primitive (spec §4.B) reads the source file under its own lock,
// drops the target line, rewrites the source truncated, releases that
// lock, then takes a second, independent lock on the destination file
// to append the line. The two locks of a move are never held at the
// same time, so no lock-ordering rule is needed to rule out deadlock,
// matching the teacher's emphasis
// (puller.go) on state transitions being narrow, single-purpose, and
// independently lockable.
//
// If a process dies between the two locked regions, the command
// vanishes from the source file without having reached the destination.
// This is an accepted, documented race (spec §4.B, §9): reset_running
// salvages commands lost out of running before a new worker pool
// starts, and a command lost between running and finished/failed is
// indistinguishable from a successful completion whose record never
// landed.
package filequeue
