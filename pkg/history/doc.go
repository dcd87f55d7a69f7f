// Package history is a supplementary, queryable record of batches a
// smartdispatch installation has run: one row per batch with its UID,
// timing, counts, and resolved cluster/queue. Spec §3 fixes the *live*
// four-queue state to flat files under lock (pkg/queue/filequeue); this
// package never competes with that, it only persists a summary row,
// written when a batch is launched. Finished/failed counts and the end
// time stay at their launch-time values unless a caller upserts them.
//
// It is adapted from the teacher's SQL storage backend
// (sql/model.go, sql/init.go, sql/util.go, sql/cleaner.go): same
// uptrace/bun + modernc.org/sqlite stack, same create-table-and-indexes-
// in-one-transaction bootstrap, same terminal-state-only Cleaner shape,
// now modeling finished batches instead of in-flight jobs.
package history
