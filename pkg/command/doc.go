// Package command defines the smallest unit smartdispatch moves between
// queues: an opaque shell command string and the identifier derived from
// it.
//
// A Command is intentionally minimal, mirroring the teacher's own
// message.Message: it carries no delivery state (queue membership,
// attempt counts, lock expiry). Those concerns belong to pkg/queue.
package command
