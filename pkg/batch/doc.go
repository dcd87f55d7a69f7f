// Package batch owns the on-disk layout of a launch: the directory tree
// under SMART_DISPATCH_LOGS/<batch-uid>/, the Batch-UID naming scheme
// derived from the launched command text, and the two append-only audit
// files a batch accretes over its lifetime (command_line.log,
// jobs_id.txt).
//
// A Batch is the unit spec §3 and §6 call a "launch": one invocation of
// smartdispatch launch, or one smartdispatch resume against a
// previously launched UID. Everything pkg/queue/filequeue,
// pkg/pbs, and pkg/worker touch lives inside a Batch's directories.
package batch
