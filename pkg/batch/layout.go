package batch

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogsFolderName is the directory under the working directory that
// holds every batch, mirroring the original's LOGS_FOLDERNAME constant.
const LogsFolderName = "SMART_DISPATCH_LOGS"

// Layout is the resolved set of directories and well-known files that
// make up one batch.
type Layout struct {
	UID string

	Root          string // SMART_DISPATCH_LOGS/<uid>
	LogsDir       string // Root/logs
	WorkerLogsDir string // Root/logs/worker
	JobLogsDir    string // Root/logs/job
	CommandsDir   string // Root/commands

	CommandLineLog string // Root/command_line.log
	JobsIDFile     string // Root/jobs_id.txt
	PendingFile    string // CommandsDir/commands.txt
}

// NewLayout computes the Layout for uid rooted at workdir without
// touching the filesystem.
func NewLayout(workdir, uid string) Layout {
	root := filepath.Join(workdir, LogsFolderName, uid)
	logsDir := filepath.Join(root, "logs")
	commandsDir := filepath.Join(root, "commands")
	return Layout{
		UID:            uid,
		Root:           root,
		LogsDir:        logsDir,
		WorkerLogsDir:  filepath.Join(logsDir, "worker"),
		JobLogsDir:     filepath.Join(logsDir, "job"),
		CommandsDir:    commandsDir,
		CommandLineLog: filepath.Join(root, "command_line.log"),
		JobsIDFile:     filepath.Join(root, "jobs_id.txt"),
		PendingFile:    filepath.Join(commandsDir, "commands.txt"),
	}
}

// Create makes every directory the Layout names, idempotently. This is
// the launch-mode path (original's create_job_folders): a fresh batch
// gets all four directories created up front.
func (l Layout) Create() error {
	for _, dir := range []string{l.CommandsDir, l.LogsDir, l.WorkerLogsDir, l.JobLogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("batch: create %s: %w", dir, err)
		}
	}
	return nil
}

// ErrUnknownBatch is returned by Open when a batch UID has no commands
// directory, meaning it was never launched.
var ErrUnknownBatch = fmt.Errorf("batch: unknown batch UID")

// Open resolves an existing batch for resume (original's
// get_job_folders): the commands directory must already exist, and any
// missing log subdirectory is created rather than treated as an error,
// since older batches may predate a log subdirectory added later.
func Open(workdir, uid string) (Layout, error) {
	l := NewLayout(workdir, uid)
	info, err := os.Stat(l.CommandsDir)
	if err != nil || !info.IsDir() {
		return Layout{}, fmt.Errorf("%w: %s", ErrUnknownBatch, uid)
	}
	for _, dir := range []string{l.LogsDir, l.WorkerLogsDir, l.JobLogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, fmt.Errorf("batch: create %s: %w", dir, err)
		}
	}
	return l, nil
}
