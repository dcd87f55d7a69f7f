package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smartdispatch/smartdispatch/pkg/command"
	"github.com/smartdispatch/smartdispatch/pkg/queue"
)

// Config configures a Worker. JobID and Hostname are stamped into every
// banner; AssumeResumable mirrors the CLI's --assume-resumable flag.
type Config struct {
	LogsDir         string
	JobID           string
	Hostname        string
	AssumeResumable bool
	Shell           string // defaults to "/bin/sh" if empty
}

// Worker runs the claim/execute/complete loop against a single
// queue.Manager until the queue is drained or a termination signal
// interrupts it.
type Worker struct {
	manager queue.Manager
	config  Config
	log     *slog.Logger

	interrupted atomic.Bool
	signals     chan os.Signal
	latch       sync.Once
}

// New returns a Worker reading and completing commands from manager.
func New(manager queue.Manager, config Config, log *slog.Logger) *Worker {
	if config.Shell == "" {
		config.Shell = "/bin/sh"
	}
	return &Worker{
		manager: manager,
		config:  config,
		log:     log,
	}
}

// Run executes the claim/execute/complete loop until manager reports no
// more pending commands or, when AssumeResumable is set, until a
// termination signal interrupts a running command. It returns nil in
// both cases, matching the worker process's exit(0) contract; a
// non-nil error indicates an unrecoverable queue failure.
func (w *Worker) Run(ctx context.Context) error {
	if w.config.AssumeResumable {
		w.signals = make(chan os.Signal, 1)
		notifyTerminate(w.signals)
		defer stopNotify(w.signals)

		go func() {
			if _, ok := <-w.signals; ok {
				w.trigger()
			}
		}()
	}

	for {
		if w.interrupted.Load() {
			return nil
		}

		cmd, ok, err := w.manager.Claim(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		exitCode, interruptedDuringRun, err := w.execute(ctx, cmd)
		if err != nil {
			w.log.Error("command execution failed", "uid", cmd.UID(), "err", err)
		}

		if interruptedDuringRun {
			if exitCode == 0 {
				if err := w.manager.Complete(ctx, cmd, 0); err != nil {
					w.log.Error("complete after interrupt failed", "uid", cmd.UID(), "err", err)
				}
			} else {
				if err := w.manager.Requeue(ctx, cmd); err != nil {
					w.log.Error("requeue after interrupt failed", "uid", cmd.UID(), "err", err)
				}
			}
			return nil
		}

		if err := w.manager.Complete(ctx, cmd, exitCode); err != nil {
			if errors.Is(err, queue.ErrNotRunning) {
				w.log.Warn("command vanished from running queue before completion", "uid", cmd.UID())
				continue
			}
			return err
		}
		w.log.Info("command completed", "uid", cmd.UID(), "exit_code", exitCode)
	}
}

// execute runs one command to completion, writing the banner and
// streaming output to its log files. interruptedDuringRun reports
// whether a termination signal was observed while the child ran.
func (w *Worker) execute(ctx context.Context, cmd command.Command) (exitCode int, interruptedDuringRun bool, err error) {
	outPath, errPath := logPaths(w.config.LogsDir, cmd)

	outFile, outResumed, err := openAppend(outPath)
	if err != nil {
		return 0, false, err
	}
	defer outFile.Close()

	errFile, _, err := openAppend(errPath)
	if err != nil {
		return 0, false, err
	}
	defer errFile.Close()

	now := time.Now()
	if err := writeBanner(outFile, outResumed, now, w.config.JobID, w.config.Hostname, cmd); err != nil {
		return 0, false, err
	}
	if err := writeBanner(errFile, outResumed, now, w.config.JobID, w.config.Hostname, cmd); err != nil {
		return 0, false, err
	}

	child := exec.Command(w.config.Shell, "-c", string(cmd))
	child.Stdout = outFile
	child.Stderr = errFile

	if err := child.Start(); err != nil {
		return 0, false, err
	}

	waitErr := child.Wait()

	interrupted := w.config.AssumeResumable && w.interrupted.Load()

	if waitErr == nil {
		return 0, interrupted, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), interrupted, nil
	}
	return 0, interrupted, waitErr
}

// trigger is invoked at most once, from the signal-watching goroutine
// started by Run, to flip the interrupted latch.
func (w *Worker) trigger() {
	w.latch.Do(func() {
		w.interrupted.Store(true)
	})
}
