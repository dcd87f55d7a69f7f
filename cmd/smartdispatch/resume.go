package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartdispatch/smartdispatch/pkg/batch"
	"github.com/smartdispatch/smartdispatch/pkg/launch"
	"github.com/smartdispatch/smartdispatch/pkg/lock"
	"github.com/smartdispatch/smartdispatch/pkg/metrics"
	"github.com/smartdispatch/smartdispatch/pkg/pbs"
	"github.com/smartdispatch/smartdispatch/pkg/queue/filequeue"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <batch-uid>",
	Short: "Resume an interrupted batch, or pack additional worker scripts for it",
	Long: `resume moves every command left in the running queue back onto
pending (unless --only-pending is set) and, unless --expand-pool is
given, does nothing further: workers are expected to be relaunched
separately. --expand-pool N packs N additional worker invocations into
PBS scripts (as many scripts as the per-node packing needs) without
touching queue state, for adding capacity to a batch already running.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	flags := resumeCmd.Flags()
	flags.Bool("only-pending", false, "do not reset the running queue, only report its state")
	flags.Int("expand-pool", 0, "pack N additional worker invocations into PBS scripts without touching queue state")
	flags.String("queue", "", "destination PBS queue for --expand-pool (required with --expand-pool)")
	flags.String("walltime", "", "walltime override, required for unknown queues")
	flags.Int("cores-per-node", 0, "cores per node override, required for unknown queues")
	flags.Int("gpus-per-node", 0, "gpus per node override")
	flags.Int("cores-per-command", 1, "cores reserved per running command")
	flags.Int("gpus-per-command", 0, "gpus reserved per running command")
	flags.String("config", "config", "directory of per-cluster queue catalogues")
	flags.String("launcher", string(launch.Qsub), "submission binary: qsub or msub")
	flags.Bool("assume-resumable", true, "make workers resumable on SIGTERM")
	flags.Bool("no-launch", false, "generate PBS scripts without submitting them")
	flags.String("lock-strategy", "directory", "cross-host lock strategy: advisory or directory")
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	uid := args[0]
	onlyPending, _ := cmd.Flags().GetBool("only-pending")
	expandPool, _ := cmd.Flags().GetInt("expand-pool")
	lockStrategy, _ := cmd.Flags().GetString("lock-strategy")

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	layout, err := batch.Open(cwd, uid)
	if err != nil {
		return usageErrorf("%v", err)
	}

	provider := metrics.InstrumentLockProvider(selectLockProvider(lockStrategy))
	manager := filequeue.New(layout.CommandsDir, provider, componentLogger("queue"))

	failed, err := manager.ListFailed(ctx)
	if err != nil {
		return fmt.Errorf("list failed commands: %w", err)
	}
	if len(failed) > 0 {
		componentLogger("resume").Warn().
			Int("count", len(failed)).
			Str("batch_uid", uid).
			Msg("resuming a batch with previously failed commands; they will not be retried automatically")
	}

	if !onlyPending {
		if err := manager.ResetRunning(ctx); err != nil {
			return fmt.Errorf("reset running queue: %w", err)
		}
	}

	pending, err := manager.CountPending(ctx)
	if err != nil {
		return fmt.Errorf("count pending commands: %w", err)
	}
	fmt.Printf("%d command(s) pending\n", pending)

	if expandPool <= 0 {
		return nil
	}

	return expandWorkerPool(cmd, ctx, layout, provider, expandPool)
}

// expandWorkerPool packs expandPool additional worker invocations into
// PBS scripts for an already-running batch, touching neither the pending
// nor running queue (spec's --expand-pool: "generates additional PBS
// scripts without touching queue state"). Scripts are written under a
// per-call subdirectory to avoid overwriting the batch's original
// job_commands_N.sh files.
func expandWorkerPool(cmd *cobra.Command, ctx context.Context, layout batch.Layout, provider lock.Provider, expandPool int) error {
	queueName, _ := cmd.Flags().GetString("queue")
	if queueName == "" {
		return usageErrorf("--expand-pool requires --queue")
	}
	walltime, _ := cmd.Flags().GetString("walltime")
	coresPerNode, _ := cmd.Flags().GetInt("cores-per-node")
	gpusPerNode, _ := cmd.Flags().GetInt("gpus-per-node")
	coresPerCommand, _ := cmd.Flags().GetInt("cores-per-command")
	gpusPerCommand, _ := cmd.Flags().GetInt("gpus-per-command")
	configDir, _ := cmd.Flags().GetString("config")
	launcherName, _ := cmd.Flags().GetString("launcher")
	assumeResumable, _ := cmd.Flags().GetBool("assume-resumable")
	noLaunch, _ := cmd.Flags().GetBool("no-launch")

	queueDesc, kind, err := resolveQueue(ctx, configDir, queueName, walltime, coresPerNode, gpusPerNode)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	expandDir := filepath.Join(layout.CommandsDir, fmt.Sprintf("expand_%d", time.Now().Unix()))
	if err := os.MkdirAll(expandDir, 0o755); err != nil {
		return fmt.Errorf("create expand-pool directory: %w", err)
	}

	workerCommands := buildWorkerCommands(cwd, layout, layout.UID, expandPool, assumeResumable)

	scripts, err := pbs.Plan(
		queueDesc,
		workerCommands,
		pbs.Resources{Cores: coresPerCommand, Gpus: gpusPerCommand},
		nil, nil,
		layout.Root,
	)
	if err != nil {
		return fmt.Errorf("pack PBS scripts: %w", err)
	}
	if err := pbs.ApplyClusterRules(kind, scripts); err != nil {
		return fmt.Errorf("apply cluster rules: %w", err)
	}

	filenames, err := pbs.WriteScripts(expandDir, scripts)
	if err != nil {
		return fmt.Errorf("write PBS scripts: %w", err)
	}
	fmt.Printf("%d additional worker script(s) packed in %s\n", len(filenames), expandDir)

	if noLaunch {
		return nil
	}

	launcher := launch.Launcher(launcherName)
	if launcher != launch.Qsub && launcher != launch.Msub {
		return usageErrorf("unknown launcher %q (want qsub or msub)", launcherName)
	}

	jobIDs, err := launch.Launch(ctx, launch.ExecRunner{}, provider, componentLogger("launch"), launcher, kind, layout, filenames, time.Now())
	if err != nil {
		return fmt.Errorf("launch jobs: %w", err)
	}
	fmt.Printf("Job ID(s):\n%s\n", strings.Join(jobIDs, "\n"))
	return nil
}
