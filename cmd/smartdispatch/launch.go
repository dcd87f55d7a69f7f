package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartdispatch/smartdispatch/pkg/batch"
	"github.com/smartdispatch/smartdispatch/pkg/command"
	"github.com/smartdispatch/smartdispatch/pkg/history"
	"github.com/smartdispatch/smartdispatch/pkg/launch"
	"github.com/smartdispatch/smartdispatch/pkg/lock"
	"github.com/smartdispatch/smartdispatch/pkg/metrics"
	"github.com/smartdispatch/smartdispatch/pkg/pbs"
	"github.com/smartdispatch/smartdispatch/pkg/queue/filequeue"
	"github.com/smartdispatch/smartdispatch/pkg/unfold"
)

var launchCmd = &cobra.Command{
	Use:   "launch -- <folded command>",
	Short: "Unfold, queue, pack, and submit a new batch",
	Long: `launch unfolds the given command's bracketed list/range tokens into
the Cartesian product of concrete commands, seeds them into a fresh
batch's pending queue, packs worker-invocation scripts for the target
queue, and submits them via qsub/msub (unless --no-launch is set).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLaunch,
}

func init() {
	flags := launchCmd.Flags()
	flags.String("queue", "", "destination PBS queue name (required)")
	flags.String("walltime", "", "walltime override (HH:MM:SS...), required for unknown queues")
	flags.Int("cores-per-node", 0, "cores per node override, required for unknown queues")
	flags.Int("gpus-per-node", 0, "gpus per node override")
	flags.Int("cores-per-command", 1, "cores reserved per running command")
	flags.Int("gpus-per-command", 0, "gpus reserved per running command")
	flags.Int("pool", 0, "number of worker processes to launch; default is the number of unfolded commands")
	flags.String("config", "config", "directory of per-cluster queue catalogues")
	flags.String("launcher", string(launch.Qsub), "submission binary: qsub or msub")
	flags.StringSlice("modules", nil, "modules to load before running commands")
	flags.StringSlice("pbs-flag", nil, "raw PBS flag, repeatable (-lresource=value or -Xvalue)")
	flags.Bool("no-launch", false, "generate PBS scripts without submitting them")
	flags.Bool("assume-resumable", true, "make workers resumable on SIGTERM")
	flags.String("lock-strategy", "directory", "cross-host lock strategy: advisory or directory")
	flags.String("history-db", "smartdispatch_history.db", "history database to record this batch into; empty disables recording")
	_ = launchCmd.MarkFlagRequired("queue")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	queueName, _ := cmd.Flags().GetString("queue")
	walltime, _ := cmd.Flags().GetString("walltime")
	coresPerNode, _ := cmd.Flags().GetInt("cores-per-node")
	gpusPerNode, _ := cmd.Flags().GetInt("gpus-per-node")
	coresPerCommand, _ := cmd.Flags().GetInt("cores-per-command")
	gpusPerCommand, _ := cmd.Flags().GetInt("gpus-per-command")
	pool, _ := cmd.Flags().GetInt("pool")
	configDir, _ := cmd.Flags().GetString("config")
	launcherName, _ := cmd.Flags().GetString("launcher")
	modules, _ := cmd.Flags().GetStringSlice("modules")
	rawFlags, _ := cmd.Flags().GetStringSlice("pbs-flag")
	noLaunch, _ := cmd.Flags().GetBool("no-launch")
	assumeResumable, _ := cmd.Flags().GetBool("assume-resumable")
	lockStrategy, _ := cmd.Flags().GetString("lock-strategy")
	historyDB, _ := cmd.Flags().GetString("history-db")

	commandLine := strings.Join(args, " ")

	unfolded, err := unfold.Command(commandLine)
	if err != nil {
		return usageErrorf("unfold command: %v", err)
	}
	if len(unfolded) == 0 {
		return usageErrorf("command unfolded to zero concrete commands")
	}

	now := time.Now()
	uid := batch.UIDFromCommand(commandLine, now)

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	layout := batch.NewLayout(cwd, uid)
	if err := layout.Create(); err != nil {
		return fmt.Errorf("create batch layout: %w", err)
	}

	provider := metrics.InstrumentLockProvider(selectLockProvider(lockStrategy))

	queueLog := componentLogger("queue")
	manager := filequeue.New(layout.CommandsDir, provider, queueLog)

	commands := make([]command.Command, len(unfolded))
	for i, c := range unfolded {
		commands[i] = command.Command(c)
	}
	if err := manager.Seed(ctx, commands); err != nil {
		return fmt.Errorf("seed commands: %w", err)
	}
	metrics.CommandsPending.WithLabelValues(uid).Set(float64(len(commands)))

	if err := batch.LogCommandLine(provider, layout, commandLine, now); err != nil {
		return fmt.Errorf("log command line: %w", err)
	}

	if pool <= 0 {
		pool = len(commands)
	}

	queueDesc, kind, err := resolveQueue(ctx, configDir, queueName, walltime, coresPerNode, gpusPerNode)
	if err != nil {
		return err
	}
	queueDesc.Modules = append(queueDesc.Modules, modules...)

	workerCommands := buildWorkerCommands(cwd, layout, uid, pool, assumeResumable)

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

	if len(rawFlags) > 0 {
		if err := pbs.ApplyRawFlags(scripts, rawFlags); err != nil {
			return usageErrorf("apply PBS flags: %v", err)
		}
	}
	if err := pbs.ApplyClusterRules(kind, scripts); err != nil {
		return fmt.Errorf("apply cluster rules: %w", err)
	}

	filenames, err := pbs.WriteScripts(layout.CommandsDir, scripts)
	if err != nil {
		return fmt.Errorf("write PBS scripts: %w", err)
	}
	metrics.ScriptsPacked.WithLabelValues(uid).Set(float64(len(filenames)))

	fmt.Printf("%d command(s) will be executed in %d job(s)\n", len(commands), len(filenames))
	fmt.Printf("Batch UID:\n%s\n", uid)

	recordBatchHistory(ctx, historyDB, uid, kind.String(), queueName, len(commands), now)

	if noLaunch {
		return nil
	}

	launcher := launch.Launcher(launcherName)
	if launcher != launch.Qsub && launcher != launch.Msub {
		return usageErrorf("unknown launcher %q (want qsub or msub)", launcherName)
	}

	jobIDs, err := launch.Launch(ctx, launch.ExecRunner{}, provider, componentLogger("launch"), launcher, kind, layout, filenames, time.Now())
	if err != nil {
		metrics.JobsSubmittedTotal.WithLabelValues(kind.String(), "error").Add(float64(len(filenames)))
		return fmt.Errorf("launch jobs: %w", err)
	}
	metrics.JobsSubmittedTotal.WithLabelValues(kind.String(), "success").Add(float64(len(jobIDs)))
	fmt.Printf("Job ID(s):\n%s\n", strings.Join(jobIDs, "\n"))
	return nil
}

// buildWorkerCommands returns pool shell lines that each cd into cwd and
// run `smartdispatch worker` against layout's queue, redirecting stdout
// and stderr into logs/worker/$PBS_JOBID_worker_<i>.{o,e}, mirroring the
// original's smart_worker.py invocation string.
func buildWorkerCommands(cwd string, layout batch.Layout, uid string, pool int, assumeResumable bool) []string {
	self, err := os.Executable()
	if err != nil || self == "" {
		self = "smartdispatch"
	}
	commands := make([]string, pool)
	for i := 0; i < pool; i++ {
		commands[i] = fmt.Sprintf(
			`cd "%s"; %s worker --commands-dir "%s" --logs-dir "%s" --job-id "$PBS_JOBID" --batch-uid "%s" --assume-resumable=%t `+
				`1>> "%s/$PBS_JOBID""_worker_%d.o" 2>> "%s/$PBS_JOBID""_worker_%d.e"`,
			cwd, self, layout.CommandsDir, layout.LogsDir, uid, assumeResumable,
			layout.WorkerLogsDir, i, layout.WorkerLogsDir, i,
		)
	}
	return commands
}

// recordBatchHistory inserts a launch-time summary row for uid. A
// failure to record is logged and swallowed: history is a supplementary
// query surface, not part of the batch's correctness contract.
func recordBatchHistory(ctx context.Context, dbPath, uid, clusterName, queueName string, seeded int, at time.Time) {
	if dbPath == "" {
		return
	}
	db, err := history.Open(ctx, dbPath)
	if err != nil {
		componentLogger("history").Warn().Err(err).Msg("could not open history database")
		return
	}
	defer db.Close()

	store := history.NewStore(db)
	if err := store.Upsert(ctx, history.RecordInput{
		BatchUID:    uid,
		Cluster:     clusterName,
		Queue:       queueName,
		SeededCount: seeded,
		StartedAt:   at,
	}); err != nil {
		componentLogger("history").Warn().Err(err).Msg("could not record batch history")
	}
}

func selectLockProvider(strategy string) lock.Provider {
	switch strategy {
	case "advisory":
		return lock.NewAdvisoryLock()
	default:
		return lock.NewDirectoryLock()
	}
}
