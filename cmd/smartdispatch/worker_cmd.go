package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	applog "github.com/smartdispatch/smartdispatch/pkg/log"
	"github.com/smartdispatch/smartdispatch/pkg/metrics"
	"github.com/smartdispatch/smartdispatch/pkg/queue"
	"github.com/smartdispatch/smartdispatch/pkg/queue/filequeue"
	"github.com/smartdispatch/smartdispatch/pkg/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the per-node worker loop that claims and executes commands",
	Long: `worker runs the claim/execute/complete loop against a batch's
command queue until it is drained. It is normally not invoked by hand:
the launch subcommand embeds one worker invocation per pool slot
directly into the generated PBS scripts.`,
	RunE: runWorker,
}

func init() {
	flags := workerCmd.Flags()
	flags.String("commands-dir", "", "batch commands directory to claim from (required)")
	flags.String("logs-dir", "", "directory to write per-command banner/output logs into (required)")
	flags.String("job-id", os.Getenv("PBS_JOBID"), "PBS job id stamped into banners")
	flags.String("batch-uid", "", "batch UID metrics are labeled with (defaults to the commands-dir's parent directory name)")
	flags.String("hostname", "", "hostname stamped into banners (default: os.Hostname)")
	flags.Bool("assume-resumable", false, "on SIGTERM, wait for the in-flight command, record it as finished if it exited 0 or requeue it otherwise, then exit")
	flags.String("shell", "/bin/sh", "shell used to run each command")
	flags.String("lock-strategy", "directory", "cross-host lock strategy: advisory or directory")
	flags.String("metrics-addr", "", "if set, serve Prometheus metrics on this address while running")
	_ = workerCmd.MarkFlagRequired("commands-dir")
	_ = workerCmd.MarkFlagRequired("logs-dir")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	commandsDir, _ := cmd.Flags().GetString("commands-dir")
	logsDir, _ := cmd.Flags().GetString("logs-dir")
	jobID, _ := cmd.Flags().GetString("job-id")
	batchUID, _ := cmd.Flags().GetString("batch-uid")
	hostname, _ := cmd.Flags().GetString("hostname")
	assumeResumable, _ := cmd.Flags().GetBool("assume-resumable")
	shell, _ := cmd.Flags().GetString("shell")
	lockStrategy, _ := cmd.Flags().GetString("lock-strategy")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("resolve hostname: %w", err)
		}
		hostname = h
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		server := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				componentLogger("metrics").Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer server.Close()
	}

	if batchUID == "" {
		batchUID = filepath.Base(filepath.Dir(commandsDir))
	}

	provider := metrics.InstrumentLockProvider(selectLockProvider(lockStrategy))
	zl := componentLogger("worker").With().Str("job_id", jobID).Str("batch_uid", batchUID).Str("hostname", hostname).Logger()
	var manager queue.Manager = filequeue.New(commandsDir, provider, zl)
	manager = metrics.InstrumentManager(manager, batchUID)

	metrics.WorkersActive.WithLabelValues(jobID).Inc()
	defer metrics.WorkersActive.WithLabelValues(jobID).Dec()

	w := worker.New(manager, worker.Config{
		LogsDir:         logsDir,
		JobID:           jobID,
		Hostname:        hostname,
		AssumeResumable: assumeResumable,
		Shell:           shell,
	}, applog.NewSlogLogger(zl))

	return w.Run(ctx)
}
