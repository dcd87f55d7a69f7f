package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartdispatch/smartdispatch/pkg/history"
	applog "github.com/smartdispatch/smartdispatch/pkg/log"
	"github.com/smartdispatch/smartdispatch/pkg/metrics"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query and maintain the batch history database",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every recorded batch, most recently started first",
	RunE:  runHistoryList,
}

var historyGetCmd = &cobra.Command{
	Use:   "get <batch-uid>",
	Short: "Show the recorded summary for one batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryGet,
}

var historyCleanCmd = &cobra.Command{
	Use:   "history-clean",
	Short: "Permanently delete finished batch history older than --retain",
	Long: `history-clean runs the retention cleaner once (the default) or, with
--watch, starts it as a periodic background worker and blocks until
interrupted.`,
	RunE: runHistoryClean,
}

func init() {
	historyCmd.PersistentFlags().String("db", "smartdispatch_history.db", "path to the history SQLite database")

	historyCleanCmd.Flags().Duration("retain", 30*24*time.Hour, "delete batches ended longer ago than this")
	historyCleanCmd.Flags().Bool("watch", false, "run as a periodic background worker instead of a single pass")
	historyCleanCmd.Flags().Duration("interval", time.Hour, "interval between passes when --watch is set")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyGetCmd)
	historyCmd.AddCommand(historyCleanCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return listBatches(ctx, cmd)
}

func runHistoryGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	path, _ := cmd.Flags().GetString("db")
	db, err := history.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer db.Close()

	store := history.NewStore(db)
	batch, ok, err := store.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get batch: %w", err)
	}
	if !ok {
		return usageErrorf("no recorded history for batch %q", args[0])
	}
	printBatch(batch)
	return nil
}

func listBatches(ctx context.Context, cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("db")
	db, err := history.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer db.Close()

	store := history.NewStore(db)
	batches, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list batches: %w", err)
	}
	for _, b := range batches {
		printBatch(b)
	}
	return nil
}

func printBatch(b history.Batch) {
	status := "running"
	if b.EndedAt != nil {
		status = b.EndedAt.Format(time.RFC3339)
	}
	fmt.Printf("%s\tcluster=%s\tqueue=%s\tseeded=%d\tfinished=%d\tfailed=%d\tstarted=%s\tended=%s\n",
		b.BatchUID, b.Cluster, b.Queue, b.SeededCount, b.FinishedCount, b.FailedCount,
		b.StartedAt.Format(time.RFC3339), status)
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	path, _ := cmd.Flags().GetString("db")
	retain, _ := cmd.Flags().GetDuration("retain")
	watch, _ := cmd.Flags().GetBool("watch")
	interval, _ := cmd.Flags().GetDuration("interval")

	db, err := history.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer db.Close()

	cleaner := history.NewCleaner(db)

	if !watch {
		count, err := cleaner.Clean(ctx, time.Now().Add(-retain))
		if err != nil {
			return fmt.Errorf("clean batch history: %w", err)
		}
		metrics.HistoryPrunedTotal.Add(float64(count))
		fmt.Printf("pruned %d batch(es)\n", count)
		return nil
	}

	log := applog.NewSlogLogger(componentLogger("history-clean"))
	worker := history.NewCleanWorker(cleaner, history.CleanConfig{
		Interval: interval,
		Retain:   retain,
		OnClean:  func(pruned int64) { metrics.HistoryPrunedTotal.Add(float64(pruned)) },
	}, log)
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("start clean worker: %w", err)
	}
	<-ctx.Done()
	return worker.Stop(10 * time.Second)
}
