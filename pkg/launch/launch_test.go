package launch_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartdispatch/smartdispatch/pkg/batch"
	"github.com/smartdispatch/smartdispatch/pkg/cluster"
	"github.com/smartdispatch/smartdispatch/pkg/launch"
	"github.com/smartdispatch/smartdispatch/pkg/lock"
)

type fakeRunner struct {
	runCalls       []string
	jobIDs         []string
	reconcileDump  string
	reconcileCalls int
}

func (f *fakeRunner) Run(ctx context.Context, l launch.Launcher, pbsFilename string) (string, error) {
	f.runCalls = append(f.runCalls, pbsFilename)
	idx := len(f.runCalls) - 1
	return f.jobIDs[idx], nil
}

func (f *fakeRunner) Reconcile(ctx context.Context) (string, error) {
	f.reconcileCalls++
	return f.reconcileDump, nil
}

func newLayout(t *testing.T) batch.Layout {
	t.Helper()
	workdir := t.TempDir()
	l := batch.NewLayout(workdir, "uid")
	if err := l.Create(); err != nil {
		t.Fatal(err)
	}
	return l
}

func TestLaunchAppendsJobIDsToJobsFile(t *testing.T) {
	ctx := context.Background()
	l := newLayout(t)
	runner := &fakeRunner{jobIDs: []string{"100.server", "101.server"}}

	jobIDs, err := launch.Launch(ctx, runner, lock.NewDirectoryLock(), zerolog.Nop(), launch.Qsub, cluster.Generic, l,
		[]string{"job_commands_0.sh", "job_commands_1.sh"}, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(jobIDs) != 2 || jobIDs[0] != "100.server" || jobIDs[1] != "101.server" {
		t.Fatalf("got %v", jobIDs)
	}

	data, err := os.ReadFile(l.JobsIDFile)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "100.server") || !strings.Contains(text, "101.server") {
		t.Fatalf("jobs_id.txt missing job ids: %q", text)
	}
}

func TestLaunchReconcilesHeliosSRMJID(t *testing.T) {
	ctx := context.Background()
	l := newLayout(t)
	runner := &fakeRunner{
		jobIDs: []string{"srm-12345"},
		reconcileDump: "Job Id: 999.helios1\n" +
			"    Job_Name = foo\n" +
			"    SRMJID:srm-12345\n" +
			"\n\nJob Id: 1000.helios1\n    SRMJID:other\n",
	}

	jobIDs, err := launch.Launch(ctx, runner, lock.NewDirectoryLock(), zerolog.Nop(), launch.Qsub, cluster.Helios, l,
		[]string{"job_commands_0.sh"}, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(jobIDs) != 1 || jobIDs[0] != "999.helios1" {
		t.Fatalf("got %v, want [999.helios1]", jobIDs)
	}
	if runner.reconcileCalls != 1 {
		t.Fatalf("expected exactly one reconcile call, got %d", runner.reconcileCalls)
	}
}

func TestLaunchNonHeliosNeverReconciles(t *testing.T) {
	ctx := context.Background()
	l := newLayout(t)
	runner := &fakeRunner{jobIDs: []string{"1.server"}}

	_, err := launch.Launch(ctx, runner, lock.NewDirectoryLock(), zerolog.Nop(), launch.Qsub, cluster.Mammouth, l,
		[]string{"job_commands_0.sh"}, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if runner.reconcileCalls != 0 {
		t.Fatalf("expected no reconcile calls on non-helios, got %d", runner.reconcileCalls)
	}
}
