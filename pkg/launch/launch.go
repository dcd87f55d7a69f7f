package launch

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartdispatch/smartdispatch/pkg/batch"
	"github.com/smartdispatch/smartdispatch/pkg/cluster"
	"github.com/smartdispatch/smartdispatch/pkg/lock"
)

// Launcher names the two binaries spec §6 recognizes.
type Launcher string

const (
	Qsub Launcher = "qsub"
	Msub Launcher = "msub"
)

var pbsJobIDPattern = regexp.MustCompile(`^[0-9a-zA-Z.\-]*`)

// Runner submits one PBS script and returns the launcher's single-line
// stdout, trimmed. A separate interface (rather than os/exec directly)
// keeps Launch testable without a real qsub binary.
type Runner interface {
	Run(ctx context.Context, launcher Launcher, pbsFilename string) (string, error)
	// Reconcile is used on Helios only: it must return the raw `qstat
	// -f` output used to resolve a launcher-printed job id into its
	// PBS job id.
	Reconcile(ctx context.Context) (string, error)
}

// ExecRunner runs the real qsub/msub/qstat binaries via os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, launcher Launcher, pbsFilename string) (string, error) {
	out, err := exec.CommandContext(ctx, string(launcher), pbsFilename).Output()
	if err != nil {
		return "", fmt.Errorf("launch: %s %s: %w", launcher, pbsFilename, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (ExecRunner) Reconcile(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "qstat", "-f").Output()
	if err != nil {
		return "", fmt.Errorf("launch: qstat -f: %w", err)
	}
	return string(out), nil
}

// Launch submits every pbsFilename in order via launcher, reconciling
// Helios SRMJID mismatches, then appends the resulting job IDs to
// layout's jobs_id.txt under provider's lock.
func Launch(ctx context.Context, runner Runner, provider lock.Provider, log zerolog.Logger, launcher Launcher, kind cluster.Kind, layout batch.Layout, pbsFilenames []string, at time.Time) ([]string, error) {
	jobIDs := make([]string, 0, len(pbsFilenames))

	for _, filename := range pbsFilenames {
		jobID, err := runner.Run(ctx, launcher, filename)
		if err != nil {
			return nil, err
		}

		if kind == cluster.Helios {
			reconciled, err := reconcileHelios(ctx, runner, jobID)
			if err != nil {
				return nil, err
			}
			if reconciled != "" {
				jobID = reconciled
			}
		}

		jobIDs = append(jobIDs, jobID)
		log.Info().Str("pbs_file", filename).Str("job_id", jobID).Msg("submitted job")
	}

	if err := batch.AppendJobIDs(provider, layout, jobIDs, at); err != nil {
		return nil, err
	}
	return jobIDs, nil
}

// reconcileHelios looks for "SRMJID:<jobID>" in a `qstat -f` dump and,
// when found, returns the PBS job id of the "Job Id:" block it appeared
// in. Returns "" if no match is found, leaving jobID untouched.
func reconcileHelios(ctx context.Context, runner Runner, jobID string) (string, error) {
	dump, err := runner.Reconcile(ctx)
	if err != nil {
		return "", err
	}
	blocks := strings.Split(dump, "Job Id: ")
	needle := regexp.MustCompile(`SRMJID:` + regexp.QuoteMeta(jobID))
	for _, block := range blocks {
		if needle.MatchString(block) {
			return pbsJobIDPattern.FindString(block), nil
		}
	}
	return "", nil
}
