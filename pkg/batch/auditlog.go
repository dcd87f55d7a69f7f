package batch

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/smartdispatch/smartdispatch/pkg/lock"
)

const timestampBannerLayout = "## 2006-01-02 15:04:05 ##\n"

// escapedBracketGroup matches a bracket group of the (still folded)
// command line that contains a backslash-escaped space, e.g.
// "[foo\ bar]", the only case the original's re-quoting pass targets.
var escapedBracketGroup = regexp.MustCompile(`(\[)([^\[\]]*\\ [^\[\]]*)(\])`)

// LogCommandLine appends a timestamped, shell-pasteable record of
// commandLine to command_line.log, under provider's lock on that file.
//
// The recorded text is re-escaped, not the raw argv: double quotes are
// backslash-escaped and any bracket group containing an escaped space
// is re-wrapped in double quotes, so the logged line can be copied back
// into a shell verbatim even though the shell itself already consumed
// the original escaping once.
func LogCommandLine(provider lock.Provider, l Layout, commandLine string, at time.Time) error {
	escaped := strings.ReplaceAll(commandLine, `"`, `\"`)
	escaped = escapedBracketGroup.ReplaceAllString(escaped, `"$1$2$3"`)

	return lock.WithLock(provider, l.CommandLineLog, func() error {
		f, err := os.OpenFile(l.CommandLineLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("batch: log command line: %w", err)
		}
		defer f.Close()
		if _, err := f.WriteString(at.Format(timestampBannerLayout)); err != nil {
			return fmt.Errorf("batch: log command line: %w", err)
		}
		if _, err := f.WriteString(escaped + "\n\n"); err != nil {
			return fmt.Errorf("batch: log command line: %w", err)
		}
		return nil
	})
}

// AppendJobIDs appends a timestamped banner followed by one job ID per
// line to jobs_id.txt, under provider's lock on that file. launch.Launch
// calls it once per submission round, after every script of that round
// was submitted, so a batch accretes one block per launch or resume
// --expand-pool submission.
func AppendJobIDs(provider lock.Provider, l Layout, jobIDs []string, at time.Time) error {
	return lock.WithLock(provider, l.JobsIDFile, func() error {
		f, err := os.OpenFile(l.JobsIDFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("batch: append job ids: %w", err)
		}
		defer f.Close()
		if _, err := f.WriteString(at.Format(timestampBannerLayout)); err != nil {
			return fmt.Errorf("batch: append job ids: %w", err)
		}
		if _, err := f.WriteString(strings.Join(jobIDs, "\n") + "\n"); err != nil {
			return fmt.Errorf("batch: append job ids: %w", err)
		}
		return nil
	})
}
