package worker

import (
	"fmt"
	"os"
	"time"

	"github.com/smartdispatch/smartdispatch/pkg/command"
)

const bannerTimestampLayout = "2006-01-02 15:04:05"

// logPaths returns the append-mode .out/.err paths for cmd, rooted at
// logsDir, keyed by the command's UID so two workers never share a log
// file unless they were handed the exact same command text.
func logPaths(logsDir string, cmd command.Command) (outPath, errPath string) {
	uid := cmd.UID()
	return fmt.Sprintf("%s/%s.out", logsDir, uid), fmt.Sprintf("%s/%s.err", logsDir, uid)
}

// openAppend opens path for append, creating it if necessary, and
// reports whether it already held content (i.e. this is a resume of a
// previously started command, not a first run).
func openAppend(path string) (f *os.File, resumed bool, err error) {
	info, statErr := os.Stat(path)
	resumed = statErr == nil && info.Size() > 0

	f, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, err
	}
	return f, resumed, nil
}

// writeBanner writes the two-line banner spec §4.E mandates to w.
func writeBanner(w *os.File, resumed bool, at time.Time, jobID, hostname string, cmd command.Command) error {
	verb := "Started"
	if resumed {
		verb = "Resumed"
	}
	_, err := fmt.Fprintf(w, "## SMART-DISPATCH - %s on: %s - In job: %s - On nodes: %s ##\n## SMART-DISPATCH - Command: %s\n",
		verb, at.Format(bannerTimestampLayout), jobID, hostname, string(cmd))
	return err
}
