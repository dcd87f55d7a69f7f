package batch

import (
	"regexp"
	"strings"
	"time"
)

const (
	// uidMaxLength mirrors the original's smart_dispatch.py call site
	// (generate_name_from_command(command, max_length=235)).
	uidMaxLength = 235

	uidTimestampLayout = "2006-01-02_15-04-05_"
)

var (
	nonWordRunPattern = regexp.MustCompile(`[^\w\s-]`)
	dashRunPattern    = regexp.MustCompile(`[-\s]+`)
)

// slugify lowercases value, drops everything but word characters,
// whitespace and hyphens, then collapses whitespace/hyphen runs into a
// single underscore. It has no notion of Unicode normalization beyond
// what Go's \w already affords, which is sufficient for the ASCII
// command text smartdispatch deals with.
func slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = nonWordRunPattern.ReplaceAllString(value, "")
	value = dashRunPattern.ReplaceAllString(strings.TrimSpace(value), "_")
	return value
}

// UIDFromCommand derives a Batch-UID the way the original's
// generate_name_from_command does: slugify every whitespace-separated
// token of command, join with underscores, prefix a
// YYYY-MM-DD_HH-MM-SS_ timestamp, and truncate the whole thing to
// uidMaxLength bytes.
//
// at is the first-invocation timestamp; callers pass time.Now() at
// launch time and never recompute it afterwards, since resume must
// reference the original directory name verbatim.
func UIDFromCommand(command string, at time.Time) string {
	fields := strings.Fields(command)
	slugs := make([]string, 0, len(fields))
	for _, f := range fields {
		slugs = append(slugs, slugify(f))
	}
	name := at.UTC().Format(uidTimestampLayout) + strings.Join(slugs, "_")
	if len(name) > uidMaxLength {
		name = name[:uidMaxLength]
	}
	return name
}
