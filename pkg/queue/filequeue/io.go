package filequeue

import (
	"errors"
	"os"
	"strings"
)

// readLines returns the lines of path, one command per line. A missing
// file is treated as an empty queue, not an error.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	text := string(data)
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	return lines, nil
}

// writeLines truncates path and writes lines, one per line, newline
// terminated.
func writeLines(path string, lines []string) error {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// appendLine appends a single newline-terminated line to path, creating
// it if necessary.
func appendLine(path string, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return err
	}
	return nil
}

// removeFirst returns lines with the first element equal to target
// dropped, and whether a match was found.
func removeFirst(lines []string, target string) ([]string, bool) {
	for i, l := range lines {
		if l == target {
			out := make([]string, 0, len(lines)-1)
			out = append(out, lines[:i]...)
			out = append(out, lines[i+1:]...)
			return out, true
		}
	}
	return lines, false
}
