package lock

import "path/filepath"

func parentDir(path string) string {
	return filepath.Dir(path)
}
