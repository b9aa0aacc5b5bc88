package segment

import (
	"os"
	"path/filepath"
)

// fsyncDir fsyncs the directory containing path after a rename, so the
// directory entry itself is durable. Best effort: failures here do not
// fail the publish, matching the original's "harmless on non-POSIX"
// behavior.
func fsyncDir(path string) {
	f, err := os.Open(filepath.Dir(path))
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
}
