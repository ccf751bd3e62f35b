package helpers

import (
	"os"
	"path/filepath"
)

// defaultCacheRoot returns the default bundle cache root path.
func defaultCacheRoot() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(defaultHomeDir, dirSuffix)
	}
	return filepath.Join(home, dirSuffix)
}
