package installer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"epic-postinstall/internal/logger"
)

// RemoveBinary deletes an installed executable. A file that is already gone
// is not an error.
func RemoveBinary(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("Binary %s already absent", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("refusing to remove %s: is a directory", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	logger.Info("Removed binary %s", path)
	return nil
}

// RemoveDataDir recursively deletes a tool's data directory, such as the
// version manager's home. A missing directory is not an error.
func RemoveDataDir(dir string) error {
	if dir == "" || dir == "/" {
		return fmt.Errorf("refusing to remove data directory %q", dir)
	}
	if home, err := os.UserHomeDir(); err == nil && dir == home {
		return fmt.Errorf("refusing to remove home directory %s", dir)
	}
	if _, err := os.Lstat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	logger.Info("Removed directory %s", dir)
	return nil
}
