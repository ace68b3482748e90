package provision

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"epic-postinstall/internal/logger"
)

const probeTimeout = 10 * time.Second

var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// ExecProber runs the command with --version, then -v, and takes the first
// x.y.z it prints. The copy in binDir is preferred over one on PATH.
type ExecProber struct{}

// InstalledVersion implements Prober.
func (ExecProber) InstalledVersion(ctx context.Context, command, binDir string) (string, bool) {
	path := filepath.Join(binDir, command)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		found, err := exec.LookPath(command)
		if err != nil {
			logger.Debug("%s is not installed", command)
			return "", false
		}
		path = found
	}

	for _, flag := range []string{"--version", "-v"} {
		if v, ok := probeVersion(ctx, path, flag); ok {
			logger.Debug("%s %s reports %s", path, flag, v)
			return v, true
		}
	}
	logger.Debug("Could not read a version from %s", path)
	return "", false
}

func probeVersion(ctx context.Context, path, flag string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, flag).CombinedOutput()
	if err != nil && len(out) == 0 {
		return "", false
	}
	v := versionPattern.FindString(string(out))
	return v, v != ""
}
