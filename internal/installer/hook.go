package installer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"epic-postinstall/internal/config"
	"epic-postinstall/internal/logger"
)

// BinEnv names the environment variable that carries the installed binary's
// path into a post-install hook.
const BinEnv = "EPIC_POSTINSTALL_BIN"

// runHook runs an inline hook with "sh -c" or a script hook with "sh <path>",
// inside dir.
func runHook(ctx context.Context, hook *config.Hook, dir, binPath string) error {
	var cmd *exec.Cmd
	if hook.Path != "" {
		cmd = exec.CommandContext(ctx, "sh", hook.Path)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", hook.Inline)
	}
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), BinEnv+"="+binPath)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	logger.Info("Running post-install hook %s", hook.Describe())
	err := cmd.Run()
	out := strings.TrimSpace(output.String())
	if err == nil {
		if out != "" {
			logger.Debug("Hook output:\n%s", out)
		}
		return nil
	}
	if out != "" {
		logger.Error("Post-install hook %s failed, output:\n%s", hook.Describe(), tailLines(out, hookOutputLines))
	}

	hookErr := &HookError{Hook: hook.Describe(), Output: out, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		hookErr.ExitCode = exitErr.ExitCode()
	}
	return hookErr
}
