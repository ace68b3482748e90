package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"epic-postinstall/internal/config"
	"epic-postinstall/internal/logger"
)

// RunScripts runs the project scripts in order from dir, after every tool is
// in place. The install directory is put first on their PATH. A failing
// script does not stop the ones after it.
func (p *Provisioner) RunScripts(ctx context.Context, scripts []config.Script, dir string) error {
	var errs []error
	for _, s := range scripts {
		logger.Info("Running script %s", s.Name)

		cmd := exec.CommandContext(ctx, "sh", append([]string{s.Path}, s.Args...)...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "PATH="+p.BinDir+string(os.PathListSeparator)+os.Getenv("PATH"))
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			logger.Error("Script %s (%s) failed: %v", s.Name, s.Path, err)
			errs = append(errs, fmt.Errorf("script %s: %w", s.Name, err))
			continue
		}
		logger.Success("Script %s finished", s.Name)
	}
	return errors.Join(errs...)
}
