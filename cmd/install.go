package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"epic-postinstall/internal/logger"
)

// installCmd is the explicit form of running the root command without -u.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install every tool in the config and run the project scripts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(cmd.Context())
	},
}

func runInstall(ctx context.Context) error {
	s, err := openSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()

	if s.cfg.Message != "" {
		logger.Info("%s", s.cfg.Message)
	}

	tools := s.cfg.Tools()
	logger.Info("Installing %d tools into %s", len(tools), s.prov.BinDir)

	err = s.prov.Install(ctx, tools)
	if len(s.cfg.Scripts) > 0 {
		err = errors.Join(err, s.prov.RunScripts(ctx, s.cfg.Scripts, s.root))
	}
	if err != nil {
		return err
	}
	logger.Success("All tools are installed")
	return nil
}
