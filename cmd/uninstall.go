package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"epic-postinstall/internal/logger"
)

// uninstallCmd is the same as the root command with -u.
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the binaries, shell blocks and state recorded by install",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUninstall(cmd.Context())
	},
}

func runUninstall(ctx context.Context) error {
	s, err := openSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.prov.Uninstall(ctx); err != nil {
		return err
	}
	logger.Success("Uninstalled everything recorded in %s", s.prov.Store.Path())
	return nil
}
