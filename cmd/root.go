package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"epic-postinstall/internal/logger"
)

// Global flags shared by every subcommand.
var (
	configPath string
	uninstall  bool
	debug      bool
	verbose    bool
	quiet      bool
	timeout    time.Duration
	binDir     string
	shells     []string
)

// rootCmd installs the project's tools, or removes them with --uninstall.
var rootCmd = &cobra.Command{
	Use:   "epic-postinstall",
	Short: "Install the command-line tools a project needs from GitHub releases",
	Long: `epic-postinstall reads the project's epicpostinstall config, downloads the
pinned release of every tool it lists into a user bin directory, wires the
tools into the user's shell profiles, and records what it did so that
"epic-postinstall --uninstall" can undo it.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,

	// Logging is configured before any subcommand runs.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch {
		case debug || verbose:
			logger.Init(logger.LevelDebug)
		case quiet:
			logger.Init(logger.LevelWarn)
		default:
			logger.Init(logger.LevelInfo)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if uninstall {
			return runUninstall(cmd.Context())
		}
		return runInstall(cmd.Context())
	},
}

// Execute runs the CLI and exits 1 if the selected command fails.
// An interrupt cancels in-flight downloads and hooks.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to the config file (default: discovered from the working directory)")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&verbose, "verbose", false, "Alias for --debug")
	flags.BoolVar(&quiet, "quiet", false, "Only print warnings and errors")
	flags.DurationVar(&timeout, "timeout", 0, "Per-request HTTP timeout (overrides the config file)")
	flags.StringVar(&binDir, "bin-dir", "", "Install directory (overrides targetBinPath)")
	flags.StringSliceVar(&shells, "shells", nil, "Shells to configure, e.g. bash,fish (default: detected)")
	rootCmd.MarkFlagsMutuallyExclusive("debug", "quiet")

	rootCmd.Flags().BoolVarP(&uninstall, "uninstall", "u", false, "Remove everything recorded by a previous install")

	rootCmd.AddCommand(installCmd, uninstallCmd, statusCmd)
}
