package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/pkg/config"
	"github.com/user/nextdoor-crawler/pkg/logger"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// app carries what every command needs once the root pre-run has loaded it.
type app struct {
	envFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds the nextdoor-crawler command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "nextdoor-crawler",
		Short:         "Searches Nextdoor for service requests and drafts replies for approval.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			l, err := logger.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Path to the env file to read settings from.")

	root.AddCommand(
		newRunCommand(a),
		newMigrateCommand(a),
		newPostsCommand(a),
		newVersionCommand(),
	)
	return root
}

// ExecuteContext runs the CLI and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the build version.",
		Args:  cobra.NoArgs,
		// The version needs no config or logger.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "nextdoor-crawler", Version)
		},
	}
}
