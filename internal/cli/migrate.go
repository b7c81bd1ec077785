package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/nextdoor-crawler/internal/adapter/postgres"
	"github.com/user/nextdoor-crawler/internal/adapter/sqlite"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates or upgrades the post store schema.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if strings.EqualFold(a.cfg.StoreDriver, "postgres") {
				pool, err := postgres.Connect(ctx, a.cfg.PostgresURL)
				if err != nil {
					return err
				}
				pool.Close()
				fmt.Fprintln(out, "postgres schema is up to date")
				return nil
			}

			// Open migrates; Migrate again only to report the version.
			db, err := sqlite.Open(a.cfg.SQLitePath)
			if err != nil {
				return err
			}
			defer db.Close()
			version, err := sqlite.Migrate(db)
			if err != nil {
				return err
			}
			a.logger.Info("sqlite schema migrated", zap.String("path", a.cfg.SQLitePath), zap.Uint("version", version))
			fmt.Fprintf(out, "%s is at schema version %d\n", a.cfg.SQLitePath, version)
			return nil
		},
	}
}
