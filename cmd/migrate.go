package cmd

import (
	"fmt"

	"github.com/frahmantamala/employee-portal/internal/session/sqlstore"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the session storage migrations embedded under db/migrations",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	db, err := sqlstore.Connect(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx, migrateRollback); err != nil {
		return err
	}

	version, err := db.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s storage at version %d\n", cfg.Storage.Driver, version)
	return nil
}
