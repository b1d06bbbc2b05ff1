package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"botcore/internal/config"
	"botcore/internal/statestore"
)

// migrateCommand applies the Postgres schema migration. Run before
// the first `serve`/`install`/`seed-root` against a fresh database;
// a no-op (and an error) in mock mode, which has no schema to migrate.
func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetConfig()
			if cfg.StoreType != config.PostgresStoreType {
				return fmt.Errorf("migrate requires BOT_STORE_TYPE=postgres (or unset)")
			}
			store, err := statestore.NewPostgresStore(cfg.DBConnString)
			if err != nil {
				return fmt.Errorf("connecting to store: %w", err)
			}
			defer store.Close()
			return store.Migrate(cmd.Context())
		},
	}
}
