package main

import (
	"github.com/spf13/cobra"

	"storefront/store"
	"storefront/telemetry"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := telemetry.InitLogger(cfg.LogLevel)

			st, err := store.NewPostgresStore(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Migrate(cmd.Context(), migrationSQL); err != nil {
				return err
			}
			logger.Info("database migrations applied")
			return nil
		},
	}
}
