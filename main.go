package main

// GET  /healthz                       - liveness + DB ping
// /api/categories, /api/products      - catalog (writes are admin only)
// /api/cart/...                       - the caller's cart
// /api/orders/...                     - checkout, order history, cancel, payment
// POST /api/webhook/stripe            - provider notifications

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storefront/config"
)

//go:embed migrations.sql
var migrationSQL string

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront - catalog, cart, checkout and payments backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
