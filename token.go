package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storefront/auth"
	"storefront/config"
)

func tokenCmd() *cobra.Command {
	var admin bool
	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Mint a development bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret is required")
			}
			tok, err := auth.NewAuthenticator(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Issue(args[0], admin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin privileges")
	return cmd
}
