package main

import (
	"fmt"
	"time"

	"github.com/mohammad-safakhou/curator/config"
	srv "github.com/mohammad-safakhou/curator/internal/server"
	"github.com/spf13/cobra"
)

// tokenCMD issues a bearer token for the configured operator, for wiring a
// chat bridge or calling the API by hand.
func tokenCMD() *cobra.Command {
	var cfgPath string
	var ttl time.Duration
	var token = &cobra.Command{
		Use:   "token",
		Short: "Issue an operator API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return fmt.Errorf("jwt secret not configured (server.jwt_secret)")
			}
			signed, err := srv.SignJWT(cfg.Operator.ID, []byte(cfg.Server.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	token.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	token.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return token
}
