package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faucetdb/driftguard/internal/service"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		scopes  []string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API",
		Long: `Issue a JWT signed with server.jwt_secret. Scope "read" allows the catalog,
rules, runs and services endpoints; scope "check" allows running checks and
suggestions. Without --scope the token carries both.`,
		Example: `  DRIFTGUARD_SERVER_JWT_SECRET=... driftguard token --subject ci --scope check --ttl 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			authSvc := service.NewAuthService(cfg.Server.JWTSecret)
			if !authSvc.Enabled() {
				return errors.New("server.jwt_secret is not set; set it in the config file or DRIFTGUARD_SERVER_JWT_SECRET")
			}
			if ttl <= 0 {
				ttl = cfg.Server.TokenTTL(24 * time.Hour)
			}

			token, err := authSvc.IssueJWT(subject, scopes, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "driftguard-cli", "Token subject, logged with each request")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scopes to grant: read, check")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default server.jwt_expiry)")

	return cmd
}
