package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pharmaledger/internal/config"
	appctx "pharmaledger/internal/core/context"
	"pharmaledger/internal/domain/auth"
)

// tokenCmd issues access tokens for staff. The ledger has no login flow of
// its own; tokens come from an identity provider or from this command.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			name, _ := cmd.Flags().GetString("name")
			roles, _ := cmd.Flags().GetStringSlice("roles")
			perms, _ := cmd.Flags().GetStringSlice("permissions")
			admin, _ := cmd.Flags().GetBool("admin")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
			if cfg.JWTIssuer != "" {
				jwtConfig.Issuer = cfg.JWTIssuer
			}
			if ttl > 0 {
				jwtConfig.AccessTokenTTL = ttl
			}

			token, expiresAt, err := auth.NewJWTService(jwtConfig).GenerateAccessToken(&appctx.UserContext{
				UserID:      userID,
				Name:        name,
				Roles:       roles,
				Permissions: perms,
				IsAdmin:     admin,
			})
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			fmt.Println(token)
			fmt.Printf("# expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	issue.Flags().String("user", "", "Staff user id (required)")
	issue.Flags().String("name", "", "Display name")
	issue.Flags().StringSlice("roles", nil, "Roles: cashier, pharmacist, manager, admin")
	issue.Flags().StringSlice("permissions", nil, "Extra permissions, e.g. stock:write")
	issue.Flags().Bool("admin", false, "Grant every permission")
	issue.Flags().Duration("ttl", 0, "Token lifetime; defaults to the configured access TTL")
	_ = issue.MarkFlagRequired("user")
	cmd.AddCommand(issue)

	return cmd
}
