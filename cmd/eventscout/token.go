package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lnup/eventscout/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenSubject  string
	tokenDuration time.Duration
	tokenSecret   string
)

// tokenCmd mints an admin bearer token
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the admin API",
	Long: `Sign a bearer token with ADMIN_JWT_SECRET for the /api/admin routes.

Examples:
  # Token valid for one day
  eventscout token --subject ops

  # Use it
  curl -H "Authorization: Bearer $(eventscout token)" localhost:8080/api/admin/discover?city=Passau`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "subject recorded in the token")
	tokenCmd.Flags().DurationVar(&tokenDuration, "ttl", 24*time.Hour, "token lifetime")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "signing secret (defaults to ADMIN_JWT_SECRET)")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	secret := strings.TrimSpace(tokenSecret)
	if secret == "" {
		secret = cfg.Auth.JWTSecret
	}
	if secret == "" {
		return errors.New("no JWT secret: set ADMIN_JWT_SECRET or pass --secret")
	}

	token, err := auth.GenerateToken(tokenSubject, secret, tokenDuration)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
