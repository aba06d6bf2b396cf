package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"replication-connector/internal/replication/adapter/security"
	"replication-connector/internal/replication/config"
)

var (
	agentID  string
	tokenTTL time.Duration

	rootCmd = &cobra.Command{
		Use:   "tokengen",
		Short: "Issue a bearer token for an agent host",
		Long: `tokengen signs a service token with JWT_SECRET_KEY so an agent host
can call the connector's REST and websocket routes.`,
		Args: cobra.NoArgs,
		RunE: runGenerate,
	}
)

func init() {
	rootCmd.Flags().StringVar(&agentID, "agent", "", "agent id carried in the token")
	rootCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to JWT_TOKEN_TTL)")
	_ = rootCmd.MarkFlagRequired("agent")
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	var auth config.AuthConfig
	if err := env.Parse(&auth); err != nil {
		return fmt.Errorf("failed to parse auth config: %w", err)
	}
	if tokenTTL > 0 {
		auth.TokenTTL = tokenTTL
	}

	tokens, err := security.NewTokenService(auth)
	if err != nil {
		return err
	}
	token, err := tokens.GenerateToken(context.Background(), agentID)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
