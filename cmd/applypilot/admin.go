package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/server"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, cfg, appOptions{needDB: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.db.Migrate(ctx); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
		return nil
	},
}

var setAPIKeyCmd = &cobra.Command{
	Use:   "set-api-key [key]",
	Short: "Store the Gemini API key in the OS keyring",
	Long: `Stores the key under the configured keyring account. With no argument the key
is read from standard input. Use --delete to remove the stored key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSetAPIKey,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	RunE:  runToken,
}

var (
	deleteAPIKey bool
	tokenSubject string
)

func init() {
	setAPIKeyCmd.Flags().BoolVar(&deleteAPIKey, "delete", false, "Remove the stored key")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "Name recorded in the token")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(setAPIKeyCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runSetAPIKey(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if deleteAPIKey {
		if err := cfg.DeleteAPIKey(); err != nil {
			return fmt.Errorf("failed to delete API key: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Removed API key for account %q\n", cfg.KeyringAccount)
		return nil
	}

	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		key = line
	}

	if err := cfg.StoreAPIKey(strings.TrimSpace(key)); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Stored API key for account %q\n", cfg.KeyringAccount)
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtConfig, err := cfg.JWT()
	if err != nil {
		return fmt.Errorf("invalid JWT settings: %w", err)
	}
	if jwtConfig == nil {
		return fmt.Errorf("server.jwt_secret is not set (set JWT_SECRET or APPLYPILOT_SERVER__JWT_SECRET)")
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenSubject)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
