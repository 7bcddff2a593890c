package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/server"
	"github.com/jonathan/applypilot/internal/server/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that runs autopilot batches and imports jobs.

When server.jwt_secret (or JWT_SECRET) is set, every endpoint except /health and
/metrics requires a bearer token; issue one with the token command.`,
	RunE: runServe,
}

var (
	servePort   int
	serveAPIKey string
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "Gemini API key (default: config, GEMINI_API_KEY, then OS keyring)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	jwtConfig, err := cfg.JWT()
	if err != nil {
		return fmt.Errorf("invalid JWT settings: %w", err)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, appOptions{needDB: true, needLLM: true, apiKey: serveAPIKey})
	if err != nil {
		return err
	}
	defer a.Close()

	rateLimit := ratelimit.DefaultConfig().WithLists(
		os.Getenv("RATE_LIMIT_WHITELIST"),
		os.Getenv("RATE_LIMIT_BLACKLIST"),
	)

	srv, err := server.New(server.Config{
		Port:      cfg.Server.Port,
		Runner:    a.runner(nil),
		Importer:  a.importer(),
		Metrics:   a.metrics,
		Defaults:  batchDefaults(cfg),
		JWT:       jwtConfig,
		RateLimit: rateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
