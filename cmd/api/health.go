package main

import (
	"context"
	"fmt"
	"time"

	"voice-orchestrator/internal/auth"
	"voice-orchestrator/internal/config"
	"voice-orchestrator/internal/livekit"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the room platform answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tokens, err := auth.NewManager(cfg.LiveKit)
			if err != nil {
				return err
			}
			client, err := livekit.NewClient(livekit.Config{URL: cfg.LiveKit.URL, Timeout: timeout}, tokens)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			n, err := client.HealthCheck(ctx)
			if err != nil {
				return fmt.Errorf("platform unhealthy at %s: %w", cfg.LiveKit.URL, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "healthy: %s (%d rooms, agent %s)\n", cfg.LiveKit.URL, n, cfg.LiveKit.AgentName)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	return cmd
}
