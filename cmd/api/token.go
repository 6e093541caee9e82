package main

import (
	"encoding/json"
	"fmt"
	"time"

	"voice-orchestrator/internal/auth"
	"voice-orchestrator/internal/config"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		room     string
		identity string
		name     string
		metadata string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a participant token and print its claims",
		Long: `Mint a caller-style join token for a room with the configured API
key and secret, then verify it and print the decoded claims. Useful for
joining a room by hand or checking credentials.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			tokens, err := auth.NewManager(cfg.LiveKit)
			if err != nil {
				return err
			}

			now := time.Now()
			tok, err := tokens.IssueParticipant(now, auth.ParticipantGrant{
				Identity: identity,
				Name:     name,
				Metadata: metadata,
				Room:     room,
				TTL:      ttl,
			})
			if err != nil {
				return err
			}
			claims, err := tokens.Verify(tok, now)
			if err != nil {
				return fmt.Errorf("minted token does not verify: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, tok)
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(claims)
		},
	}

	cmd.Flags().StringVar(&room, "room", "", "Room the token is scoped to (required)")
	cmd.Flags().StringVar(&identity, "identity", "", "Participant identity (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&metadata, "metadata", "", "Participant metadata")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultParticipantTTL, "Token lifetime")
	_ = cmd.MarkFlagRequired("room")
	_ = cmd.MarkFlagRequired("identity")

	return cmd
}
