// Command api runs the call-session orchestrator and its operator tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "voice-orchestrator",
		Short: "Webhook-driven call-session orchestrator",
		Long: `voice-orchestrator answers inbound call notifications by creating a
room on the media platform, dispatching a voice agent into it and handing
the caller a join token, or rejecting the call cleanly.

Configuration comes from the environment (LIVEKIT_URL, LIVEKIT_API_KEY,
LIVEKIT_API_SECRET, APP_ENV, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newHealthCmd())

	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
