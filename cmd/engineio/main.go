package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engineio",
		Short: "Engine.IO protocol server",
		Long: `engineio serves the Engine.IO protocol (revision 3) over HTTP
long-polling and WebSocket.

The serve command runs an echo application that sends every message
back to the client that sent it, which is enough to exercise a client
library end to end.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)
	return cmd
}
