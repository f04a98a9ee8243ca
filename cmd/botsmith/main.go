package main

import (
	"fmt"
	"os"

	"github.com/botsmith-ai/botsmith/internal/cli"
	"github.com/botsmith-ai/botsmith/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "botsmith",
		Short: "Botsmith CLI - Talk to a running botsmith server",
		Long: `Botsmith CLI provides commands to chat with bots served by a botsmith API server.

Environment variables:
  BOTSMITH_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.ConfigCmd())
	rootCmd.AddCommand(client.SuggestionsCmd())
	rootCmd.AddCommand(client.WarmupCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
