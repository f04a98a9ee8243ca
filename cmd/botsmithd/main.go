package main

import (
	"fmt"
	"os"

	"github.com/botsmith-ai/botsmith/internal/cli"
	"github.com/botsmith-ai/botsmith/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "botsmithd",
		Short: "Botsmith daemon and CLI",
		Long:  "Botsmith daemon for running the API server and managing bot embeddings",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.EmbedCmd())
	rootCmd.AddCommand(admin.SnapshotCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
