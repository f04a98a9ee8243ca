package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// WarmupResponse represents the warmup API response.
type WarmupResponse struct {
	Status     string `json:"status"`
	Embeddings int    `json:"embeddings"`
}

// WarmupCmd creates the warmup command.
func WarmupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "warmup <bot-id>",
		Short: "Warm a bot's embedding cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWarmup(NewAPIClientWithCmd(cmd), args[0])
		},
	}
}

func runWarmup(api *APIClient, botID string) error {
	resp, err := api.Get("/" + botID + "/warmup")
	if err != nil {
		return fmt.Errorf("warmup failed: %w", err)
	}

	var warmup WarmupResponse
	if err := json.Unmarshal(resp.Data, &warmup); err != nil {
		return fmt.Errorf("failed to parse warmup response: %w", err)
	}

	if warmup.Status != "warm" {
		return fmt.Errorf("warmup failed for bot %s", botID)
	}
	fmt.Printf("%s: cache warm with %d embeddings\n", botID, warmup.Embeddings)
	return nil
}
