package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// SuggestionsResponse represents the suggestions API response.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// SuggestionsCmd creates the suggestions command.
func SuggestionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions <bot-id>",
		Short: "Show a bot's suggested questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggestions(NewAPIClientWithCmd(cmd), args[0])
		},
	}
}

func runSuggestions(api *APIClient, botID string) error {
	resp, err := api.Get("/" + botID + "/suggestions")
	if err != nil {
		return fmt.Errorf("failed to fetch suggestions: %w", err)
	}

	var suggestions SuggestionsResponse
	if err := json.Unmarshal(resp.Data, &suggestions); err != nil {
		return fmt.Errorf("failed to parse suggestions response: %w", err)
	}

	if len(suggestions.Suggestions) == 0 {
		fmt.Println("No suggestions configured.")
		return nil
	}
	for _, s := range suggestions.Suggestions {
		fmt.Printf("  - %s\n", s)
	}
	return nil
}
