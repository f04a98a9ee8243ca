package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// BotConfigResponse represents the bot config API response.
type BotConfigResponse struct {
	Enabled     bool   `json:"enabled"`
	Name        string `json:"name"`
	Personality string `json:"personality"`
}

// ConfigCmd creates the config command.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config <bot-id>",
		Short: "Show a bot's frontend configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("json")
			return runConfig(NewAPIClientWithCmd(cmd), args[0], outputJSON)
		},
	}

	cmd.Flags().Bool("json", false, "Print the raw JSON response")

	return cmd
}

func runConfig(api *APIClient, botID string, outputJSON bool) error {
	resp, err := api.Get("/" + botID + "/config")
	if err != nil {
		return fmt.Errorf("failed to fetch config: %w", err)
	}

	var config BotConfigResponse
	if err := json.Unmarshal(resp.Data, &config); err != nil {
		return fmt.Errorf("failed to parse config response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(config, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	status := "disabled"
	if config.Enabled {
		status = "enabled"
	}
	fmt.Printf("%s (%s)\n", config.Name, status)
	fmt.Printf("Personality: %s\n", config.Personality)
	return nil
}
