package client

import (
	"encoding/json"
	"fmt"

	"github.com/botsmith-ai/botsmith/internal/domain"
	"github.com/spf13/cobra"
)

// ChatRequest represents the chat API request.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse represents the chat API response.
type ChatResponse struct {
	Response string          `json:"response"`
	Sources  []domain.Source `json:"sources"`
}

// chatStreamEvent mirrors the server's SSE payloads.
type chatStreamEvent struct {
	Delta   string          `json:"delta,omitempty"`
	Done    bool            `json:"done,omitempty"`
	Sources []domain.Source `json:"sources,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ChatCmd creates the chat command.
func ChatCmd() *cobra.Command {
	var (
		stream    bool
		sessionID string
		showJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "chat <bot-id> <message>",
		Short: "Send a message to a bot",
		Long:  "Sends a message to a bot and prints its response.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := NewAPIClientWithCmd(cmd)
			if stream {
				return runChatStream(api, args[0], args[1], sessionID)
			}
			return runChat(api, args[0], args[1], sessionID, showJSON)
		},
	}

	cmd.Flags().BoolVarP(&stream, "stream", "s", false, "Stream the response as it is generated")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID for chat log correlation")
	cmd.Flags().BoolVar(&showJSON, "json", false, "Print the raw JSON response")

	return cmd
}

func runChat(api *APIClient, botID, message, sessionID string, showJSON bool) error {
	resp, err := api.Post("/"+botID+"/chat", ChatRequest{
		Message:   message,
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(resp.Data, &chatResp); err != nil {
		return fmt.Errorf("failed to parse chat response: %w", err)
	}

	if showJSON {
		output, _ := json.MarshalIndent(chatResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(chatResp.Response)
	printSources(chatResp.Sources)
	return nil
}

func runChatStream(api *APIClient, botID, message, sessionID string) error {
	var sources []domain.Source
	var streamErr string

	err := api.PostStream("/"+botID+"/chat/stream", ChatRequest{
		Message:   message,
		SessionID: sessionID,
	}, func(data json.RawMessage) error {
		var event chatStreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("failed to parse stream event: %w", err)
		}
		switch {
		case event.Error != "":
			streamErr = event.Error
		case event.Done:
			sources = event.Sources
		default:
			fmt.Print(event.Delta)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	fmt.Println()
	if streamErr != "" {
		return fmt.Errorf("chat failed: %s", streamErr)
	}
	printSources(sources)
	return nil
}

func printSources(sources []domain.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for _, s := range sources {
		fmt.Printf("  %s (%.2f)\n", s.Category, s.Similarity)
	}
}
