package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/botsmith-ai/botsmith/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the completion model used when none is configured
	DefaultChatModel = openai.GPT4oMini
	// DefaultMaxTokens caps completion length; responses are meant to be short
	// and conversational.
	DefaultMaxTokens = 1000
)

// ChatAPI defines the completion surface this package needs from the SDK.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// ChatClient generates text completions from a system prompt and a message
// sequence. It is a thin pass-through: no retries, failures surface to the
// caller.
type ChatClient struct {
	api       ChatAPI
	model     string
	maxTokens int
}

type ChatConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
}

// NewChatClient creates a ChatClient with explicit configuration.
func NewChatClient(cfg ChatConfig) *ChatClient {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &ChatClient{
		api:       openai.NewClient(cfg.APIKey),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *ChatClient) buildRequest(systemPrompt string, messages []domain.ChatMessage) openai.ChatCompletionRequest {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  chatMessages,
	}
}

// Complete returns the model's full text response.
func (c *ChatClient) Complete(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.buildRequest(systemPrompt, messages))
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteStream invokes onFragment for each text fragment as it arrives and
// returns the accumulated response once the stream terminates. An onFragment
// error abandons the stream.
func (c *ChatClient) CompleteStream(ctx context.Context, systemPrompt string, messages []domain.ChatMessage, onFragment func(string) error) (string, error) {
	req := c.buildRequest(systemPrompt, messages)
	req.Stream = true

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion stream: %w", err)
	}
	defer stream.Close()

	var full string
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full, nil
		}
		if err != nil {
			return full, fmt.Errorf("stream receive failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		fragment := resp.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}
		full += fragment
		if onFragment != nil {
			if err := onFragment(fragment); err != nil {
				return full, err
			}
		}
	}
}
