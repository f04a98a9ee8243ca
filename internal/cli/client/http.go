// Package client implements the botsmith CLI commands that talk to a running
// API server. The chat endpoints are public, so there is no credential
// handling; only the server URL is configurable.
package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL = "BOTSMITH_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClientWithCmd creates an APIClient with config cascade: flag → env → default.
func NewAPIClientWithCmd(cmd *cobra.Command) *APIClient {
	_ = godotenv.Load()

	var baseURL string

	if cmd != nil {
		if flagURL, err := cmd.Flags().GetString("api-url"); err == nil && flagURL != "" {
			baseURL = flagURL
		}
	}

	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func NewAPIClient() *APIClient {
	return NewAPIClientWithCmd(nil)
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request.
func (c *APIClient) Get(path string) (*APIResponse, error) {
	return c.do("GET", path, nil)
}

// Post performs a POST request with JSON body.
func (c *APIClient) Post(path string, body interface{}) (*APIResponse, error) {
	return c.do("POST", path, body)
}

func (c *APIClient) do(method, path string, body interface{}) (*APIResponse, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
			}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiResp.Error,
		}
	}

	return &apiResp, nil
}

// PostStream performs a POST request against a server-sent-events endpoint and
// invokes onEvent for each data payload until the stream ends.
func (c *APIClient) PostStream(path string, body interface{}, onEvent func(json.RawMessage) error) error {
	url := c.baseURL + path

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		var apiResp APIResponse
		if err := json.Unmarshal(respBody, &apiResp); err == nil && apiResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: apiResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		if err := onEvent(json.RawMessage(strings.TrimPrefix(line, "data: "))); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}

	return nil
}
