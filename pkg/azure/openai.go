package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"budget-insight-api/pkg/resilience"
)

// OpenAIClient calls the chat completions endpoint of an Azure OpenAI deployment.
// endpoint may also be a reverse proxy forwarding to Azure.
type OpenAIClient struct {
	endpoint           string
	apiKey             string
	apiVersion         string
	chatDeploymentName string
	httpClient         *http.Client
}

// NewOpenAIClient creates a client. A zero timeout means 30 seconds.
func NewOpenAIClient(endpoint, apiKey, apiVersion, chatDeploymentName string, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		endpoint:           endpoint,
		apiKey:             apiKey,
		apiVersion:         apiVersion,
		chatDeploymentName: chatDeploymentName,
		httpClient:         &http.Client{Timeout: timeout},
	}
}

// ChatMessage one message of the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest body of a chat completion call.
type ChatCompletionRequest struct {
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// ChatCompletionResponse chat completion answer.
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// ErrorResponse error body returned by the API.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ChatCompletion runs a chat completion on the configured deployment.
func (c *OpenAIClient) ChatCompletion(ctx context.Context, messages []ChatMessage, maxTokens int, temperature float32, topP float32, stream bool) (*ChatCompletionResponse, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimSuffix(c.endpoint, "/"), c.chatDeploymentName, c.apiVersion)

	request := ChatCompletionRequest{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
		Stream:      stream,
	}

	var response ChatCompletionResponse
	if err := c.doRequest(ctx, url, request, &response); err != nil {
		return nil, fmt.Errorf("azure openai chat completion: %w", err)
	}
	return &response, nil
}

// doRequest posts requestData as JSON and decodes a 200 answer into responseData.
// Other statuses come back as *resilience.StatusError.
func (c *OpenAIClient) doRequest(ctx context.Context, url string, requestData, responseData any) error {
	if c.apiKey == "" {
		return fmt.Errorf("api key is not configured")
	}

	requestBody, err := json.Marshal(requestData)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			msg = errorResp.Error.Message
		}
		return &resilience.StatusError{Operation: "azure openai", StatusCode: resp.StatusCode, Body: msg}
	}

	if err := json.Unmarshal(body, responseData); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
