package nlp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/finsight/fingraph/pkg/types"
)

// OpenAIClient implements the Client interface for OpenAI and
// OpenAI-compatible services (Ollama, vLLM, llama.cpp server).
type OpenAIClient struct {
	client *openai.Client
	config Config
}

// NewOpenAIClient creates a new OpenAI client. A custom BaseURL switches the
// client to an OpenAI-compatible service; some of those accept any API key.
func NewOpenAIClient(apiKey string, config Config) (*OpenAIClient, error) {
	var client *openai.Client

	if config.BaseURL != "" {
		if err := validateBaseURL(config.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		if apiKey == "" {
			apiKey = "dummy-key"
		}

		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = config.BaseURL
		// Many services expect "/v1" appended to the base URL.
		if !hasAPIPath(config.BaseURL) {
			clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/") + "/v1"
		}
		client = openai.NewClientWithConfig(clientConfig)
	} else {
		if apiKey == "" {
			return nil, fmt.Errorf("api key is required without a custom base URL")
		}
		client = openai.NewClient(apiKey)
	}

	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}

	return &OpenAIClient{client: client, config: config}, nil
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return c.complete(ctx, messages, false)
}

// ChatJSON sends a chat completion request with JSON output mode enabled.
func (c *OpenAIClient) ChatJSON(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return c.complete(ctx, messages, true)
}

func (c *OpenAIClient) complete(ctx context.Context, messages []types.Message, jsonMode bool) (*types.Response, error) {
	req := c.buildChatRequest(messages, jsonMode)

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &EmptyResponseError{Message: "no choices returned from model"}
	}

	choice := resp.Choices[0]
	response := &types.Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
	}
	if resp.Usage.TotalTokens > 0 {
		response.TokensUsed = &types.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return response, nil
}

// Ping issues a minimal completion to verify the endpoint is reachable and
// the credentials work.
func (c *OpenAIClient) Ping(ctx context.Context) types.ConnectionStatus {
	status := types.ConnectionStatus{
		Endpoint:  c.endpoint(),
		CheckedAt: time.Now().UTC(),
	}

	req := openai.ChatCompletionRequest{
		Model:     c.config.Model,
		MaxTokens: 1,
		Messages: []openai.ChatCompletionMessage{
			{Role: string(RoleUser), Content: "ping"},
		},
	}

	_, err := c.client.CreateChatCompletion(ctx, req)
	if err == nil {
		status.State = types.ConnectionOK
		status.Message = "model endpoint reachable"
		return status
	}

	status.Message = err.Error()
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		status.State = types.ConnectionAuthFailed
		status.Suggestion = "check the LLM api_key setting"
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") || strings.Contains(msg, "dial tcp"):
		status.State = types.ConnectionUnreachable
		status.Suggestion = fmt.Sprintf("check that the model service is running at %s", status.Endpoint)
	default:
		status.State = types.ConnectionNotReady
		status.Suggestion = "endpoint answered but the model is not serving; check the model name"
	}
	return status
}

// Close cleans up resources (no-op for the OpenAI client).
func (c *OpenAIClient) Close() error {
	return nil
}

func (c *OpenAIClient) endpoint() string {
	if c.config.BaseURL != "" {
		return c.config.BaseURL
	}
	return "https://api.openai.com"
}

func (c *OpenAIClient) buildChatRequest(messages []types.Message, jsonMode bool) openai.ChatCompletionRequest {
	openaiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		openaiMessages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: openaiMessages,
	}
	if c.config.Temperature != nil {
		req.Temperature = *c.config.Temperature
	}
	if c.config.MaxTokens != nil {
		req.MaxTokens = *c.config.MaxTokens
	}
	if len(c.config.Stop) > 0 {
		req.Stop = c.config.Stop
	}

	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
		// OpenAI-compatible services often ignore response_format unless the
		// prompt also asks for JSON.
		if c.config.BaseURL != "" && len(req.Messages) > 0 {
			last := &req.Messages[len(req.Messages)-1]
			if last.Role == string(RoleUser) {
				last.Content += "\n\nRespond with valid JSON only."
			}
		}
	}
	return req
}

// validateBaseURL validates the base URL format.
func validateBaseURL(baseURL string) error {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("baseURL must include scheme (http:// or https://)")
	}
	if parsed.Host == "" {
		return fmt.Errorf("baseURL must include a host")
	}
	return nil
}

// hasAPIPath reports whether the URL already carries an API version path.
func hasAPIPath(baseURL string) bool {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	return strings.Contains(parsed.Path, "/v1")
}
