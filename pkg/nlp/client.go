// Package nlp provides language model clients and the decorators the
// ingestion pipeline wraps them in: retry with exponential backoff and
// circuit breaking.
package nlp

import (
	"context"

	"github.com/finsight/fingraph/pkg/types"
)

// Client defines the interface for language model operations.
type Client interface {
	// Chat sends a chat completion request and returns the raw response.
	Chat(ctx context.Context, messages []types.Message) (*types.Response, error)

	// ChatJSON sends a chat completion request with the provider's JSON
	// output mode enabled. The response content is still raw text; callers
	// own parsing and validation.
	ChatJSON(ctx context.Context, messages []types.Message) (*types.Response, error)

	// Ping probes the model endpoint and classifies the outcome.
	Ping(ctx context.Context) types.ConnectionStatus

	// Close cleans up any resources.
	Close() error
}

const (
	// RoleSystem represents a system message.
	RoleSystem types.Role = "system"
	// RoleUser represents a user message.
	RoleUser types.Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant types.Role = "assistant"
)

// Config holds configuration for LLM clients.
type Config struct {
	Model       string   `json:"model"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	// BaseURL points at an OpenAI-compatible service (e.g. a local Ollama
	// endpoint) instead of api.openai.com.
	BaseURL string `json:"base_url,omitempty"`
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) types.Message {
	return types.Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) types.Message {
	return types.Message{Role: RoleUser, Content: content}
}
