// Package llm defines the chat interface shared by the model providers.
package llm

import "context"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest holds the request parameters
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
}

// Message represents a chat message
type Message struct {
	Role    string
	Content string
}

// ChatResponse holds the response from the LLM
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// DefaultMaxTokens applies when a request leaves MaxTokens unset
const DefaultMaxTokens = 1024

// MaxTokensOrDefault returns n, or DefaultMaxTokens when n is not positive
func MaxTokensOrDefault(n int) int {
	if n <= 0 {
		return DefaultMaxTokens
	}
	return n
}
