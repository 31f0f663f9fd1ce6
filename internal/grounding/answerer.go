package grounding

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/sheetpulse/internal/llm"
)

// Answerer produces a natural-language answer from a question and the
// grounding text built for it.
type Answerer interface {
	Answer(ctx context.Context, question, groundingText string) (string, error)
}

const systemPrompt = `You are a market data assistant. Answer questions using only the dataset summary and records provided in the user message.
If the data does not contain the answer, say so plainly. Do not invent symbols, prices or indicator values.
Mention symbols exactly as they appear in the records.`

// LLMAnswerer answers through an llm.Provider.
type LLMAnswerer struct {
	provider    llm.Provider
	maxTokens   int
	temperature float64
	onUsage     func(provider string, usage llm.Usage)
}

// NewLLMAnswerer creates an answerer backed by provider. onUsage, when not
// nil, receives the token usage of every successful call.
func NewLLMAnswerer(provider llm.Provider, maxTokens int, temperature float64, onUsage func(string, llm.Usage)) *LLMAnswerer {
	return &LLMAnswerer{
		provider:    provider,
		maxTokens:   maxTokens,
		temperature: temperature,
		onUsage:     onUsage,
	}
}

func (a *LLMAnswerer) Answer(ctx context.Context, question, groundingText string) (string, error) {
	var sb strings.Builder
	sb.WriteString(groundingText)
	sb.WriteString("\n## Question:\n")
	sb.WriteString(question)
	sb.WriteString("\n")

	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: sb.String()},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.provider.Name(), err)
	}
	if a.onUsage != nil {
		a.onUsage(a.provider.Name(), resp.Usage)
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return "", fmt.Errorf("%s returned an empty answer", a.provider.Name())
	}
	return answer, nil
}
