// Package skills defines the prompt skills the advisory pipeline chains
// together, and the model client they run on.
package skills

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

// Completer turns a rendered prompt into generated text. Skills depend on
// this narrow contract rather than a concrete SDK client so tests can
// substitute a fake model.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int64) (string, error)
}

// AnthropicCompleter runs prompts through the Claude Messages API.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicCompleter creates a completer for the given model.
func NewAnthropicCompleter(client *anthropic.Client, model string) *AnthropicCompleter {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicCompleter{client: client, model: model}
}

// Complete sends the prompt as a single user message and concatenates the
// text blocks of the response.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	if maxTokens == 0 {
		maxTokens = 1024
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
