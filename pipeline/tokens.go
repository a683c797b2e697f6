package pipeline

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens with the cl100k_base encoding for cost and
// debugging visibility.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter loads the encoding. This fetches BPE data on first use,
// so construct it once at startup.
func NewTokenCounter() (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load cl100k_base encoding: %w", err)
	}
	return &TokenCounter{enc: enc}, nil
}

// Count returns the token count for the text.
func (c *TokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
