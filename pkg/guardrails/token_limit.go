package guardrails

import (
	"context"
	"fmt"
	"strings"
)

// TokenCounter is an interface for counting tokens in text
type TokenCounter interface {
	CountTokens(text string) (int, error)
}

// SimpleTokenCounter approximates token counts by whitespace splitting
type SimpleTokenCounter struct{}

// CountTokens counts tokens in text
func (s *SimpleTokenCounter) CountTokens(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// TokenLimit implements a guardrail that limits the number of tokens
type TokenLimit struct {
	maxTokens    int
	counter      TokenCounter
	action       Action
	truncateMode string // "start", "end", or "middle"
}

// NewTokenLimit creates a new token limit guardrail
func NewTokenLimit(maxTokens int, counter TokenCounter, action Action, truncateMode string) *TokenLimit {
	if counter == nil {
		counter = &SimpleTokenCounter{}
	}
	if truncateMode == "" {
		truncateMode = "end"
	}

	return &TokenLimit{
		maxTokens:    maxTokens,
		counter:      counter,
		action:       action,
		truncateMode: truncateMode,
	}
}

// Type returns the type of guardrail
func (t *TokenLimit) Type() GuardrailType {
	return TokenLimitGuardrail
}

// CheckRequest checks if a request violates the guardrail
func (t *TokenLimit) CheckRequest(ctx context.Context, request string) (bool, string, error) {
	return t.check(request)
}

// CheckResponse checks if a response violates the guardrail
func (t *TokenLimit) CheckResponse(ctx context.Context, response string) (bool, string, error) {
	return t.check(response)
}

func (t *TokenLimit) check(text string) (bool, string, error) {
	tokens, err := t.counter.CountTokens(text)
	if err != nil {
		return false, text, fmt.Errorf("failed to count tokens: %w", err)
	}

	if tokens <= t.maxTokens {
		return false, text, nil
	}

	return true, t.truncate(text), nil
}

// Action returns the action to take when the guardrail is triggered
func (t *TokenLimit) Action() Action {
	return t.action
}

// truncate trims text to the maximum token limit
func (t *TokenLimit) truncate(text string) string {
	words := strings.Fields(text)
	if len(words) <= t.maxTokens {
		return text
	}

	switch t.truncateMode {
	case "start":
		return strings.Join(words[len(words)-t.maxTokens:], " ")
	case "middle":
		half := t.maxTokens / 2
		return strings.Join(words[:half], " ") + " ... " + strings.Join(words[len(words)-half:], " ")
	default:
		return strings.Join(words[:t.maxTokens], " ") + " ..."
	}
}
