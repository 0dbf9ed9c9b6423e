// Package guardrails screens agent inputs and outputs before they reach
// the model or the caller.
package guardrails

import (
	"context"
	"fmt"

	"github.com/codescribe-ai/codescribe/pkg/logging"
)

// Action determines what happens when a guardrail is triggered
type Action string

const (
	// ActionBlock rejects the text outright
	ActionBlock Action = "block"

	// ActionModify passes the guardrail's modified text through
	ActionModify Action = "modify"

	// ActionWarn logs the violation but passes the original text
	ActionWarn Action = "warn"
)

// GuardrailType identifies a kind of guardrail
type GuardrailType string

const (
	ContentFilterGuardrail GuardrailType = "content_filter"
	PiiFilterGuardrail     GuardrailType = "pii_filter"
	TokenLimitGuardrail    GuardrailType = "token_limit"
)

// Guardrail checks text for violations of one policy
type Guardrail interface {
	// Type returns the type of guardrail
	Type() GuardrailType

	// CheckRequest checks if a request violates the guardrail
	CheckRequest(ctx context.Context, request string) (bool, string, error)

	// CheckResponse checks if a response violates the guardrail
	CheckResponse(ctx context.Context, response string) (bool, string, error)

	// Action returns the action to take when the guardrail is triggered
	Action() Action
}

// Chain runs a sequence of guardrails and implements interfaces.Guardrails
type Chain struct {
	guardrails []Guardrail
	logger     logging.Logger
}

// ChainOption configures a Chain
type ChainOption func(*Chain)

// WithLogger sets the logger used for warnings
func WithLogger(logger logging.Logger) ChainOption {
	return func(c *Chain) {
		c.logger = logger
	}
}

// NewChain creates a chain running the given guardrails in order
func NewChain(guardrails []Guardrail, options ...ChainOption) *Chain {
	chain := &Chain{
		guardrails: guardrails,
		logger:     logging.New(),
	}

	for _, option := range options {
		option(chain)
	}

	return chain
}

// ProcessInput applies all guardrails to an input string
func (c *Chain) ProcessInput(ctx context.Context, input string) (string, error) {
	return c.process(ctx, input, true)
}

// ProcessOutput applies all guardrails to an output string
func (c *Chain) ProcessOutput(ctx context.Context, output string) (string, error) {
	return c.process(ctx, output, false)
}

func (c *Chain) process(ctx context.Context, text string, isInput bool) (string, error) {
	current := text

	for _, guardrail := range c.guardrails {
		var triggered bool
		var modified string
		var err error

		if isInput {
			triggered, modified, err = guardrail.CheckRequest(ctx, current)
		} else {
			triggered, modified, err = guardrail.CheckResponse(ctx, current)
		}
		if err != nil {
			return "", fmt.Errorf("guardrail %s failed: %w", guardrail.Type(), err)
		}
		if !triggered {
			continue
		}

		switch guardrail.Action() {
		case ActionBlock:
			return "", fmt.Errorf("blocked by %s guardrail", guardrail.Type())
		case ActionModify:
			current = modified
		case ActionWarn:
			c.logger.Warn(ctx, "guardrail triggered", map[string]interface{}{
				"guardrail": string(guardrail.Type()),
			})
		}
	}

	return current, nil
}
