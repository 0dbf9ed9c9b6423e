package guardrails

import (
	"context"
	"regexp"
	"strings"
)

// ContentFilter implements a guardrail that masks blocked words
type ContentFilter struct {
	blockedWords []string
	action       Action
	regex        *regexp.Regexp
}

// NewContentFilter creates a new content filter guardrail
func NewContentFilter(blockedWords []string, action Action) *ContentFilter {
	escaped := make([]string, len(blockedWords))
	for i, word := range blockedWords {
		escaped[i] = regexp.QuoteMeta(word)
	}
	regex := regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)

	return &ContentFilter{
		blockedWords: blockedWords,
		action:       action,
		regex:        regex,
	}
}

// Type returns the type of guardrail
func (c *ContentFilter) Type() GuardrailType {
	return ContentFilterGuardrail
}

// CheckRequest checks if a request violates the guardrail
func (c *ContentFilter) CheckRequest(ctx context.Context, request string) (bool, string, error) {
	return c.mask(request)
}

// CheckResponse checks if a response violates the guardrail
func (c *ContentFilter) CheckResponse(ctx context.Context, response string) (bool, string, error) {
	return c.mask(response)
}

func (c *ContentFilter) mask(text string) (bool, string, error) {
	if c.regex.MatchString(text) {
		return true, c.regex.ReplaceAllString(text, "****"), nil
	}
	return false, text, nil
}

// Action returns the action to take when the guardrail is triggered
func (c *ContentFilter) Action() Action {
	return c.action
}
