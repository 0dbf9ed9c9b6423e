package memory

import (
	"context"
	"sync"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// ConversationBuffer implements a simple in-memory conversation buffer
type ConversationBuffer struct {
	messages map[string][]interfaces.Message
	maxSize  int
	mu       sync.RWMutex
}

// Option represents an option for configuring the conversation buffer
type Option func(*ConversationBuffer)

// WithMaxSize sets the maximum number of messages to store per conversation
func WithMaxSize(size int) Option {
	return func(c *ConversationBuffer) {
		c.maxSize = size
	}
}

// NewConversationBuffer creates a new conversation buffer
func NewConversationBuffer(options ...Option) *ConversationBuffer {
	buffer := &ConversationBuffer{
		messages: make(map[string][]interfaces.Message),
		maxSize:  100,
	}

	for _, option := range options {
		option(buffer)
	}

	return buffer
}

// AddMessage adds a message to the buffer for the conversation in ctx
func (c *ConversationBuffer) AddMessage(ctx context.Context, message interfaces.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := conversationID(ctx)
	c.messages[id] = append(c.messages[id], message)

	if c.maxSize > 0 && len(c.messages[id]) > c.maxSize {
		c.messages[id] = c.messages[id][len(c.messages[id])-c.maxSize:]
	}

	return nil
}

// GetMessages retrieves messages from the buffer
func (c *ConversationBuffer) GetMessages(ctx context.Context, options ...interfaces.GetMessagesOption) ([]interfaces.Message, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	messages, ok := c.messages[conversationID(ctx)]
	if !ok {
		return []interfaces.Message{}, nil
	}

	return filterMessages(messages, options), nil
}

// Clear clears the buffer for the conversation in ctx
func (c *ConversationBuffer) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.messages, conversationID(ctx))

	return nil
}

// filterMessages applies role and limit options to a message slice
func filterMessages(messages []interfaces.Message, options []interfaces.GetMessagesOption) []interfaces.Message {
	opts := &interfaces.GetMessagesOptions{}
	for _, option := range options {
		option(opts)
	}

	if len(opts.Roles) > 0 {
		var filtered []interfaces.Message
		for _, msg := range messages {
			for _, role := range opts.Roles {
				if msg.Role == role {
					filtered = append(filtered, msg)
					break
				}
			}
		}
		messages = filtered
	}

	if opts.Limit > 0 && opts.Limit < len(messages) {
		messages = messages[len(messages)-opts.Limit:]
	}

	result := make([]interfaces.Message, len(messages))
	copy(result, messages)

	return result
}
