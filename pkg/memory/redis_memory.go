package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

// RedisMemory implements a Redis-backed memory store so conversations
// survive process restarts and can be shared between replicas.
type RedisMemory struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// RedisOption represents an option for configuring the Redis memory
type RedisOption func(*RedisMemory)

// WithTTL sets the TTL for conversation keys
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisMemory) {
		r.ttl = ttl
	}
}

// WithKeyPrefix sets a custom prefix for Redis keys
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisMemory) {
		r.keyPrefix = prefix
	}
}

// NewRedisMemory creates a Redis-backed memory store
func NewRedisMemory(client *redis.Client, options ...RedisOption) *RedisMemory {
	memory := &RedisMemory{
		client:    client,
		ttl:       24 * time.Hour,
		keyPrefix: "codescribe:memory:",
	}

	for _, option := range options {
		option(memory)
	}

	return memory
}

func (r *RedisMemory) key(ctx context.Context) string {
	return r.keyPrefix + conversationID(ctx)
}

// AddMessage appends a message to the conversation list
func (r *RedisMemory) AddMessage(ctx context.Context, message interfaces.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := r.key(ctx)
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set TTL: %w", err)
		}
	}

	return nil
}

// GetMessages retrieves messages for the conversation in ctx
func (r *RedisMemory) GetMessages(ctx context.Context, options ...interfaces.GetMessagesOption) ([]interfaces.Message, error) {
	entries, err := r.client.LRange(ctx, r.key(ctx), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []interfaces.Message{}, nil
		}
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	messages := make([]interfaces.Message, 0, len(entries))
	for _, entry := range entries {
		var msg interfaces.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}

	return filterMessages(messages, options), nil
}

// Clear removes the conversation list
func (r *RedisMemory) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key(ctx)).Err(); err != nil {
		return fmt.Errorf("failed to clear memory: %w", err)
	}
	return nil
}
