package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	conversationPrefix = "localrag:conversation:"
	conversationIndex  = "localrag:conversations"
)

// RedisStore keeps each conversation as a Redis list of JSON messages, plus a
// set indexing every conversation ID so Clear can find them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store. A positive ttl expires idle conversations.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Ping verifies the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) ([]Message, error) {
	raw, err := s.client.LRange(ctx, conversationPrefix+id, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, len(msgs))
	for i, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		values[i] = data
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, conversationPrefix+id, values...)
	pipe.SAdd(ctx, conversationIndex, id)
	if s.ttl > 0 {
		pipe.Expire(ctx, conversationPrefix+id, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, conversationIndex).Result()
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, conversationPrefix+id)
	}
	keys = append(keys, conversationIndex)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}
	return nil
}
