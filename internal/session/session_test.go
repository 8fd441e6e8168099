package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func testStoreContract(t *testing.T, s Store) {
	ctx := context.Background()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	msgs, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, s.Append(ctx, "c1",
		Message{Role: RoleUser, Content: "hi", Timestamp: ts},
		Message{Role: RoleAssistant, Content: "hello", Timestamp: ts, Sources: []string{"a:0:0"}},
	))
	require.NoError(t, s.Append(ctx, "c2", Message{Role: RoleUser, Content: "other", Timestamp: ts}))
	require.NoError(t, s.Append(ctx, "c1", Message{Role: RoleUser, Content: "again", Timestamp: ts}))

	msgs, err = s.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, []string{"a:0:0"}, msgs[1].Sources)
	assert.True(t, ts.Equal(msgs[2].Timestamp))

	require.NoError(t, s.Clear(ctx))
	for _, id := range []string{"c1", "c2"} {
		msgs, err = s.Get(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "c", Message{Content: "original"}))

	msgs, err := s.Get(ctx, "c")
	require.NoError(t, err)
	msgs[0].Content = "mutated"

	msgs, err = s.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "original", msgs[0].Content)
}

func TestMemoryStore_ConcurrentAppend(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append(context.Background(), "c", Message{Content: "x"})
		}()
	}
	wg.Wait()

	msgs, err := s.Get(context.Background(), "c")
	require.NoError(t, err)
	assert.Len(t, msgs, 50)
}

func TestRedisStore(t *testing.T) {
	s, _ := setupRedisStore(t, 0)
	testStoreContract(t, s)
}

func TestRedisStore_TTL(t *testing.T) {
	s, mr := setupRedisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "c", Message{Content: "x"}))
	assert.Equal(t, time.Hour, mr.TTL(conversationPrefix+"c"))

	mr.FastForward(2 * time.Hour)
	msgs, err := s.Get(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRedisStore_Ping(t *testing.T) {
	s, mr := setupRedisStore(t, 0)
	require.NoError(t, s.Ping(context.Background()))

	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestMessage_JSONUsesTypeField(t *testing.T) {
	s, mr := setupRedisStore(t, 0)
	require.NoError(t, s.Append(context.Background(), "c", Message{Role: RoleUser, Content: "q"}))

	items, err := mr.List(conversationPrefix + "c")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0], `"type":"user"`)
}
