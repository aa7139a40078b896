package redis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"solar-parcel-be/pkg/store"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_Redis(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	repo := NewSessionRepository(client, time.Minute)
	id := uuid.NewString()
	defer repo.Delete(ctx, id)

	_, found, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Update(ctx, id, func(s *store.Session) {
		s.Append(store.UserTurn("q1"), store.AssistantTurn("a1"))
	}))
	require.NoError(t, repo.Update(ctx, id, func(s *store.Session) {
		s.Append(store.UserTurn("q2"))
		s.AwaitingClarification = true
	}))

	s, found, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []store.Turn{store.UserTurn("q1"), store.AssistantTurn("a1"), store.UserTurn("q2")}, s.Conversation)
	assert.True(t, s.AwaitingClarification)
}

func TestSessionRepository_RedisConcurrentUpdates(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	ctx := context.Background()
	id := uuid.NewString()

	// Separate clients stand in for separate API instances.
	const writers = 4
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		client := goredis.NewClient(opts)
		defer client.Close()
		repo := NewSessionRepository(client, time.Minute)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Update(ctx, id, func(s *store.Session) {
				s.Append(store.UserTurn(fmt.Sprintf("q%d", i)))
				s.TurnCount++
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	client := goredis.NewClient(opts)
	defer client.Close()
	repo := NewSessionRepository(client, time.Minute)
	defer repo.Delete(ctx, id)

	s, found, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, s.Conversation, writers)
	assert.Equal(t, writers, s.TurnCount)
}
