package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "jti-1", "revoked", time.Minute))

	value, found, err := s.Get(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "revoked", value)
}

func TestMemoryStoreEntriesExpire(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	current := time.Now()
	s.now = func() time.Time { return current }

	require.NoError(t, s.Set(ctx, "jti-1", "revoked", time.Minute))

	current = current.Add(2 * time.Minute)

	_, found, err := s.Get(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, found)

	// An expired entry no longer blocks a SetNX claim.
	won, err := s.SetNX(ctx, "jti-1", "consumed", time.Minute)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestMemoryStoreSetNX(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	won, err := s.SetNX(ctx, "jti-1", "consumed", time.Minute)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = s.SetNX(ctx, "jti-1", "consumed", time.Minute)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestMemoryStoreSetNXConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := s.SetNX(ctx, "jti-1", "consumed", time.Minute)
			assert.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}
