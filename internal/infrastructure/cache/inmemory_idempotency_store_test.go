package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestInMemoryStore(t *testing.T) (*InMemoryIdempotencyStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	store := newInMemoryIdempotencyStore(clock.Now, time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryIdempotencyStore_Claim(t *testing.T) {
	ctx := context.Background()

	t.Run("first claim stores the value", func(t *testing.T) {
		store, _ := newTestInMemoryStore(t)

		held, claimed, err := store.Claim(ctx, "req-1", "PO-00001", time.Hour)
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.Equal(t, "PO-00001", held)
	})

	t.Run("second claim returns the first value", func(t *testing.T) {
		store, _ := newTestInMemoryStore(t)

		_, _, err := store.Claim(ctx, "req-2", "PO-00001", time.Hour)
		require.NoError(t, err)

		held, claimed, err := store.Claim(ctx, "req-2", "PO-00002", time.Hour)
		require.NoError(t, err)
		assert.False(t, claimed)
		assert.Equal(t, "PO-00001", held)
	})

	t.Run("expired key can be claimed again", func(t *testing.T) {
		store, clock := newTestInMemoryStore(t)

		_, _, err := store.Claim(ctx, "req-3", "PO-00001", time.Minute)
		require.NoError(t, err)
		clock.Advance(time.Minute)

		held, claimed, err := store.Claim(ctx, "req-3", "PO-00007", time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed)
		assert.Equal(t, "PO-00007", held)
	})

	t.Run("concurrent claims elect one holder", func(t *testing.T) {
		store, _ := newTestInMemoryStore(t)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
			values  = make(map[string]bool)
		)
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				held, claimed, err := store.Claim(ctx, "race", fmt.Sprintf("v-%d", i), time.Hour)
				assert.NoError(t, err)
				mu.Lock()
				defer mu.Unlock()
				if claimed {
					winners++
				}
				values[held] = true
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, winners)
		assert.Len(t, values, 1)
	})
}

func TestInMemoryIdempotencyStore_Lookup(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestInMemoryStore(t)

	_, found, err := store.Lookup(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = store.Claim(ctx, "req", "SH-00003", 10*time.Second)
	require.NoError(t, err)

	value, found, err := store.Lookup(ctx, "req")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "SH-00003", value)

	clock.Advance(10 * time.Second)
	_, found, err = store.Lookup(ctx, "req")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestInMemoryStore(t)

	_, _, _ = store.Claim(ctx, "short", "a", time.Second)
	_, _, _ = store.Claim(ctx, "long", "b", time.Hour)
	assert.Equal(t, 2, store.Size())

	clock.Advance(time.Minute)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
	_, found, _ := store.Lookup(ctx, "long")
	assert.True(t, found)
}

func TestInMemoryIdempotencyStore_CloseIsIdempotent(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
