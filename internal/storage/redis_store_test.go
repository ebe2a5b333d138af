package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tg-sanction/internal/sanction"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a live server: TEST_REDIS_URL=redis://localhost:6379/15 go test ./internal/storage
func testRedisStore(t *testing.T) *RedisSanctionStore {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	prefix := fmt.Sprintf("sanction-test-%d", time.Now().UnixNano())
	store, err := NewRedisSanctionStore(context.Background(), url, prefix)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		records, _ := store.ListActive(ctx)
		for _, rec := range records {
			_, _ = store.FindAndDelete(ctx, rec.Subject)
		}
		store.Close()
	})
	return store
}

func TestRedisSanctionStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := testRedisStore(t)

	in := testSanction(-100, 1, "send_messages")
	require.NoError(t, store.Insert(ctx, in))
	assert.ErrorIs(store.Insert(ctx, in), sanction.ErrAlreadySanctioned)

	got, err := store.FindBySubject(ctx, in.Subject)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal([]string{"send_messages"}, got.TakenRoles)
	assert.True(in.ExpiresAt.Equal(got.ExpiresAt))

	records, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(records, 1)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := store.FindAndDelete(ctx, in.Subject)
			assert.NoError(err)
			if rec != nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(int32(1), winners.Load())

	missing, err := store.FindBySubject(ctx, in.Subject)
	assert.NoError(err)
	assert.Nil(missing)
}
