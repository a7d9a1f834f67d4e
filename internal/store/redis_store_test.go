package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("MACROLOG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MACROLOG_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("macrolog-test-%d:", time.Now().UnixNano())
	s, err := NewRedisStore(ctx, RedisOptions{Addr: addr, Prefix: prefix})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Delete(ctx, KeyWaterCount)
		_ = s.Close()
	})

	_, err = s.Load(ctx, KeyWaterCount)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SaveJSON(ctx, s, KeyWaterCount, 3))
	count, status, err := LoadJSON[int](ctx, s, KeyWaterCount, nil)
	require.NoError(t, err)
	assert.Equal(t, Found, status)
	assert.Equal(t, 3, count)
}
