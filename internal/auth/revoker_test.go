package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRevokerMonotonic(t *testing.T, r Revoker) {
	ctx := context.Background()
	first := time.Unix(1_700_000_000, 0)
	second := first.Add(time.Minute)

	cutoff, err := r.RevokedBefore(ctx, 1)
	require.NoError(t, err)
	assert.True(t, cutoff.IsZero())

	require.NoError(t, r.RevokeBefore(ctx, 1, first))
	require.NoError(t, r.RevokeBefore(ctx, 1, first.Add(-time.Hour)))
	cutoff, err = r.RevokedBefore(ctx, 1)
	require.NoError(t, err)
	assert.True(t, cutoff.Equal(first), "older cutoff must not overwrite a newer one")

	require.NoError(t, r.RevokeBefore(ctx, 1, second))
	cutoff, err = r.RevokedBefore(ctx, 1)
	require.NoError(t, err)
	assert.True(t, cutoff.Equal(second))

	cutoff, err = r.RevokedBefore(ctx, 2)
	require.NoError(t, err)
	assert.True(t, cutoff.IsZero())
}

func TestMemoryRevoker(t *testing.T) {
	testRevokerMonotonic(t, NewMemoryRevoker())
}

func TestRedisRevoker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisRevoker(client, time.Hour)
	defer r.Close()

	testRevokerMonotonic(t, r)

	t.Run("ExpiresWithTokenTTL", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, r.RevokeBefore(ctx, 3, time.Unix(1_700_000_000, 0)))
		assert.True(t, mr.Exists(cutoffKey(3)))

		mr.FastForward(time.Hour + time.Second)

		cutoff, err := r.RevokedBefore(ctx, 3)
		require.NoError(t, err)
		assert.True(t, cutoff.IsZero())
	})

	t.Run("Unavailable", func(t *testing.T) {
		broken := NewRedisRevoker(redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 100 * time.Millisecond,
			MaxRetries:  -1,
		}), time.Hour)
		defer broken.Close()

		_, err := broken.RevokedBefore(context.Background(), 1)
		assert.Error(t, err)
	})
}
