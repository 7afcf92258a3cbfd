package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, mr
}

// implementations returns both Breaker backends under an identical
// threshold/recovery config so the state-machine tests below run against
// each without duplicating assertions.
func implementations(t *testing.T) map[string]Breaker {
	cfg := Config{FailureThreshold: 3, RecoveryTimeout: 30 * time.Second}

	client, mr := setupTestRedis(t)
	t.Cleanup(func() { client.Close(); mr.Close() })

	return map[string]Breaker{
		"redis":  NewRedisBreaker(client, "test-source", cfg),
		"memory": NewMemoryBreaker(cfg),
	}
}

func TestBreaker_ClosedAllowsByDefault(t *testing.T) {
	ctx := context.Background()
	for name, b := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			allowed, err := b.Allow(ctx)
			require.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}

func TestBreaker_OpensAfterThresholdFailures(t *testing.T) {
	ctx := context.Background()
	for name, b := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				require.NoError(t, b.RecordFailure(ctx, 0))
			}

			allowed, err := b.Allow(ctx)
			require.NoError(t, err)
			assert.False(t, allowed, "breaker should be open after reaching failure threshold")

			snap, err := b.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, geomodel.StateOpen, snap.State)
			assert.Equal(t, 3, snap.FailureCount)
		})
	}
}

func TestBreaker_FewerThanThresholdFailuresStaysClosed(t *testing.T) {
	ctx := context.Background()
	for name, b := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.RecordFailure(ctx, 0))
			require.NoError(t, b.RecordFailure(ctx, 0))

			allowed, err := b.Allow(ctx)
			require.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}

func TestBreaker_RecordSuccessResetsFailureCount(t *testing.T) {
	ctx := context.Background()
	for name, b := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.RecordFailure(ctx, 0))
			require.NoError(t, b.RecordFailure(ctx, 0))
			require.NoError(t, b.RecordSuccess(ctx))

			snap, err := b.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, geomodel.StateClosed, snap.State)
			assert.Equal(t, 0, snap.FailureCount)
		})
	}
}

func TestBreaker_ForceResetClosesFromOpen(t *testing.T) {
	ctx := context.Background()
	for name, b := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				require.NoError(t, b.RecordFailure(ctx, 0))
			}
			require.NoError(t, b.ForceReset(ctx))

			allowed, err := b.Allow(ctx)
			require.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}

// TestBreaker_HalfOpenFailureReopens exercises the redis backend directly
// using miniredis's SetTime to move the clock the Lua scripts read through
// TIME, since MemoryBreaker reads wall-clock time via time.Now and cannot be
// advanced deterministically.
func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()
	defer mr.Close()

	cfg := Config{FailureThreshold: 1, RecoveryTimeout: 30 * time.Second}
	b := NewRedisBreaker(client, "half-open-source", cfg)
	ctx := context.Background()

	require.NoError(t, b.RecordFailure(ctx, 0))

	allowed, err := b.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, allowed)

	mr.SetTime(time.Now().Add(31 * time.Second))

	allowed, err = b.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, allowed, "breaker should transition to half_open and admit the next call")

	snap, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, geomodel.StateHalfOpen, snap.State)

	require.NoError(t, b.RecordFailure(ctx, 0))
	snap, err = b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, geomodel.StateOpen, snap.State)
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()
	defer mr.Close()

	cfg := Config{FailureThreshold: 1, RecoveryTimeout: 30 * time.Second}
	b := NewRedisBreaker(client, "half-open-success", cfg)
	ctx := context.Background()

	require.NoError(t, b.RecordFailure(ctx, 0))
	mr.SetTime(time.Now().Add(31 * time.Second))

	allowed, err := b.Allow(ctx)
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, b.RecordSuccess(ctx))

	snap, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, geomodel.StateClosed, snap.State)
	assert.Equal(t, 0, snap.FailureCount)
}

func TestBreaker_RetryAfterExtendsCooldown(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()
	defer mr.Close()

	cfg := Config{FailureThreshold: 1, RecoveryTimeout: 5 * time.Second}
	b := NewRedisBreaker(client, "retry-after-source", cfg)
	ctx := context.Background()

	require.NoError(t, b.RecordFailure(ctx, 120*time.Second))

	mr.SetTime(time.Now().Add(10 * time.Second))
	allowed, err := b.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, allowed, "Retry-After of 120s should outlast the 5s default recovery timeout")
}
