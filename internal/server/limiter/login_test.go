package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg Config) (*RedisLoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLoginLimiter(client, cfg), mr
}

func TestRedisLoginLimiter_LocksAfterMaxAttempts(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 3, Lockout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(ctx, "alice"))
		require.NoError(t, l.RecordFailure(ctx, "alice"))
	}

	assert.ErrorIs(t, l.Check(ctx, "alice"), common.ErrTooManyAttempts)
	assert.ErrorIs(t, l.Check(ctx, "ALICE"), common.ErrTooManyAttempts, "usernames are case folded")
	assert.NoError(t, l.Check(ctx, "bob"), "other users unaffected")
}

func TestRedisLoginLimiter_WindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 1, Lockout: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "alice"))
	require.ErrorIs(t, l.Check(ctx, "alice"), common.ErrTooManyAttempts)
	assert.Equal(t, time.Minute, mr.TTL("login:fail:alice"))

	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, l.Check(ctx, "alice"))
}

func TestRedisLoginLimiter_Reset(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 2, Lockout: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "alice"))
	require.NoError(t, l.Reset(ctx, "alice"))
	assert.False(t, mr.Exists("login:fail:alice"))
}

func TestRedisLoginLimiter_Disabled(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 0})
	ctx := context.Background()

	require.NoError(t, l.RecordFailure(ctx, "alice"))
	assert.NoError(t, l.Check(ctx, "alice"))
	assert.False(t, mr.Exists("login:fail:alice"))
}

func TestRedisLoginLimiter_Unavailable(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 3, Lockout: time.Minute})
	mr.Close()

	ctx := context.Background()
	for name, err := range map[string]error{
		"check":  l.Check(ctx, "alice"),
		"record": l.RecordFailure(ctx, "alice"),
		"reset":  l.Reset(ctx, "alice"),
	} {
		if !errors.Is(err, ErrLimiterUnavailable) {
			t.Fatalf("%s: expected ErrLimiterUnavailable, got %v", name, err)
		}
	}
}

func TestNop(t *testing.T) {
	var l LoginLimiter = Nop{}
	assert.NoError(t, l.Check(context.Background(), "alice"))
	assert.NoError(t, l.RecordFailure(context.Background(), "alice"))
	assert.NoError(t, l.Reset(context.Background(), "alice"))
}
