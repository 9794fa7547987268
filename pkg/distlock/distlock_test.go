package distlock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps keys in a map and evaluates the release script by hand
type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]string
	failing error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing != nil {
		return redis.NewBoolResult(false, f.failing)
	}
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.Contains(script, "del") {
		return redis.NewCmdResult(nil, errors.New("unexpected script"))
	}
	if f.values[keys[0]] == args[0].(string) {
		delete(f.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisLocker_TryLock(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	locker := NewRedisLocker(rdb)

	release, ok, err := locker.TryLock(ctx, "broadcast-scheduler", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "broadcast-scheduler", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	require.NoError(t, release(ctx))

	_, ok, err = locker.TryLock(ctx, "broadcast-scheduler", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	locker := NewRedisLocker(rdb)

	release, ok, err := locker.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// lock expired and was taken by someone else
	rdb.values[lockPrefix+"job"] = "other-token"

	require.NoError(t, release(ctx))
	assert.Equal(t, "other-token", rdb.values[lockPrefix+"job"])
}

func TestRedisLocker_Error(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failing = errors.New("connection refused")
	locker := NewRedisLocker(rdb)

	_, ok, err := locker.TryLock(context.Background(), "job", time.Minute)
	require.Error(t, err)
	assert.False(t, ok)

	_, err = locker.FirstSeen(context.Background(), "evt_1", time.Hour)
	require.Error(t, err)
}

func TestRedisLocker_FirstSeen(t *testing.T) {
	ctx := context.Background()
	locker := NewRedisLocker(newFakeRedis())

	first, err := locker.FirstSeen(ctx, "evt_1", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = locker.FirstSeen(ctx, "evt_1", 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, first)

	require.NoError(t, locker.Forget(ctx, "evt_1"))
	first, err = locker.FirstSeen(ctx, "evt_1", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var n Noop

	release, ok, err := n.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, release(ctx))

	first, err := n.FirstSeen(ctx, "evt", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
	assert.NoError(t, n.Forget(ctx, "evt"))
}
