package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	c := NewMemoryCache(0, time.Minute)
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	value := []byte("hello")
	require.NoError(t, c.Set(ctx, "k", value, time.Minute))
	value[0] = 'j'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(0, time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("x"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheClearAndBound(t *testing.T) {
	c := NewMemoryCache(2, time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))
	assert.Equal(t, 2, c.Len())

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss, "entry closest to expiry is evicted")

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryLockerSerializes(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, "store:1", time.Minute)
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxSeen) {
				atomic.StoreInt32(&maxSeen, n)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}

func TestMemoryLockerHonoursContext(t *testing.T) {
	l := NewMemoryLocker()

	release, err := l.Lock(context.Background(), "k", 0)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "k", 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(context.Background(), "other", 0)
	require.NoError(t, err)
	other()
	other()
}

func TestLockAllBlocksOnAnySharedKey(t *testing.T) {
	l := NewMemoryLocker()

	release, err := LockAll(context.Background(), l, []string{"lidl", "aldi", "aldi"}, time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = LockAll(ctx, l, []string{"aldi"}, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	disjoint, err := LockAll(context.Background(), l, []string{"safeway"}, time.Minute)
	require.NoError(t, err)
	disjoint()

	release()
	again, err := LockAll(context.Background(), l, []string{"aldi", "lidl"}, time.Minute)
	require.NoError(t, err)
	again()
}

func TestLockAllReleasesPartialAcquisition(t *testing.T) {
	l := NewMemoryLocker()

	held, err := l.Lock(context.Background(), "b", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = LockAll(ctx, l, []string{"b", "a"}, 0)
	require.Error(t, err)
	held()

	// "a" was taken before blocking on "b" and must be free again.
	freeCtx, freeCancel := context.WithTimeout(context.Background(), time.Second)
	defer freeCancel()
	a, err := l.Lock(freeCtx, "a", 0)
	require.NoError(t, err)
	a()
}
