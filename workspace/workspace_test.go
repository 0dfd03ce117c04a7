package workspace

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/maphist/version"
)

func TestWorkspaceReadWrite(t *testing.T) {
	ctx := context.Background()
	root := NewRoot(t.TempDir(), Options{})

	v := version.New("1.20.1", version.Release, time.Now())
	ws := root.Version(v)

	assert.False(t, ws.Contains(ctx, "mappings.txt"))
	require.NoError(t, ws.Write(ctx, "mappings.txt", []byte("a -> b")))
	assert.True(t, ws.Contains(ctx, "mappings.txt"))

	data, err := ws.Read(ctx, "mappings.txt")
	require.NoError(t, err)
	assert.Equal(t, "a -> b", string(data))

	require.NoError(t, ws.Delete(ctx, "mappings.txt"))
	assert.False(t, ws.Contains(ctx, "mappings.txt"))
	require.NoError(t, ws.Delete(ctx, "mappings.txt"), "deleting an absent resource is not an error")
}

func TestWorkspaceScoping(t *testing.T) {
	root := NewRoot(t.TempDir(), Options{RelaxedCache: true})

	a := root.Version(version.New("1.20.1", version.Release, time.Now()))
	b := root.Version(version.New("1.20.2", version.Release, time.Now()))
	shared := root.Shared()

	assert.NotEqual(t, a.Path("x"), b.Path("x"))
	assert.NotEqual(t, a.Path("x"), shared.Path("x"))
	assert.Equal(t, shared.Path("x"), a.Shared().Path("x"))
	assert.True(t, a.Options().RelaxedCache)
}

func TestLockSerializesPerResource(t *testing.T) {
	root := NewRoot(t.TempDir(), Options{})

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := root.Lock("manifest.json")
			defer unlock()
			n := atomic.AddInt32(&active, 1)
			for {
				seen := atomic.LoadInt32(&maxActive)
				if n <= seen || atomic.CompareAndSwapInt32(&maxActive, seen, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxActive, "holders of one resource lock must serialize")
}

func TestOutputMemoizes(t *testing.T) {
	ctx := context.Background()
	var calls int32
	out := NewOutput(nil, func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "resolved", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := out.Resolve(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "resolved", value)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls, "concurrent resolution must not duplicate work")
}

func TestOutputRecomputesWhenStale(t *testing.T) {
	ctx := context.Background()
	var calls int
	fresh := false
	out := NewOutput(func(ctx context.Context) bool { return fresh }, func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	})

	value, err := out.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, value)

	// stale: recomputed
	value, _ = out.Resolve(ctx)
	assert.Equal(t, 2, value)

	// fresh: memoized
	fresh = true
	value, _ = out.Resolve(ctx)
	assert.Equal(t, 2, value)
}

func TestValueOutput(t *testing.T) {
	out := Value("known")
	value, err := out.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "known", value)
}
