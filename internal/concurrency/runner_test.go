package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachRunsEveryIndex(t *testing.T) {
	r := NewRunner(3)

	var mu sync.Mutex
	seen := make(map[int]bool)

	err := r.ForEach(context.Background(), 20, func(ctx context.Context, i int) {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Len(t, seen, 20)
}

func TestForEachBoundsParallelism(t *testing.T) {
	r := NewRunner(2)

	var active, peak int32

	err := r.ForEach(context.Background(), 12, func(ctx context.Context, i int) {
		n := atomic.AddInt32(&active, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, int32(2))
}

func TestForEachStopsOnCancel(t *testing.T) {
	r := NewRunner(1)

	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	err := r.ForEach(ctx, 100, func(ctx context.Context, i int) {
		if atomic.AddInt32(&calls, 1) == 3 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, atomic.LoadInt32(&calls), int32(100))
}

func TestForEachZeroTasks(t *testing.T) {
	r := NewRunner(0)
	assert.NoError(t, r.ForEach(context.Background(), 0, func(ctx context.Context, i int) {
		t.Fatal("must not be called")
	}))
}
