package pipeline

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/seqkit/errors"
)

func TestBuffer_PreservesOrder(t *testing.T) {
	want := collect(t, Range(0, 100))
	assert.Equal(t, want, collect(t, Buffer(Range(0, 100), 4)))
	assert.Equal(t, want, collect(t, Buffer(Range(0, 100), 0)))
	requireInvalidArgument(t, func() { Buffer(Range(0, 1), -1) })
}

func TestBuffer_LazyStart(t *testing.T) {
	src := newTracking(1, 2, 3)
	it := Buffer(src.pipeline(), 2).Iter(context.Background())
	require.NoError(t, it.Close())
	assert.Zero(t, src.nexts)
}

func TestBuffer_CloseStopsProducer(t *testing.T) {
	ctx := context.Background()
	src := newTracking(1, 2, 3, 4, 5, 6, 7, 8)
	it := Buffer(src.pipeline(), 1).Iter(ctx)

	v, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	require.NoError(t, it.Close())
	// Close waits for the producer, so the counters are stable here.
	assert.Equal(t, 1, src.closes)
	assert.Less(t, src.nexts, 8)
}

func TestBuffer_Error(t *testing.T) {
	boom := stderrors.New("boom")
	src := newTracking(1, 2)
	src.failAt, src.failErr = 1, boom

	got, err := Collect(context.Background(), Buffer(src.pipeline(), 4))
	assert.Same(t, boom, err)
	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 1, src.closes)
}

func TestBuffer_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blocked := Generate(func(ctx context.Context) (int, bool, error) {
		<-ctx.Done()
		return 0, false, ctx.Err()
	})

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Collect(ctx, Buffer(blocked, 1))
	assert.True(t, errors.IsCanceled(err))
}
