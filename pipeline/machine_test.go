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

func TestMachine_ErrorPropagatesOnce(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("boom")
	src := newTracking(1, 2)
	src.failAt, src.failErr = 1, boom

	it := src.pipeline().Iter(ctx)
	v, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok, err = it.Next(ctx)
	assert.False(t, ok)
	assert.Same(t, boom, err)

	_, ok, err = it.Next(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 2, src.nexts, "a failed iterator must not pull again")

	require.NoError(t, it.Close())
	assert.Equal(t, 1, src.closes)
}

func TestMachine_CancellationIsSticky(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	it := Of(1, 2, 3).Iter(ctx)
	defer it.Close()

	_, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	cancel()
	_, ok, err = it.Next(ctx)
	assert.False(t, ok)
	require.True(t, errors.IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errors.ErrCanceled)

	_, _, again := it.Next(context.Background())
	assert.Same(t, err, again)
}

func TestMachine_NextContextChecked(t *testing.T) {
	it := Of(1, 2).Iter(context.Background())
	defer it.Close()

	_, ok, err := it.Next(canceledContext())
	assert.False(t, ok)
	assert.True(t, errors.IsCanceled(err))

	_, _, err = it.Next(context.Background())
	assert.True(t, errors.IsCanceled(err), "cancellation must stay observed")
}

func TestMachine_DeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := Collect(ctx, Of(1))
	assert.ErrorIs(t, err, errors.ErrDeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.IsCanceled(err))
}

func TestMachine_CallbackContextErrorIsCancellation(t *testing.T) {
	ctx := context.Background()
	it := SelectErr(Of(1, 2), func(int) (int, error) {
		return 0, context.Canceled
	}).Iter(ctx)
	defer it.Close()

	_, _, err := it.Next(ctx)
	require.ErrorIs(t, err, errors.ErrCanceled)

	_, _, again := it.Next(ctx)
	assert.Same(t, err, again)
}

func TestMachine_ConcurrentAdvanceRejected(t *testing.T) {
	ctx := context.Background()
	var it Iterator[int]
	var reentrant error
	it = Select(Of(1, 2), func(v int) int {
		_, _, reentrant = it.Next(ctx)
		return v
	}).Iter(ctx)
	defer it.Close()

	v, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.ErrorIs(t, reentrant, errors.ErrConcurrentAdvance)
}

func TestMachine_CloseIdempotent(t *testing.T) {
	ctx := context.Background()
	src := newTracking(1, 2, 3)
	it := Select(src.pipeline(), func(v int) int { return v }).Iter(ctx)

	_, _, err := it.Next(ctx)
	require.NoError(t, err)

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	assert.Equal(t, 1, src.closes)

	_, ok, err := it.Next(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 1, src.nexts)
}

func TestMachine_CloseInsideStep(t *testing.T) {
	ctx := context.Background()
	src := newTracking(1, 2)
	var it Iterator[int]
	it = Select(src.pipeline(), func(v int) int {
		_ = it.Close()
		return v
	}).Iter(ctx)

	_, ok, err := it.Next(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 1, src.closes)
}

func TestMachine_CloseBeforeStart(t *testing.T) {
	calls := 0
	p := FromFunc(func(context.Context) Iterator[int] {
		calls++
		return newTracking(1)
	})

	it := p.Iter(context.Background())
	require.NoError(t, it.Close())
	assert.Zero(t, calls, "no work may happen before the first Next")
}

func TestCloseReverse(t *testing.T) {
	var order []string
	closer := func(name string, err error) func() error {
		return func() error {
			order = append(order, name)
			return err
		}
	}
	boom := stderrors.New("boom")

	err := closeReverse(closer("a", nil), nil, closer("b", boom), closer("c", nil))
	assert.Equal(t, []string{"c", "b", "a"}, order)
	assert.ErrorIs(t, err, boom)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state state
		want  string
	}{
		{stateCreated, "created"},
		{stateSuspended, "suspended"},
		{stateCanceled, "canceled"},
		{stateDisposed, "disposed"},
		{state(200), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}
