package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kbukum/seqkit/errors"
)

// trackingSource is a hand-written iterator that counts Next and Close
// calls and can fail at a given position.
type trackingSource[T any] struct {
	name     string
	items    []T
	failAt   int
	failErr  error
	closeErr error
	disposed *[]string

	index  int
	nexts  int
	closes int
}

func newTracking[T any](items ...T) *trackingSource[T] {
	return &trackingSource[T]{items: items, failAt: -1}
}

func (s *trackingSource[T]) Next(context.Context) (T, bool, error) {
	s.nexts++
	var zero T
	if s.failAt >= 0 && s.index == s.failAt {
		return zero, false, s.failErr
	}
	if s.index >= len(s.items) {
		return zero, false, nil
	}
	v := s.items[s.index]
	s.index++
	return v, true, nil
}

func (s *trackingSource[T]) Close() error {
	s.closes++
	if s.disposed != nil {
		*s.disposed = append(*s.disposed, s.name)
	}
	return s.closeErr
}

// pipeline hands out s itself, so it supports a single iteration.
func (s *trackingSource[T]) pipeline() *Pipeline[T] {
	return FromFunc(func(context.Context) Iterator[T] { return s })
}

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func requireInvalidArgument(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.True(t, errors.IsInvalidArgument(r), "expected INVALID_ARGUMENT panic, got %v", r)
	}()
	fn()
}

func collect[T any](t *testing.T, p *Pipeline[T]) []T {
	t.Helper()
	got, err := Collect(context.Background(), p)
	require.NoError(t, err)
	return got
}
