package pipeline

import (
	"context"
	"iter"
	"math"

	"github.com/kbukum/seqkit/validation"
)

// FromSlice creates a pipeline over items. Every iteration reads the slice
// from the start; later mutations of items are visible to later iterations.
func FromSlice[T any](items []T) *Pipeline[T] {
	return newPipeline(func(ctx context.Context) Iterator[T] {
		it := &sliceIter[T]{items: items}
		return newMachine(ctx, it.step, nil)
	})
}

// Of creates a pipeline over the given values.
func Of[T any](items ...T) *Pipeline[T] {
	return FromSlice(items)
}

// Empty returns a pipeline that completes immediately.
func Empty[T any]() *Pipeline[T] {
	return FromSlice[T](nil)
}

// FromFunc creates a pipeline from a factory that produces an Iterator.
// The factory runs once per Iter call; the iterator it returns is wrapped
// so it follows the same completion, failure and disposal rules as every
// built-in operator.
func FromFunc[T any](factory func(ctx context.Context) Iterator[T]) *Pipeline[T] {
	requireFunc("factory", factory == nil)
	return newPipeline(func(ctx context.Context) Iterator[T] {
		var src Iterator[T]
		step := func(nctx context.Context) (T, bool, error) {
			if src == nil {
				if src = factory(ctx); src == nil {
					var zero T
					return zero, false, nil
				}
			}
			return src.Next(nctx)
		}
		release := func() error {
			if src == nil {
				return nil
			}
			return src.Close()
		}
		return newMachine(ctx, step, release)
	})
}

// Generate creates a pipeline that calls fn for each element until it
// reports exhaustion. fn is shared by every iteration, so it should be
// stateless; use GenerateFunc for generators that keep state.
func Generate[T any](fn func(ctx context.Context) (T, bool, error)) *Pipeline[T] {
	requireFunc("generator", fn == nil)
	return GenerateFunc(func() func(ctx context.Context) (T, bool, error) { return fn })
}

// GenerateFunc creates a pipeline whose every iteration gets a fresh
// generator from factory.
func GenerateFunc[T any](factory func() func(ctx context.Context) (T, bool, error)) *Pipeline[T] {
	requireFunc("factory", factory == nil)
	return newPipeline(func(ctx context.Context) Iterator[T] {
		var gen func(ctx context.Context) (T, bool, error)
		return newMachine(ctx, func(ctx context.Context) (T, bool, error) {
			if gen == nil {
				if gen = factory(); gen == nil {
					var zero T
					return zero, false, nil
				}
			}
			return gen(ctx)
		}, nil)
	})
}

// FromSeq creates a pipeline from a native Go iterator. Each iteration
// starts a new pull over seq; Close stops it.
func FromSeq[T any](seq iter.Seq[T]) *Pipeline[T] {
	requireFunc("seq", seq == nil)
	return newPipeline(func(ctx context.Context) Iterator[T] {
		var next func() (T, bool)
		var stop func()
		step := func(context.Context) (T, bool, error) {
			if next == nil {
				next, stop = iter.Pull(seq)
			}
			val, ok := next()
			return val, ok, nil
		}
		release := func() error {
			if stop != nil {
				stop()
			}
			return nil
		}
		return newMachine(ctx, step, release)
	})
}

// FromChannel creates a pipeline that receives from ch until it is closed.
// A channel can only be drained once: a second iteration continues with
// whatever the first one left behind.
func FromChannel[T any](ch <-chan T) *Pipeline[T] {
	requireFunc("channel", ch == nil)
	return newPipeline(func(ctx context.Context) Iterator[T] {
		return newMachine(ctx, func(ctx context.Context) (T, bool, error) {
			select {
			case val, open := <-ch:
				return val, open, nil
			case <-ctx.Done():
				var zero T
				return zero, false, ctx.Err()
			}
		}, nil)
	})
}

// Range yields count consecutive integers starting at start.
func Range(start, count int) *Pipeline[int] {
	mustValidate(validation.New().
		NonNegative("count", count).
		Custom(count == 0 || start <= math.MaxInt-(count-1), "count", "start+count-1 overflows int"))
	return newPipeline(func(ctx context.Context) Iterator[int] {
		i := 0
		return newMachine(ctx, func(context.Context) (int, bool, error) {
			if i >= count {
				return 0, false, nil
			}
			v := start + i
			i++
			return v, true, nil
		}, nil)
	})
}

// Repeat yields v count times.
func Repeat[T any](v T, count int) *Pipeline[T] {
	mustValidate(validation.New().NonNegative("count", count))
	return newPipeline(func(ctx context.Context) Iterator[T] {
		n := 0
		return newMachine(ctx, func(context.Context) (T, bool, error) {
			if n >= count {
				var zero T
				return zero, false, nil
			}
			n++
			return v, true, nil
		}, nil)
	})
}

// --- Internal iterators ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) step(context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}
