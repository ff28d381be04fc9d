package pipeline

import (
	"context"

	"github.com/kbukum/seqkit/validation"
)

// --- Select ---

// Select transforms each value using fn.
func Select[T, O any](p *Pipeline[T], fn func(T) O) *Pipeline[O] {
	requireFunc("selector", fn == nil)
	return selectPipeline(p, false, func(_ context.Context, v T, _ int) (O, error) {
		return fn(v), nil
	})
}

// SelectErr transforms each value using a fallible fn. An error is returned
// from the Next that invoked fn.
func SelectErr[T, O any](p *Pipeline[T], fn func(T) (O, error)) *Pipeline[O] {
	requireFunc("selector", fn == nil)
	return selectPipeline(p, false, func(_ context.Context, v T, _ int) (O, error) {
		return fn(v)
	})
}

// SelectContext transforms each value with a cancelable fn. Cancellation is
// checked after the source produced a value and before fn runs.
func SelectContext[T, O any](p *Pipeline[T], fn func(context.Context, T) (O, error)) *Pipeline[O] {
	requireFunc("selector", fn == nil)
	return selectPipeline(p, true, func(ctx context.Context, v T, _ int) (O, error) {
		return fn(ctx, v)
	})
}

// SelectIndexed transforms each value together with its zero-based position.
// Positions restart at zero for every iterator.
func SelectIndexed[T, O any](p *Pipeline[T], fn func(T, int) O) *Pipeline[O] {
	requireFunc("selector", fn == nil)
	return selectPipeline(p, false, func(_ context.Context, v T, i int) (O, error) {
		return fn(v, i), nil
	})
}

// SelectIndexedContext is the cancelable form of SelectIndexed.
func SelectIndexedContext[T, O any](p *Pipeline[T], fn func(context.Context, T, int) (O, error)) *Pipeline[O] {
	requireFunc("selector", fn == nil)
	return selectPipeline(p, true, fn)
}

func selectPipeline[T, O any](p *Pipeline[T], cancelable bool, fn func(context.Context, T, int) (O, error)) *Pipeline[O] {
	requireSource(p)
	return newPipeline(func(ctx context.Context) Iterator[O] {
		it := &selectIter[T, O]{source: p.create(ctx), fn: fn, cancelable: cancelable}
		return newMachine(ctx, it.step, it.source.Close)
	})
}

type selectIter[T, O any] struct {
	source     Iterator[T]
	fn         func(context.Context, T, int) (O, error)
	cancelable bool
	index      int
}

func (it *selectIter[T, O]) step(ctx context.Context) (O, bool, error) {
	var zero O
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	if it.cancelable {
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
	}
	i := it.index
	it.index++
	out, err := it.fn(ctx, val, i)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// --- SkipWhile ---

// SkipWhile discards leading values while pred holds, then passes every
// remaining value through. pred is never called again after it first
// returns false.
func SkipWhile[T any](p *Pipeline[T], pred func(T) bool) *Pipeline[T] {
	requireFunc("predicate", pred == nil)
	return skipWhilePipeline(p, false, func(_ context.Context, v T, _ int) (bool, error) {
		return pred(v), nil
	})
}

// SkipWhileIndexed is SkipWhile with the zero-based position of each value.
func SkipWhileIndexed[T any](p *Pipeline[T], pred func(T, int) bool) *Pipeline[T] {
	requireFunc("predicate", pred == nil)
	return skipWhilePipeline(p, false, func(_ context.Context, v T, i int) (bool, error) {
		return pred(v, i), nil
	})
}

// SkipWhileContext is the cancelable, fallible form of SkipWhile.
func SkipWhileContext[T any](p *Pipeline[T], pred func(context.Context, T) (bool, error)) *Pipeline[T] {
	requireFunc("predicate", pred == nil)
	return skipWhilePipeline(p, true, func(ctx context.Context, v T, _ int) (bool, error) {
		return pred(ctx, v)
	})
}

func skipWhilePipeline[T any](p *Pipeline[T], cancelable bool, pred func(context.Context, T, int) (bool, error)) *Pipeline[T] {
	requireSource(p)
	return newPipeline(func(ctx context.Context) Iterator[T] {
		it := &skipWhileIter[T]{source: p.create(ctx), pred: pred, cancelable: cancelable, skipping: true}
		return newMachine(ctx, it.step, it.source.Close)
	})
}

type skipWhileIter[T any] struct {
	source     Iterator[T]
	pred       func(context.Context, T, int) (bool, error)
	cancelable bool
	skipping   bool
	index      int
}

func (it *skipWhileIter[T]) step(ctx context.Context) (T, bool, error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok || !it.skipping {
			return val, ok, err
		}
		if it.cancelable {
			if err := ctx.Err(); err != nil {
				var zero T
				return zero, false, err
			}
		}
		i := it.index
		it.index++
		skip, err := it.pred(ctx, val, i)
		if err != nil {
			var zero T
			return zero, false, err
		}
		if !skip {
			it.skipping = false
			it.pred = nil
			return val, true, nil
		}
	}
}

// --- DefaultIfEmpty ---

// DefaultIfEmpty yields p unchanged if it has at least one value and a
// single zero value otherwise.
func DefaultIfEmpty[T any](p *Pipeline[T]) *Pipeline[T] {
	var zero T
	return DefaultIfEmptyWith(p, zero)
}

// DefaultIfEmptyWith yields p unchanged if it has at least one value and a
// single def otherwise. The decision is made on the first Next.
func DefaultIfEmptyWith[T any](p *Pipeline[T], def T) *Pipeline[T] {
	requireSource(p)
	return newPipeline(func(ctx context.Context) Iterator[T] {
		it := &defaultIfEmptyIter[T]{source: p.create(ctx), def: def}
		return newMachine(ctx, it.step, it.source.Close)
	})
}

type defaultIfEmptyIter[T any] struct {
	source  Iterator[T]
	def     T
	started bool
	done    bool
}

func (it *defaultIfEmptyIter[T]) step(ctx context.Context) (T, bool, error) {
	if it.done {
		var zero T
		return zero, false, nil
	}
	val, ok, err := it.source.Next(ctx)
	if err != nil {
		return val, false, err
	}
	if !it.started {
		it.started = true
		if !ok {
			it.done = true
			return it.def, true, nil
		}
	}
	return val, ok, nil
}

// --- Where ---

// Where keeps only values that satisfy pred.
func Where[T any](p *Pipeline[T], pred func(T) bool) *Pipeline[T] {
	requireFunc("predicate", pred == nil)
	return wherePipeline(p, false, func(_ context.Context, v T) (bool, error) {
		return pred(v), nil
	})
}

// WhereContext keeps only values for which the cancelable pred returns true.
func WhereContext[T any](p *Pipeline[T], pred func(context.Context, T) (bool, error)) *Pipeline[T] {
	requireFunc("predicate", pred == nil)
	return wherePipeline(p, true, pred)
}

func wherePipeline[T any](p *Pipeline[T], cancelable bool, pred func(context.Context, T) (bool, error)) *Pipeline[T] {
	requireSource(p)
	return newPipeline(func(ctx context.Context) Iterator[T] {
		it := &whereIter[T]{source: p.create(ctx), pred: pred, cancelable: cancelable}
		return newMachine(ctx, it.step, it.source.Close)
	})
}

type whereIter[T any] struct {
	source     Iterator[T]
	pred       func(context.Context, T) (bool, error)
	cancelable bool
}

func (it *whereIter[T]) step(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		if it.cancelable {
			if err := ctx.Err(); err != nil {
				return zero, false, err
			}
		}
		keep, err := it.pred(ctx, val)
		if err != nil {
			return zero, false, err
		}
		if keep {
			return val, true, nil
		}
	}
}

// --- Tap ---

// Tap calls fn as a side-effect for each value, then passes the value through unchanged.
// Use for logging, metrics, or mid-pipeline publishing.
func Tap[T any](p *Pipeline[T], fn func(context.Context, T) error) *Pipeline[T] {
	requireFunc("tap", fn == nil)
	return selectPipeline(p, false, func(ctx context.Context, v T, _ int) (T, error) {
		if err := fn(ctx, v); err != nil {
			var zero T
			return zero, err
		}
		return v, nil
	})
}

// --- FlatMap ---

// FlatMap maps each value to an inner pipeline and yields the inner values
// in order. Each inner iterator is closed as soon as it is exhausted, and on
// Close. A nil inner pipeline is treated as empty.
func FlatMap[T, O any](p *Pipeline[T], fn func(context.Context, T) (*Pipeline[O], error)) *Pipeline[O] {
	requireSource(p)
	requireFunc("selector", fn == nil)
	return newPipeline(func(ctx context.Context) Iterator[O] {
		it := &flatMapIter[T, O]{ctx: ctx, source: p.create(ctx), fn: fn}
		return newMachine(ctx, it.step, it.release)
	})
}

type flatMapIter[T, O any] struct {
	ctx     context.Context
	source  Iterator[T]
	fn      func(context.Context, T) (*Pipeline[O], error)
	current Iterator[O]
}

func (it *flatMapIter[T, O]) step(ctx context.Context) (O, bool, error) {
	var zero O
	for {
		if it.current != nil {
			val, ok, err := it.current.Next(ctx)
			if err != nil {
				return zero, false, err
			}
			if ok {
				return val, true, nil
			}
			inner := it.current
			it.current = nil
			if err := inner.Close(); err != nil {
				return zero, false, err
			}
		}
		in, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		inner, err := it.fn(ctx, in)
		if err != nil {
			return zero, false, err
		}
		if inner != nil {
			it.current = inner.Iter(it.ctx)
		}
	}
}

func (it *flatMapIter[T, O]) release() error {
	var inner func() error
	if it.current != nil {
		inner = it.current.Close
		it.current = nil
	}
	// The inner iterator was created after the source, so it closes first.
	return closeReverse(it.source.Close, inner)
}

// --- Concat ---

// Concat joins pipelines sequentially. Each pipeline's iterator is created
// only when the previous one is exhausted, and closed when it is exhausted
// itself.
func Concat[T any](pipelines ...*Pipeline[T]) *Pipeline[T] {
	for _, p := range pipelines {
		requireSource(p)
	}
	return newPipeline(func(ctx context.Context) Iterator[T] {
		it := &concatIter[T]{ctx: ctx, pipelines: pipelines}
		return newMachine(ctx, it.step, it.release)
	})
}

type concatIter[T any] struct {
	ctx       context.Context
	pipelines []*Pipeline[T]
	index     int
	current   Iterator[T]
}

func (it *concatIter[T]) step(ctx context.Context) (T, bool, error) {
	var zero T
	for it.index < len(it.pipelines) {
		if it.current == nil {
			it.current = it.pipelines[it.index].Iter(it.ctx)
		}
		val, ok, err := it.current.Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if ok {
			return val, true, nil
		}
		done := it.current
		it.current = nil
		it.index++
		if err := done.Close(); err != nil {
			return zero, false, err
		}
	}
	return zero, false, nil
}

func (it *concatIter[T]) release() error {
	if it.current == nil {
		return nil
	}
	cur := it.current
	it.current = nil
	return cur.Close()
}

// --- Take / Skip / TakeWhile ---

// Take yields at most n values. It never pulls the value after the n-th.
func Take[T any](p *Pipeline[T], n int) *Pipeline[T] {
	requireSource(p)
	mustValidate(validation.New().NonNegative("count", n))
	return newPipeline(func(ctx context.Context) Iterator[T] {
		source := p.create(ctx)
		taken := 0
		return newMachine(ctx, func(ctx context.Context) (T, bool, error) {
			if taken >= n {
				var zero T
				return zero, false, nil
			}
			val, ok, err := source.Next(ctx)
			if ok {
				taken++
			}
			return val, ok, err
		}, source.Close)
	})
}

// Skip discards the first n values.
func Skip[T any](p *Pipeline[T], n int) *Pipeline[T] {
	requireSource(p)
	mustValidate(validation.New().NonNegative("count", n))
	return newPipeline(func(ctx context.Context) Iterator[T] {
		source := p.create(ctx)
		skipped := 0
		return newMachine(ctx, func(ctx context.Context) (T, bool, error) {
			for skipped < n {
				_, ok, err := source.Next(ctx)
				if err != nil || !ok {
					var zero T
					return zero, false, err
				}
				skipped++
			}
			return source.Next(ctx)
		}, source.Close)
	})
}

// TakeWhile yields values while pred holds and completes at the first value
// for which it does not.
func TakeWhile[T any](p *Pipeline[T], pred func(T) bool) *Pipeline[T] {
	requireSource(p)
	requireFunc("predicate", pred == nil)
	return newPipeline(func(ctx context.Context) Iterator[T] {
		source := p.create(ctx)
		stopped := false
		return newMachine(ctx, func(ctx context.Context) (T, bool, error) {
			var zero T
			if stopped {
				return zero, false, nil
			}
			val, ok, err := source.Next(ctx)
			if err != nil || !ok {
				return zero, false, err
			}
			if !pred(val) {
				stopped = true
				return zero, false, nil
			}
			return val, true, nil
		}, source.Close)
	})
}
