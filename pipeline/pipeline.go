package pipeline

import (
	"context"
	"iter"
)

// Iterator provides pull-based sequential access to a stream of values.
//
// An Iterator belongs to a single consumer. Next returns (value, true, nil)
// for an element, (zero, false, nil) once the sequence is exhausted and
// (zero, false, err) on failure or cancellation. Close may be called any
// number of times.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Pipeline is a lazy, re-iterable declaration of a computation. It holds no
// cursor state: every Iter call builds an independent iterator tree, and no
// work happens until values are pulled.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

func newPipeline[T any](create func(ctx context.Context) Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{create: create}
}

// Iter returns a fresh Iterator bound to ctx. Cancelling ctx cancels the
// iterator at its next checkpoint. The caller must Close it.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.create(ctx)
}

// All returns a range-over-func view of the pipeline. Each range loop drives
// a new iterator; breaking out of the loop closes it. A failure is yielded
// once as the error of the final pair.
//
//	for v, err := range p.All(ctx) {
//	    if err != nil { ... }
//	}
func (p *Pipeline[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		it := p.Iter(ctx)
		for {
			val, ok, err := it.Next(ctx)
			if err != nil {
				_ = it.Close()
				var zero T
				yield(zero, err)
				return
			}
			if !ok {
				if err := it.Close(); err != nil {
					var zero T
					yield(zero, err)
				}
				return
			}
			if !yield(val, nil) {
				_ = it.Close()
				return
			}
		}
	}
}

// Runnable is a fully-configured pipeline ready to execute.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run executes the pipeline until completion, failure or cancellation.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// --- Terminals ---

// Drain creates a Runnable that pulls all values and sends each to sink.
func Drain[T any](p *Pipeline[T], sink func(context.Context, T) error) *Runnable {
	requireSource(p)
	requireFunc("sink", sink == nil)
	return &Runnable{
		run: func(ctx context.Context) error {
			return terminal(ctx, "Drain", func(ctx context.Context) error {
				return drive(ctx, p, func(val T) (bool, error) {
					return true, sink(ctx, val)
				})
			})
		},
	}
}

// ForEach pulls all values and calls fn for each. Convenience wrapper around Drain.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	return Drain(p, fn).Run(ctx)
}

// Collect runs the pipeline and returns all values as a slice. On failure
// the values produced before it are returned with the error.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	requireSource(p)
	var out []T
	err := terminal(ctx, "Collect", func(ctx context.Context) error {
		return drive(ctx, p, func(val T) (bool, error) {
			out = append(out, val)
			return true, nil
		})
	})
	return out, err
}

// ToSlice is Collect under the name materializing callers reach for.
func ToSlice[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	return Collect(ctx, p)
}

// drive pulls p to completion, calling visit for each value until it
// returns false or an error. The iterator is always closed; a Close error
// is reported only when the drive itself succeeded.
func drive[T any](ctx context.Context, p *Pipeline[T], visit func(T) (bool, error)) (err error) {
	it := p.Iter(ctx)
	defer func() {
		if cerr := it.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for {
		val, ok, nerr := it.Next(ctx)
		if nerr != nil {
			return nerr
		}
		if !ok {
			return nil
		}
		more, verr := visit(val)
		if verr != nil {
			return verr
		}
		if !more {
			return nil
		}
	}
}
