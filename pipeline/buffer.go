package pipeline

import (
	"context"

	"github.com/kbukum/seqkit/validation"
)

// Buffer prefetches up to size values of p on a separate goroutine,
// decoupling the production rate from the consumption rate. size 0 selects
// Defaults().BufferSize.
//
// The goroutine starts at the first Next. Close stops it, waits for it to
// exit and only then closes the inner iterator, so the inner iterator is
// never used by two goroutines at once.
func Buffer[T any](p *Pipeline[T], size int) *Pipeline[T] {
	requireSource(p)
	mustValidate(validation.New().NonNegative("size", size))
	return newPipeline(func(ctx context.Context) Iterator[T] {
		n := size
		if n == 0 {
			n = Defaults().BufferSize
		}
		it := &bufferIter[T]{ctx: ctx, source: p.create(ctx), size: n}
		return newMachine(ctx, it.step, it.release)
	})
}

type result[T any] struct {
	val T
	err error
}

type bufferIter[T any] struct {
	ctx    context.Context
	source Iterator[T]
	size   int

	ch     chan result[T]
	done   chan struct{}
	cancel context.CancelFunc
}

func (it *bufferIter[T]) start() {
	bufCtx, cancel := context.WithCancel(it.ctx)
	it.cancel = cancel
	it.ch = make(chan result[T], it.size)
	it.done = make(chan struct{})

	go func() {
		defer close(it.done)
		defer close(it.ch)
		for {
			val, ok, err := it.source.Next(bufCtx)
			if err != nil {
				select {
				case it.ch <- result[T]{err: err}:
				case <-bufCtx.Done():
				}
				return
			}
			if !ok {
				return
			}
			select {
			case it.ch <- result[T]{val: val}:
			case <-bufCtx.Done():
				return
			}
		}
	}()
}

func (it *bufferIter[T]) step(ctx context.Context) (T, bool, error) {
	if it.ch == nil {
		it.start()
	}
	var zero T
	select {
	case r, open := <-it.ch:
		if !open {
			// The producer may stop without reporting when the bound
			// context is canceled.
			return zero, false, it.ctx.Err()
		}
		if r.err != nil {
			return zero, false, r.err
		}
		return r.val, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (it *bufferIter[T]) release() error {
	if it.cancel != nil {
		it.cancel()
		<-it.done
	}
	return it.source.Close()
}
