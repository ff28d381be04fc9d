package pipeline

import (
	"context"

	"github.com/kbukum/seqkit/validation"
)

// Chunk collects values into slices of size elements. The final chunk holds
// whatever is left and may be shorter. A failure mid-chunk is returned
// right away and the partial chunk is dropped.
func Chunk[T any](p *Pipeline[T], size int) *Pipeline[[]T] {
	requireSource(p)
	mustValidate(validation.New().Positive("size", size))
	return newPipeline(func(ctx context.Context) Iterator[[]T] {
		it := &chunkIter[T]{source: p.create(ctx), size: size}
		return newMachine(ctx, it.step, it.source.Close)
	})
}

type chunkIter[T any] struct {
	source Iterator[T]
	size   int
	done   bool
}

func (it *chunkIter[T]) step(ctx context.Context) ([]T, bool, error) {
	if it.done {
		return nil, false, nil
	}
	var chunk []T
	for len(chunk) < it.size {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			it.done = true
			break
		}
		if chunk == nil {
			chunk = make([]T, 0, it.size)
		}
		chunk = append(chunk, val)
	}
	if len(chunk) == 0 {
		return nil, false, nil
	}
	return chunk, true, nil
}
