package pipeline

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/kbukum/seqkit/errors"
)

// Grouping is one group of a GroupBy: a key and the elements that mapped to
// it, in arrival order.
//
// The elements of a grouping are buffered as the shared source is pulled.
// Elements() can be enumerated on its own at any time, also after the
// parent sequence moved past the grouping; running past the buffer pulls
// the shared source forward.
type Grouping[K, E any] struct {
	key   K
	elems []E
	src   puller
}

// puller advances the shared source of a group engine by one element.
type puller interface {
	pull(ctx context.Context) (bool, error)
}

// Key returns the group key, as first seen.
func (g *Grouping[K, E]) Key() K {
	return g.key
}

// Len returns the number of elements buffered so far.
func (g *Grouping[K, E]) Len() int {
	return len(g.elems)
}

// Snapshot returns a copy of the elements buffered so far.
func (g *Grouping[K, E]) Snapshot() []E {
	return slices.Clone(g.elems)
}

// Elements returns the elements of the group as a pipeline. Every Iter
// starts again from the first element.
func (g *Grouping[K, E]) Elements() *Pipeline[E] {
	return newPipeline(func(ctx context.Context) Iterator[E] {
		i := 0
		return newMachine(ctx, func(ctx context.Context) (E, bool, error) {
			for i >= len(g.elems) {
				if g.src == nil {
					var zero E
					return zero, false, nil
				}
				progressed, err := g.src.pull(ctx)
				if err != nil {
					var zero E
					return zero, false, err
				}
				if !progressed {
					var zero E
					return zero, false, nil
				}
			}
			v := g.elems[i]
			i++
			return v, true, nil
		}, nil)
	})
}

// GroupBy groups the values of p by key. Groups are yielded in the order
// their keys are first seen, as soon as they are discovered.
func GroupBy[T any, K comparable](p *Pipeline[T], key func(T) K) *Pipeline[*Grouping[K, T]] {
	requireFunc("key", key == nil)
	return GroupByFunc(p, syncKey(key), identity[T], DefaultComparer[K]())
}

// GroupByElement groups projected values of p by key.
func GroupByElement[T any, K comparable, E any](p *Pipeline[T], key func(T) K, elem func(T) E) *Pipeline[*Grouping[K, E]] {
	requireFunc("key", key == nil)
	requireFunc("element", elem == nil)
	return GroupByFunc(p, syncKey(key), Sync(elem), DefaultComparer[K]())
}

// GroupByComparer groups the values of p by key using cmp for key equality.
func GroupByComparer[T, K any](p *Pipeline[T], key func(T) K, cmp Comparer[K]) *Pipeline[*Grouping[K, T]] {
	requireFunc("key", key == nil)
	return GroupByFunc(p, syncKey(key), identity[T], cmp)
}

// GroupByFunc is the general grouping form with cancelable, fallible key
// and element functions. The context is checked before the key function
// runs. An error from either function ends the grouping: the source is
// disposed and every iterator that needs to pull it afterwards, the parent
// or any grouping, returns that error once.
func GroupByFunc[T, K, E any](
	p *Pipeline[T],
	key func(context.Context, T) (K, error),
	elem func(context.Context, T) (E, error),
	cmp Comparer[K],
) *Pipeline[*Grouping[K, E]] {
	requireSource(p)
	requireFunc("key", key == nil)
	requireFunc("element", elem == nil)
	requireComparer(cmp)
	return newPipeline(func(ctx context.Context) Iterator[*Grouping[K, E]] {
		e := &groupEngine[T, K, E]{
			source:   p.create(ctx),
			key:      key,
			elem:     elem,
			cmp:      cmp,
			capacity: Defaults().GroupCapacity,
			table:    make(map[uint64][]*Grouping[K, E]),
		}
		next := 0
		return newMachine(ctx, func(ctx context.Context) (*Grouping[K, E], bool, error) {
			for next >= len(e.groups) {
				progressed, err := e.pull(ctx)
				if err != nil || !progressed {
					return nil, false, err
				}
			}
			g := e.groups[next]
			next++
			return g, true, nil
		}, e.finish)
	})
}

// groupEngine drives the source of one GroupBy iteration. It is shared by
// the parent iterator and every group element iterator.
type groupEngine[T, K, E any] struct {
	source   Iterator[T]
	key      func(context.Context, T) (K, error)
	elem     func(context.Context, T) (E, error)
	cmp      Comparer[K]
	capacity int

	table    map[uint64][]*Grouping[K, E]
	groups   []*Grouping[K, E]
	done     bool
	released bool
	canceled error
	failed   error
	pulling  atomic.Bool
}

// pull consumes one source element and files it under its group. It
// reports false once the source is exhausted or the engine finished.
//
// Failures are sticky: every later pull returns the same error, so each
// iterator sharing the engine reports it once. A failure also releases the
// source.
func (e *groupEngine[T, K, E]) pull(ctx context.Context) (bool, error) {
	if !e.pulling.CompareAndSwap(false, true) {
		return false, errors.ConcurrentAdvance()
	}
	defer e.pulling.Store(false)

	if e.failed != nil {
		return false, e.failed
	}
	if e.canceled != nil {
		return false, e.canceled
	}
	if e.done {
		return false, nil
	}

	val, ok, err := e.source.Next(ctx)
	if err != nil {
		return false, e.fail(err)
	}
	if !ok {
		return false, e.finish()
	}

	if err := ctx.Err(); err != nil {
		return false, e.fail(err)
	}
	k, err := e.key(ctx, val)
	if err != nil {
		return false, e.fail(err)
	}
	el, err := e.elem(ctx, val)
	if err != nil {
		return false, e.fail(err)
	}
	g := e.group(k)
	g.elems = append(g.elems, el)
	return true, nil
}

// group returns the grouping for k, creating it in first-seen order.
func (e *groupEngine[T, K, E]) group(k K) *Grouping[K, E] {
	h := e.cmp.Hash(k)
	for _, g := range e.table[h] {
		if e.cmp.Equal(g.key, k) {
			return g
		}
	}
	g := &Grouping[K, E]{key: k, elems: make([]E, 0, e.capacity), src: e}
	e.table[h] = append(e.table[h], g)
	e.groups = append(e.groups, g)
	return g
}

func (e *groupEngine[T, K, E]) fail(err error) error {
	if errors.IsCanceled(err) {
		if _, ok := errors.AsAppError(err); !ok {
			err = errors.Canceled(err)
		}
		e.canceled = err
		return err
	}
	e.failed = err
	_ = e.release()
	return err
}

// finish stops all further source pulls and disposes the source once.
// Groupings keep what they buffered. After a failure they keep their link to
// the engine so that draining past the buffer reports the failure.
func (e *groupEngine[T, K, E]) finish() error {
	if e.done {
		return nil
	}
	e.done = true
	if e.failed == nil {
		for _, g := range e.groups {
			g.src = nil
		}
	}
	return e.release()
}

func (e *groupEngine[T, K, E]) release() error {
	if e.released {
		return nil
	}
	e.released = true
	e.table = nil
	return e.source.Close()
}

// --- Result selection ---

// GroupCount is the key and element count of one group.
type GroupCount[K any] struct {
	Key   K
	Count int
}

// GroupByResult applies result to every group of groups, in first-seen key
// order. The whole source is consumed before result is called for the first
// group, because any later element may belong to an earlier key. result may
// enumerate the element pipeline any number of times.
func GroupByResult[K, E, R any](
	groups *Pipeline[*Grouping[K, E]],
	result func(context.Context, K, *Pipeline[E]) (R, error),
) *Pipeline[R] {
	requireSource(groups)
	requireFunc("result", result == nil)
	return newPipeline(func(ctx context.Context) Iterator[R] {
		var all []*Grouping[K, E]
		loaded := false
		next := 0
		return newMachine(ctx, func(nctx context.Context) (R, bool, error) {
			var zero R
			if !loaded {
				var err error
				if all, err = loadGroups(ctx, nctx, groups); err != nil {
					return zero, false, err
				}
				loaded = true
			}
			if next >= len(all) {
				return zero, false, nil
			}
			if err := nctx.Err(); err != nil {
				return zero, false, err
			}
			g := all[next]
			next++
			r, err := result(nctx, g.Key(), g.Elements())
			if err != nil {
				return zero, false, err
			}
			return r, true, nil
		}, nil)
	})
}

// loadGroups drains a groups iterator bound to ctx, advancing it with nctx.
func loadGroups[K, E any](ctx, nctx context.Context, groups *Pipeline[*Grouping[K, E]]) (all []*Grouping[K, E], err error) {
	it := groups.Iter(ctx)
	defer func() {
		if cerr := it.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for {
		g, ok, err := it.Next(nctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return all, nil
		}
		all = append(all, g)
	}
}

// GroupByCount yields the key and element count of every group.
func GroupByCount[K, E any](groups *Pipeline[*Grouping[K, E]]) *Pipeline[GroupCount[K]] {
	return GroupByResult(groups, func(ctx context.Context, k K, elems *Pipeline[E]) (GroupCount[K], error) {
		n, err := Count(ctx, elems)
		return GroupCount[K]{Key: k, Count: n}, err
	})
}

func identity[T any](_ context.Context, v T) (T, error) {
	return v, nil
}

func syncKey[T, K any](key func(T) K) func(context.Context, T) (K, error) {
	return func(_ context.Context, v T) (K, error) {
		return key(v), nil
	}
}
