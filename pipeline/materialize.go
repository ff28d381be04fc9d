package pipeline

import (
	"context"

	"github.com/kbukum/seqkit/errors"
	"github.com/kbukum/seqkit/validation"
)

// ToMap collects p into a map. When two values share a key the later one
// wins.
func ToMap[T any, K comparable, V any](ctx context.Context, p *Pipeline[T], key func(T) K, val func(T) V) (map[K]V, error) {
	requireFunc("key", key == nil)
	requireFunc("value", val == nil)
	out := make(map[K]V)
	err := reduce(ctx, "ToMap", p, false, func(v T) error {
		out[key(v)] = val(v)
		return nil
	})
	return out, err
}

// First returns the first value of p and stops pulling. An empty pipeline
// fails with an EMPTY_SEQUENCE error.
func First[T any](ctx context.Context, p *Pipeline[T]) (T, error) {
	v, _, err := first(ctx, "First", p, true)
	return v, err
}

// FirstOrDefault returns the first value of p, or def when p is empty.
func FirstOrDefault[T any](ctx context.Context, p *Pipeline[T], def T) (T, error) {
	v, ok, err := first(ctx, "FirstOrDefault", p, false)
	if err != nil {
		var zero T
		return zero, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

func first[T any](ctx context.Context, op string, p *Pipeline[T], nonEmpty bool) (T, bool, error) {
	requireSource(p)
	var out T
	found := false
	err := terminal(ctx, op, func(ctx context.Context) error {
		err := drive(ctx, p, func(v T) (bool, error) {
			out, found = v, true
			return false, nil
		})
		if err == nil && nonEmpty && !found {
			err = errors.EmptySequence(op)
		}
		return err
	})
	return out, found, err
}

// Last returns the last value of p. An empty pipeline fails with an
// EMPTY_SEQUENCE error.
func Last[T any](ctx context.Context, p *Pipeline[T]) (T, error) {
	var last T
	err := reduce(ctx, "Last", p, true, func(v T) error {
		last = v
		return nil
	})
	return last, err
}

// ElementAt returns the value at the zero-based index. Asking past the end
// fails with an INDEX_OUT_OF_RANGE error; a negative index panics.
func ElementAt[T any](ctx context.Context, p *Pipeline[T], index int) (T, error) {
	requireSource(p)
	mustValidate(validation.New().NonNegative("index", index))
	var out T
	found := false
	i := 0
	err := terminal(ctx, "ElementAt", func(ctx context.Context) error {
		err := drive(ctx, p, func(v T) (bool, error) {
			if i == index {
				out, found = v, true
				return false, nil
			}
			i++
			return true, nil
		})
		if err == nil && !found {
			err = errors.IndexOutOfRange(index)
		}
		return err
	})
	return out, err
}

// Any reports whether some value of p satisfies pred. It stops at the
// first match.
func Any[T any](ctx context.Context, p *Pipeline[T], pred func(T) bool) (bool, error) {
	requireSource(p)
	requireFunc("predicate", pred == nil)
	found := false
	err := terminal(ctx, "Any", func(ctx context.Context) error {
		return drive(ctx, p, func(v T) (bool, error) {
			found = pred(v)
			return !found, nil
		})
	})
	return found, err
}

// All reports whether every value of p satisfies pred. It stops at the
// first mismatch. An empty pipeline satisfies any predicate.
func All[T any](ctx context.Context, p *Pipeline[T], pred func(T) bool) (bool, error) {
	requireSource(p)
	requireFunc("predicate", pred == nil)
	holds := true
	err := terminal(ctx, "All", func(ctx context.Context) error {
		return drive(ctx, p, func(v T) (bool, error) {
			holds = pred(v)
			return holds, nil
		})
	})
	return holds, err
}
