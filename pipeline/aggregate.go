package pipeline

import (
	"cmp"
	"context"

	"github.com/kbukum/seqkit/errors"
	"github.com/kbukum/seqkit/util"
)

// reduce drives p through visit inside a terminal named op. With nonEmpty
// set, a pipeline without elements fails the terminal with an
// EMPTY_SEQUENCE error.
func reduce[T any](ctx context.Context, op string, p *Pipeline[T], nonEmpty bool, visit func(T) error) error {
	requireSource(p)
	return terminal(ctx, op, func(ctx context.Context) error {
		seen := false
		err := drive(ctx, p, func(v T) (bool, error) {
			seen = true
			return true, visit(v)
		})
		if err == nil && nonEmpty && !seen {
			err = errors.EmptySequence(op)
		}
		return err
	})
}

// Sync adapts a plain function to the selector shape the ...Of
// aggregations take.
func Sync[T, R any](fn func(T) R) func(context.Context, T) (R, error) {
	requireFunc("selector", fn == nil)
	return func(_ context.Context, v T) (R, error) {
		return fn(v), nil
	}
}

// --- Folds ---

// Aggregate folds p into seed with combine. An empty pipeline returns seed.
func Aggregate[T, A any](ctx context.Context, p *Pipeline[T], seed A, combine func(A, T) (A, error)) (A, error) {
	requireFunc("combine", combine == nil)
	acc := seed
	err := reduce(ctx, "Aggregate", p, false, func(v T) error {
		next, err := combine(acc, v)
		if err != nil {
			return err
		}
		acc = next
		return nil
	})
	return acc, err
}

// Fold folds p using its first element as the seed. An empty pipeline
// fails with an EMPTY_SEQUENCE error.
func Fold[T any](ctx context.Context, p *Pipeline[T], combine func(T, T) (T, error)) (T, error) {
	requireFunc("combine", combine == nil)
	var acc T
	err := reduce(ctx, "Fold", p, true, firstThen(&acc, func(v T) error {
		next, err := combine(acc, v)
		if err != nil {
			return err
		}
		acc = next
		return nil
	}))
	return acc, err
}

// firstThen stores the first value in acc and hands every later one to rest.
func firstThen[T any](acc *T, rest func(T) error) func(T) error {
	first := true
	return func(v T) error {
		if first {
			*acc, first = v, false
			return nil
		}
		return rest(v)
	}
}

// --- Min / Max ---

// Min returns the smallest value of p. NaN orders before every other
// float, so any NaN makes the result NaN.
func Min[T cmp.Ordered](ctx context.Context, p *Pipeline[T]) (T, error) {
	return extremum(ctx, "Min", p, cmp.Compare[T], -1)
}

// Max returns the largest value of p. NaN is only returned when every
// value is NaN.
func Max[T cmp.Ordered](ctx context.Context, p *Pipeline[T]) (T, error) {
	return extremum(ctx, "Max", p, cmp.Compare[T], 1)
}

// MinBy returns the smallest value of p under compare.
func MinBy[T any](ctx context.Context, p *Pipeline[T], compare func(a, b T) int) (T, error) {
	requireFunc("compare", compare == nil)
	return extremum(ctx, "MinBy", p, compare, -1)
}

// MaxBy returns the largest value of p under compare.
func MaxBy[T any](ctx context.Context, p *Pipeline[T], compare func(a, b T) int) (T, error) {
	requireFunc("compare", compare == nil)
	return extremum(ctx, "MaxBy", p, compare, 1)
}

// extremum keeps the value that compares toward sign. Ties keep the
// earlier value.
func extremum[T any](ctx context.Context, op string, p *Pipeline[T], compare func(a, b T) int, sign int) (T, error) {
	var best T
	err := reduce(ctx, op, p, true, firstThen(&best, func(v T) error {
		if compare(v, best)*sign > 0 {
			best = v
		}
		return nil
	}))
	return best, err
}

// --- Sum / Average ---

// Sum adds the values of p. Integer sums are checked and fail with an
// OVERFLOW error. An empty pipeline sums to zero.
func Sum[T Number](ctx context.Context, p *Pipeline[T]) (T, error) {
	return SumNumeric(ctx, p, NumericOf[T]())
}

// Average returns the mean of p. Integers are summed in int64 or uint64
// with overflow checks, floats in float64. An empty pipeline fails with an
// EMPTY_SEQUENCE error.
func Average[T Number](ctx context.Context, p *Pipeline[T]) (float64, error) {
	sum := newWideSum[T]()
	var n int64
	err := reduce(ctx, "Average", p, true, func(v T) error {
		if !sum.add(v) {
			return errors.Overflow("Average")
		}
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sum.mean(n), nil
}

// --- Counting ---

// Count returns the number of values in p.
func Count[T any](ctx context.Context, p *Pipeline[T]) (int, error) {
	n := 0
	err := reduce(ctx, "Count", p, false, func(T) error {
		n++
		return nil
	})
	return n, err
}

// CountWhere returns the number of values in p that satisfy pred.
func CountWhere[T any](ctx context.Context, p *Pipeline[T], pred func(T) bool) (int, error) {
	requireFunc("predicate", pred == nil)
	n := 0
	err := reduce(ctx, "CountWhere", p, false, func(v T) error {
		if pred(v) {
			n++
		}
		return nil
	})
	return n, err
}

// LongCount is Count with an int64 result.
func LongCount[T any](ctx context.Context, p *Pipeline[T]) (int64, error) {
	var n int64
	err := reduce(ctx, "LongCount", p, false, func(T) error {
		n++
		return nil
	})
	return n, err
}

// --- Nullable ---

// MinNullable returns the smallest non-nil value of p, or nil when p is
// empty or holds only nils.
func MinNullable[T cmp.Ordered](ctx context.Context, p *Pipeline[*T]) (*T, error) {
	return nullableExtremum(ctx, "MinNullable", p, cmp.Compare[T], -1)
}

// MaxNullable returns the largest non-nil value of p, or nil when p is
// empty or holds only nils.
func MaxNullable[T cmp.Ordered](ctx context.Context, p *Pipeline[*T]) (*T, error) {
	return nullableExtremum(ctx, "MaxNullable", p, cmp.Compare[T], 1)
}

func nullableExtremum[T any](ctx context.Context, op string, p *Pipeline[*T], compare func(a, b T) int, sign int) (*T, error) {
	var best *T
	err := reduce(ctx, op, p, false, func(v *T) error {
		if v != nil && (best == nil || compare(*v, *best)*sign > 0) {
			best = util.Ptr(*v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}

// SumNullable adds the non-nil values of p. Nils are skipped and an empty
// pipeline sums to zero.
func SumNullable[T Number](ctx context.Context, p *Pipeline[*T]) (T, error) {
	var sum T
	err := reduce(ctx, "SumNullable", p, false, func(v *T) error {
		next, ok := checkedAdd(sum, util.Deref(v))
		if !ok {
			return errors.Overflow("SumNullable")
		}
		sum = next
		return nil
	})
	return sum, err
}

// AverageNullable returns the mean of the non-nil values of p, or nil when
// there are none.
func AverageNullable[T Number](ctx context.Context, p *Pipeline[*T]) (*float64, error) {
	sum := newWideSum[T]()
	var n int64
	err := reduce(ctx, "AverageNullable", p, false, func(v *T) error {
		if v == nil {
			return nil
		}
		if !sum.add(*v) {
			return errors.Overflow("AverageNullable")
		}
		n++
		return nil
	})
	if err != nil || n == 0 {
		return nil, err
	}
	return util.Ptr(sum.mean(n)), nil
}

// --- Selector forms ---

// MinOf returns the smallest selected value. The context is checked before
// every selector call.
func MinOf[T any, N cmp.Ordered](ctx context.Context, p *Pipeline[T], sel func(context.Context, T) (N, error)) (N, error) {
	return Min(ctx, SelectContext(p, sel))
}

// MaxOf returns the largest selected value.
func MaxOf[T any, N cmp.Ordered](ctx context.Context, p *Pipeline[T], sel func(context.Context, T) (N, error)) (N, error) {
	return Max(ctx, SelectContext(p, sel))
}

// SumOf adds the selected values.
func SumOf[T any, N Number](ctx context.Context, p *Pipeline[T], sel func(context.Context, T) (N, error)) (N, error) {
	return Sum(ctx, SelectContext(p, sel))
}

// AverageOf returns the mean of the selected values.
func AverageOf[T any, N Number](ctx context.Context, p *Pipeline[T], sel func(context.Context, T) (N, error)) (float64, error) {
	return Average(ctx, SelectContext(p, sel))
}

// MinOfNullable returns the smallest non-nil selected value, or nil.
func MinOfNullable[T any, N cmp.Ordered](ctx context.Context, p *Pipeline[T], sel func(context.Context, T) (*N, error)) (*N, error) {
	return MinNullable(ctx, SelectContext(p, sel))
}

// MaxOfNullable returns the largest non-nil selected value, or nil.
func MaxOfNullable[T any, N cmp.Ordered](ctx context.Context, p *Pipeline[T], sel func(context.Context, T) (*N, error)) (*N, error) {
	return MaxNullable(ctx, SelectContext(p, sel))
}

// SumOfNullable adds the non-nil selected values.
func SumOfNullable[T any, N Number](ctx context.Context, p *Pipeline[T], sel func(context.Context, T) (*N, error)) (N, error) {
	return SumNullable(ctx, SelectContext(p, sel))
}

// AverageOfNullable returns the mean of the non-nil selected values, or nil.
func AverageOfNullable[T any, N Number](ctx context.Context, p *Pipeline[T], sel func(context.Context, T) (*N, error)) (*float64, error) {
	return AverageNullable(ctx, SelectContext(p, sel))
}

// --- User numeric types ---

// MinNumeric returns the smallest value of p under num.Compare.
func MinNumeric[T any](ctx context.Context, p *Pipeline[T], num Numeric[T]) (T, error) {
	requireFunc("compare", num.Compare == nil)
	return extremum(ctx, "MinNumeric", p, num.Compare, -1)
}

// MaxNumeric returns the largest value of p under num.Compare.
func MaxNumeric[T any](ctx context.Context, p *Pipeline[T], num Numeric[T]) (T, error) {
	requireFunc("compare", num.Compare == nil)
	return extremum(ctx, "MaxNumeric", p, num.Compare, 1)
}

// SumNumeric adds the values of p with num.Add, starting from num.Zero.
func SumNumeric[T any](ctx context.Context, p *Pipeline[T], num Numeric[T]) (T, error) {
	requireFunc("add", num.Add == nil)
	sum := num.Zero
	err := reduce(ctx, "Sum", p, false, func(v T) error {
		next, ok := num.Add(sum, v)
		if !ok {
			return errors.Overflow("Sum")
		}
		sum = next
		return nil
	})
	return sum, err
}

// AverageNumeric returns num.Mean of the sum of p. An empty pipeline fails
// with an EMPTY_SEQUENCE error.
func AverageNumeric[T any](ctx context.Context, p *Pipeline[T], num Numeric[T]) (float64, error) {
	requireFunc("add", num.Add == nil)
	requireFunc("mean", num.Mean == nil)
	sum := num.Zero
	var n int64
	err := reduce(ctx, "AverageNumeric", p, true, func(v T) error {
		next, ok := num.Add(sum, v)
		if !ok {
			return errors.Overflow("AverageNumeric")
		}
		sum = next
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return num.Mean(sum, n), nil
}
