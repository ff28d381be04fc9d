package pipeline

import (
	"cmp"
	"math"
)

// Signed is the set of signed integer kinds.
type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is the set of unsigned integer kinds.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Integer is the set of integer kinds.
type Integer interface {
	Signed | Unsigned
}

// Float is the set of floating-point kinds.
type Float interface {
	~float32 | ~float64
}

// Number is every built-in numeric kind the aggregations accept.
type Number interface {
	Integer | Float
}

// Numeric is the accumulation capability of a numeric type. NumericOf
// returns it for built-in kinds; fixed-point and other user types supply
// their own for the ...Numeric aggregations.
type Numeric[T any] struct {
	Zero T
	// Add returns a+b and false if the sum overflowed.
	Add func(a, b T) (T, bool)
	// Compare orders two values like cmp.Compare.
	Compare func(a, b T) int
	// Mean divides a sum by a positive count.
	Mean func(sum T, n int64) float64
}

// NumericOf returns the Numeric of a built-in kind. Integer addition is
// checked; float addition follows IEEE 754.
func NumericOf[T Number]() Numeric[T] {
	return Numeric[T]{
		Add:     checkedAdd[T],
		Compare: cmp.Compare[T],
		Mean: func(sum T, n int64) float64 {
			return float64(sum) / float64(n)
		},
	}
}

type numKind uint8

const (
	kindSigned numKind = iota
	kindUnsigned
	kindFloat
)

func kindOf[T Number]() numKind {
	one, two := T(1), T(2)
	if one/two != 0 {
		return kindFloat
	}
	var zero T
	if zero-one < zero {
		return kindSigned
	}
	return kindUnsigned
}

func checkedAdd[T Number](a, b T) (T, bool) {
	s := a + b
	switch kindOf[T]() {
	case kindFloat:
		return s, true
	case kindSigned:
		var zero T
		if (b > zero && s < a) || (b < zero && s > a) {
			return s, false
		}
		return s, true
	default:
		return s, s >= a
	}
}

// wideSum accumulates values of T in the widest type of its kind.
type wideSum[T Number] struct {
	kind numKind
	i    int64
	u    uint64
	f    float64
}

func newWideSum[T Number]() *wideSum[T] {
	return &wideSum[T]{kind: kindOf[T]()}
}

// add reports false if the sum left the range of its wide type.
func (w *wideSum[T]) add(v T) bool {
	switch w.kind {
	case kindFloat:
		w.f += float64(v)
	case kindSigned:
		x := int64(v)
		if (x > 0 && w.i > math.MaxInt64-x) || (x < 0 && w.i < math.MinInt64-x) {
			return false
		}
		w.i += x
	default:
		x := uint64(v)
		if w.u > math.MaxUint64-x {
			return false
		}
		w.u += x
	}
	return true
}

func (w *wideSum[T]) mean(n int64) float64 {
	switch w.kind {
	case kindFloat:
		return w.f / float64(n)
	case kindSigned:
		return float64(w.i) / float64(n)
	default:
		return float64(w.u) / float64(n)
	}
}
