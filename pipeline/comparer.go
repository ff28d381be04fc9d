package pipeline

import (
	"hash/maphash"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Comparer decides key equality for grouping. Keys that are Equal must have
// the same Hash.
type Comparer[K any] interface {
	Equal(a, b K) bool
	Hash(k K) uint64
}

// ComparerFunc builds a Comparer from two functions. Both must be set;
// grouping operators reject a ComparerFunc with a nil function.
type ComparerFunc[K any] struct {
	EqualFunc func(a, b K) bool
	HashFunc  func(k K) uint64
}

// NewComparerFunc returns a Comparer calling equal and hash. A nil function
// panics with an INVALID_ARGUMENT error.
func NewComparerFunc[K any](equal func(a, b K) bool, hash func(k K) uint64) Comparer[K] {
	requireFunc("equal", equal == nil)
	requireFunc("hash", hash == nil)
	return ComparerFunc[K]{EqualFunc: equal, HashFunc: hash}
}

func requireComparer[K any](cmp Comparer[K]) {
	requireFunc("comparer", cmp == nil)
	switch c := cmp.(type) {
	case ComparerFunc[K]:
		requireFunc("comparer.EqualFunc", c.EqualFunc == nil)
		requireFunc("comparer.HashFunc", c.HashFunc == nil)
	case *ComparerFunc[K]:
		requireFunc("comparer", c == nil)
		requireFunc("comparer.EqualFunc", c.EqualFunc == nil)
		requireFunc("comparer.HashFunc", c.HashFunc == nil)
	}
}

func (c ComparerFunc[K]) Equal(a, b K) bool { return c.EqualFunc(a, b) }
func (c ComparerFunc[K]) Hash(k K) uint64   { return c.HashFunc(k) }

type defaultComparer[K comparable] struct {
	seed maphash.Seed
}

// DefaultComparer compares keys with ==.
func DefaultComparer[K comparable]() Comparer[K] {
	return defaultComparer[K]{seed: maphash.MakeSeed()}
}

func (c defaultComparer[K]) Equal(a, b K) bool { return a == b }
func (c defaultComparer[K]) Hash(k K) uint64   { return maphash.Comparable(c.seed, k) }

type foldComparer struct {
	seed maphash.Seed
}

// StringFoldComparer compares string keys under Unicode simple case folding.
func StringFoldComparer() Comparer[string] {
	return foldComparer{seed: maphash.MakeSeed()}
}

func (c foldComparer) Equal(a, b string) bool { return strings.EqualFold(a, b) }

func (c foldComparer) Hash(k string) uint64 {
	var h maphash.Hash
	h.SetSeed(c.seed)
	var buf [utf8.UTFMax]byte
	for _, r := range k {
		n := utf8.EncodeRune(buf[:], foldCanonical(r))
		_, _ = h.Write(buf[:n])
	}
	return h.Sum64()
}

// foldCanonical maps r to the smallest rune of its case-folding orbit, so
// every rune EqualFold treats as equal hashes the same.
func foldCanonical(r rune) rune {
	lowest := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < lowest {
			lowest = f
		}
	}
	return lowest
}
