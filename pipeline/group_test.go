package pipeline

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/seqkit/errors"
)

type person struct {
	Name string
	Age  int
}

var people = []person{
	{"ada", 27}, {"bob", 62}, {"cy", 27}, {"dee", 14}, {"eve", 27}, {"fay", 23}, {"gus", 42},
}

func decade(p person) int { return p.Age / 10 }

// referenceGroups groups synchronously, in first-seen key order.
func referenceGroups[T any, K comparable](items []T, key func(T) K) ([]K, map[K][]T) {
	var keys []K
	groups := make(map[K][]T)
	for _, v := range items {
		k := key(v)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], v)
	}
	return keys, groups
}

func TestGroupBy_OrderMatchesReference(t *testing.T) {
	ctx := context.Background()
	groups := collect(t, GroupBy(FromSlice(people), decade))

	wantKeys, wantGroups := referenceGroups(people, decade)
	require.Equal(t, []int{2, 6, 1, 4}, wantKeys)

	var keys []int
	for _, g := range groups {
		keys = append(keys, g.Key())
		elems, err := Collect(ctx, g.Elements())
		require.NoError(t, err)
		assert.Equal(t, wantGroups[g.Key()], elems, "group %d", g.Key())
		assert.Equal(t, len(wantGroups[g.Key()]), g.Len())
	}
	assert.Equal(t, wantKeys, keys)
}

func TestGroupBy_Reiteration(t *testing.T) {
	p := GroupByCount(GroupBy(FromSlice(people), decade))
	first := collect(t, p)
	assert.Equal(t, first, collect(t, p))
	assert.Equal(t, []GroupCount[int]{{2, 4}, {6, 1}, {1, 1}, {4, 1}}, first)
}

func TestGroupBy_LazyDiscovery(t *testing.T) {
	ctx := context.Background()
	src := newTracking(people...)
	it := GroupBy(src.pipeline(), decade).Iter(ctx)
	defer it.Close()

	g, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, g.Key())
	assert.Equal(t, 1, src.nexts, "a group is yielded as soon as its key is seen")
	assert.Equal(t, []person{{"ada", 27}}, g.Snapshot())

	// Driving the group past its buffer pulls the shared source.
	elems, err := Collect(ctx, g.Elements())
	require.NoError(t, err)
	assert.Equal(t, []person{{"ada", 27}, {"cy", 27}, {"eve", 27}, {"fay", 23}}, elems)
	pulled := src.nexts

	var keys []int
	for {
		g, ok, err := it.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, g.Key())
	}
	assert.Equal(t, []int{6, 1, 4}, keys)
	assert.Equal(t, pulled, src.nexts, "groups already discovered need no more pulls")
	assert.Equal(t, 1, src.closes)
}

func TestGroupBy_ParentCloseKeepsBufferedGroups(t *testing.T) {
	ctx := context.Background()
	src := newTracking(people...)
	it := GroupBy(src.pipeline(), decade).Iter(ctx)

	g2, _, err := it.Next(ctx)
	require.NoError(t, err)
	g6, _, err := it.Next(ctx)
	require.NoError(t, err)
	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	assert.Equal(t, 1, src.closes)
	pulled := src.nexts

	elems, err := Collect(ctx, g2.Elements())
	require.NoError(t, err)
	assert.Equal(t, []person{{"ada", 27}}, elems)
	elems, err = Collect(ctx, g6.Elements())
	require.NoError(t, err)
	assert.Equal(t, []person{{"bob", 62}}, elems)
	assert.Equal(t, pulled, src.nexts, "no pulls after the parent is closed")
}

func TestGroupByResult_SelectorCanEnumerateTwice(t *testing.T) {
	p := GroupByResult(GroupBy(FromSlice(people), decade),
		func(ctx context.Context, k int, elems *Pipeline[person]) (string, error) {
			n, err := Count(ctx, elems)
			if err != nil {
				return "", err
			}
			names, err := Collect(ctx, Select(elems, func(p person) string { return p.Name }))
			if err != nil {
				return "", err
			}
			require.Len(t, names, n)
			return strings.Join(names, ","), nil
		})

	assert.Equal(t, []string{"ada,cy,eve,fay", "bob", "dee", "gus"}, collect(t, p))
}

func TestGroupByResult_ConsumesSourceFirst(t *testing.T) {
	ctx := context.Background()
	src := newTracking(people...)
	var pulledAtFirstCall int
	it := GroupByResult(GroupBy(src.pipeline(), decade),
		func(_ context.Context, k int, _ *Pipeline[person]) (int, error) {
			if pulledAtFirstCall == 0 {
				pulledAtFirstCall = src.nexts
			}
			return k, nil
		}).Iter(ctx)
	defer it.Close()

	_, _, err := it.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(people)+1, pulledAtFirstCall)
}

func TestGroupByElement(t *testing.T) {
	p := GroupByElement(FromSlice(people), decade, func(p person) string { return p.Name })
	groups := collect(t, p)
	require.Len(t, groups, 4)
	assert.Equal(t, []string{"ada", "cy", "eve", "fay"}, groups[0].Snapshot())
}

func TestGroupByComparer_FoldCase(t *testing.T) {
	p := GroupByCount(GroupByComparer(Of("a", "A", "b", "B", "a"),
		func(s string) string { return s }, StringFoldComparer()))
	assert.Equal(t, []GroupCount[string]{{"a", 3}, {"b", 2}}, collect(t, p))
}

func TestGroupByFunc_KeyErrorPropagatesOnce(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("bad key")
	src := newTracking(1, 2, 3)
	it := GroupByFunc(src.pipeline(),
		func(_ context.Context, v int) (int, error) {
			if v == 2 {
				return 0, boom
			}
			return v, nil
		},
		identity[int],
		DefaultComparer[int](),
	).Iter(ctx)
	defer it.Close()

	g, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = it.Next(ctx)
	assert.Same(t, boom, err)
	_, ok, err = it.Next(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)

	elems, err := Collect(ctx, g.Elements())
	assert.Same(t, boom, err)
	assert.Equal(t, []int{1}, elems)
	assert.Equal(t, 1, src.closes)
}

func TestGroupByFunc_ErrorReachesEveryReader(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("bad key")
	src := newTracking(1, 1, 2, 3, 4)
	it := GroupByFunc(src.pipeline(),
		func(_ context.Context, v int) (int, error) {
			if v == 3 {
				return 0, boom
			}
			return v, nil
		},
		identity[int],
		DefaultComparer[int](),
	).Iter(ctx)
	defer it.Close()

	first, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	elems := first.Elements().Iter(ctx)
	for _, want := range []int{1, 1} {
		v, ok, err := elems.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
	_, _, err = elems.Next(ctx)
	assert.Same(t, boom, err)
	_, ok, err = elems.Next(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)
	require.NoError(t, elems.Close())

	second, ok, err := it.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, second.Key())

	_, ok, err = it.Next(ctx)
	assert.False(t, ok)
	assert.Same(t, boom, err)
	_, ok, err = it.Next(ctx)
	assert.False(t, ok)
	assert.NoError(t, err)

	got, err := Collect(ctx, second.Elements())
	assert.Same(t, boom, err)
	assert.Equal(t, []int{2}, got)

	require.NoError(t, it.Close())
	_, err = Collect(ctx, first.Elements())
	assert.Same(t, boom, err)
	assert.Equal(t, 1, src.closes)
}

func TestGroupByResult_ReportsKeyError(t *testing.T) {
	boom := stderrors.New("bad key")
	groups := GroupByFunc(Of(1, 1, 2, 3, 4),
		func(_ context.Context, v int) (int, error) {
			if v == 3 {
				return 0, boom
			}
			return v, nil
		},
		identity[int],
		DefaultComparer[int](),
	)
	got, err := Collect(context.Background(), GroupByCount(groups))
	assert.Same(t, boom, err)
	assert.Empty(t, got)
}

func TestGroupBy_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	it := GroupBy(FromSlice(people), decade).Iter(context.Background())
	defer it.Close()

	g, _, err := it.Next(ctx)
	require.NoError(t, err)
	cancel()

	_, _, err = it.Next(ctx)
	assert.True(t, errors.IsCanceled(err))

	_, err = Collect(ctx, g.Elements())
	assert.True(t, errors.IsCanceled(err))
}

func TestGroupBy_InvalidArguments(t *testing.T) {
	requireInvalidArgument(t, func() { GroupBy[int, int](Of(1), nil) })
	requireInvalidArgument(t, func() {
		GroupByComparer(Of("a"), func(s string) string { return s }, nil)
	})
	requireInvalidArgument(t, func() { GroupByResult[int, int, int](GroupBy(Of(1), func(v int) int { return v }), nil) })
	requireInvalidArgument(t, func() {
		GroupByComparer(Of(1), func(v int) int { return v }, ComparerFunc[int]{})
	})
	requireInvalidArgument(t, func() {
		GroupByComparer(Of(1), func(v int) int { return v }, Comparer[int](&ComparerFunc[int]{
			EqualFunc: func(a, b int) bool { return a == b },
		}))
	})
	requireInvalidArgument(t, func() { NewComparerFunc[int](nil, func(int) uint64 { return 0 }) })
	requireInvalidArgument(t, func() { NewComparerFunc(func(a, b int) bool { return a == b }, nil) })
}

func TestComparers(t *testing.T) {
	def := DefaultComparer[string]()
	assert.True(t, def.Equal("x", "x"))
	assert.False(t, def.Equal("x", "X"))
	assert.Equal(t, def.Hash("x"), def.Hash("x"))

	fold := StringFoldComparer()
	tests := []struct {
		a, b string
	}{
		{"hello", "HeLLo"},
		{"k", "K"}, // Kelvin sign folds to k
		{"straße", "STRAßE"},
	}
	for _, tt := range tests {
		t.Run(tt.a, func(t *testing.T) {
			require.True(t, fold.Equal(tt.a, tt.b))
			assert.Equal(t, fold.Hash(tt.a), fold.Hash(tt.b))
		})
	}

	custom := NewComparerFunc(
		func(a, b int) bool { return a%3 == b%3 },
		func(k int) uint64 { return uint64(k % 3) },
	)
	p := GroupByCount(GroupByComparer(Range(0, 7), func(v int) int { return v }, custom))
	assert.Equal(t, []GroupCount[int]{{0, 3}, {1, 2}, {2, 2}}, collect(t, p))
}
