package util

import "testing"

func TestUnique(t *testing.T) {
	assertInts(t, "Unique", Unique([]int{1, 2, 2, 3, 1, 4}), []int{1, 2, 3, 4})
	if got := Unique([]string{}); len(got) != 0 {
		t.Errorf("Unique on empty = %v", got)
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "", "x", "y"); got != "x" {
		t.Errorf("Coalesce = %q, want x", got)
	}
	if got := Coalesce(0, 0); got != 0 {
		t.Errorf("Coalesce all zero = %d", got)
	}
}

func assertInts(t *testing.T, name string, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %v, want %v", name, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d] = %d, want %d", name, i, got[i], want[i])
		}
	}
}
