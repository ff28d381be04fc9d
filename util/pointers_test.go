package util

import "testing"

func TestPtrDeref(t *testing.T) {
	p := Ptr(42)
	if *p != 42 {
		t.Errorf("expected *p=42, got %d", *p)
	}
	if Deref(p) != 42 {
		t.Error("expected Deref to return 42")
	}

	var nilInt *int
	if Deref(nilInt) != 0 {
		t.Error("expected Deref of nil to return zero value")
	}
	var nilStr *string
	if Deref(nilStr) != "" {
		t.Error("expected Deref of nil string pointer to return empty string")
	}
}
