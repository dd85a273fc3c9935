package market

import "testing"

func TestRingEvictsOldestFirst(t *testing.T) {
	r := newRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Append(i)
	}
	if r.Len() != 3 {
		t.Fatalf("expected len 3, got %d", r.Len())
	}
	got := r.Values()
	want := []int{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRingLast(t *testing.T) {
	r := newRing[int](5)
	for i := 1; i <= 4; i++ {
		r.Append(i)
	}
	last := r.Last(2)
	if len(last) != 2 || last[0] != 3 || last[1] != 4 {
		t.Fatalf("expected [3 4], got %v", last)
	}
	all := r.Last(10)
	if len(all) != 4 {
		t.Fatalf("expected 4 elements, got %d", len(all))
	}
}

func TestRingFull(t *testing.T) {
	r := newRing[string](2)
	if r.Full() {
		t.Fatalf("empty ring reported full")
	}
	r.Append("a")
	r.Append("b")
	if !r.Full() {
		t.Fatalf("ring at capacity not reported full")
	}
	r.Append("c")
	if r.Len() != 2 || r.At(0) != "b" || r.At(1) != "c" {
		t.Fatalf("unexpected contents after eviction: %v", r.Values())
	}
}
