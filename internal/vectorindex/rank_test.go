package vectorindex

import (
	"math"
	"testing"
)

func TestRanker_Score(t *testing.T) {
	r, ok := newRanker([]float32{3, 4})
	if !ok {
		t.Fatalf("non-zero query rejected")
	}
	cases := []struct {
		v      []float32
		want   float64
		wantOK bool
	}{
		{[]float32{6, 8}, 1, true},
		{[]float32{-3, -4}, -1, true},
		{[]float32{4, -3}, 0, true},
		{[]float32{1, 0}, 0.6, true},
		{[]float32{0, 0}, 0, false},
		{[]float32{1, 2, 3}, 0, false},
	}
	for _, tc := range cases {
		got, ok := r.score(tc.v)
		if ok != tc.wantOK || math.Abs(got-tc.want) > 1e-6 {
			t.Fatalf("score(%v) = %v %v, want %v %v", tc.v, got, ok, tc.want, tc.wantOK)
		}
	}

	if _, ok := newRanker([]float32{0, 0}); ok {
		t.Fatalf("zero query must be rejected")
	}
}

func TestTop_OrdersByScoreThenID(t *testing.T) {
	got := top([]Match{
		{ID: "c", Score: 0.5},
		{ID: "b", Score: 0.9},
		{ID: "a", Score: 0.5},
		{ID: "d", Score: 0.1},
	}, 3)
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d matches, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("position %d: got %s want %s", i, got[i].ID, want[i])
		}
	}
}
