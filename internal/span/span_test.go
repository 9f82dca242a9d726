package span

import "testing"

func TestPointLessOrdersByParagraphThenLineThenPiece(t *testing.T) {
	cases := []struct {
		a, b Point
		want bool
	}{
		{Point{0, 0, 0}, Point{1, 0, 0}, true},
		{Point{1, 0, 0}, Point{0, 9, 9}, false},
		{Point{2, 1, 0}, Point{2, 2, 0}, true},
		{Point{2, 2, 5}, Point{2, 2, 6}, true},
		{Point{2, 2, 6}, Point{2, 2, 6}, false},
	}
	for _, c := range cases {
		if got := c.a.Less(c.b); got != c.want {
			t.Errorf("%v.Less(%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestRangeEmpty(t *testing.T) {
	r := Range{Start: Point{1, 0, 0}, End: Point{1, 0, 0}}
	if !r.Empty() {
		t.Fatal("expected a zero-width range to be empty")
	}
	r.End.Piece = 1
	if r.Empty() {
		t.Fatal("expected a non-zero range to be non-empty")
	}
}
