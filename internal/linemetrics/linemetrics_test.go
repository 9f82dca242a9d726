package linemetrics

import (
	"bytes"
	"testing"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/piece"
	"github.com/versetype/versetype/internal/pieceline"
	"github.com/versetype/versetype/layout"
)

func testLine() *pieceline.Line {
	body := &fontreg.Record{Nickname: "booktab", Size: 10, Ascent: 800, Descent: 200, LineGap: 90, LineCount: 1}
	return &pieceline.Line{Pieces: []piece.Piece{
		{Text: "one", Font: body, NaturalWidth: 20, Width: 20},
		{Text: " ", Font: body, NaturalWidth: 5, Width: 5, Elastic: true},
		{Text: "two", Font: body, NaturalWidth: 20, Width: 20},
		{Text: " ", Font: body, NaturalWidth: 5, Width: 5, Elastic: true},
		{Text: "three", Font: body, NaturalWidth: 30, Width: 30},
	}}
}

func TestBuildCoversEveryStartEndPair(t *testing.T) {
	reg := fontreg.NewRegistry()
	l := testLine()
	table := Build(l, 50, reg, 0, 1.0)

	if table.N != 5 {
		t.Fatalf("expected N=5, got %d", table.N)
	}
	if _, _, ok := table.At(0, 1); !ok {
		t.Fatal("expected [0,1) feasible")
	}
	if _, _, ok := table.At(0, 5); ok {
		t.Fatal("expected the full 80pt line infeasible at a 50pt column")
	}
}

func TestSaveLoadRoundTrips(t *testing.T) {
	reg := fontreg.NewRegistry()
	l := testLine()
	table := Build(l, 50, reg, 0, 1.0)

	var buf bytes.Buffer
	if err := table.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	wantCost, wantHeight, wantOK := table.At(0, 2)
	gotCost, gotHeight, gotOK := loaded.At(0, 2)
	if wantOK != gotOK || wantCost != gotCost || wantHeight != gotHeight {
		t.Fatalf("round-trip mismatch: want (%d,%v,%v) got (%d,%v,%v)",
			wantCost, wantHeight, wantOK, gotCost, gotHeight, gotOK)
	}
}

func TestAtOutOfRangeIsInfeasible(t *testing.T) {
	reg := fontreg.NewRegistry()
	l := testLine()
	table := Build(l, 50, reg, 0, 1.0)
	if _, _, ok := table.At(10, 12); ok {
		t.Fatal("expected an out-of-range query to report infeasible")
	}
	if _, _, ok := table.At(2, 2); ok {
		t.Fatal("expected a zero-width range to report infeasible")
	}
	_ = layout.Abs(0)
}
