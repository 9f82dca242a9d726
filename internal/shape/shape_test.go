package shape

import (
	"testing"

	"github.com/versetype/versetype/internal/fontreg"
	"github.com/versetype/versetype/internal/piece"
	"github.com/versetype/versetype/internal/pieceline"
	"github.com/versetype/versetype/layout"
)

func body() *fontreg.Record {
	return &fontreg.Record{Nickname: "booktab", Size: 10, LineCount: 1}
}

func TestRemoveTrailingSpaceDropsTrailingSpacePieces(t *testing.T) {
	l := &pieceline.Line{
		Pieces: []piece.Piece{
			{Text: "word", NaturalWidth: 20, Width: 20, Font: body()},
			{Text: " ", NaturalWidth: 5, Width: 5, Elastic: true, Font: body()},
		},
		LineWidthSoFar: 25,
	}
	RemoveTrailingSpace(l)
	if len(l.Pieces) != 1 {
		t.Fatalf("expected trailing space dropped, got %d pieces", len(l.Pieces))
	}
	if l.LineWidthSoFar != 20 {
		t.Fatalf("expected width reduced to 20, got %v", l.LineWidthSoFar)
	}
}

func TestRemoveLeadingSpaceDropsLeadingSpacePieces(t *testing.T) {
	l := &pieceline.Line{
		Pieces: []piece.Piece{
			{Text: " ", NaturalWidth: 5, Width: 5, Elastic: true, Font: body()},
			{Text: "word", NaturalWidth: 20, Width: 20, Font: body()},
		},
		LineWidthSoFar: 25,
	}
	RemoveLeadingSpace(l)
	if len(l.Pieces) != 1 || l.Pieces[0].Text != "word" {
		t.Fatalf("expected leading space dropped, got %+v", l.Pieces)
	}
	if l.LineWidthSoFar != 20 {
		t.Fatalf("expected width reduced to 20, got %v", l.LineWidthSoFar)
	}
}

func TestJustifySkipsFinalLine(t *testing.T) {
	l := &pieceline.Line{
		Alignment:      layout.AlignJustified,
		MaxLineWidth:   100,
		LineWidthSoFar: 60,
		Pieces: []piece.Piece{
			{Text: " ", Width: 5, Elastic: true},
		},
	}
	Justify(l, true)
	if l.Pieces[0].Width != 5 {
		t.Fatalf("final line must not be stretched, got width %v", l.Pieces[0].Width)
	}
}

func TestJustifyDistributesSlackAcrossElasticPieces(t *testing.T) {
	l := &pieceline.Line{
		Alignment:      layout.AlignJustified,
		MaxLineWidth:   100,
		LineWidthSoFar: 80,
		Pieces: []piece.Piece{
			{Text: " ", Width: 5, Elastic: true},
			{Text: " ", Width: 5, Elastic: true},
		},
	}
	Justify(l, false)
	if l.Pieces[0].Width != 15 || l.Pieces[1].Width != 15 {
		t.Fatalf("expected 20pt slack split evenly (10 each), got %v and %v", l.Pieces[0].Width, l.Pieces[1].Width)
	}
	if l.LineWidthSoFar != 100 {
		t.Fatalf("expected LineWidthSoFar set to MaxLineWidth, got %v", l.LineWidthSoFar)
	}
}

func TestStartXAccountsForLeftHangAndAlignment(t *testing.T) {
	l := &pieceline.Line{
		Alignment:      layout.AlignRight,
		MaxLineWidth:   100,
		LineWidthSoFar: 40,
		LeftHang:       3,
	}
	if x := StartX(l); x != 100-40-3 {
		t.Fatalf("StartX = %v, want %v", x, 100-40-3)
	}
}
